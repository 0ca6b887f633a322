// internal/adapters/out/http/membership_client.go
package httpout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	uc "academy/internal/application/usecase"
)

// MembershipClient talks to the identity provider's admin API. It
// registers post-payment invitations and grants classroom access to
// provisioned accounts; the latter implements usecase.AccessGranter.
type MembershipClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewMembershipClient(baseURL, apiKey string) *MembershipClient {
	return &MembershipClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

var _ uc.AccessGranter = (*MembershipClient)(nil)

type createInvitationDTO struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// CreateInvitation registers the buyer with the identity provider so the
// signup flow recognizes the email. Repeating an invitation is safe.
func (c *MembershipClient) CreateInvitation(ctx context.Context, email, name string) error {
	if c.baseURL == "" {
		return fmt.Errorf("membership client baseURL is empty")
	}

	payload := createInvitationDTO{
		Email: strings.ToLower(strings.TrimSpace(email)),
		Name:  strings.TrimSpace(name),
	}
	b, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/admin/invitations", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated && res.StatusCode != http.StatusConflict {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
		return fmt.Errorf("create invitation failed status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

type grantAccessDTO struct {
	AccountID    string `json:"accountId"`
	Email        string `json:"email"`
	ClassroomIDs []int  `json:"classroomIds"`
}

// GrantAccess enrolls the account into every classroom of the purchased
// plan. The provider treats enrollment as idempotent; repeating a grant
// is safe.
func (c *MembershipClient) GrantAccess(ctx context.Context, accountID, email string, classroomIDs []int) error {
	if c.baseURL == "" {
		return fmt.Errorf("membership client baseURL is empty")
	}

	payload := grantAccessDTO{
		AccountID:    strings.TrimSpace(accountID),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		ClassroomIDs: classroomIDs,
	}
	b, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/admin/enrollments", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated && res.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
		return fmt.Errorf("grant access failed status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
