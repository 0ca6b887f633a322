// internal/adapters/out/mail/invitation_mailer.go
package mail

import (
	"context"
	"fmt"
	"strings"
)

// EmailClient abstracts the concrete mail sender (SendGrid, SMTP).
type EmailClient interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// InvitationMailer sends the post-payment account invitation pointing
// buyers at the registration page. It implements webhook.Inviter.
type InvitationMailer struct {
	client        EmailClient
	fromAddress   string
	signupBaseURL string
}

func NewInvitationMailer(client EmailClient, fromAddress, signupBaseURL string) *InvitationMailer {
	return &InvitationMailer{
		client:        client,
		fromAddress:   fromAddress,
		signupBaseURL: strings.TrimRight(signupBaseURL, "/"),
	}
}

func (m *InvitationMailer) buildSignupURL(email string) string {
	return fmt.Sprintf("%s/signup?email=%s", m.signupBaseURL, strings.TrimSpace(email))
}

// Invite emails the buyer a link to create their account. Access is
// granted once the account-creation signal arrives, so the mail is a
// nudge, never a prerequisite.
func (m *InvitationMailer) Invite(ctx context.Context, email, name string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("invitation target email is empty")
	}

	signupURL := m.buildSignupURL(email)

	subject := "Your course access is ready"

	greeting := "Hello"
	if n := strings.TrimSpace(name); n != "" {
		greeting = "Hello " + n
	}

	body := fmt.Sprintf(
		`%s,

We confirmed your payment. To access your course, create your account
using this same email address:

  %s

If you already have an account with this email, your access will be
enabled automatically the next time you sign in.

If you did not make this purchase, please disregard this message.

--
Academy`,
		greeting,
		signupURL,
	)

	return m.client.Send(ctx, m.fromAddress, email, subject, body)
}
