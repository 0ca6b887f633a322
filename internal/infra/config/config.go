// internal/infra/config/config.go
package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// Config holds every environment setting the service reads at boot.
type Config struct {
	Port string

	FirestoreProjectID       string
	FirestoreCredentialsFile string
	FirebaseProjectID        string

	// Optional PostgreSQL order store. Empty means Firestore only.
	DatabaseURL string

	// Optional AMQP broker for background tasks. Empty means the
	// in-process queue.
	AMQPURL string

	// Shared secret expected on gateway webhook calls. Loaded from the
	// environment or, when GATEWAY_WEBHOOK_SECRET_NAME is set, from
	// Secret Manager.
	GatewayWebhookSecret string

	// Fiscal provider (invoice issuance).
	FiscalBaseURL string
	FiscalAPIKey  string

	// Identity provider admin API (classroom enrollment).
	MembershipBaseURL string
	MembershipAPIKey  string

	// Invitation mail.
	SendGridAPIKey string
	MailFrom       string
	SignupBaseURL  string

	// GCS archive for issued invoices. Empty disables archiving.
	InvoiceArchiveBucket string

	CORSAllowOrigin string
}

// Load reads the environment into a Config.
func Load() *Config {
	defaultProject := getenvDefault("GCP_PROJECT_ID", "")

	return &Config{
		Port: getenvDefault("PORT", "8080"),

		FirestoreProjectID:       getenvDefault("FIRESTORE_PROJECT_ID", defaultProject),
		FirestoreCredentialsFile: os.Getenv("FIRESTORE_CREDENTIALS_FILE"),
		FirebaseProjectID:        getenvDefault("FIREBASE_PROJECT_ID", defaultProject),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		AMQPURL:     os.Getenv("AMQP_URL"),

		GatewayWebhookSecret: os.Getenv("GATEWAY_WEBHOOK_SECRET"),

		FiscalBaseURL: os.Getenv("FISCAL_BASE_URL"),
		FiscalAPIKey:  os.Getenv("FISCAL_API_KEY"),

		MembershipBaseURL: os.Getenv("MEMBERSHIP_BASE_URL"),
		MembershipAPIKey:  os.Getenv("MEMBERSHIP_API_KEY"),

		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		MailFrom:       getenvDefault("MAIL_FROM", "no-reply@academy.example.com"),
		SignupBaseURL:  getenvDefault("SIGNUP_BASE_URL", "https://academy.example.com"),

		InvoiceArchiveBucket: os.Getenv("INVOICE_ARCHIVE_BUCKET"),

		CORSAllowOrigin: getenvDefault("CORS_ALLOW_ORIGIN", "*"),
	}
}

// ResolveGatewaySecret fills GatewayWebhookSecret from Secret Manager
// when GATEWAY_WEBHOOK_SECRET_NAME points at a secret and the plain
// environment variable is unset.
func (c *Config) ResolveGatewaySecret(ctx context.Context) error {
	if c.GatewayWebhookSecret != "" {
		return nil
	}
	secretName := strings.TrimSpace(os.Getenv("GATEWAY_WEBHOOK_SECRET_NAME"))
	if secretName == "" {
		return nil
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("secretmanager client: %w", err)
	}
	defer client.Close()

	if !strings.HasPrefix(secretName, "projects/") {
		project := c.FirestoreProjectID
		if project == "" {
			return fmt.Errorf("GATEWAY_WEBHOOK_SECRET_NAME needs a full resource name or a configured project id")
		}
		secretName = fmt.Sprintf("projects/%s/secrets/%s/versions/latest", project, secretName)
	}

	res, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: secretName})
	if err != nil {
		return fmt.Errorf("access secret %s: %w", secretName, err)
	}
	if res == nil || res.Payload == nil || len(res.Payload.Data) == 0 {
		return fmt.Errorf("secret %s has an empty payload", secretName)
	}

	c.GatewayWebhookSecret = strings.TrimSpace(string(res.Payload.Data))
	log.Printf("[config] gateway webhook secret loaded from Secret Manager")
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
