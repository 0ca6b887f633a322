// internal/platform/di/container.go
package di

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	httpin "academy/internal/adapters/in/http"
	"academy/internal/adapters/in/http/webhook"
	outdb "academy/internal/adapters/out/db"
	outfs "academy/internal/adapters/out/firestore"
	outgcs "academy/internal/adapters/out/gcs"
	httpout "academy/internal/adapters/out/http"
	"academy/internal/adapters/out/mail"
	outqueue "academy/internal/adapters/out/queue"
	usecase "academy/internal/application/usecase"
	orderdom "academy/internal/domain/order"
	"academy/internal/infra/config"
	"academy/internal/infra/database"
	firestoreinfra "academy/internal/infra/firestore"
	taskq "academy/internal/infra/queue"
)

// Container bundles everything main needs: the root handler, the
// background worker entrypoint, and the cleanup chain.
type Container struct {
	Handler http.Handler

	// StartWorker drains the background task queue. It blocks until ctx
	// is cancelled; run it in its own goroutine.
	StartWorker func(ctx context.Context)

	cleanupFn []func()
}

// Close releases every resource the container opened, in reverse order.
func (c *Container) Close() {
	for i := len(c.cleanupFn) - 1; i >= 0; i-- {
		c.cleanupFn[i]()
	}
}

// Build assembles the full dependency graph from config.
func Build(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{}

	// ------------------------------------------------------------
	// 1. External resources
	// ------------------------------------------------------------

	fsWrap, err := firestoreinfra.NewClient(ctx, cfg.FirestoreProjectID, cfg.FirestoreCredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("init firestore: %w", err)
	}
	c.cleanupFn = append(c.cleanupFn, func() { _ = fsWrap.Close() })

	var fbAuth *fbauth.Client
	if cfg.FirebaseProjectID != "" {
		var opts []option.ClientOption
		if cfg.FirestoreCredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.FirestoreCredentialsFile))
		}
		app, aErr := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, opts...)
		if aErr != nil {
			return nil, fmt.Errorf("init firebase app: %w", aErr)
		}
		fbAuth, aErr = app.Auth(ctx)
		if aErr != nil {
			return nil, fmt.Errorf("init firebase auth: %w", aErr)
		}
	} else {
		log.Printf("[di] WARN: FIREBASE_PROJECT_ID unset; identity webhook will reject calls")
	}

	// ------------------------------------------------------------
	// 2. Repositories
	// ------------------------------------------------------------

	couponRepo := outfs.NewCouponRepositoryFS(fsWrap.Client)

	var orderRepo orderdom.Repository
	if cfg.DatabaseURL != "" {
		pg, pErr := database.NewConnection(cfg.DatabaseURL)
		if pErr != nil {
			return nil, fmt.Errorf("init postgres: %w", pErr)
		}
		c.cleanupFn = append(c.cleanupFn, func() { _ = pg.Close() })
		orderRepo = outdb.NewOrderRepositoryPG(pg.Client, couponRepo)
		log.Printf("[di] order repository: postgres")
	} else {
		orderRepo = outfs.NewOrderRepositoryFS(fsWrap.Client)
		log.Printf("[di] order repository: firestore")
	}

	invoiceRepo := outfs.NewInvoiceRepositoryFS(fsWrap.Client)
	planRepo := outfs.NewPlanRepositoryFS(fsWrap.Client)

	// ------------------------------------------------------------
	// 3. Outbound clients
	// ------------------------------------------------------------

	fiscal := httpout.NewFiscalClient(cfg.FiscalBaseURL, cfg.FiscalAPIKey)
	membership := httpout.NewMembershipClient(cfg.MembershipBaseURL, cfg.MembershipAPIKey)

	var archiver usecase.InvoiceArchiver
	if cfg.InvoiceArchiveBucket != "" {
		gcsClient, gErr := storage.NewClient(ctx)
		if gErr != nil {
			return nil, fmt.Errorf("init storage: %w", gErr)
		}
		c.cleanupFn = append(c.cleanupFn, func() { _ = gcsClient.Close() })
		archiver = outgcs.NewInvoiceArchiveGCS(gcsClient, cfg.InvoiceArchiveBucket)
	}

	invite := invitePipeline{membership: membership}
	if cfg.SendGridAPIKey != "" {
		sg := mail.NewSendGridClient(cfg.SendGridAPIKey)
		invite.mailer = mail.NewInvitationMailer(sg, cfg.MailFrom, cfg.SignupBaseURL)
	} else {
		log.Printf("[di] WARN: SENDGRID_API_KEY unset; invitation mail disabled")
	}

	// ------------------------------------------------------------
	// 4. Queue
	// ------------------------------------------------------------

	var (
		enqueuer    taskq.Enqueuer
		startWorker func(ctx context.Context, h taskq.Handler)
	)
	if cfg.AMQPURL != "" {
		amq, qErr := outqueue.NewAMQPQueue(cfg.AMQPURL)
		if qErr != nil {
			return nil, fmt.Errorf("init amqp: %w", qErr)
		}
		c.cleanupFn = append(c.cleanupFn, func() { _ = amq.Close() })
		enqueuer = amq
		startWorker = func(ctx context.Context, h taskq.Handler) {
			if sErr := amq.Start(ctx, h); sErr != nil && ctx.Err() == nil {
				log.Printf("[di] amqp worker stopped: %v", sErr)
			}
		}
		log.Printf("[di] task queue: amqp")
	} else {
		inproc := taskq.NewInProcess(64)
		c.cleanupFn = append(c.cleanupFn, func() { _ = inproc.Close() })
		enqueuer = inproc
		startWorker = inproc.Start
		log.Printf("[di] task queue: in-process")
	}

	// ------------------------------------------------------------
	// 5. Usecases
	// ------------------------------------------------------------

	pricing := usecase.NewPricingResolver(planRepo, couponRepo)
	orderUC := usecase.NewOrderUsecase(orderRepo, pricing)
	provisioningUC := usecase.NewProvisioningUsecase(orderRepo, planRepo, membership)
	paymentUC := usecase.NewPaymentUsecase(orderRepo, enqueuer, provisioningUC)
	claimUC := usecase.NewClaimUsecase(orderRepo, provisioningUC)
	invoiceUC := usecase.NewInvoiceUsecase(invoiceRepo, orderRepo, fiscal, archiver)

	c.StartWorker = func(ctx context.Context) {
		startWorker(ctx, func(ctx context.Context, t taskq.Task) error {
			switch t.Kind {
			case taskq.KindIssueInvoice:
				return invoiceUC.IssueForOrder(ctx, t.OrderID)
			default:
				log.Printf("[di] unknown task kind=%s dropped", t.Kind)
				return nil
			}
		})
	}

	// ------------------------------------------------------------
	// 6. HTTP surface
	// ------------------------------------------------------------

	c.Handler = httpin.NewRouter(httpin.RouterDeps{
		OrderUC:       orderUC,
		PaymentUC:     paymentUC,
		ClaimUC:       claimUC,
		GatewaySecret: cfg.GatewayWebhookSecret,
		FirebaseAuth:  fbAuth,
		Inviter:       invite,
	})

	return c, nil
}

// invitePipeline fans the post-payment invitation out to the identity
// provider and the mailer. Both legs are best-effort; a membership
// failure is logged and never blocks the mail.
type invitePipeline struct {
	membership *httpout.MembershipClient
	mailer     webhook.Inviter
}

func (p invitePipeline) Invite(ctx context.Context, email, name string) error {
	if err := p.membership.CreateInvitation(ctx, email, name); err != nil {
		log.Printf("[di] WARN membership invitation failed err=%v", err)
	}
	if p.mailer == nil {
		return nil
	}
	return p.mailer.Invite(ctx, email, name)
}
