package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	googleauth "esign-backend/internal/auth"
	"esign-backend/internal/documents"
	"esign-backend/internal/notify"
	"esign-backend/internal/pdfrender"
	"esign-backend/internal/queue"
	"esign-backend/internal/recipients"
	"esign-backend/internal/services/health"
	"esign-backend/internal/shared/config"
	"esign-backend/internal/shared/server"
	"esign-backend/internal/shared/server/middleware"
	"esign-backend/internal/shared/storage/db"
	"esign-backend/internal/shared/storage/object"
	localstore "esign-backend/internal/shared/storage/object/local"
	s3store "esign-backend/internal/shared/storage/object/s3"
	"esign-backend/internal/shared/telemetry"
	"esign-backend/internal/signing"
	"esign-backend/internal/users"
	"esign-backend/internal/workerproc"
)

// Role selects database pool sizing and whether the HTTP router is built.
type Role string

const (
	RoleAPI        Role = "api"
	RoleWorker     Role = "worker"
	RoleReconciler Role = "reconciler"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client

	Dispatcher *notify.Dispatcher
	Publisher  notify.Publisher

	DocumentsRepo  documents.Repo
	RecipientsRepo recipients.Repo
	UsersRepo      users.Repo

	DocumentsService *documents.Service
	SigningService   *signing.Service
	UsersService     *users.Service
	NotifyProcessor  *workerproc.Processor
}

// Build prepares shared dependencies for the given process role.
func Build(ctx context.Context, cfg config.Config, role Role) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	sqlDB, err := buildDB(ctx, cfg, role)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
	}

	if err := buildServices(ctx, app); err != nil {
		return nil, err
	}

	if role == RoleAPI {
		if err := buildRouter(app); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// Close waits for in-flight notifications and releases the database.
func (a *App) Close(ctx context.Context) error {
	var waitErr error
	if a.Dispatcher != nil {
		waitErr = a.Dispatcher.Wait(ctx)
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil && waitErr == nil {
			return err
		}
	}
	return waitErr
}

func buildDB(ctx context.Context, cfg config.Config, role Role) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.OptionsFor(db.Profile(role))))
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "connect failed", "error": err})
			return nil, nil
		}
		return nil, err
	}

	if isDevLike(cfg.Env) && role == RoleAPI {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, s3store.Options{
			Region:        cfg.AWSRegion,
			Bucket:        cfg.S3Bucket,
			Prefix:        cfg.S3Prefix,
			KMSKeyID:      cfg.SSEKMSKeyID,
			Endpoint:      cfg.S3Endpoint,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
	default:
		return localstore.New(cfg.LocalStoreDir, cfg.PublicBaseURL+"/files"), nil
	}
}

func buildMailer(cfg config.Config) (notify.Mailer, error) {
	if cfg.MailProvider == "resend" {
		return notify.NewResendMailer(cfg.ResendAPIKey, "")
	}
	return notify.LogMailer{}, nil
}

func buildPublisher(ctx context.Context, app *App, dispatcher *notify.Dispatcher) (notify.Publisher, error) {
	if app.Config.NotifyMode != "queue" {
		return notify.NewInlinePublisher(dispatcher, app.UsersRepo), nil
	}
	client, err := queue.NewSQSClient(ctx, queue.SQSOptions{
		QueueURL: app.Config.NotifySQSQueueURL,
		Region:   app.Config.AWSRegion,
		Endpoint: app.Config.NotifySQSEndpoint,
	})
	if err != nil {
		return nil, err
	}
	app.Queue = client
	return notify.NewQueuePublisher(dispatcher, client), nil
}

func buildServices(ctx context.Context, app *App) error {
	cfg := app.Config
	if app.DB != nil {
		app.DocumentsRepo = &documents.PGRepo{DB: app.DB}
		app.RecipientsRepo = recipients.NewPGRepo(app.DB)
		app.UsersRepo = &users.PGRepo{DB: app.DB}
	} else {
		app.DocumentsRepo = documents.NewMemoryRepo()
		app.RecipientsRepo = recipients.NewMemoryRepo()
		app.UsersRepo = users.NewMemoryRepo()
	}

	mailer, err := buildMailer(cfg)
	if err != nil {
		return err
	}
	app.Dispatcher = notify.NewDispatcher(mailer, notify.Options{
		From:       cfg.MailFrom,
		AppBaseURL: cfg.AppBaseURL,
	})
	publisher, err := buildPublisher(ctx, app, app.Dispatcher)
	if err != nil {
		return err
	}
	app.Publisher = publisher

	pdf, err := pdfrender.New(pdfrender.Options{
		BaseURL: cfg.PDFRendererURL,
		Token:   cfg.PDFRendererToken,
		Timeout: time.Duration(cfg.PDFRenderTimeoutS) * time.Second,
	})
	if err != nil {
		return err
	}
	loc, err := time.LoadLocation(cfg.SigningTimezone)
	if err != nil {
		return fmt.Errorf("load SIGNING_TIMEZONE: %w", err)
	}

	app.UsersService = users.NewService(app.UsersRepo)
	app.DocumentsService = documents.NewService(app.DocumentsRepo, app.RecipientsRepo, app.Store, publisher)
	app.SigningService = signing.NewService(signing.Deps{
		Recipients: app.RecipientsRepo,
		Documents:  app.DocumentsRepo,
		Store:      app.Store,
		PDF:        pdf,
		Location:   loc,
		Publisher:  publisher,
	})
	app.NotifyProcessor = &workerproc.Processor{
		Recipients: app.RecipientsRepo,
		Documents:  app.DocumentsRepo,
		Users:      app.UsersRepo,
		Store:      app.Store,
		Sender:     app.Dispatcher,
	}
	return nil
}

func buildRouter(app *App) error {
	cfg := app.Config
	var limiter middleware.Limiter
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisLimiter, err := middleware.NewRedisRateLimiter(cfg.RedisURL)
		if err != nil {
			return err
		}
		limiter = redisLimiter
	} else {
		limiter = middleware.NewRateLimiter(nil)
	}

	filesDir := ""
	if local, ok := app.Store.(*localstore.Store); ok {
		filesDir = local.BaseDir()
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		Health:          health.NewService(pinger(app.DB), cfg.ObjectStoreType, cfg.NotifyMode),
		DocumentHandler: documents.NewHandler(app.DocumentsService),
		SigningHandler:  signing.NewHandler(app.SigningService),
		UserHandler:     users.NewHandler(app.UsersService),
		GoogleAuth: googleauth.NewGoogleService(
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.GoogleRedirectURL,
			cfg.UIRedirectURL,
			app.UsersService,
		),
		Limiter:  limiter,
		FilesDir: filesDir,
	})
	return nil
}

func pinger(sqlDB *sql.DB) health.Pinger {
	if sqlDB == nil {
		return nil
	}
	return sqlDB
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
