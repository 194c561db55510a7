package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/joho/godotenv"
	"github.com/vladimiradmaev/menupro-bot/internal/bot"
	"github.com/vladimiradmaev/menupro-bot/internal/bot/handlers"
	"github.com/vladimiradmaev/menupro-bot/internal/bot/state"
	"github.com/vladimiradmaev/menupro-bot/internal/config"
	"github.com/vladimiradmaev/menupro-bot/internal/database"
	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	"github.com/vladimiradmaev/menupro-bot/internal/entitlement"
	"github.com/vladimiradmaev/menupro-bot/internal/generation"
	"github.com/vladimiradmaev/menupro-bot/internal/logger"
	"github.com/vladimiradmaev/menupro-bot/internal/repository"
	"github.com/vladimiradmaev/menupro-bot/internal/services"
	"github.com/vladimiradmaev/menupro-bot/internal/wizard"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Warn(".env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", "error", err)
	}

	if err := logger.InitWithConfig(logger.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	}); err != nil {
		logger.Fatal("Failed to initialize logger", "error", err)
	}
	defer logger.Close()
	logger.Info("Starting MenuPro bot", "llm_provider", cfg.LLM.Provider)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresDB(cfg.DB)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	store := repository.NewStore(db)
	defer store.Close()

	checks := []bot.HealthCheck{{Name: "postgres", Check: func(context.Context) error { return store.Ping() }}}

	var conversations state.Store
	if cfg.Redis.Enabled() {
		redisStore, err := state.NewRedisManager(cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", "error", err)
		}
		defer redisStore.Close()
		conversations = redisStore
		checks = append(checks, bot.HealthCheck{Name: "redis", Check: redisStore.Ping})
		logger.Info("Using Redis conversation store", "host", cfg.Redis.Host)
	} else {
		conversations = state.NewManager(cfg.Redis.SessionTTL)
		logger.Info("Using in-memory conversation store")
	}

	provider, closeProvider, err := newProvider(ctx, cfg.LLM)
	if err != nil {
		logger.Fatal("Failed to create LLM provider", "error", err)
	}
	defer closeProvider()

	catalog := domain.DefaultCatalog()
	gateway := generation.NewGateway(provider, catalog, cfg.LLM.Timeout)
	policy := entitlement.NewPolicy(cfg.Subscription.TrialDays, cfg.Subscription.PaidPeriodDays)
	userService := services.NewUserService(store.Users, store.Plans, store.Payments, policy, nil)
	planService := services.NewPlanService(gateway, store.Plans, userService, nil)

	var (
		supportService *services.SupportService
		archive        services.S3API
	)
	if cfg.Support.Enabled() {
		awsCfg, err := services.LoadAWSConfig(ctx, cfg.Support.AWSRegion)
		if err != nil {
			logger.Fatal("Failed to configure support mail", "error", err)
		}
		supportService = services.NewSupportService(ses.NewFromConfig(awsCfg), cfg.Support.SESSender, cfg.Support.Email)
	}
	if cfg.Export.ArchiveBucket != "" {
		awsCfg, err := services.LoadAWSConfig(ctx, cfg.Export.AWSRegion)
		if err != nil {
			logger.Fatal("Failed to configure export archive", "error", err)
		}
		archive = s3.NewFromConfig(awsCfg)
	}
	exportService, err := services.NewExportService(planService, catalog, cfg.Export.FontPath, archive, cfg.Export.ArchiveBucket)
	if err != nil {
		logger.Fatal("Failed to create export service", "error", err)
	}
	logger.Info("Services initialized",
		"support", supportService.Enabled(),
		"pdf_export", exportService.Enabled(),
		"pdf_archive", cfg.Export.ArchiveBucket != "")

	locks := wizard.NewLocks()
	deps := handlers.Dependencies{
		UserService:    userService,
		PlanService:    planService,
		ExportService:  exportService,
		SupportService: supportService,
		Machine:        wizard.NewMachine(catalog, userService, nil),
		Coordinator:    wizard.NewCoordinator(state.NewWizardSessions(conversations), planService, locks),
		Editor:         wizard.NewEditor(store.Plans),
		Locks:          locks,
		Conversations:  conversations,
		Catalog:        catalog,
		Subscription:   cfg.Subscription,
	}

	telegramBot, err := bot.NewBot(cfg.TelegramToken, deps, cfg.HTTP, checks...)
	if err != nil {
		logger.Fatal("Failed to create bot", "error", err)
	}

	logger.Info("Bot is running. Press Ctrl+C to stop.")
	if err := telegramBot.Start(ctx); err != nil {
		logger.Error("Bot stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Bot stopped")
}

// newProvider builds the configured LLM backend and a func releasing it.
func newProvider(ctx context.Context, cfg config.LLMConfig) (generation.TextGenerator, func(), error) {
	if cfg.Provider == config.ProviderGemini {
		p, err := generation.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		return p, func() {
			if err := p.Close(); err != nil {
				logger.Warn("Failed to close Gemini client", "error", err)
			}
		}, nil
	}
	return generation.NewGroqProvider(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.GroqModel), func() {}, nil
}
