package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vladimiradmaev/menupro-bot/internal/bot/handlers"
	"github.com/vladimiradmaev/menupro-bot/internal/config"
	"github.com/vladimiradmaev/menupro-bot/internal/logger"
)

type Bot struct {
	api        *tgbotapi.BotAPI
	handler    *handlers.UpdateHandler
	dispatcher *dispatcher
	http       config.HTTPConfig
	checks     []HealthCheck
}

func NewBot(token string, deps handlers.Dependencies, httpCfg config.HTTPConfig, checks ...HealthCheck) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	logger.Info("Bot authorized", "account", api.Self.UserName)

	b := &Bot{
		api:     api,
		handler: handlers.NewUpdateHandler(api, deps),
		http:    httpCfg,
		checks:  checks,
	}
	b.dispatcher = newDispatcher(b.handleUpdate)
	return b, nil
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	ctx := logger.ContextWith(context.Background(), "update_id", update.UpdateID)
	// Errors are logged and answered inside the handler.
	_ = b.handler.Handle(ctx, update)
}

// Start receives updates until ctx is cancelled, then waits for in-flight
// updates and generations. Updates come from a webhook when WebhookURL is
// configured and from long polling otherwise.
func (b *Bot) Start(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)

	useWebhook := b.http.WebhookURL != ""
	var hook *webhook
	if useWebhook {
		if err := b.setWebhook(); err != nil {
			return err
		}
		hook = &webhook{secret: b.http.WebhookSecret, receive: b.api.HandleUpdate, dispatch: b.dispatcher.Dispatch}
	} else if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		logger.Warn("Failed to delete webhook", "error", err)
	}

	server := &http.Server{
		Addr:              b.http.Addr,
		Handler:           newRouter(b.checks, hook),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server started", "addr", server.Addr, "webhook", useWebhook)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	if useWebhook {
		select {
		case <-ctx.Done():
		case runErr = <-serverErr:
		}
	} else {
		runErr = b.poll(ctx, serverErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to stop HTTP server", "error", err)
	}

	logger.Info("Waiting for in-flight updates")
	b.dispatcher.Wait()
	b.handler.Wait()
	return runErr
}

func (b *Bot) poll(ctx context.Context, serverErr <-chan error) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	logger.Info("Bot started polling for updates")
	for {
		select {
		case <-ctx.Done():
			logger.Info("Bot stopping")
			return nil
		case err := <-serverErr:
			return err
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.dispatcher.Dispatch(update)
		}
	}
}

func (b *Bot) setWebhook() error {
	if b.http.WebhookSecret == "" {
		return errors.New("webhook secret is not configured")
	}
	base := strings.TrimRight(b.http.WebhookURL, "/") + webhookPath
	wh, err := tgbotapi.NewWebhook(base + "/" + b.http.WebhookSecret)
	if err != nil {
		return fmt.Errorf("invalid webhook url %q", base)
	}
	if _, err := b.api.Request(wh); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	logger.Info("Webhook registered", "url", base+"/<secret>")
	return nil
}
