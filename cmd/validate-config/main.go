package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/vladimiradmaev/menupro-bot/internal/config"
)

func main() {
	fmt.Println("🔍 Проверка конфигурации...")

	if err := godotenv.Load(); err != nil {
		fmt.Printf("⚠️  .env файл не найден: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Ошибка валидации конфигурации:\n%v\n", err)
		os.Exit(1)
	}

	fmt.Println("✅ Конфигурация валидна!")
	fmt.Printf("📋 Детали конфигурации:\n")
	fmt.Printf("  - Telegram Token: %s\n", maskToken(cfg.TelegramToken))
	fmt.Printf("  - LLM Provider: %s\n", cfg.LLM.Provider)
	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		fmt.Printf("  - Gemini API Key: %s\n", maskToken(cfg.LLM.GeminiAPIKey))
		fmt.Printf("  - Gemini Model: %s\n", cfg.LLM.GeminiModel)
	default:
		fmt.Printf("  - Groq API Key: %s\n", maskToken(cfg.LLM.GroqAPIKey))
		fmt.Printf("  - Groq Model: %s\n", cfg.LLM.GroqModel)
	}
	fmt.Printf("  - LLM Timeout: %s\n", cfg.LLM.Timeout)
	fmt.Printf("  - DB: %s@%s:%s/%s\n", cfg.DB.User, cfg.DB.Host, cfg.DB.Port, cfg.DB.DBName)
	if cfg.Redis.Enabled() {
		fmt.Printf("  - Sessions: redis %s:%s db=%d ttl=%s\n", cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.DB, cfg.Redis.SessionTTL)
	} else {
		fmt.Printf("  - Sessions: in-memory ttl=%s\n", cfg.Redis.SessionTTL)
	}
	fmt.Printf("  - Payment Token: %s\n", maskToken(cfg.Subscription.PaymentToken))
	fmt.Printf("  - Subscription: %d ₽ / %d дн., пробный период %d дн.\n",
		cfg.Subscription.PriceRUB, cfg.Subscription.PaidPeriodDays, cfg.Subscription.TrialDays)
	fmt.Printf("  - Support Email: %s\n", orUnset(cfg.Support.Email))
	fmt.Printf("  - PDF Font: %s\n", orUnset(cfg.Export.FontPath))
	fmt.Printf("  - PDF Archive Bucket: %s\n", orUnset(cfg.Export.ArchiveBucket))
	fmt.Printf("  - HTTP Addr: %s\n", cfg.HTTP.Addr)
	fmt.Printf("  - Webhook URL: %s\n", orUnset(cfg.HTTP.WebhookURL))
	fmt.Printf("  - Webhook Secret: %s\n", maskToken(cfg.HTTP.WebhookSecret))
	fmt.Printf("  - Log Level: %v\n", cfg.Logger.Level)
	fmt.Printf("  - Log Output: %s\n", cfg.Logger.OutputPath)
	fmt.Printf("  - Log Format: %s\n", cfg.Logger.Format)
}

func maskToken(token string) string {
	if token == "" {
		return "<не установлен>"
	}
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

func orUnset(v string) string {
	if v == "" {
		return "<не установлен>"
	}
	return v
}
