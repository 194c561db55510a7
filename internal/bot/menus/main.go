package menus

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vladimiradmaev/menupro-bot/internal/bot/keyboards"
	"github.com/vladimiradmaev/menupro-bot/internal/domain"
)

// MaxMessageLength keeps messages under the Telegram limit of 4096 characters.
const MaxMessageLength = 4000

// Sender is the part of the bot API used to talk to chats.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

const helpText = `<b>Как это работает</b>

1. Нажмите «Создать меню» и выберите режим питания
2. Укажите, сколько человек будет есть, и расскажите о каждом
3. Выберите количество дней и приёмы пищи
4. Получите меню, рецепты и список покупок

/start — главное меню
/cancel — отменить текущее действие
/help — эта справка`

// MainMenuText greets the user by name
func MainMenuText(user *domain.User) string {
	name := "друг"
	if user != nil {
		name = user.DisplayName()
	}
	return fmt.Sprintf(`👋 Привет, %s!

🍽️ <b>МенюПро</b> составит меню питания на несколько дней для вас и вашей семьи, подберёт рецепты и соберёт список покупок.

Выберите действие:`, esc(name))
}

// SendMainMenu sends the main menu to a chat
func SendMainMenu(api Sender, chatID int64, user *domain.User) error {
	markup := keyboards.MainMenu()
	return SendText(api, chatID, MainMenuText(user), &markup)
}

// SendHelp sends the usage help
func SendHelp(api Sender, chatID int64) error {
	markup := keyboards.MainMenu()
	return SendText(api, chatID, helpText, &markup)
}

// SendText sends an HTML message, split into parts when it is too long. The
// keyboard goes with the last part.
func SendText(api Sender, chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	parts := Split(text, MaxMessageLength)
	for i, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if markup != nil && i == len(parts)-1 {
			msg.ReplyMarkup = *markup
		}
		if _, err := api.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

// Split cuts text on line boundaries into parts of at most limit runes. A
// single longer line is cut by runes.
func Split(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var parts []string
	var b strings.Builder
	size := 0
	flush := func() {
		if part := strings.TrimRight(b.String(), "\n"); part != "" {
			parts = append(parts, part)
		}
		b.Reset()
		size = 0
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		n := utf8.RuneCountInString(line)
		if size+n > limit {
			flush()
		}
		for n > limit {
			r := []rune(line)
			parts = append(parts, string(r[:limit]))
			line = string(r[limit:])
			n -= limit
		}
		b.WriteString(line)
		size += n
	}
	flush()
	return parts
}

func esc(s string) string {
	return html.EscapeString(s)
}
