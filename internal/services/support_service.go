package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	apperrors "github.com/vladimiradmaev/menupro-bot/internal/errors"
	"github.com/vladimiradmaev/menupro-bot/internal/logger"
)

// SupportSubjects are the request kinds offered in the support menu.
var SupportSubjects = map[string]string{
	"bug":      "Ошибка",
	"idea":     "Предложение",
	"question": "Вопрос",
	"payment":  "Оплата",
}

const MaxSupportMessage = 4000

// SupportService forwards user messages to the support mailbox.
type SupportService struct {
	client SESAPI
	from   string
	to     string
}

// NewSupportService returns nil when support mail is not configured.
func NewSupportService(client SESAPI, from, to string) *SupportService {
	if client == nil || to == "" {
		return nil
	}
	return &SupportService{client: client, from: from, to: to}
}

func (s *SupportService) Enabled() bool {
	return s != nil
}

// Send mails one support request on behalf of user.
func (s *SupportService) Send(ctx context.Context, user *domain.User, subject, message string) error {
	if !s.Enabled() {
		return apperrors.NewFeatureLockedError("support")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return apperrors.NewValidationError("EMPTY_MESSAGE", "support message must not be empty")
	}
	title, ok := SupportSubjects[subject]
	if !ok {
		title = SupportSubjects["question"]
	}

	body := fmt.Sprintf("Пользователь: %s (@%s)\nTelegram ID: %d\nID: %d\nТема: %s\n\n%s",
		user.FirstName, user.Username, user.TelegramID, user.ID, title,
		apperrors.Truncate(message, MaxSupportMessage))

	input := &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{s.to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(fmt.Sprintf("[MenuPro] %s от %s", title, user.DisplayName())),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(body),
					Charset: aws.String("UTF-8"),
				},
			},
		},
		Source: aws.String(s.from),
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		logger.WithContext(ctx).Error("SES send error", "user_id", user.ID, "error", err)
		return apperrors.Wrap(err, apperrors.ErrorTypeExternal, "SUPPORT_MAIL", "failed to send support message")
	}
	logger.WithContext(ctx).Info("Support message sent", "user_id", user.ID, "subject", subject)
	return nil
}
