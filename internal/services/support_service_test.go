package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	apperrors "github.com/vladimiradmaev/menupro-bot/internal/errors"
)

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("m-1")}, nil
}

func TestSupportSend(t *testing.T) {
	client := &fakeSES{}
	svc := NewSupportService(client, "bot@example.com", "help@example.com")
	user := &domain.User{ID: 3, TelegramID: 42, FirstName: "Anna", Username: "anna"}

	if err := svc.Send(context.Background(), user, "bug", "  Кнопка не работает  "); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	in := client.input
	if aws.ToString(in.Source) != "bot@example.com" || in.Destination.ToAddresses[0] != "help@example.com" {
		t.Errorf("addresses = %s -> %v", aws.ToString(in.Source), in.Destination.ToAddresses)
	}
	if subject := aws.ToString(in.Message.Subject.Data); !strings.Contains(subject, "Ошибка") || !strings.Contains(subject, "Anna") {
		t.Errorf("subject = %q", subject)
	}
	body := aws.ToString(in.Message.Body.Text.Data)
	for _, want := range []string{"Telegram ID: 42", "Кнопка не работает", "@anna"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestSupportErrors(t *testing.T) {
	user := &domain.User{ID: 1}

	disabled := NewSupportService(nil, "", "")
	if err := disabled.Send(context.Background(), user, "bug", "x"); !errors.Is(err, apperrors.ErrFeatureLocked) {
		t.Errorf("disabled error = %v", err)
	}

	svc := NewSupportService(&fakeSES{}, "a@b", "c@d")
	if err := svc.Send(context.Background(), user, "bug", "   "); !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("empty message error = %v", err)
	}

	failing := NewSupportService(&fakeSES{err: errors.New("throttled")}, "a@b", "c@d")
	if err := failing.Send(context.Background(), user, "idea", "hi"); !apperrors.IsType(err, apperrors.ErrorTypeExternal) {
		t.Errorf("send failure error = %v", err)
	}
}
