// Package state keeps one conversation record per chat: the active flow and
// its payload.
package state

import (
	"context"
	"time"

	"github.com/vladimiradmaev/menupro-bot/internal/wizard"
)

type Flow string

const (
	FlowMenu       Flow = "menu"
	FlowEdit       Flow = "edit"
	FlowSupport    Flow = "support"
	FlowSubstitute Flow = "substitute"
)

// Conversation is the stored state of one chat.
type Conversation struct {
	ChatID         int64               `json:"chat_id"`
	Flow           Flow                `json:"flow"`
	Menu           *wizard.Session     `json:"menu,omitempty"`
	Edit           *wizard.EditSession `json:"edit,omitempty"`
	SupportSubject string              `json:"support_subject,omitempty"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// Store persists conversations. Get returns nil, nil when there is none.
type Store interface {
	Get(ctx context.Context, chatID int64) (*Conversation, error)
	Set(ctx context.Context, conv *Conversation) error
	Clear(ctx context.Context, chatID int64) error
}

// WizardSessions exposes the menu flow of a Store as wizard sessions.
type WizardSessions struct {
	store Store
}

func NewWizardSessions(store Store) *WizardSessions {
	return &WizardSessions{store: store}
}

func (w *WizardSessions) LoadSession(ctx context.Context, chatID int64) (*wizard.Session, error) {
	conv, err := w.store.Get(ctx, chatID)
	if err != nil || conv == nil || conv.Flow != FlowMenu {
		return nil, err
	}
	return conv.Menu, nil
}

func (w *WizardSessions) SaveSession(ctx context.Context, s *wizard.Session) error {
	return w.store.Set(ctx, &Conversation{ChatID: s.ConversationID, Flow: FlowMenu, Menu: s})
}

// ClearSession drops the conversation only while it is still in the menu
// flow.
func (w *WizardSessions) ClearSession(ctx context.Context, chatID int64) error {
	conv, err := w.store.Get(ctx, chatID)
	if err != nil {
		return err
	}
	if conv == nil || conv.Flow != FlowMenu {
		return nil
	}
	return w.store.Clear(ctx, chatID)
}
