package bot

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// dispatcher runs updates of one chat in arrival order on a dedicated
// goroutine that exits when the chat's queue is empty.
type dispatcher struct {
	handle func(tgbotapi.Update)
	queues map[int64][]tgbotapi.Update
	mu     sync.Mutex
	wg     sync.WaitGroup
}

func newDispatcher(handle func(tgbotapi.Update)) *dispatcher {
	return &dispatcher{handle: handle, queues: make(map[int64][]tgbotapi.Update)}
}

func (d *dispatcher) Dispatch(update tgbotapi.Update) {
	key, ok := chatKey(update)
	if !ok {
		return
	}

	d.mu.Lock()
	queue, running := d.queues[key]
	d.queues[key] = append(queue, update)
	d.mu.Unlock()

	if !running {
		d.wg.Add(1)
		go d.drain(key)
	}
}

func (d *dispatcher) drain(key int64) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		queue := d.queues[key]
		if len(queue) == 0 {
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		update := queue[0]
		d.queues[key] = queue[1:]
		d.mu.Unlock()

		d.handle(update)
	}
}

// Wait blocks until every queued update has been handled.
func (d *dispatcher) Wait() {
	d.wg.Wait()
}

// chatKey returns the conversation an update belongs to. Pre-checkout
// queries carry no chat and are keyed by the paying user.
func chatKey(update tgbotapi.Update) (int64, bool) {
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		return update.CallbackQuery.Message.Chat.ID, true
	case update.Message != nil:
		return update.Message.Chat.ID, true
	case update.PreCheckoutQuery != nil && update.PreCheckoutQuery.From != nil:
		return update.PreCheckoutQuery.From.ID, true
	default:
		return 0, false
	}
}
