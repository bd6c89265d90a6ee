package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/meetsmatch/swipeclient/internal/api"
	apperrors "github.com/meetsmatch/swipeclient/internal/errors"
	"github.com/meetsmatch/swipeclient/internal/interfaces"
	"github.com/meetsmatch/swipeclient/internal/monitoring"
	"github.com/meetsmatch/swipeclient/internal/telemetry"
)

// DefaultPollInterval is how often an open thread checks for new messages
const DefaultPollInterval = 10 * time.Second

// ThreadOption configures a Thread
type ThreadOption func(*Thread)

// WithPollInterval overrides DefaultPollInterval
func WithPollInterval(d time.Duration) ThreadOption {
	return func(t *Thread) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithThreadInstrumentation records poll metrics on inst
func WithThreadInstrumentation(inst *monitoring.ClientInstrumentation) ThreadOption {
	return func(t *Thread) { t.inst = inst }
}

// WithUpdateHandler is called with the full message list after every
// successful refresh
func WithUpdateHandler(fn func([]api.Message)) ThreadOption {
	return func(t *Thread) { t.onUpdate = fn }
}

// Thread is the open chat of one match. While open it polls the backend
// for new messages.
type Thread struct {
	api      interfaces.MessageAPI
	matchID  string
	interval time.Duration
	inst     *monitoring.ClientInstrumentation
	onUpdate func([]api.Message)

	mu       sync.RWMutex
	messages []api.Message
	// fetch sequence; a slow fetch never overwrites a newer one
	nextSeq    uint64
	appliedSeq uint64

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	closed    bool
}

func NewThread(client interfaces.MessageAPI, matchID string, opts ...ThreadOption) (*Thread, error) {
	if strings.TrimSpace(matchID) == "" {
		return nil, apperrors.NewValidationError("match_id", "match id is required")
	}
	t := &Thread{
		api:      client,
		matchID:  matchID,
		interval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *Thread) MatchID() string { return t.matchID }

// Open starts polling and loads the current messages. The thread stays open
// even if the first load fails; callers must Close it either way.
func (t *Thread) Open(ctx context.Context) ([]api.Message, error) {
	t.lifecycle.Lock()
	if t.closed {
		t.lifecycle.Unlock()
		return nil, apperrors.NewConflictError("thread is closed")
	}
	if t.done == nil {
		pollCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		t.cancel = cancel
		t.done = make(chan struct{})
		go t.poll(pollCtx)
	}
	t.lifecycle.Unlock()

	return t.Refresh(ctx)
}

func (t *Thread) poll(ctx context.Context) {
	defer close(t.done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	logger := telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
		"operation": "poll_messages",
		"match_id":  t.matchID,
	})

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, err := t.Refresh(ctx)
			if ctx.Err() != nil {
				return
			}
			t.inst.RecordPoll(ctx, err)
			if err != nil {
				logger.WithError(err).Warn("Message poll failed, keeping previous messages")
			}
		}
	}
}

// Refresh fetches the messages now. On failure the previous list is kept.
func (t *Thread) Refresh(ctx context.Context) ([]api.Message, error) {
	t.mu.Lock()
	t.nextSeq++
	seq := t.nextSeq
	t.mu.Unlock()

	messages, err := t.api.Messages(ctx, t.matchID)
	if err != nil {
		return t.Messages(), err
	}

	t.mu.Lock()
	if seq > t.appliedSeq {
		t.appliedSeq = seq
		t.messages = messages
	}
	t.mu.Unlock()

	current := t.Messages()
	if t.onUpdate != nil {
		t.onUpdate(current)
	}
	return current, nil
}

// Messages returns a copy of the last fetched messages
func (t *Thread) Messages() []api.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]api.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Send posts content to the match and refreshes the thread. Returns the new
// message id.
func (t *Thread) Send(ctx context.Context, content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperrors.NewValidationError("content", "message content is required")
	}

	logger := telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
		"operation": "send_message",
		"match_id":  t.matchID,
	})

	res, err := t.api.SendMessage(ctx, t.matchID, content)
	if err != nil {
		logger.WithError(err).Error("Failed to send message")
		return "", err
	}

	if _, err := t.Refresh(ctx); err != nil {
		logger.WithError(err).Warn("Message sent but refresh failed")
	}
	if res == nil {
		return "", nil
	}
	return res.MessageID, nil
}

// Close stops polling and waits for the poller to exit
func (t *Thread) Close() {
	t.lifecycle.Lock()
	if t.closed {
		t.lifecycle.Unlock()
		return
	}
	t.closed = true
	cancel, done := t.cancel, t.done
	t.lifecycle.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
