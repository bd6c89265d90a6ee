package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/meetsmatch/swipeclient/internal/api"
	apperrors "github.com/meetsmatch/swipeclient/internal/errors"
)

type mockMessageAPI struct {
	mock.Mock
}

func (m *mockMessageAPI) Messages(ctx context.Context, matchID string) ([]api.Message, error) {
	args := m.Called(ctx, matchID)
	msgs, _ := args.Get(0).([]api.Message)
	return msgs, args.Error(1)
}

func (m *mockMessageAPI) SendMessage(ctx context.Context, matchID, content string) (*api.SendResult, error) {
	args := m.Called(ctx, matchID, content)
	res, _ := args.Get(0).(*api.SendResult)
	return res, args.Error(1)
}

func msgs(ids ...string) []api.Message {
	out := make([]api.Message, 0, len(ids))
	for _, id := range ids {
		out = append(out, api.Message{ID: id, MatchID: "m1", SenderID: "u1", Content: "hi " + id})
	}
	return out
}

func TestNewThread_RequiresMatchID(t *testing.T) {
	_, err := NewThread(new(mockMessageAPI), " ")
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))
}

func TestThread_PollsUntilClosed(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	backend := new(mockMessageAPI)
	backend.On("Messages", mock.Anything, "m1").Return(msgs("1"), nil).Once()
	backend.On("Messages", mock.Anything, "m1").Return(msgs("1", "2"), nil)

	var mu sync.Mutex
	updates := 0
	thread, err := NewThread(backend, "m1",
		WithPollInterval(20*time.Millisecond),
		WithUpdateHandler(func([]api.Message) {
			mu.Lock()
			updates++
			mu.Unlock()
		}),
	)
	require.NoError(t, err)

	first, err := thread.Open(context.Background())
	require.NoError(t, err)
	assert.Len(t, first, 1)

	assert.Eventually(t, func() bool {
		return len(thread.Messages()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	thread.Close()
	calls := len(backend.Calls)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, calls, len(backend.Calls))

	mu.Lock()
	assert.GreaterOrEqual(t, updates, 2)
	mu.Unlock()

	thread.Close()
}

func TestThread_PollFailureKeepsPreviousMessages(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var failures atomic.Int32
	backend := new(mockMessageAPI)
	backend.On("Messages", mock.Anything, "m1").Return(msgs("1", "2"), nil).Once()
	backend.On("Messages", mock.Anything, "m1").Run(func(mock.Arguments) {
		failures.Add(1)
	}).Return(nil, apperrors.NewNetworkError("get_messages", errors.New("offline")))

	thread, err := NewThread(backend, "m1", WithPollInterval(15*time.Millisecond))
	require.NoError(t, err)
	defer thread.Close()

	_, err = thread.Open(context.Background())
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return failures.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, thread.Messages(), 2)

	current, err := thread.Refresh(context.Background())
	require.Error(t, err)
	assert.Len(t, current, 2)
}

func TestThread_OpenAfterCloseFails(t *testing.T) {
	thread, err := NewThread(new(mockMessageAPI), "m1")
	require.NoError(t, err)

	thread.Close()
	_, err = thread.Open(context.Background())
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConflict))
}

func TestThread_Send(t *testing.T) {
	backend := new(mockMessageAPI)
	backend.On("SendMessage", mock.Anything, "m1", "hello").Return(&api.SendResult{MessageID: "msg-9"}, nil)
	backend.On("Messages", mock.Anything, "m1").Return(msgs("msg-9"), nil)

	thread, err := NewThread(backend, "m1")
	require.NoError(t, err)
	defer thread.Close()

	id, err := thread.Send(context.Background(), "  hello ")
	require.NoError(t, err)
	assert.Equal(t, "msg-9", id)
	assert.Len(t, thread.Messages(), 1)
}

func TestThread_SendEmptyIsValidationErrorWithoutIO(t *testing.T) {
	backend := new(mockMessageAPI)
	thread, err := NewThread(backend, "m1")
	require.NoError(t, err)

	_, err = thread.Send(context.Background(), " \n\t")
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))
	backend.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestThread_SendFailure(t *testing.T) {
	backend := new(mockMessageAPI)
	backend.On("SendMessage", mock.Anything, "m1", "hello").
		Return(nil, apperrors.NewNetworkError("send_message", errors.New("offline")))

	thread, err := NewThread(backend, "m1")
	require.NoError(t, err)

	_, err = thread.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))
	backend.AssertNotCalled(t, "Messages", mock.Anything, mock.Anything)
}
