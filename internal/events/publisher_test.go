package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	got    []ExecutionEvent
	err    error
	closed bool
}

func (r *recorder) Publish(_ context.Context, ev ExecutionEvent) error {
	r.got = append(r.got, ev)
	return r.err
}

func (r *recorder) Close() error {
	r.closed = true
	return r.err
}

func TestNewExecutionEvent(t *testing.T) {
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	a := NewExecutionEvent(TypeExecutionExpired, 1, 2, 3, at)
	b := NewExecutionEvent(TypeExecutionExpired, 1, 2, 3, at)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, int64(1), a.ExecutionID)
	assert.Equal(t, int64(2), a.TaskID)
	assert.Equal(t, int64(3), a.UserID)
	assert.Equal(t, at, a.OccurredAt)
}

func TestFanout_DeliversToAllAndJoinsErrors(t *testing.T) {
	broken := &recorder{err: errors.New("broker gone")}
	ok := &recorder{}
	f := Fanout{broken, ok, Noop{}}

	err := f.Publish(context.Background(), ExecutionEvent{ExecutionID: 9})
	require.Error(t, err)
	assert.ErrorIs(t, err, broken.err)
	require.Len(t, ok.got, 1, "a failing publisher must not starve the rest")
	assert.Equal(t, int64(9), ok.got[0].ExecutionID)

	assert.ErrorIs(t, f.Close(), broken.err)
	assert.True(t, broken.closed)
	assert.True(t, ok.closed)

	assert.NoError(t, Fanout{}.Publish(context.Background(), ExecutionEvent{}))
}
