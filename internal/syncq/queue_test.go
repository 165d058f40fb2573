package syncq

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueEmptyByDefault(t *testing.T) {
	q, err := Open(filepath.Join(t.TempDir(), "home"))
	require.NoError(t, err)
	cmds, err := q.Load()
	require.NoError(t, err)
	assert.Empty(t, cmds)
}

func TestPushAndReplay(t *testing.T) {
	home := t.TempDir()
	q, err := Open(home)
	require.NoError(t, err)

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, q.Push(Command{
			Method:         "POST",
			Path:           "/v1/plans",
			Body:           json.RawMessage(`{"name":"` + key + `"}`),
			IdempotencyKey: key,
		}))
	}
	cmds, err := q.Load()
	require.NoError(t, err)
	require.Len(t, cmds, 3)
	assert.False(t, cmds[0].QueuedAt.IsZero())
	assert.JSONEq(t, `{"name":"a"}`, string(cmds[0].Body))

	var seen []string
	var failed []string
	sent, left, err := q.Replay(context.Background(), func(_ context.Context, c Command) error {
		seen = append(seen, c.IdempotencyKey)
		if c.IdempotencyKey == "b" {
			return errors.New("offline")
		}
		return nil
	}, func(c Command, _ error) {
		failed = append(failed, c.IdempotencyKey)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, 1, left)
	assert.Equal(t, []string{"a", "b", "c"}, seen)
	assert.Equal(t, []string{"b"}, failed)

	cmds, err = q.Load()
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, "b", cmds[0].IdempotencyKey)

	sent, left, err = q.Replay(context.Background(), func(context.Context, Command) error { return nil }, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Zero(t, left)
	_, err = os.Stat(filepath.Join(home, "queue.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestReplayStopsOnCanceledContext(t *testing.T) {
	q, err := Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, q.Push(Command{Method: "PUT", Path: "/v1/prices/xanax", IdempotencyKey: "x"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sent, left, err := q.Replay(ctx, func(context.Context, Command) error {
		t.Fatal("send called after cancel")
		return nil
	}, nil)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Equal(t, 1, left)
}
