package syncq

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Command is an API write that could not be delivered and waits for `gymsim sync`.
type Command struct {
	Method         string          `json:"method"`
	Path           string          `json:"path"`
	Body           json.RawMessage `json:"body,omitempty"`
	IdempotencyKey string          `json:"idempotency_key"`
	QueuedAt       time.Time       `json:"queued_at"`
}

type Queue struct {
	path string
}

func Open(home string) (*Queue, error) {
	if err := os.MkdirAll(home, 0o700); err != nil {
		return nil, err
	}
	return &Queue{path: filepath.Join(home, "queue.json")}, nil
}

func (q *Queue) Load() ([]Command, error) {
	raw, err := os.ReadFile(q.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Command{}, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return []Command{}, nil
	}
	var out []Command
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (q *Queue) Save(commands []Command) error {
	if len(commands) == 0 {
		if err := os.Remove(q.path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	raw, err := json.MarshalIndent(commands, "", "  ")
	if err != nil {
		return err
	}
	tmp := q.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, q.path)
}

func (q *Queue) Push(cmd Command) error {
	commands, err := q.Load()
	if err != nil {
		return err
	}
	if cmd.QueuedAt.IsZero() {
		cmd.QueuedAt = time.Now().UTC()
	}
	commands = append(commands, cmd)
	return q.Save(commands)
}

// Replay sends queued commands in order. Commands that fail stay queued; onError
// may be nil.
func (q *Queue) Replay(ctx context.Context, send func(context.Context, Command) error, onError func(Command, error)) (int, int, error) {
	commands, err := q.Load()
	if err != nil {
		return 0, 0, err
	}
	remaining := make([]Command, 0, len(commands))
	sent := 0
	for i, cmd := range commands {
		if ctx.Err() != nil {
			remaining = append(remaining, commands[i:]...)
			break
		}
		if err := send(ctx, cmd); err != nil {
			if onError != nil {
				onError(cmd, err)
			}
			remaining = append(remaining, cmd)
			continue
		}
		sent++
	}
	if err := q.Save(remaining); err != nil {
		return sent, len(remaining), err
	}
	return sent, len(remaining), nil
}
