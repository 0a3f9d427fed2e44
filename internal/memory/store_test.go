package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// flakyPersister records saves and fails them on demand.
type flakyPersister struct {
	data    []byte
	loadErr error
	failing bool
	saves   int
}

func (p *flakyPersister) Load(context.Context) ([]byte, error) {
	if p.loadErr != nil {
		return nil, p.loadErr
	}
	if p.data == nil {
		return nil, ErrNotFound
	}
	return p.data, nil
}

func (p *flakyPersister) Save(_ context.Context, data []byte) error {
	p.saves++
	if p.failing {
		return errors.New("disk full")
	}
	p.data = append([]byte(nil), data...)
	return nil
}

func (p *flakyPersister) Describe() string { return "flaky" }

func TestStore_AppendPersistsEveryTurn(t *testing.T) {
	ctx := context.Background()
	p := &flakyPersister{}
	s := NewStore(ctx, p, discardLogger())

	s.Append(ctx, User, "one")
	s.Append(ctx, Agent, "two")
	s.Append(ctx, User, "three")

	assert.Equal(t, 3, p.saves)
	saved, err := Decode(p.data)
	require.NoError(t, err)
	assert.Equal(t, s.History(), saved)
}

func TestStore_OrderIsAppendOrder(t *testing.T) {
	ctx := context.Background()
	s := NewStore(ctx, nil, discardLogger())

	// Consecutive user turns are legal: tool results are user turns.
	s.Append(ctx, User, "q")
	s.Append(ctx, User, ToolResultPrefix+"r1")
	s.Append(ctx, User, ToolResultPrefix+"r2")
	s.Append(ctx, Agent, "a")

	want := []Turn{
		{User, "q"},
		{User, ToolResultPrefix + "r1"},
		{User, ToolResultPrefix + "r2"},
		{Agent, "a"},
	}
	assert.Equal(t, want, s.History())
	assert.Equal(t, 4, s.Len())
}

func TestStore_HistoryIsACopy(t *testing.T) {
	ctx := context.Background()
	s := NewStore(ctx, nil, discardLogger())
	s.Append(ctx, User, "original")

	h := s.History()
	h[0].Text = "mutated"

	assert.Equal(t, "original", s.History()[0].Text)
}

func TestStore_LoadsExisting(t *testing.T) {
	ctx := context.Background()
	data, err := Encode([]Turn{{User, "hi"}, {Agent, "hello"}})
	require.NoError(t, err)

	s := NewStore(ctx, &flakyPersister{data: data}, discardLogger())
	assert.Equal(t, []Turn{{User, "hi"}, {Agent, "hello"}}, s.History())
}

func TestStore_CorruptLoadStartsEmpty(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s := NewStore(ctx, &flakyPersister{data: []byte("{{{not json")}, logger)

	assert.Empty(t, s.History())
	assert.Contains(t, buf.String(), "level=WARN")
}

func TestStore_LoadErrorStartsEmpty(t *testing.T) {
	ctx := context.Background()
	s := NewStore(ctx, &flakyPersister{loadErr: errors.New("permission denied")}, discardLogger())
	assert.Empty(t, s.History())
}

func TestStore_SaveFailureKeepsMemory(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	p := &flakyPersister{}
	s := NewStore(ctx, p, logger)

	s.Append(ctx, User, "persisted")
	p.failing = true
	s.Append(ctx, Agent, "memory only")
	s.Append(ctx, User, "also memory only")

	assert.True(t, s.Degraded())
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("level=WARN")), "warning should be logged once per outage")

	// The previously persisted state is untouched.
	saved, err := Decode(p.data)
	require.NoError(t, err)
	assert.Equal(t, []Turn{{User, "persisted"}}, saved)

	p.failing = false
	s.Append(ctx, Agent, "recovered")
	assert.False(t, s.Degraded())
	saved, err = Decode(p.data)
	require.NoError(t, err)
	assert.Len(t, saved, 4)
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	p := &flakyPersister{}
	s := NewStore(ctx, p, discardLogger())
	s.Append(ctx, User, "hi")

	s.Clear(ctx)

	assert.Empty(t, s.History())
	assert.JSONEq(t, `[]`, string(p.data))
}

func TestPersistError(t *testing.T) {
	cause := errors.New("boom")
	err := &PersistError{Op: "save", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "memory save: boom", err.Error())
}

func TestFilePersister_RoundTripAcrossRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "agent_memory.json")

	s := NewStore(ctx, NewFilePersister(path), discardLogger())
	s.Append(ctx, User, "remember me")
	s.Append(ctx, Agent, "I will")

	restarted := NewStore(ctx, NewFilePersister(path), discardLogger())
	assert.Equal(t, s.History(), restarted.History())
}

func TestFilePersister_Missing(t *testing.T) {
	p := NewFilePersister(filepath.Join(t.TempDir(), "absent.json"))
	_, err := p.Load(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFilePersister_CorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "agent_memory.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

	s := NewStore(ctx, NewFilePersister(path), discardLogger())
	assert.Empty(t, s.History())

	s.Append(ctx, User, "fresh")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	turns, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, []Turn{{User, "fresh"}}, turns)
}

func TestFilePersister_UnwritableDirectory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "no", "such", "dir", "memory.json")

	s := NewStore(ctx, NewFilePersister(path), discardLogger())
	s.Append(ctx, User, "still works")

	assert.True(t, s.Degraded())
	assert.Equal(t, []Turn{{User, "still works"}}, s.History())
}

func TestFilePersister_DefaultPath(t *testing.T) {
	assert.Equal(t, DefaultFilePath, NewFilePersister("").Describe())
}
