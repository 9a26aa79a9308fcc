package stats

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovanmozg/coge/store"
)

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func newRecorder() (*Recorder, *store.Memory[Stats]) {
	mem := store.NewMemory(func() Stats { return Stats{} })
	return NewRecorder(mem).WithClock(func() time.Time { return fixedNow }), mem
}

func TestParseAction(t *testing.T) {
	for _, name := range []string{"execute", "copy", "cancel"} {
		a, err := ParseAction(name)
		require.NoError(t, err)
		assert.Equal(t, Action(name), a)
	}
	_, err := ParseAction("explode")
	assert.Error(t, err)
}

func TestRecordAction_CountsPerArm(t *testing.T) {
	// GIVEN an empty stats store
	r, mem := newRecorder()
	ctx := context.Background()

	// WHEN actions are recorded
	require.NoError(t, r.RecordAction(ctx, "groq:llama", ActionExecute))
	require.NoError(t, r.RecordAction(ctx, "groq:llama", ActionExecute))
	require.NoError(t, r.RecordAction(ctx, "groq:llama", ActionCancel))
	require.NoError(t, r.RecordAction(ctx, "gemini:flash", ActionCopy))

	// THEN each arm has its own counters and every call saved once
	s, err := r.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Entry{Execute: 2, Cancel: 1, LastUsed: fixedNow}, *s["groq:llama"])
	assert.Equal(t, Entry{Copy: 1, LastUsed: fixedNow}, *s["gemini:flash"])
	assert.Equal(t, 4, mem.Saves())
}

func TestRecordAction_UnknownAction(t *testing.T) {
	r, mem := newRecorder()

	err := r.RecordAction(context.Background(), "a:m", Action("explode"))

	assert.Error(t, err)
	assert.Equal(t, 0, mem.Saves())
}

type failingStore struct{ err error }

func (f failingStore) Load(context.Context) (Stats, error) { return Stats{}, nil }
func (f failingStore) Save(context.Context, Stats) error   { return f.err }

func TestRecordAction_SaveFailurePropagates(t *testing.T) {
	boom := errors.New("read-only filesystem")

	err := NewRecorder(failingStore{err: boom}).RecordAction(context.Background(), "a:m", ActionCopy)

	assert.ErrorIs(t, err, boom)
}

func TestEntry_AcceptPercent(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		want  int
	}{
		{"nothing recorded", Entry{}, 0},
		{"all accepted", Entry{Execute: 3, Copy: 1}, 100},
		{"two of three", Entry{Execute: 1, Copy: 1, Cancel: 1}, 67},
		{"one of three", Entry{Execute: 1, Cancel: 2}, 33},
		{"none accepted", Entry{Cancel: 5}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entry.AcceptPercent())
		})
	}
}

func TestFormat_Empty(t *testing.T) {
	assert.Equal(t, EmptyMessage, Format(Stats{}))
	assert.Equal(t, EmptyMessage, Format(nil))
}

func TestFormat_SortedRowsWithTotals(t *testing.T) {
	out := Format(Stats{
		"openai:gpt-4o-mini":  {Execute: 1, Cancel: 2},
		"gemini:gemini-flash": {Execute: 3, Copy: 1},
		"cohere:command-r7b":  {Cancel: 1},
	})

	for _, header := range []string{"Provider/Model", "Exec", "Copy", "Cancel", "Total", "Accept%"} {
		assert.Contains(t, out, header)
	}
	cohere := strings.Index(out, "cohere:command-r7b")
	gemini := strings.Index(out, "gemini:gemini-flash")
	openai := strings.Index(out, "openai:gpt-4o-mini")
	require.True(t, cohere >= 0 && gemini >= 0 && openai >= 0, out)
	assert.Less(t, cohere, gemini)
	assert.Less(t, gemini, openai)
	assert.Contains(t, out, "100%")
	assert.Contains(t, out, "33%")
	assert.Contains(t, out, "0%")
}
