package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovanmozg/coge/bandit"
)

func emptyState() bandit.State { return bandit.State{} }

func TestFile_Load_MissingFile_ReturnsEmpty(t *testing.T) {
	// GIVEN a filesystem with no document
	fs := afero.NewMemMapFs()
	doc := NewFile(fs, "/cfg/coge/bandit.json", emptyState)

	// WHEN the document is loaded
	state, err := doc.Load(context.Background())

	// THEN an empty, writable state is returned
	require.NoError(t, err)
	assert.NotNil(t, state)
	assert.Empty(t, state)
}

func TestFile_SaveThenLoad_RoundTrips(t *testing.T) {
	fs := afero.NewMemMapFs()
	doc := NewFile(fs, "/cfg/coge/bandit.json", emptyState)
	want := bandit.State{
		"groq:llama-3.3-70b-versatile": {
			N: 10, AvgLatency: 500, SuccessRate: 0.9, Reward: 0.8,
			LastUsed: time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC),
		},
	}

	require.NoError(t, doc.Save(context.Background(), want))
	got, err := doc.Load(context.Background())
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFile_Save_CreatesDirectoryAndWritesIndentedJSON(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/home/u/.config/coge/bandit.json"
	doc := NewFile(fs, path, emptyState)

	require.NoError(t, doc.Save(context.Background(), bandit.State{"a:m": {N: 1}}))

	exists, err := afero.DirExists(fs, filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, exists, "parent directory must be created")

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"a:m\": {")
	assert.Equal(t, byte('\n'), data[len(data)-1], "document must end with a newline")

	tmpExists, _ := afero.Exists(fs, path+".tmp")
	assert.False(t, tmpExists, "temporary file must not be left behind")
}

func TestFile_Save_OverwritesPriorContents(t *testing.T) {
	fs := afero.NewMemMapFs()
	doc := NewFile(fs, "/d/bandit.json", emptyState)
	ctx := context.Background()

	require.NoError(t, doc.Save(ctx, bandit.State{"old:m": {N: 4}}))
	require.NoError(t, doc.Save(ctx, bandit.State{"new:m": {N: 1}}))

	got, err := doc.Load(ctx)
	require.NoError(t, err)
	assert.NotContains(t, got, "old:m")
	assert.Contains(t, got, "new:m")
}

func TestFile_Load_ReadsLegacyTimestamps(t *testing.T) {
	// GIVEN a document written with millisecond ISO timestamps
	fs := afero.NewMemMapFs()
	raw := `{"gemini:gemini-2.5-flash":{"n":3,"avg_latency":812.5,"success_rate":1,"reward":0.9,"last_used":"2026-02-20T10:11:12.345Z"}}`
	require.NoError(t, afero.WriteFile(fs, "/d/bandit.json", []byte(raw), 0o644))

	got, err := NewFile(fs, "/d/bandit.json", emptyState).Load(context.Background())

	require.NoError(t, err)
	arm := got["gemini:gemini-2.5-flash"]
	require.NotNil(t, arm)
	assert.Equal(t, 3, arm.N)
	assert.Equal(t, 812.5, arm.AvgLatency)
	assert.Equal(t, time.Date(2026, 2, 20, 10, 11, 12, 345_000_000, time.UTC), arm.LastUsed.UTC())
}

func TestFile_Load_CorruptDocument_ReturnsError(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/d/bandit.json", []byte("{not json"), 0o644))

	_, err := NewFile(fs, "/d/bandit.json", emptyState).Load(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "/d/bandit.json")
}

func TestFile_Load_ReadFailure_IsNotTreatedAsMissing(t *testing.T) {
	// GIVEN the document path is a directory, which cannot be read as a file
	dir := t.TempDir()
	path := filepath.Join(dir, "bandit.json")
	require.NoError(t, os.Mkdir(path, 0o755))

	_, err := NewFile(afero.NewOsFs(), path, emptyState).Load(context.Background())

	assert.Error(t, err)
}

func TestFile_ZeroLastUsed_IsOmitted(t *testing.T) {
	fs := afero.NewMemMapFs()
	doc := NewFile(fs, "/d/bandit.json", emptyState)

	require.NoError(t, doc.Save(context.Background(), bandit.State{"a:m": {N: 1}}))

	data, err := afero.ReadFile(fs, "/d/bandit.json")
	require.NoError(t, err)
	assert.NotContains(t, string(data), "last_used")
}
