package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovanmozg/coge/backend"
	"github.com/vovanmozg/coge/stats"
)

// runCLI executes the root command with fresh flag values and returns what
// it wrote.
func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err = rootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// resetFlags restores every flag of c and its subcommands to its default,
// including the Changed mark pflag keeps across executions.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Changed = false
		_ = f.Value.Set(f.DefValue)
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// clearBackendEnv hides every credential of the developer's environment.
func clearBackendEnv(t *testing.T) {
	t.Helper()
	reg := backend.NewRegistry(nil, nil)
	for _, name := range reg.Names() {
		if s, _ := reg.Spec(name); s.EnvKey != "" {
			t.Setenv(s.EnvKey, "")
		}
	}
}

// fakeOllama serves an OpenAI-compatible reply and points the ollama backend
// at it.
func fakeOllama(t *testing.T, reply string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": reply}}},
		})
	}))
	t.Cleanup(srv.Close)
	t.Setenv("COGE_OLLAMA_BASE_URL", srv.URL)
}

// manualOllamaConfig writes a config that always uses the ollama backend.
func manualOllamaConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "coge", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("backend: ollama\nstrategy: manual\n"), 0o644))
	return path
}

func loadStats(t *testing.T, configPath string) stats.Stats {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(filepath.Dir(configPath), statsFile))
	require.NoError(t, err)
	var s stats.Stats
	require.NoError(t, json.Unmarshal(data, &s))
	return s
}

func withTerminal(t *testing.T, keys ...byte) {
	t.Helper()
	oldTerm, oldRead := stdinIsTerminal, readKey
	t.Cleanup(func() { stdinIsTerminal, readKey = oldTerm, oldRead })
	stdinIsTerminal = func() bool { return true }
	readKey = func() (byte, error) {
		if len(keys) == 0 {
			return 0, errors.New("no more keys")
		}
		b := keys[0]
		keys = keys[1:]
		return b, nil
	}
}

func TestRoot_NonInteractive_PrintsCommandAndRecordsExecute(t *testing.T) {
	// GIVEN a config pinned to a local backend that answers "ls -la"
	clearBackendEnv(t)
	fakeOllama(t, "  ls -la\n")
	cfg := manualOllamaConfig(t)

	// WHEN coge runs non-interactively
	stdout, _, err := runCLI(t, "--config", cfg, "--non-interactive", "list", "files")

	// THEN stdout is exactly the command and the execute is counted
	require.NoError(t, err)
	assert.Equal(t, "ls -la\n", stdout)
	s := loadStats(t, cfg)
	require.Contains(t, s, "ollama:llama3.2")
	assert.Equal(t, 1, s["ollama:llama3.2"].Execute)
}

func TestRoot_NoPrompt_IsAnError(t *testing.T) {
	_, _, err := runCLI(t, "--config", manualOllamaConfig(t))
	assert.ErrorIs(t, err, errNoPrompt)
}

func TestRoot_AllBackendsFail_ReportsEachAndExitsOne(t *testing.T) {
	// GIVEN the default config and no credentials at all
	clearBackendEnv(t)
	cfg := filepath.Join(t.TempDir(), "config.yaml")

	// WHEN coge runs
	stdout, stderr, err := runCLI(t, "--config", cfg, "--non-interactive", "list", "files")

	// THEN the preferred backend's failure is reported and the exit status is 1
	var exit *exitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 1, exit.code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "All backends failed:")
	assert.Contains(t, stderr, "  - groq: COGE_GROQ_API_KEY not set")

	// AND the default config was written on first use
	_, statErr := os.Stat(cfg)
	assert.NoError(t, statErr)
}

func TestRoot_MetricsFile_WrittenAfterRace(t *testing.T) {
	clearBackendEnv(t)
	fakeOllama(t, "ls")
	cfg := manualOllamaConfig(t)
	metrics := filepath.Join(t.TempDir(), "coge.prom")

	_, _, err := runCLI(t, "--config", cfg, "--non-interactive", "--metrics-file", metrics, "list")

	require.NoError(t, err)
	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), `coge_backend_calls_total{backend="ollama",outcome="success"} 1`)
	assert.Contains(t, string(data), `coge_race_wins_total{backend="ollama"} 1`)
}

func TestRoot_Interactive_CopyIsRecorded(t *testing.T) {
	// GIVEN a terminal where the user presses an ignored key, then c
	clearBackendEnv(t)
	fakeOllama(t, "ls -la")
	cfg := manualOllamaConfig(t)
	withTerminal(t, 'x', 'c')
	var copied string
	oldCopy := copyText
	t.Cleanup(func() { copyText = oldCopy })
	copyText = func(s string) error { copied = s; return nil }

	// WHEN coge runs interactively
	stdout, _, err := runCLI(t, "--config", cfg, "list", "files")

	// THEN the command is shown with the hint, copied and counted as a copy
	require.NoError(t, err)
	assert.Contains(t, stdout, "\nls -la\n")
	assert.Contains(t, stdout, actionHint)
	assert.Contains(t, stdout, "Copied to clipboard.")
	assert.Equal(t, "ls -la", copied)
	assert.Equal(t, 1, loadStats(t, cfg)["ollama:llama3.2"].Copy)
}

func TestRoot_Interactive_ExecutePropagatesExitStatus(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	clearBackendEnv(t)
	fakeOllama(t, "exit 3")
	cfg := manualOllamaConfig(t)
	withTerminal(t, '\r')

	_, _, err := runCLI(t, "--config", cfg, "do", "it")

	var exit *exitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 3, exit.code)
	assert.Equal(t, 1, loadStats(t, cfg)["ollama:llama3.2"].Execute)
}

func TestRoot_Interactive_EscapeCancels(t *testing.T) {
	clearBackendEnv(t)
	fakeOllama(t, "rm -rf build")
	cfg := manualOllamaConfig(t)
	withTerminal(t, keyEscape)

	stdout, _, err := runCLI(t, "--config", cfg, "clean")

	require.NoError(t, err)
	assert.Contains(t, stdout, "Cancelled.")
	assert.Equal(t, 1, loadStats(t, cfg)["ollama:llama3.2"].Cancel)
}

func TestStats_PrintsRecordedUsage(t *testing.T) {
	clearBackendEnv(t)
	fakeOllama(t, "ls")
	cfg := manualOllamaConfig(t)
	_, _, err := runCLI(t, "--config", cfg, "--non-interactive", "list")
	require.NoError(t, err)

	stdout, _, err := runCLI(t, "--config", cfg, "stats")

	require.NoError(t, err)
	assert.Contains(t, stdout, "Provider/Model")
	assert.Contains(t, stdout, "ollama:llama3.2")
}

func TestStats_NothingRecorded(t *testing.T) {
	stdout, _, err := runCLI(t, "--config", filepath.Join(t.TempDir(), "config.yaml"), "stats")

	require.NoError(t, err)
	assert.Equal(t, stats.EmptyMessage+"\n", stdout)
}

func TestInit_WritesDefaultOnce(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "coge", "config.yaml")

	first, _, err := runCLI(t, "--config", cfg, "init")
	require.NoError(t, err)
	second, _, err := runCLI(t, "--config", cfg, "init")
	require.NoError(t, err)

	assert.Equal(t, "created default config at "+cfg+"\n", first)
	assert.Equal(t, "config already exists at "+cfg+"\n", second)
}

func TestPtestall_NothingConfigured(t *testing.T) {
	clearBackendEnv(t)

	_, _, err := runCLI(t, "--config", filepath.Join(t.TempDir(), "config.yaml"), "ptestall")

	assert.ErrorIs(t, err, errNothingConfigured)
}

func TestSetupLogging_RejectsUnknownLevel(t *testing.T) {
	_, _, err := runCLI(t, "--log", "loud", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid log level "loud"`)
}

func TestRunCLI_ResetsFlagsBetweenRuns(t *testing.T) {
	// GIVEN a run that sets root and subcommand flags
	path := filepath.Join(t.TempDir(), "config.yaml")
	_, _, err := runCLI(t, "configure", "--seed", "5", "--config", path, "--strategy", "manual", "--backend", "ollama")
	require.NoError(t, err)

	// WHEN the next run passes none of them
	stdout, _, err := runCLI(t, "configure", "--config", path)

	// THEN they are back to their defaults and no longer marked as changed
	require.NoError(t, err)
	assert.NotContains(t, stdout, "Config saved.")
	assert.False(t, rootCmd.PersistentFlags().Lookup("seed").Changed)
	assert.Zero(t, seed)
	assert.False(t, configureCmd.Flags().Lookup("strategy").Changed)
	assert.Equal(t, "auto", setStrategy)
	assert.Empty(t, setBackend)
}
