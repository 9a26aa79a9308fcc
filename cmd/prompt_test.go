package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSystemPrompt_TargetsPlatformShell(t *testing.T) {
	tests := []struct {
		goos     string
		contains []string
		chain    string
	}{
		{"windows", []string{"Windows command-line assistant", "single PowerShell command"}, "Chain multiple commands with ; or |."},
		{"darwin", []string{"macOS command-line assistant", "single zsh command"}, "Chain multiple commands with && or |."},
		{"linux", []string{"Linux command-line assistant", "single bash command"}, "Chain multiple commands with && or |."},
		{"freebsd", []string{"Linux command-line assistant", "single bash command"}, "Chain multiple commands with && or |."},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			p := SystemPrompt(tt.goos)
			for _, s := range tt.contains {
				assert.Contains(t, p, s)
			}
			assert.Contains(t, p, tt.chain)
			assert.Contains(t, p, "One line only. No explanations, no markdown, no backticks.")
			assert.Contains(t, p, "Output nothing but the command.")
		})
	}
}
