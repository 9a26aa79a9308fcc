package cmd

// SystemPrompt returns the instruction sent ahead of every user prompt,
// targeting the shell of the given GOOS.
func SystemPrompt(goos string) string {
	if goos == "windows" {
		return "You are a Windows command-line assistant. You receive instructions and reply with a single PowerShell command. " +
			"One line only. No explanations, no markdown, no backticks. Chain multiple commands with ; or |. " +
			"Output nothing but the command."
	}
	platform, shell := "Linux", "bash"
	if goos == "darwin" {
		platform, shell = "macOS", "zsh"
	}
	return "You are a " + platform + " command-line assistant. You receive instructions and reply with a single " + shell + " command. " +
		"One line only. No explanations, no markdown, no backticks. Chain multiple commands with && or |. " +
		"Output nothing but the command."
}
