package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/atotto/clipboard"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovanmozg/coge/stats"
)

const actionHint = "  [Enter] Execute  [c] Copy  [Esc] Cancel"

// Keys recognized at the action prompt.
const (
	keyCtrlC  = 0x03
	keyEscape = 0x1b
)

// Seams for tests.
var (
	stdinIsTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
	readKey         = readRawKey
	copyText        = clipboard.WriteAll
)

// actionForKey maps one key press to an action. ok is false for keys the
// prompt ignores.
func actionForKey(b byte) (action stats.Action, ok bool) {
	switch b {
	case '\r', '\n':
		return stats.ActionExecute, true
	case 'c', 'C':
		return stats.ActionCopy, true
	case keyEscape, keyCtrlC, 'q':
		return stats.ActionCancel, true
	}
	return "", false
}

// readRawKey reads one byte from stdin with the terminal in raw mode.
func readRawKey() (byte, error) {
	fd := int(os.Stdin.Fd())
	old, err := term.MakeRaw(fd)
	if err != nil {
		return 0, fmt.Errorf("entering raw mode: %w", err)
	}
	defer func() { _ = term.Restore(fd, old) }()

	var buf [1]byte
	if _, err := io.ReadFull(os.Stdin, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// awaitAction reads keys until one maps to an action. A read error cancels.
func awaitAction(read func() (byte, error)) stats.Action {
	for {
		b, err := read()
		if err != nil {
			logrus.Debugf("reading key: %v", err)
			return stats.ActionCancel
		}
		if action, ok := actionForKey(b); ok {
			return action
		}
	}
}

func (a *app) interact(ctx context.Context, cmd *cobra.Command, arm, command string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n%s\n\n", command)
	fmt.Fprintln(out, actionHint)

	action := awaitAction(readKey)
	a.record(ctx, arm, action)

	switch action {
	case stats.ActionExecute:
		fmt.Fprintln(out)
		return runShell(ctx, goos, command, cmd.InOrStdin(), out, cmd.ErrOrStderr())
	case stats.ActionCopy:
		if err := copyText(command); err != nil {
			return fmt.Errorf("copying to clipboard: %w", err)
		}
		fmt.Fprintln(out, "Copied to clipboard.")
	default:
		fmt.Fprintln(out, "Cancelled.")
	}
	return nil
}

// shellCommand returns the program and arguments that run command in the
// platform shell.
func shellCommand(goos, command string) (string, []string) {
	if goos == "windows" {
		return "powershell", []string{"-NoProfile", "-Command", command}
	}
	return "sh", []string{"-c", command}
}

// runShell runs command with the given stdio. A non-zero exit propagates as
// an *exitError with the same status.
func runShell(ctx context.Context, goos, command string, stdin io.Reader, stdout, stderr io.Writer) error {
	name, args := shellCommand(goos, command)
	c := exec.CommandContext(ctx, name, args...)
	c.Stdin, c.Stdout, c.Stderr = stdin, stdout, stderr
	err := c.Run()
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		code := ee.ExitCode()
		if code < 0 {
			code = 1 // killed by a signal
		}
		return &exitError{code: code}
	}
	return err
}
