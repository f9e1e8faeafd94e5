package commands

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/taskhub/taskhub-cli/internal/output"
	"github.com/taskhub/taskhub-cli/internal/tui"
	"github.com/taskhub/taskhub-cli/internal/tui/boardview"
)

// Interactive seams, replaced in tests.
var (
	confirmDangerous     = tui.ConfirmDangerous
	typeToConfirm        = tui.TypeToConfirm
	promptCredentials    = tui.PromptCredentials
	promptPasswordChange = tui.PromptPasswordChange
	promptNewWorkspace   = tui.PromptNewWorkspace
	spin                 = tui.Spin
	runBoard             = boardview.Run
)

// readSecret reads one line from r, for --password-stdin style flags.
func readSecret(r io.Reader, flag string) (string, error) {
	lines, err := readLines(r, 1)
	if err != nil {
		return "", output.ErrUsage("--" + flag + " given but stdin was empty")
	}
	return lines[0], nil
}

// readLines reads exactly n non-empty lines from r.
func readLines(r io.Reader, n int) ([]string, error) {
	sc := bufio.NewScanner(r)
	lines := make([]string, 0, n)
	for len(lines) < n && sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(lines) < n || slices.Contains(lines, "") {
		return nil, output.ErrUsage(fmt.Sprintf("expected %d lines on stdin", n))
	}
	return lines, nil
}
