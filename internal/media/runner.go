// Package media wraps the external ffmpeg/ffprobe binaries behind a small
// command runner so audio assembly and video encoding stay testable without
// the binaries installed.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"mixdown/internal/services"
)

// Runner executes one external command and returns its combined textual
// output. Implementations must respect context cancellation.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// CommandRunner runs commands via the operating system.
type CommandRunner struct{}

// Run executes the command and returns stdout plus stderr. ffmpeg writes
// its diagnostics to stderr, so both streams are captured together.
func (CommandRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return output.String(), ctx.Err()
		}
		return output.String(), services.Wrap(services.ErrExternalTool, "", name,
			fmt.Sprintf("exit: %v: %s", err, tailLines(output.String(), 6)), nil)
	}
	return output.String(), nil
}

// tailLines keeps the last n non-empty lines of tool output for error
// messages.
func tailLines(output string, n int) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	kept := make([]string, 0, n)
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		kept = append(kept, strings.TrimSpace(line))
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return strings.Join(kept, " | ")
}
