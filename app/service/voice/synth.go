package voice

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandSynthesizer speaks by running an external TTS program with the text as last argument.
type CommandSynthesizer struct {
	command string
	args    []string
}

func NewCommandSynthesizer(command string, args []string) *CommandSynthesizer {
	return &CommandSynthesizer{
		command: command,
		args:    args,
	}
}

func (c *CommandSynthesizer) Synthesize(ctx context.Context, text string) error {
	args := make([]string, 0, len(c.args)+1)
	args = append(args, c.args...)
	args = append(args, text)

	output, err := exec.CommandContext(ctx, c.command, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w: %s", c.command, err, strings.TrimSpace(string(output)))
	}

	return nil
}
