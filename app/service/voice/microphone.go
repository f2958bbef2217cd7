package voice

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

const sampleRate = 16000

type Microphone interface {
	// Open starts capturing at most limit of 16 kHz s16le mono audio.
	// The capture must be closed.
	Open(ctx context.Context, limit time.Duration) (Capture, error)
}

type Capture interface {
	Audio() io.Reader
	Close() error
}

type FFmpegMicrophone struct {
	inputFormat string
	device      string
}

func NewFFmpegMicrophone(inputFormat, device string) *FFmpegMicrophone {
	return &FFmpegMicrophone{
		inputFormat: inputFormat,
		device:      device,
	}
}

func (m *FFmpegMicrophone) Open(ctx context.Context, limit time.Duration) (Capture, error) {
	args := []string{
		"-loglevel", "warning",
		"-f", m.inputFormat,
		"-i", m.device,
		"-t", strconv.FormatFloat(limit.Seconds(), 'f', 3, 64),
		"-vn",
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-f", "s16le",
		"-",
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	slog.Debug("Running ffmpeg", "cmd", "ffmpeg "+strings.Join(args, " "))

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	capture := &ffmpegCapture{
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
	}

	go capture.logStderr()

	return capture, nil
}

type ffmpegCapture struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser

	closeOnce sync.Once
}

func (c *ffmpegCapture) Audio() io.Reader {
	return c.stdout
}

func (c *ffmpegCapture) Close() error {
	c.closeOnce.Do(func() {
		if c.cmd.Process != nil {
			_ = c.cmd.Process.Kill()
		}
		if err := c.cmd.Wait(); err != nil {
			slog.Debug("ffmpeg exited", "error", err)
		}
	})

	return nil
}

func (c *ffmpegCapture) logStderr() {
	scanner := bufio.NewScanner(c.stderr)
	for scanner.Scan() {
		slog.Debug("ffmpeg", "stderr", scanner.Text())
	}
}
