package transcode

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"custody/internal/services"
)

// Transcoder is the capability the proxy generator depends on. Tests
// substitute a deterministic implementation; production wires the ffmpeg
// client below.
type Transcoder interface {
	// Transcode produces outputPath from inputPath using the preset's fixed
	// parameters. A failed or cancelled run leaves no partial output behind.
	Transcode(ctx context.Context, inputPath, outputPath string, preset Preset) error
	// Tool names the external tool for manifest records.
	Tool() string
	// Version is the best-effort version probe; it returns "" on failure.
	Version(ctx context.Context) string
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps ffmpeg CLI invocation.
type Client struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// New constructs a transcoder client. timeoutSeconds bounds each transcode
// subprocess; zero disables the bound.
func New(binary string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("transcoder binary required")
	}
	if timeoutSeconds < 0 {
		return nil, fmt.Errorf("transcoder timeout must be >= 0, got %d", timeoutSeconds)
	}
	client := &Client{
		binary:  binary,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Tool returns the tool name recorded in derivative records.
func (c *Client) Tool() string {
	name := filepath.Base(c.binary)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Transcode runs the external transcoder as a blocking subprocess. Non-zero
// exit, crash, or timeout is a fatal external-tool failure with no retry;
// any partial output file is removed before returning.
func (c *Client) Transcode(ctx context.Context, inputPath, outputPath string, preset Preset) error {
	if _, ok := presetSpecs[preset]; !ok {
		return services.Wrap(services.ErrValidation, "transcode", "run", fmt.Sprintf("unknown preset %q", preset), nil)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := []string{"-hide_banner", "-nostdin", "-y", "-i", inputPath}
	args = append(args, preset.Args()...)
	args = append(args, outputPath)

	if err := c.exec.Run(runCtx, c.binary, args, nil); err != nil {
		_ = os.Remove(outputPath)
		return services.Wrap(services.ErrExternalTool, "transcode", "run", c.binary, err)
	}

	if _, err := os.Stat(outputPath); err != nil {
		return services.Wrap(services.ErrExternalTool, "transcode", "run", "transcoder produced no output file", err)
	}
	return nil
}

// Version probes the transcoder binary with -version. The probe is
// best-effort: any failure yields "" and the caller records a sentinel.
func (c *Client) Version(ctx context.Context) string {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var firstLine string
	err := c.exec.Run(probeCtx, c.binary, []string{"-version"}, func(line string) {
		if firstLine == "" {
			firstLine = strings.TrimSpace(line)
		}
	})
	if err != nil || firstLine == "" {
		return ""
	}
	return parseVersionLine(firstLine)
}

// parseVersionLine extracts the version token from output like
// "ffmpeg version 7.1 Copyright ...". Unrecognized shapes are returned
// whole so the meta manifest still captures something identifying.
func parseVersionLine(line string) string {
	fields := strings.Fields(line)
	for i, field := range fields {
		if field == "version" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return line
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if onOutput != nil {
				onOutput(scanner.Text())
			}
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("wait command: %w: %w", ctxErr, err)
		}
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
