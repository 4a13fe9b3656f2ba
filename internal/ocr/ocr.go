// Package ocr wraps the tesseract command line tool behind a small
// engine interface so recognition passes can be tested without the
// binary installed.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"cardscan/internal/logging"
	"cardscan/internal/services"
)

// Character whitelists for the two crop families. Keeping the engine
// constrained to the expected alphabet cuts most misreads.
const (
	NameWhitelist      = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789',-/ "
	CollectorWhitelist = "0123456789/ "
)

// PSMSingleLine treats the crop as one line of text.
const PSMSingleLine = 7

// Result is a single OCR reading with its mean word confidence on a
// 0 to 100 scale.
type Result struct {
	Text       string
	Confidence float64
}

// Options control a single recognition call.
type Options struct {
	Whitelist string
	PSM       int
}

// Engine runs OCR on a prepared crop artifact.
type Engine interface {
	Recognize(ctx context.Context, imagePath string, opts Options) (Result, error)
}

// Executor runs external commands. Tests substitute canned output.
type Executor interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%s: %s", name, msg)
	}
	return stdout.Bytes(), nil
}

// Config carries the tesseract invocation settings.
type Config struct {
	Binary   string
	Language string
	Timeout  time.Duration
}

// Client shells out to tesseract and parses its TSV output.
type Client struct {
	cfg      Config
	executor Executor
	logger   *slog.Logger
}

// NewClient builds a tesseract client with the default executor.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	return NewClientWithExecutor(cfg, logger, commandExecutor{})
}

// NewClientWithExecutor allows tests to substitute the process runner.
func NewClientWithExecutor(cfg Config, logger *slog.Logger, executor Executor) *Client {
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	return &Client{
		cfg:      cfg,
		executor: executor,
		logger:   logging.NewComponentLogger(logger, "ocr"),
	}
}

// Recognize runs one OCR pass over the artifact at imagePath.
func (c *Client) Recognize(ctx context.Context, imagePath string, opts Options) (Result, error) {
	if opts.PSM == 0 {
		opts.PSM = PSMSingleLine
	}

	runCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	args := []string{
		imagePath, "stdout",
		"-l", c.cfg.Language,
		"--oem", "1",
		"--psm", strconv.Itoa(opts.PSM),
		"-c", "load_system_dawg=0",
		"-c", "load_freq_dawg=0",
		"-c", "preserve_interword_spaces=1",
	}
	if opts.Whitelist != "" {
		args = append(args, "-c", "tessedit_char_whitelist="+opts.Whitelist)
	}
	args = append(args, "tsv")

	started := time.Now()
	output, err := c.executor.Run(runCtx, c.cfg.Binary, args...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{}, services.Wrap(services.ErrRecognitionTimeout, "ocr", "recognize",
				fmt.Sprintf("tesseract exceeded %s", c.cfg.Timeout), err)
		}
		if errors.Is(err, context.Canceled) {
			return Result{}, err
		}
		return Result{}, services.Wrap(services.ErrExternalTool, "ocr", "recognize", "tesseract failed", err)
	}

	result := parseTSV(output)
	c.logger.Debug("ocr pass complete",
		logging.String("artifact", imagePath),
		logging.Float64("confidence", result.Confidence),
		logging.Duration("elapsed", time.Since(started)))
	return result, nil
}

// parseTSV extracts the recognized words (level 5 rows) from tesseract
// TSV output, joining them with single spaces and averaging their
// confidences. Rows with confidence -1 are layout markers, not words.
func parseTSV(output []byte) Result {
	var words []string
	var confSum float64
	var confCount int

	for _, line := range strings.Split(string(output), "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) < 12 || fields[0] != "5" {
			continue
		}
		conf, err := strconv.ParseFloat(fields[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		text := strings.TrimSpace(fields[11])
		if text == "" {
			continue
		}
		words = append(words, text)
		confSum += conf
		confCount++
	}

	if confCount == 0 {
		return Result{}
	}
	return Result{
		Text:       strings.Join(words, " "),
		Confidence: confSum / float64(confCount),
	}
}
