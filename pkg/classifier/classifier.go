package classifier

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrBusy is returned when every classifier slot stays taken for the whole
// life of the caller's context
var ErrBusy = errors.New("classifier busy")

// The script prints exactly one result line, e.g.:
//
//	Prediction: screaming (52.30%)
//
// Anything else is a classifier failure, not a valid classification.
var outputRe = regexp.MustCompile(`^Prediction:\s+(.+?)\s+\((\d+(?:\.\d+)?)%\)$`)

// Prediction is one classification result
type Prediction struct {
	Label      string
	Confidence float64 // in [0,1]
}

// Runner classifies an audio file on disk
type Runner interface {
	Classify(ctx context.Context, audioPath string) (Prediction, error)
}

// Config holds classifier process settings
type Config struct {
	Python        string
	Script        string
	Timeout       time.Duration
	MaxConcurrent int
}

// Classifier shells out to the TFLite classifier script with a hard cap on
// concurrent child processes. Callers queue on the semaphore until a slot
// frees or their context expires.
type Classifier struct {
	python  string
	script  string
	timeout time.Duration
	sem     chan struct{}
}

// New creates a Classifier
func New(cfg Config) *Classifier {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	return &Classifier{
		python:  cfg.Python,
		script:  cfg.Script,
		timeout: cfg.Timeout,
		sem:     make(chan struct{}, cfg.MaxConcurrent),
	}
}

// Classify runs the script against the audio file and parses its verdict
func (c *Classifier) Classify(ctx context.Context, audioPath string) (Prediction, error) {
	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		return Prediction{}, fmt.Errorf("%w: %v", ErrBusy, ctx.Err())
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.python, c.script, audioPath)
	out, err := cmd.Output()
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return Prediction{}, fmt.Errorf("classifier timed out after %s", c.timeout)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Prediction{}, fmt.Errorf("classifier exited with error: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return Prediction{}, fmt.Errorf("failed to run classifier: %w", err)
	}

	return ParseOutput(string(out))
}

// ParseOutput validates the script's stdout and extracts the prediction.
// The last non-empty line must match the expected format exactly.
func ParseOutput(out string) (Prediction, error) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[len(lines)-1]) == "" {
		return Prediction{}, errors.New("classifier produced no output")
	}

	last := strings.TrimSpace(lines[len(lines)-1])
	m := outputRe.FindStringSubmatch(last)
	if m == nil {
		return Prediction{}, fmt.Errorf("malformed classifier output: %q", last)
	}

	pct, err := strconv.ParseFloat(m[2], 64)
	if err != nil || pct < 0 || pct > 100 {
		return Prediction{}, fmt.Errorf("malformed classifier confidence: %q", m[2])
	}

	return Prediction{
		Label:      m[1],
		Confidence: pct / 100,
	}, nil
}
