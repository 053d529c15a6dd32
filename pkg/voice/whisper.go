package voice

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// TranscriberConfig configures the whisper.cpp CLI wrapper.
type TranscriberConfig struct {
	Binary         string // Override binary name (empty = auto-detect "whisper-cli" or "whisper-cpp")
	ModelPath      string // Path to a ggml model file, required
	Language       string // Language hint, empty = auto-detect
	TimeoutSeconds int    // Default timeout in seconds (0 = 120)
}

// TranscriptionResult carries the recognized text.
type TranscriptionResult struct {
	Text string
}

// Transcriber shells out to a local whisper.cpp binary to turn voice
// notes into text. Optional: when unavailable the bridge relays voice
// notes with an empty body instead.
type Transcriber struct {
	binary   string
	model    string
	language string
	timeout  time.Duration
}

func NewTranscriber(cfg TranscriberConfig) *Transcriber {
	timeout := 120 * time.Second
	if cfg.TimeoutSeconds >= 5 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &Transcriber{
		binary:   strings.TrimSpace(cfg.Binary),
		model:    strings.TrimSpace(cfg.ModelPath),
		language: strings.TrimSpace(cfg.Language),
		timeout:  timeout,
	}
}

// IsAvailable reports whether a usable binary and model are in place.
func (t *Transcriber) IsAvailable() bool {
	if t.model == "" {
		return false
	}
	if _, err := os.Stat(t.model); err != nil {
		return false
	}
	_, err := t.resolveBinary()
	return err == nil
}

// Transcribe runs the audio file through whisper and returns the text.
func (t *Transcriber) Transcribe(ctx context.Context, mediaPath string) (*TranscriptionResult, error) {
	bin, err := t.resolveBinary()
	if err != nil {
		return nil, err
	}
	if t.model == "" {
		return nil, fmt.Errorf("whisper model path not configured")
	}

	argv := []string{"-m", t.model, "-f", mediaPath, "-nt"}
	if t.language != "" {
		argv = append(argv, "-l", t.language)
	}

	cmdCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, bin, argv...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	out := strings.TrimSpace(stdout.String())
	errOut := strings.TrimSpace(stderr.String())

	if err != nil {
		if cmdCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("whisper timed out after %v", t.timeout)
		}
		if errOut != "" {
			return nil, fmt.Errorf("whisper failed: %s", errOut)
		}
		return nil, fmt.Errorf("whisper failed: %w", err)
	}

	if out == "" {
		return nil, fmt.Errorf("whisper produced no output")
	}
	return &TranscriptionResult{Text: out}, nil
}

// resolveBinary returns the whisper binary to use.
// If a binary was configured, it is used directly; otherwise auto-detect from PATH.
func (t *Transcriber) resolveBinary() (string, error) {
	if t.binary != "" {
		return t.binary, nil
	}
	if p, err := exec.LookPath("whisper-cli"); err == nil && strings.TrimSpace(p) != "" {
		return "whisper-cli", nil
	}
	if p, err := exec.LookPath("whisper-cpp"); err == nil && strings.TrimSpace(p) != "" {
		return "whisper-cpp", nil
	}
	return "", fmt.Errorf("whisper binary not found (expected 'whisper-cli' or 'whisper-cpp' in PATH)")
}
