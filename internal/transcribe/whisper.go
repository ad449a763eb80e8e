package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// Whisper shells out to the whisper CLI. The binary is verified once on first
// use, and a semaphore bounds how many transcriptions run at the same time so
// concurrent jobs do not pile CPU-heavy model runs on top of each other.
type Whisper struct {
	binary string
	model  string
	logger *slog.Logger
	sem    chan struct{}

	initOnce sync.Once
	initErr  error
}

// Config holds whisper adapter settings
type Config struct {
	Binary        string
	Model         string
	MaxConcurrent int
}

// NewWhisper creates a new whisper adapter
func NewWhisper(cfg *Config, logger *slog.Logger) *Whisper {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	return &Whisper{
		binary: cfg.Binary,
		model:  cfg.Model,
		logger: logger,
		sem:    make(chan struct{}, maxConcurrent),
	}
}

// Transcribe runs whisper on the given audio file and returns the transcript
func (w *Whisper) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	w.initOnce.Do(func() {
		_, w.initErr = exec.LookPath(w.binary)
	})
	if w.initErr != nil {
		return nil, fmt.Errorf("transcription engine unavailable: %w", w.initErr)
	}

	select {
	case w.sem <- struct{}{}:
		defer func() { <-w.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	outDir, err := os.MkdirTemp("", "whisper-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create transcription dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	w.logger.Info("Transcribing audio",
		slog.String("audio_path", audioPath),
		slog.String("model", w.model),
	)

	cmd := exec.CommandContext(ctx, w.binary,
		audioPath,
		"--model", w.model,
		"--output_format", "json",
		"--output_dir", outDir,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("whisper failed: %w: %s", err, firstLine(stderr.String()))
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	data, err := os.ReadFile(filepath.Join(outDir, base+".json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read whisper output: %w", err)
	}

	var out struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse whisper output: %w", err)
	}

	return &Result{
		Text:     strings.TrimSpace(out.Text),
		Language: out.Language,
	}, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
