package extract

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
)

// YtDlp implements VideoClient by shelling out to the yt-dlp binary
type YtDlp struct {
	binary string
	logger *slog.Logger
}

// NewYtDlp creates a new yt-dlp adapter
func NewYtDlp(binary string, logger *slog.Logger) *YtDlp {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &YtDlp{binary: binary, logger: logger}
}

// Info fetches video metadata without downloading media
func (y *YtDlp) Info(ctx context.Context, url string) (*VideoInfo, error) {
	out, err := y.run(ctx, "-J", "--no-warnings", "--skip-download", url)
	if err != nil {
		return nil, err
	}

	var raw struct {
		ID                string                     `json:"id"`
		Title             string                     `json:"title"`
		Channel           string                     `json:"channel"`
		Description       string                     `json:"description"`
		Duration          int                        `json:"duration"`
		ViewCount         int64                      `json:"view_count"`
		UploadDate        string                     `json:"upload_date"`
		Subtitles         map[string]json.RawMessage `json:"subtitles"`
		AutomaticCaptions map[string]json.RawMessage `json:"automatic_captions"`
	}
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse video info: %w", err)
	}

	return &VideoInfo{
		ID:                   raw.ID,
		Title:                raw.Title,
		Channel:              raw.Channel,
		Description:          raw.Description,
		Duration:             raw.Duration,
		ViewCount:            raw.ViewCount,
		UploadDate:           raw.UploadDate,
		SubtitleLanguages:    mapKeys(raw.Subtitles),
		AutoCaptionLanguages: mapKeys(raw.AutomaticCaptions),
	}, nil
}

// DownloadSubtitles downloads caption markup for one language and returns it
// raw. The temporary download directory is removed on every path.
func (y *YtDlp) DownloadSubtitles(ctx context.Context, url, lang string, auto bool) (string, error) {
	tmpDir, err := os.MkdirTemp("", "ytsubs-*")
	if err != nil {
		return "", fmt.Errorf("failed to create subtitle dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	subsFlag := "--write-subs"
	if auto {
		subsFlag = "--write-auto-subs"
	}

	_, err = y.run(ctx,
		"--no-warnings",
		"--skip-download",
		subsFlag,
		"--sub-langs", lang,
		"--sub-format", "vtt/srt",
		"-o", filepath.Join(tmpDir, "%(id)s.%(ext)s"),
		url,
	)
	if err != nil {
		return "", err
	}

	for _, ext := range []string{"vtt", "srt"} {
		matches, _ := filepath.Glob(filepath.Join(tmpDir, "*."+lang+"."+ext))
		if len(matches) == 0 {
			continue
		}
		data, err := os.ReadFile(matches[0])
		if err != nil {
			return "", fmt.Errorf("failed to read subtitle file: %w", err)
		}
		return string(data), nil
	}

	return "", nil
}

// DownloadAudio downloads the best available audio into destDir and returns
// the file path. The caller owns destDir cleanup.
func (y *YtDlp) DownloadAudio(ctx context.Context, url, destDir string) (string, error) {
	_, err := y.run(ctx,
		"--no-warnings",
		"-f", "bestaudio/best",
		"-x",
		"--audio-format", "mp3",
		"--audio-quality", "128K",
		"-o", filepath.Join(destDir, "audio.%(ext)s"),
		url,
	)
	if err != nil {
		return "", err
	}

	matches, _ := filepath.Glob(filepath.Join(destDir, "audio.*"))
	if len(matches) == 0 {
		return "", fmt.Errorf("yt-dlp produced no audio file")
	}

	return matches[0], nil
}

func (y *YtDlp) run(ctx context.Context, args ...string) ([]byte, error) {
	y.logger.Debug("Running yt-dlp",
		slog.String("args", strings.Join(args, " ")),
	)

	cmd := exec.CommandContext(ctx, y.binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp failed: %w: %s", err, firstLine(stderr.String()))
	}

	return stdout.Bytes(), nil
}

func mapKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
