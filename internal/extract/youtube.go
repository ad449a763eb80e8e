package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/nurul-suhasril/idea-analyzer/internal/transcribe"
)

const descriptionLimit = 500

// VideoInfo is the metadata a video platform exposes without downloading
// any media
type VideoInfo struct {
	ID                   string
	Title                string
	Channel              string
	Description          string
	Duration             int
	ViewCount            int64
	UploadDate           string
	SubtitleLanguages    []string // manually authored
	AutoCaptionLanguages []string // machine generated
}

// VideoClient is the video-platform capability: metadata lookup, caption
// download, and audio download
type VideoClient interface {
	Info(ctx context.Context, url string) (*VideoInfo, error)
	DownloadSubtitles(ctx context.Context, url, lang string, auto bool) (string, error)
	DownloadAudio(ctx context.Context, url, destDir string) (string, error)
}

// YouTubeExtractor extracts a transcript from a video. Fallback chain, first
// success wins: manual captions, machine captions, audio transcription.
type YouTubeExtractor struct {
	videos      VideoClient
	transcriber transcribe.Transcriber
	language    string
	logger      *slog.Logger
}

// NewYouTubeExtractor creates a new video extractor
func NewYouTubeExtractor(videos VideoClient, transcriber transcribe.Transcriber, language string, logger *slog.Logger) *YouTubeExtractor {
	return &YouTubeExtractor{
		videos:      videos,
		transcriber: transcriber,
		language:    language,
		logger:      logger,
	}
}

// Extract implements Extractor
func (e *YouTubeExtractor) Extract(ctx context.Context, ref string) (*Result, error) {
	info, err := e.videos.Info(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch video info: %w", err)
	}

	metadata := map[string]any{
		"duration":    info.Duration,
		"channel":     info.Channel,
		"description": truncateRunes(info.Description, descriptionLimit),
		"view_count":  info.ViewCount,
		"upload_date": info.UploadDate,
		"video_id":    info.ID,
	}

	if slices.Contains(info.SubtitleLanguages, e.language) {
		e.logger.Info("Found manual subtitles",
			slog.String("video_id", info.ID),
			slog.String("language", e.language),
		)

		transcript, err := e.downloadAndParse(ctx, ref, false)
		if err != nil {
			e.logger.Warn("Manual subtitle download failed, falling back",
				slog.String("video_id", info.ID),
				slog.Any("error", err),
			)
		} else if transcript != "" {
			return &Result{Title: info.Title, Content: transcript, Metadata: metadata}, nil
		}
	}

	if slices.Contains(info.AutoCaptionLanguages, e.language) {
		e.logger.Info("Found auto-generated captions",
			slog.String("video_id", info.ID),
			slog.String("language", e.language),
		)

		transcript, err := e.downloadAndParse(ctx, ref, true)
		if err != nil {
			e.logger.Warn("Auto caption download failed, falling back",
				slog.String("video_id", info.ID),
				slog.Any("error", err),
			)
		} else if transcript != "" {
			return &Result{Title: info.Title, Content: transcript, Metadata: metadata}, nil
		}
	}

	e.logger.Info("No usable captions, transcribing audio",
		slog.String("video_id", info.ID),
	)

	transcript, language, err := e.transcribeAudio(ctx, ref)
	if err != nil {
		return nil, err
	}

	if language != "" {
		metadata["detected_language"] = language
	}

	return &Result{Title: info.Title, Content: transcript, Metadata: metadata}, nil
}

func (e *YouTubeExtractor) downloadAndParse(ctx context.Context, url string, auto bool) (string, error) {
	raw, err := e.videos.DownloadSubtitles(ctx, url, e.language, auto)
	if err != nil {
		return "", err
	}
	return ParseSubtitles(raw), nil
}

func (e *YouTubeExtractor) transcribeAudio(ctx context.Context, url string) (string, string, error) {
	tmpDir, err := os.MkdirTemp("", "ytaudio-*")
	if err != nil {
		return "", "", fmt.Errorf("failed to create audio dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	audioPath, err := e.videos.DownloadAudio(ctx, url, tmpDir)
	if err != nil {
		return "", "", fmt.Errorf("failed to download audio: %w", err)
	}

	result, err := e.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to transcribe audio: %w", err)
	}

	return result.Text, result.Language, nil
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
