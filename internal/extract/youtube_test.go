package extract

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurul-suhasril/idea-analyzer/internal/transcribe"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeVideoClient struct {
	info         *VideoInfo
	infoErr      error
	subtitles    string
	subtitlesErr error
	audioErr     error

	subtitleCalls []bool // auto flag per call
	audioCalls    int
}

func (f *fakeVideoClient) Info(ctx context.Context, url string) (*VideoInfo, error) {
	return f.info, f.infoErr
}

func (f *fakeVideoClient) DownloadSubtitles(ctx context.Context, url, lang string, auto bool) (string, error) {
	f.subtitleCalls = append(f.subtitleCalls, auto)
	return f.subtitles, f.subtitlesErr
}

func (f *fakeVideoClient) DownloadAudio(ctx context.Context, url, destDir string) (string, error) {
	f.audioCalls++
	if f.audioErr != nil {
		return "", f.audioErr
	}
	path := filepath.Join(destDir, "audio.mp3")
	if err := os.WriteFile(path, []byte("fake audio"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type fakeTranscriber struct {
	result *transcribe.Result
	err    error
	calls  int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath string) (*transcribe.Result, error) {
	f.calls++
	return f.result, f.err
}

const sampleVTT = `WEBVTT

00:00:00.000 --> 00:00:02.000
hello from the video

00:00:02.000 --> 00:00:04.000
more spoken words`

func baseVideoInfo() *VideoInfo {
	return &VideoInfo{
		ID:         "vid123",
		Title:      "A Video",
		Channel:    "Some Channel",
		Duration:   90,
		ViewCount:  1000,
		UploadDate: "20260101",
	}
}

func TestYouTubeExtractor_ManualSubtitles(t *testing.T) {
	info := baseVideoInfo()
	info.SubtitleLanguages = []string{"en", "de"}

	videos := &fakeVideoClient{info: info, subtitles: sampleVTT}
	transcriber := &fakeTranscriber{}

	e := NewYouTubeExtractor(videos, transcriber, "en", discardLogger())
	result, err := e.Extract(context.Background(), "https://youtu.be/vid123")

	require.NoError(t, err)
	assert.Equal(t, "A Video", result.Title)
	assert.Equal(t, "hello from the video more spoken words", result.Content)
	assert.Equal(t, "vid123", result.Metadata["video_id"])
	assert.Equal(t, 90, result.Metadata["duration"])

	require.Len(t, videos.subtitleCalls, 1)
	assert.False(t, videos.subtitleCalls[0], "manual subtitles must not set the auto flag")
	assert.Zero(t, transcriber.calls)
}

func TestYouTubeExtractor_AutoCaptionFallback(t *testing.T) {
	info := baseVideoInfo()
	info.AutoCaptionLanguages = []string{"en"}

	videos := &fakeVideoClient{info: info, subtitles: sampleVTT}
	transcriber := &fakeTranscriber{}

	e := NewYouTubeExtractor(videos, transcriber, "en", discardLogger())
	result, err := e.Extract(context.Background(), "https://youtu.be/vid123")

	require.NoError(t, err)
	assert.Equal(t, "hello from the video more spoken words", result.Content)

	require.Len(t, videos.subtitleCalls, 1)
	assert.True(t, videos.subtitleCalls[0], "auto captions must set the auto flag")
	assert.Zero(t, transcriber.calls)
}

func TestYouTubeExtractor_TranscriptionFallback(t *testing.T) {
	t.Run("no captions at all", func(t *testing.T) {
		videos := &fakeVideoClient{info: baseVideoInfo()}
		transcriber := &fakeTranscriber{
			result: &transcribe.Result{Text: "transcribed speech", Language: "en"},
		}

		e := NewYouTubeExtractor(videos, transcriber, "en", discardLogger())
		result, err := e.Extract(context.Background(), "https://youtu.be/vid123")

		require.NoError(t, err)
		assert.Equal(t, "transcribed speech", result.Content)
		assert.Equal(t, "en", result.Metadata["detected_language"])
		assert.Zero(t, len(videos.subtitleCalls))
		assert.Equal(t, 1, videos.audioCalls)
	})

	t.Run("empty caption text falls through", func(t *testing.T) {
		info := baseVideoInfo()
		info.SubtitleLanguages = []string{"en"}

		// Caption download succeeds but parses to nothing
		videos := &fakeVideoClient{info: info, subtitles: "WEBVTT\n\n00:00:00.000 --> 00:00:02.000\n"}
		transcriber := &fakeTranscriber{
			result: &transcribe.Result{Text: "rescued by audio", Language: "nl"},
		}

		e := NewYouTubeExtractor(videos, transcriber, "en", discardLogger())
		result, err := e.Extract(context.Background(), "https://youtu.be/vid123")

		require.NoError(t, err)
		assert.Equal(t, "rescued by audio", result.Content)
		assert.Equal(t, "nl", result.Metadata["detected_language"])
	})

	t.Run("transcription failure fails the extraction", func(t *testing.T) {
		videos := &fakeVideoClient{info: baseVideoInfo()}
		transcriber := &fakeTranscriber{err: errors.New("whisper exploded")}

		e := NewYouTubeExtractor(videos, transcriber, "en", discardLogger())
		_, err := e.Extract(context.Background(), "https://youtu.be/vid123")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "whisper exploded")
	})
}

func TestYouTubeExtractor_InfoError(t *testing.T) {
	videos := &fakeVideoClient{infoErr: errors.New("video unavailable")}

	e := NewYouTubeExtractor(videos, &fakeTranscriber{}, "en", discardLogger())
	_, err := e.Extract(context.Background(), "https://youtu.be/vid123")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "video unavailable")
}

func TestYouTubeExtractor_DescriptionTruncation(t *testing.T) {
	info := baseVideoInfo()
	info.Description = strings.Repeat("ä", descriptionLimit+100)
	info.SubtitleLanguages = []string{"en"}

	videos := &fakeVideoClient{info: info, subtitles: sampleVTT}

	e := NewYouTubeExtractor(videos, &fakeTranscriber{}, "en", discardLogger())
	result, err := e.Extract(context.Background(), "https://youtu.be/vid123")

	require.NoError(t, err)
	description := result.Metadata["description"].(string)
	assert.Equal(t, descriptionLimit, len([]rune(description)))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 5))
	assert.Equal(t, "ab", truncateRunes("abcde", 2))
	assert.Equal(t, "äö", truncateRunes("äöü", 2))
	assert.Equal(t, "", truncateRunes("", 3))
}
