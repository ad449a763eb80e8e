// Package transcribe provides the speech-to-text capability consumed by the
// video and file extractors.
package transcribe

import "context"

// Result holds a transcription and the language the engine detected
type Result struct {
	Text     string
	Language string
}

// Transcriber converts an audio file into text. Implementations must be safe
// for concurrent use; multiple jobs may transcribe at once.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*Result, error)
}
