// Package extract turns heterogeneous source references (URLs and uploaded
// files) into normalized {title, content, metadata} records.
package extract

import (
	"context"
	"errors"
	"fmt"
)

// SourceType identifies which extractor handles a reference
type SourceType string

const (
	TypeYouTube SourceType = "youtube"
	TypeReddit  SourceType = "reddit"
	TypeGithub  SourceType = "github"
	TypeFile    SourceType = "file"
	TypeArticle SourceType = "article"
)

var (
	// ErrUnsupportedFormat is returned when no file extractor recognizes a
	// file and the plain-text fallback also fails
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrInvalidReference is returned when a reference cannot be parsed into
	// the form the chosen extractor requires
	ErrInvalidReference = errors.New("invalid source reference")
)

// Result is the normalized record every extractor produces. It is transient;
// its fields are copied into the job record on completion.
type Result struct {
	Title    string
	Content  string
	Metadata map[string]any
}

// Extractor produces a normalized record from a source reference
type Extractor interface {
	Extract(ctx context.Context, ref string) (*Result, error)
}

// Error wraps a failure inside a source extractor with the source type that
// produced it
type Error struct {
	Source SourceType
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s extraction: %v", e.Source, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
