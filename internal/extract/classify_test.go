package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		ref      string
		expected SourceType
	}{
		{
			name:     "youtube watch url",
			ref:      "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			expected: TypeYouTube,
		},
		{
			name:     "youtube short url",
			ref:      "https://youtu.be/dQw4w9WgXcQ",
			expected: TypeYouTube,
		},
		{
			name:     "reddit thread",
			ref:      "https://www.reddit.com/r/golang/comments/abc123/some_post/",
			expected: TypeReddit,
		},
		{
			name:     "old reddit",
			ref:      "https://old.reddit.com/r/golang/comments/abc123/some_post/",
			expected: TypeReddit,
		},
		{
			name:     "github repository",
			ref:      "https://github.com/jmoiron/sqlx",
			expected: TypeGithub,
		},
		{
			name:     "uppercase host still matches",
			ref:      "https://GitHub.com/jmoiron/sqlx",
			expected: TypeGithub,
		},
		{
			name:     "blog post falls through to article",
			ref:      "https://blog.example.com/posts/interesting-idea",
			expected: TypeArticle,
		},
		{
			name:     "bare domain falls through to article",
			ref:      "https://example.com",
			expected: TypeArticle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.ref))
		})
	}
}
