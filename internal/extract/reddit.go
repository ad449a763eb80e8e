package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var redditHostPattern = regexp.MustCompile(`(old\.|www\.)?reddit\.com`)

// RedditExtractor extracts a thread's root post and comment tree via
// reddit's public JSON API; no credential required.
type RedditExtractor struct {
	fetch  *fetcher
	logger *slog.Logger
}

// NewRedditExtractor creates a new thread extractor
func NewRedditExtractor(timeout time.Duration, userAgent string, logger *slog.Logger) *RedditExtractor {
	return &RedditExtractor{
		fetch:  newFetcher(timeout, userAgent),
		logger: logger,
	}
}

// newRedditExtractorWithBase is used by tests to point at a fake API
func newRedditExtractorWithBase(f *fetcher, logger *slog.Logger) *RedditExtractor {
	return &RedditExtractor{fetch: f, logger: logger}
}

// Extract implements Extractor
func (e *RedditExtractor) Extract(ctx context.Context, ref string) (*Result, error) {
	jsonURL := strings.TrimRight(ref, "/")
	if !strings.HasSuffix(jsonURL, ".json") {
		jsonURL += ".json"
	}
	jsonURL = redditHostPattern.ReplaceAllString(jsonURL, "reddit.com")

	body, status, err := e.fetch.get(ctx, jsonURL, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("reddit API returned status %d", status)
	}

	// Reddit returns a two-element array: [post listing, comment listing]
	var listings []struct {
		Data struct {
			Children []json.RawMessage `json:"children"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &listings); err != nil || len(listings) < 2 {
		return nil, fmt.Errorf("unexpected reddit API response format")
	}
	if len(listings[0].Data.Children) == 0 {
		return nil, fmt.Errorf("reddit thread has no root post")
	}

	var post struct {
		Data struct {
			Title       string  `json:"title"`
			Author      string  `json:"author"`
			Subreddit   string  `json:"subreddit"`
			Selftext    string  `json:"selftext"`
			Score       int     `json:"score"`
			NumComments int     `json:"num_comments"`
			CreatedUTC  float64 `json:"created_utc"`
		} `json:"data"`
	}
	if err := json.Unmarshal(listings[0].Data.Children[0], &post); err != nil {
		return nil, fmt.Errorf("failed to parse root post: %w", err)
	}

	comments := make([]commentNode, 0, len(listings[1].Data.Children))
	for _, raw := range listings[1].Data.Children {
		var node commentNode
		if err := json.Unmarshal(raw, &node); err != nil {
			continue
		}
		comments = append(comments, node)
	}

	p := post.Data
	var parts []string
	parts = append(parts, "# "+p.Title)
	parts = append(parts, fmt.Sprintf("Posted by u/%s in r/%s", p.Author, p.Subreddit))
	parts = append(parts, fmt.Sprintf("Score: %d | Comments: %d", p.Score, p.NumComments))
	parts = append(parts, "")

	if p.Selftext != "" {
		parts = append(parts, "## Post Content")
		parts = append(parts, p.Selftext)
		parts = append(parts, "")
	}

	parts = append(parts, "## Top Comments")
	parts = append(parts, "")

	commentLines, _ := renderComments(comments, 0, maxComments)
	parts = append(parts, commentLines...)

	e.logger.Info("Reddit thread extracted",
		slog.String("subreddit", p.Subreddit),
		slog.Int("num_comments", p.NumComments),
	)

	return &Result{
		Title:   fmt.Sprintf("[r/%s] %s", p.Subreddit, p.Title),
		Content: strings.Join(parts, "\n"),
		Metadata: map[string]any{
			"subreddit":    p.Subreddit,
			"author":       p.Author,
			"score":        p.Score,
			"num_comments": p.NumComments,
			"created_utc":  p.CreatedUTC,
			"source_url":   ref,
		},
	}, nil
}
