package extract

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// browserUserAgent is sent on article fetches; many sites refuse obvious bots
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// ArticleExtractor fetches a page and strips boilerplate to get the main
// body text, favoring recall over precision: downstream analysis tolerates
// noise better than missing text.
type ArticleExtractor struct {
	fetch  *fetcher
	logger *slog.Logger
}

// NewArticleExtractor creates a new article extractor
func NewArticleExtractor(timeout time.Duration, logger *slog.Logger) *ArticleExtractor {
	return &ArticleExtractor{
		fetch:  newFetcher(timeout, browserUserAgent),
		logger: logger,
	}
}

// Extract implements Extractor
func (e *ArticleExtractor) Extract(ctx context.Context, ref string) (*Result, error) {
	body, status, err := e.fetch.get(ctx, ref, nil)
	if err != nil {
		return nil, err
	}
	if status >= http.StatusBadRequest {
		return nil, fmt.Errorf("page fetch returned status %d", status)
	}

	html := string(body)

	pageURL, _ := url.Parse(ref)
	article, readErr := readability.FromReader(strings.NewReader(html), pageURL)
	if readErr != nil {
		e.logger.Warn("Readability pass failed",
			slog.String("url", ref),
			slog.Any("error", readErr),
		)
	}

	content := strings.TrimSpace(article.TextContent)
	if content == "" {
		return nil, fmt.Errorf("could not extract content from %s", ref)
	}

	doc, docErr := goquery.NewDocumentFromReader(strings.NewReader(html))

	title := strings.TrimSpace(article.Title)
	if title == "" && docErr == nil {
		title = titleFromDocument(doc)
	}
	if title == "" {
		title = ref
	}

	metadata := map[string]any{
		"author":     strings.TrimSpace(article.Byline),
		"date":       "",
		"sitename":   strings.TrimSpace(article.SiteName),
		"source_url": ref,
		"word_count": len(strings.Fields(content)),
	}

	if docErr == nil {
		if author, ok := metaContent(doc, "meta[name='author']"); ok && metadata["author"] == "" {
			metadata["author"] = author
		}
		if date, ok := metaContent(doc, "meta[property='article:published_time']"); ok {
			metadata["date"] = date
		}
		if sitename, ok := metaContent(doc, "meta[property='og:site_name']"); ok && metadata["sitename"] == "" {
			metadata["sitename"] = sitename
		}
	}

	e.logger.Info("Article extracted",
		slog.String("url", ref),
		slog.String("title", title),
		slog.Int("word_count", metadata["word_count"].(int)),
	)

	return &Result{
		Title:    title,
		Content:  content,
		Metadata: metadata,
	}, nil
}

// titleFromDocument is the whole-document title heuristic used when the
// readability pass yields no title
func titleFromDocument(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if title := strings.TrimSpace(doc.Find("h1").First().Text()); title != "" {
		return title
	}
	if title, ok := metaContent(doc, "meta[property='og:title']"); ok {
		return title
	}
	return ""
}

func metaContent(doc *goquery.Document, selector string) (string, bool) {
	content, exists := doc.Find(selector).Attr("content")
	content = strings.TrimSpace(content)
	return content, exists && content != ""
}
