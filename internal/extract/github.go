package extract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	githubAPIBase    = "https://api.github.com"
	manifestByteCap  = 2000
	licenseFallback  = "Not specified"
	languageFallback = "Unknown"
)

var githubRepoPattern = regexp.MustCompile(`^https?://github\.com/([^/]+)/([^/?#]+)`)

// manifestCandidates are checked in priority order; first hit wins
var manifestCandidates = []string{
	"package.json",
	"requirements.txt",
	"Cargo.toml",
	"go.mod",
	"pyproject.toml",
}

// GithubExtractor assembles a repository document from the GitHub REST API.
// The root metadata fetch is fatal; README, directory listing, and manifest
// lookups are best-effort and omit their section on failure.
type GithubExtractor struct {
	fetch   *fetcher
	apiBase string
	token   string
	logger  *slog.Logger
}

// NewGithubExtractor creates a new repository extractor. The token is
// optional; unauthenticated requests work within GitHub's rate limits.
func NewGithubExtractor(timeout time.Duration, userAgent, token string, logger *slog.Logger) *GithubExtractor {
	return &GithubExtractor{
		fetch:   newFetcher(timeout, userAgent),
		apiBase: githubAPIBase,
		token:   token,
		logger:  logger,
	}
}

// newGithubExtractorWithBase is used by tests to point at a fake API
func newGithubExtractorWithBase(f *fetcher, apiBase, token string, logger *slog.Logger) *GithubExtractor {
	return &GithubExtractor{fetch: f, apiBase: apiBase, token: token, logger: logger}
}

// Extract implements Extractor
func (e *GithubExtractor) Extract(ctx context.Context, ref string) (*Result, error) {
	match := githubRepoPattern.FindStringSubmatch(ref)
	if match == nil {
		return nil, fmt.Errorf("%w: not a repository URL: %s", ErrInvalidReference, ref)
	}

	owner := match[1]
	repo := strings.TrimSuffix(match[2], ".git")

	var repoData struct {
		FullName        string `json:"full_name"`
		Description     string `json:"description"`
		StargazersCount int    `json:"stargazers_count"`
		ForksCount      int    `json:"forks_count"`
		WatchersCount   int    `json:"watchers_count"`
		Language        string `json:"language"`
		License         *struct {
			Name string `json:"name"`
		} `json:"license"`
		Topics    []string `json:"topics"`
		CreatedAt string   `json:"created_at"`
		UpdatedAt string   `json:"updated_at"`
	}

	status, err := e.getJSON(ctx, fmt.Sprintf("%s/repos/%s/%s", e.apiBase, owner, repo), &repoData)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch repository metadata: %w", err)
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("repository not found: %s/%s", owner, repo)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("github API returned status %d for %s/%s", status, owner, repo)
	}

	readme := e.fetchReadme(ctx, owner, repo)
	listing := e.fetchListing(ctx, owner, repo)
	manifest := e.fetchManifest(ctx, owner, repo)

	fullName := repoData.FullName
	if fullName == "" {
		fullName = owner + "/" + repo
	}

	language := repoData.Language
	if language == "" {
		language = languageFallback
	}

	license := licenseFallback
	if repoData.License != nil && repoData.License.Name != "" {
		license = repoData.License.Name
	}

	var parts []string
	parts = append(parts, "# "+fullName)
	parts = append(parts, "")

	if repoData.Description != "" {
		parts = append(parts, "**Description:** "+repoData.Description)
		parts = append(parts, "")
	}

	parts = append(parts, "## Repository Stats")
	parts = append(parts, fmt.Sprintf("- ⭐ Stars: %d", repoData.StargazersCount))
	parts = append(parts, fmt.Sprintf("- 🍴 Forks: %d", repoData.ForksCount))
	parts = append(parts, fmt.Sprintf("- 👀 Watchers: %d", repoData.WatchersCount))
	parts = append(parts, "- 📝 Language: "+language)
	parts = append(parts, "- 📜 License: "+license)
	parts = append(parts, "")

	if len(repoData.Topics) > 0 {
		parts = append(parts, "**Topics:** "+strings.Join(repoData.Topics, ", "))
		parts = append(parts, "")
	}

	if len(listing) > 0 {
		parts = append(parts, "## File Structure (Root)")
		parts = append(parts, listing...)
		parts = append(parts, "")
	}

	if manifest != "" {
		parts = append(parts, "## Dependencies")
		parts = append(parts, manifest)
		parts = append(parts, "")
	}

	if readme != "" {
		parts = append(parts, "## README")
		parts = append(parts, readme)
	}

	e.logger.Info("Repository extracted",
		slog.String("repo", fullName),
		slog.Int("stars", repoData.StargazersCount),
	)

	return &Result{
		Title:   fmt.Sprintf("GitHub: %s/%s", owner, repo),
		Content: strings.Join(parts, "\n"),
		Metadata: map[string]any{
			"owner":      owner,
			"repo":       repo,
			"stars":      repoData.StargazersCount,
			"forks":      repoData.ForksCount,
			"language":   repoData.Language,
			"topics":     repoData.Topics,
			"created_at": repoData.CreatedAt,
			"updated_at": repoData.UpdatedAt,
			"source_url": ref,
		},
	}, nil
}

// fetchReadme returns the decoded README body, or "" when unavailable
func (e *GithubExtractor) fetchReadme(ctx context.Context, owner, repo string) string {
	var readmeData struct {
		Content string `json:"content"`
	}

	status, err := e.getJSON(ctx, fmt.Sprintf("%s/repos/%s/%s/readme", e.apiBase, owner, repo), &readmeData)
	if err != nil || status != http.StatusOK || readmeData.Content == "" {
		return ""
	}

	decoded, err := decodeBlob(readmeData.Content)
	if err != nil {
		e.logger.Warn("Failed to decode README",
			slog.String("repo", owner+"/"+repo),
			slog.Any("error", err),
		)
		return ""
	}

	return decoded
}

// fetchListing returns the root directory entries, or nil when unavailable
func (e *GithubExtractor) fetchListing(ctx context.Context, owner, repo string) []string {
	var entries []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}

	status, err := e.getJSON(ctx, fmt.Sprintf("%s/repos/%s/%s/contents", e.apiBase, owner, repo), &entries)
	if err != nil || status != http.StatusOK {
		return nil
	}

	listing := make([]string, 0, len(entries))
	for _, entry := range entries {
		icon := "📄"
		if entry.Type == "dir" {
			icon = "📁"
		}
		listing = append(listing, icon+" "+entry.Name)
	}

	return listing
}

// fetchManifest returns a fenced excerpt of the first manifest candidate
// found, or "" when none exists
func (e *GithubExtractor) fetchManifest(ctx context.Context, owner, repo string) string {
	for _, name := range manifestCandidates {
		var fileData struct {
			Content string `json:"content"`
		}

		status, err := e.getJSON(ctx, fmt.Sprintf("%s/repos/%s/%s/contents/%s", e.apiBase, owner, repo, name), &fileData)
		if err != nil || status != http.StatusOK || fileData.Content == "" {
			continue
		}

		decoded, err := decodeBlob(fileData.Content)
		if err != nil {
			continue
		}

		if len(decoded) > manifestByteCap {
			decoded = decoded[:manifestByteCap]
		}

		return fmt.Sprintf("### %s\n```\n%s\n```", name, decoded)
	}

	return ""
}

func (e *GithubExtractor) getJSON(ctx context.Context, url string, dest any) (int, error) {
	headers := map[string]string{
		"Accept": "application/vnd.github.v3+json",
	}
	if e.token != "" {
		headers["Authorization"] = "token " + e.token
	}

	body, status, err := e.fetch.get(ctx, url, headers)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return status, nil
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return status, fmt.Errorf("failed to parse response from %s: %w", url, err)
	}

	return status, nil
}

// decodeBlob decodes the base64 content field of the contents API, which
// wraps lines with newlines
func decodeBlob(content string) (string, error) {
	cleaned := strings.ReplaceAll(content, "\n", "")
	decoded, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
