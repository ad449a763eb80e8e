package extract

import "strings"

// Classify detects the source type of a URL by substring match. It is total:
// anything that is not a recognized platform falls through to article.
// Uploaded files never pass through here; they are typed at creation.
func Classify(ref string) SourceType {
	lower := strings.ToLower(ref)

	switch {
	case strings.Contains(lower, "youtube.com"), strings.Contains(lower, "youtu.be"):
		return TypeYouTube
	case strings.Contains(lower, "reddit.com"):
		return TypeReddit
	case strings.Contains(lower, "github.com"):
		return TypeGithub
	default:
		return TypeArticle
	}
}
