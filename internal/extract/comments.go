package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Budgets bounding the comment tree walk. The count budget is shared across
// the whole walk, not per branch.
const (
	maxCommentDepth = 3
	maxComments     = 20
)

// commentKind is reddit's type tag for comment nodes
const commentKind = "t1"

type commentNode struct {
	Kind string      `json:"kind"`
	Data commentData `json:"data"`
}

type commentData struct {
	Author  string       `json:"author"`
	Body    string       `json:"body"`
	Score   int          `json:"score"`
	Replies repliesField `json:"replies"`
}

// repliesField tolerates reddit's two encodings: a listing object, or an
// empty string when a comment has no replies
type repliesField struct {
	Children []commentNode
}

func (r *repliesField) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		r.Children = nil
		return nil
	}

	var listing struct {
		Data struct {
			Children []commentNode `json:"children"`
		} `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &listing); err != nil {
		return fmt.Errorf("failed to parse replies listing: %w", err)
	}

	r.Children = listing.Data.Children
	return nil
}

// renderComments walks a comment tree depth-first in original order and emits
// indented attribution+body blocks. The remaining count budget is threaded
// through return values; the walk stops as soon as it reaches zero, even
// mid-sibling-list. Returns the emitted lines and the leftover budget.
func renderComments(nodes []commentNode, depth, remaining int) ([]string, int) {
	var lines []string

	for _, node := range nodes {
		if remaining <= 0 {
			break
		}
		if node.Kind != commentKind {
			continue
		}

		body := node.Data.Body
		if body == "" || body == "[deleted]" || body == "[removed]" {
			continue
		}

		indent := strings.Repeat("  ", depth)
		lines = append(lines, fmt.Sprintf("%s**u/%s** (%d points):", indent, node.Data.Author, node.Data.Score))
		lines = append(lines, indent+body)
		lines = append(lines, "")
		remaining--

		if depth < maxCommentDepth && remaining > 0 {
			var replyLines []string
			replyLines, remaining = renderComments(node.Data.Replies.Children, depth+1, remaining)
			lines = append(lines, replyLines...)
		}
	}

	return lines, remaining
}
