package extract

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func comment(author, body string, score int, replies ...commentNode) commentNode {
	return commentNode{
		Kind: commentKind,
		Data: commentData{
			Author:  author,
			Body:    body,
			Score:   score,
			Replies: repliesField{Children: replies},
		},
	}
}

func TestRenderComments(t *testing.T) {
	t.Run("single comment", func(t *testing.T) {
		lines, remaining := renderComments([]commentNode{
			comment("alice", "great point", 10),
		}, 0, maxComments)

		require.Len(t, lines, 3)
		assert.Equal(t, "**u/alice** (10 points):", lines[0])
		assert.Equal(t, "great point", lines[1])
		assert.Equal(t, "", lines[2])
		assert.Equal(t, maxComments-1, remaining)
	})

	t.Run("replies are indented under parents", func(t *testing.T) {
		lines, _ := renderComments([]commentNode{
			comment("alice", "parent", 5,
				comment("bob", "child", 3,
					comment("carol", "grandchild", 1),
				),
			),
		}, 0, maxComments)

		text := strings.Join(lines, "\n")
		assert.Contains(t, text, "**u/alice** (5 points):")
		assert.Contains(t, text, "  **u/bob** (3 points):")
		assert.Contains(t, text, "    **u/carol** (1 points):")
		assert.Contains(t, text, "  child")
		assert.Contains(t, text, "    grandchild")
	})

	t.Run("depth budget cuts deep branches", func(t *testing.T) {
		// Chain five levels deep; levels past maxCommentDepth are dropped
		chain := comment("u4", "level four", 1)
		chain = comment("u3", "level three", 1, chain)
		chain = comment("u2", "level two", 1, chain)
		chain = comment("u1", "level one", 1, chain)
		chain = comment("u0", "level zero", 1, chain)

		lines, _ := renderComments([]commentNode{chain}, 0, maxComments)

		text := strings.Join(lines, "\n")
		assert.Contains(t, text, "level zero")
		assert.Contains(t, text, "level three")
		assert.NotContains(t, text, "level four")
	})

	t.Run("count budget is shared across the walk", func(t *testing.T) {
		nodes := make([]commentNode, 0, maxComments+5)
		for i := 0; i < maxComments+5; i++ {
			nodes = append(nodes, comment("user", fmt.Sprintf("comment %d", i), i))
		}

		lines, remaining := renderComments(nodes, 0, maxComments)

		assert.Equal(t, 0, remaining)
		text := strings.Join(lines, "\n")
		assert.Contains(t, text, fmt.Sprintf("comment %d", maxComments-1))
		assert.NotContains(t, text, fmt.Sprintf("comment %d", maxComments))
	})

	t.Run("replies count against the shared budget", func(t *testing.T) {
		// One parent with three replies, then more siblings; depth-first order
		// means the replies are emitted before the second sibling
		nodes := []commentNode{
			comment("parent", "first", 1,
				comment("r1", "reply one", 1),
				comment("r2", "reply two", 1),
			),
			comment("sibling", "second", 1),
		}

		lines, remaining := renderComments(nodes, 0, 3)

		assert.Equal(t, 0, remaining)
		text := strings.Join(lines, "\n")
		assert.Contains(t, text, "first")
		assert.Contains(t, text, "reply one")
		assert.Contains(t, text, "reply two")
		assert.NotContains(t, text, "second")
	})

	t.Run("deleted and removed bodies are skipped", func(t *testing.T) {
		lines, remaining := renderComments([]commentNode{
			comment("ghost", "[deleted]", 0),
			comment("mod", "[removed]", 0),
			comment("nobody", "", 0),
			comment("alice", "survives", 2),
		}, 0, maxComments)

		text := strings.Join(lines, "\n")
		assert.Contains(t, text, "survives")
		assert.NotContains(t, text, "ghost")
		assert.NotContains(t, text, "[removed]")
		assert.Equal(t, maxComments-1, remaining)
	})

	t.Run("non-comment kinds are skipped", func(t *testing.T) {
		more := commentNode{Kind: "more"}
		lines, remaining := renderComments([]commentNode{
			more,
			comment("alice", "real comment", 1),
		}, 0, maxComments)

		assert.Contains(t, strings.Join(lines, "\n"), "real comment")
		assert.Equal(t, maxComments-1, remaining)
	})
}

func TestRepliesField_UnmarshalJSON(t *testing.T) {
	t.Run("empty string means no replies", func(t *testing.T) {
		var node commentNode
		raw := `{"kind": "t1", "data": {"author": "alice", "body": "hi", "score": 1, "replies": ""}}`
		require.NoError(t, json.Unmarshal([]byte(raw), &node))
		assert.Empty(t, node.Data.Replies.Children)
	})

	t.Run("listing object yields children", func(t *testing.T) {
		var node commentNode
		raw := `{
			"kind": "t1",
			"data": {
				"author": "alice",
				"body": "hi",
				"score": 1,
				"replies": {
					"data": {
						"children": [
							{"kind": "t1", "data": {"author": "bob", "body": "reply", "score": 2, "replies": ""}}
						]
					}
				}
			}
		}`
		require.NoError(t, json.Unmarshal([]byte(raw), &node))
		require.Len(t, node.Data.Replies.Children, 1)
		assert.Equal(t, "bob", node.Data.Replies.Children[0].Data.Author)
	})
}
