package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArticleID_Stable(t *testing.T) {
	e := Entry{
		GUID:      "tag:example.com,2024:post-42",
		Link:      "https://example.com/post/42",
		Title:     "Post 42",
		Published: "Mon, 01 Jan 2024 10:00:00 GMT",
	}

	first := ArticleID(e)
	second := ArticleID(e)
	assert.Equal(t, first, second)

	// A value copy must hash identically.
	clone := e
	assert.Equal(t, first, ArticleID(clone))

	require.Len(t, first, 32)
}

func TestArticleID_FieldPriority(t *testing.T) {
	base := Entry{
		ID:        "explicit-id",
		GUID:      "some-guid",
		Link:      "https://example.com/a",
		Title:     "A",
		Published: "2024-01-01",
	}

	// The explicit id masks every lower-priority field.
	masked := base
	masked.GUID = "different-guid"
	masked.Link = "https://example.com/b"
	assert.Equal(t, ArticleID(base), ArticleID(masked))

	// Without an explicit id, the guid decides.
	noID := base
	noID.ID = ""
	guidChanged := noID
	guidChanged.GUID = "other"
	assert.NotEqual(t, ArticleID(noID), ArticleID(guidChanged))

	// Without id and guid, the link decides.
	linkOnly := Entry{Link: "https://example.com/a", Title: "A"}
	otherLink := Entry{Link: "https://example.com/b", Title: "A"}
	assert.NotEqual(t, ArticleID(linkOnly), ArticleID(otherLink))

	// Last resort: title plus published date.
	byTitle := Entry{Title: "A", Published: "2024-01-01"}
	byTitleLater := Entry{Title: "A", Published: "2024-01-02"}
	assert.NotEqual(t, ArticleID(byTitle), ArticleID(byTitleLater))
}

func TestArticleID_Degenerate(t *testing.T) {
	// All identifying fields empty: deterministic hash of the empty
	// string, never a failure.
	id := ArticleID(Entry{})
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", id)
	assert.Equal(t, id, ArticleID(Entry{Summary: "only non-identifying fields set"}))
}
