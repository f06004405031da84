package thinking_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime/thinking"
)

// TestExtractionAcrossChunks mirrors §8's worked example: a <thinking> tag
// whose open marker straddles a chunk boundary and whose body spans chunks.
func TestExtractionAcrossChunks(t *testing.T) {
	deltas := []string{"Let me ", "<think", "ing>this ", "is tricky</thinking>", "42"}
	e := thinking.New()

	var cleaned []string
	var thoughts []string
	for _, d := range deltas {
		c, ts := e.Feed(d)
		cleaned = append(cleaned, c)
		thoughts = append(thoughts, ts...)
	}

	require.Equal(t, []string{"this is tricky"}, thoughts)
	require.Equal(t, "Let me 42", strings.Join(cleaned, ""))

	// No single delta ever contains a partial tag marker.
	for _, c := range cleaned {
		require.NotContains(t, c, "<think")
		require.NotContains(t, c, "</think")
	}
}

func TestTagEntirelyWithinOneDelta(t *testing.T) {
	e := thinking.New()
	cleaned, thoughts := e.Feed("before <thinking> plan it </thinking> after")
	require.Equal(t, []string{"plan it"}, thoughts)
	require.Equal(t, "before  after", cleaned)
}

func TestMultiplePairsInOneDelta(t *testing.T) {
	e := thinking.New()
	cleaned, thoughts := e.Feed("a<thinking>one</thinking>b<thinking>two</thinking>c")
	require.Equal(t, []string{"one", "two"}, thoughts)
	require.Equal(t, "abc", cleaned)
}

func TestNoTagsPassesThrough(t *testing.T) {
	e := thinking.New()
	cleaned, thoughts := e.Feed("just plain assistant text")
	require.Empty(t, thoughts)
	require.Equal(t, "just plain assistant text", cleaned)
}

func TestStripFinalRemovesUnmatchedTrailingTag(t *testing.T) {
	got := thinking.StripFinal("answer <thinking>never closed")
	require.Equal(t, "answer never closed", got)
}

func TestStripFinalRemovesMatchedPair(t *testing.T) {
	got := thinking.StripFinal("answer <thinking>scratch work</thinking> is 42")
	require.Equal(t, "answer  is 42", got)
}

func TestFlushReturnsUnclosedBuffer(t *testing.T) {
	e := thinking.New()
	cleaned, thoughts := e.Feed("answer <thinking>never closes")
	require.Equal(t, "answer ", cleaned)
	require.Empty(t, thoughts)
	require.Equal(t, "<thinking>never closes", e.Flush())
	require.Equal(t, "", e.Flush(), "a second Flush with nothing fed since must be empty")
}
