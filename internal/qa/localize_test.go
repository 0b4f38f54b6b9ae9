package qa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func passage(content string, page any) Passage {
	meta := map[string]any{}
	if page != nil {
		meta["page"] = page
	}
	return NewPassage(content, meta, 0)
}

func TestLocalizeCleanedHyphenation(t *testing.T) {
	ctx := Context{passage("The sky is blue. -\nIt rained yesterday.", 3)}
	assert.Equal(t, "The sky is blue. It rained yesterday.", ctx[0].Content)

	got := Localize("It rained yesterday", ctx)
	assert.Equal(t, Localization{RelevantText: "It rained yesterday", PageIndex: 3, ChunkIndex: 0}, got)
	assert.True(t, got.Found())
}

func TestLocalizeFirstMatchWins(t *testing.T) {
	ctx := Context{
		passage("some answer text here", 1),
		passage("overlap: answer text here too", 2),
	}
	got := Localize("answer text", ctx)
	assert.Equal(t, 0, got.ChunkIndex)
	assert.Equal(t, 1, got.PageIndex)
}

func TestLocalizePrefersRankOverPage(t *testing.T) {
	ctx := Context{
		passage("unrelated", 0),
		passage("the needle is here", 9),
		passage("the needle is here as well", 2),
	}
	got := Localize("THE   needle", ctx)
	assert.Equal(t, 1, got.ChunkIndex)
	assert.Equal(t, 9, got.PageIndex)
	assert.Equal(t, "THE   needle", got.RelevantText)
}

func TestLocalizeEmptyText(t *testing.T) {
	ctx := Context{passage("anything at all", 4)}
	for _, text := range []string{"", "   \n\t"} {
		got := Localize(text, ctx)
		assert.Equal(t, NoPage, got.PageIndex, "text %q", text)
		assert.Equal(t, NoPage, got.ChunkIndex, "text %q", text)
		assert.Equal(t, text, got.RelevantText)
	}
	assert.Equal(t, notFound(""), Localize("", nil))
}

func TestLocalizeMiss(t *testing.T) {
	ctx := Context{passage("alpha beta", 1), passage("gamma delta", 2)}
	got := Localize("epsilon", ctx)
	assert.Equal(t, Localization{RelevantText: "epsilon", PageIndex: -1, ChunkIndex: -1}, got)
	assert.False(t, got.Found())
}

func TestLocalizeMissingPage(t *testing.T) {
	ctx := Context{passage("page unknown content", nil)}
	got := Localize("unknown content", ctx)
	assert.Equal(t, 0, got.ChunkIndex)
	assert.Equal(t, NoPage, got.PageIndex)
}

func TestLocalizeIgnoresWhitespaceDifferences(t *testing.T) {
	ctx := Context{
		passage("first passage", 0),
		passage("The quick brown\nfox jumps over\tthe lazy dog", 5),
	}
	plain := Localize("brown fox jumps", ctx)
	wrapped := Localize("brown\n\n fox\r\njumps  ", ctx)
	assert.Equal(t, plain.PageIndex, wrapped.PageIndex)
	assert.Equal(t, plain.ChunkIndex, wrapped.ChunkIndex)
	assert.Equal(t, 1, plain.ChunkIndex)
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"  Hello\tWorld \n",
		"MiXeD   case\r\nlines",
		"already normal",
		" non-breaking space",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
	assert.Equal(t, "hello world", Normalize("  Hello\tWorld \n"))
}
