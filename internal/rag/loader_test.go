package rag

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDocumentPDF(t *testing.T) {
	doc, err := LoadDocument(filepath.Join("testdata", "weather.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "weather.pdf", doc.Source)
	require.Len(t, doc.Pages, 2)

	assert.Equal(t, 0, doc.Pages[0].Number)
	assert.Equal(t, "The forecast promised sun.", strings.TrimSpace(doc.Pages[0].Text))
	assert.Equal(t, 1, doc.Pages[1].Number)
	assert.Equal(t, "It rained yesterday in the valley.", strings.TrimSpace(doc.Pages[1].Text))
}

func TestIndexerIngestPDF(t *testing.T) {
	idx := memoryIndex(t)
	res, err := NewIndexer(idx, &countingEmbedder{}, 200, 0).IngestFile(context.Background(), filepath.Join("testdata", "weather.pdf"), "")
	require.NoError(t, err)
	assert.Equal(t, "weather.pdf", res.Source)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 2, res.Chunks)

	var pages []int
	for _, hit := range idx.Search([]float64{1, 1}, 10) {
		pages = append(pages, hit.Entry.Page)
		if hit.Entry.Page == 1 {
			assert.Contains(t, hit.Entry.Text, "rained yesterday")
		}
	}
	sort.Ints(pages)
	assert.Equal(t, []int{0, 1}, pages)
}

func TestLoadDocumentMissingPDF(t *testing.T) {
	_, err := LoadDocument(filepath.Join("testdata", "missing.pdf"))
	assert.Error(t, err)
}
