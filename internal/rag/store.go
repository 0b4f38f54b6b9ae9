package rag

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Index is an in-memory vector index persisted as a JSONL file. Searches run
// under a read lock; Replace swaps the whole corpus at once.
type Index struct {
	mu      sync.RWMutex
	path    string
	entries []IndexEntry
}

// OpenIndex loads the index stored at path. A missing file yields an empty
// index that will be created on the first Replace.
func OpenIndex(path string) (*Index, error) {
	idx := &Index{path: path}
	if strings.TrimSpace(path) == "" {
		return idx, nil
	}
	entries, err := loadIndex(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return idx, nil
		}
		return nil, err
	}
	idx.entries = entries
	return idx, nil
}

// Path returns the backing file, or "" for a memory-only index.
func (x *Index) Path() string {
	return x.path
}

// Len returns the number of indexed chunks.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Sources returns the distinct source names in the index, sorted.
func (x *Index) Sources() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	seen := map[string]struct{}{}
	for _, e := range x.entries {
		seen[e.Source] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Replace discards the current corpus and stores entries in its place. The file
// is written before the in-memory swap, so a failed write leaves the index intact.
func (x *Index) Replace(entries []IndexEntry) error {
	next := make([]IndexEntry, len(entries))
	copy(next, entries)

	x.mu.Lock()
	defer x.mu.Unlock()
	if x.path != "" {
		if err := writeIndex(x.path, next); err != nil {
			return err
		}
	}
	x.entries = next
	return nil
}

// Search returns up to k entries ordered by descending cosine similarity to vec.
// Entries whose dimension differs from vec are skipped. Ties keep index order.
func (x *Index) Search(vec []float64, k int) []ScoredEntry {
	x.mu.RLock()
	scored := scoreEntries(x.entries, vec)
	x.mu.RUnlock()

	if k > 0 && k < len(scored) {
		scored = scored[:k]
	}
	return scored
}

func loadIndex(path string) ([]IndexEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 8*1024*1024)

	var entries []IndexEntry
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry IndexEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("parse index line %d: %w", lineNo, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	return entries, nil
}

func writeIndex(path string, entries []IndexEntry) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".index-*.jsonl")
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer os.Remove(tmp.Name())

	writer := bufio.NewWriter(tmp)
	encoder := json.NewEncoder(writer)
	encoder.SetEscapeHTML(false)
	for _, entry := range entries {
		if err := encoder.Encode(entry); err != nil {
			tmp.Close()
			return fmt.Errorf("write index entry: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

func scoreEntries(entries []IndexEntry, queryVec []float64) []ScoredEntry {
	scored := make([]ScoredEntry, 0, len(entries))
	queryNorm := vectorNorm(queryVec)
	for _, entry := range entries {
		if len(entry.Embedding) != len(queryVec) {
			continue
		}
		scored = append(scored, ScoredEntry{
			Entry: entry,
			Score: cosineSimilarity(queryVec, entry.Embedding, queryNorm),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

func cosineSimilarity(a, b []float64, normA float64) float64 {
	if normA == 0 {
		return 0
	}
	normB := vectorNorm(b)
	if normB == 0 {
		return 0
	}
	dot := 0.0
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot / (normA * normB)
}

func vectorNorm(v []float64) float64 {
	sum := 0.0
	for _, val := range v {
		sum += val * val
	}
	return math.Sqrt(sum)
}
