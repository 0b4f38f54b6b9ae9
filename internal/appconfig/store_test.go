package appconfig

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeConfig() Config {
	return Config{
		Hosts:           []Host{{Name: "local", URL: "http://localhost:11434", Type: "ollama"}},
		GenerationModel: "llama3.2",
		EmbeddingModel:  "nomic-embed-text",
	}
}

func TestStoreUpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "config.json")
	store := NewStore(path, storeConfig())

	next, err := store.Update(map[string]any{"topK": 3, "generationPromptTemplate": "Q: {question}"})
	require.NoError(t, err)
	assert.Equal(t, 3, next.TopK)
	assert.Equal(t, "Q: {question}", next.GenerationPromptTemplate)
	assert.Equal(t, 3, store.Snapshot().TopK)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk Config
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	assert.Equal(t, 3, onDisk.TopK)
	assert.Equal(t, "llama3.2", onDisk.GenerationModel)

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Q: {question}", reloaded.GenerationPromptTemplate)
}

func TestStoreUpdateRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		patch map[string]any
	}{
		{name: "wrong type", patch: map[string]any{"topK": "five"}},
		{name: "negative chunk size", patch: map[string]any{"chunkSize": -1}},
		{name: "unknown host type", patch: map[string]any{"hosts": []any{map[string]any{"name": "x", "url": "http://x", "type": "vllm"}}}},
		{name: "overlap not below size", patch: map[string]any{"chunkSize": 100, "chunkOverlap": 100}},
		{name: "missing generation host", patch: map[string]any{"generationHost": "elsewhere"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			store := NewStore(path, storeConfig())
			before := store.Snapshot()

			_, err := store.Update(tt.patch)
			require.Error(t, err)
			assert.Equal(t, before, store.Snapshot())
			_, statErr := os.Stat(path)
			assert.True(t, os.IsNotExist(statErr), "rejected update must not be written")
		})
	}
}

func TestOpenStoreWritesOnlyFileKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	onDisk := map[string]any{
		"hosts":           []any{map[string]any{"name": "local", "url": "http://localhost:11434", "type": "ollama"}},
		"generationModel": "file-model",
		"embeddingModel":  "nomic-embed-text",
		"extraKey":        "kept",
	}
	raw, err := json.Marshal(onDisk)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	live := storeConfig()
	live.GenerationModel = "env-model"
	live.Debug = true
	store, err := OpenStore(path, live)
	require.NoError(t, err)

	next, err := store.Update(map[string]any{"topK": 3})
	require.NoError(t, err)
	assert.Equal(t, "env-model", next.GenerationModel)
	assert.True(t, next.Debug)
	assert.Equal(t, 3, store.Snapshot().TopK)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(written, &doc))
	assert.Equal(t, "file-model", doc["generationModel"])
	assert.Equal(t, "kept", doc["extraKey"])
	assert.EqualValues(t, 3, doc["topK"])
	assert.NotContains(t, doc, "debug")
}

func TestOpenStoreMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store, err := OpenStore(path, storeConfig())
	require.NoError(t, err)

	_, err = store.Update(map[string]any{"chunkSize": 800})
	require.NoError(t, err)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(written, &doc))
	assert.Equal(t, map[string]any{"chunkSize": float64(800)}, doc)
}

func TestOpenStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := OpenStore(path, storeConfig())
	require.Error(t, err)
}

func TestStoreApplyPrepareFailureKeepsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store := NewStore(path, storeConfig())
	before := store.Snapshot()

	var seen Config
	_, err := store.Apply(map[string]any{"topK": 2}, func(next Config) error {
		seen = next
		return errors.New("cannot build")
	})
	require.EqualError(t, err, "cannot build")
	assert.Equal(t, 2, seen.TopK)
	assert.Equal(t, before, store.Snapshot())
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "failed prepare must not be written")

	_, err = store.Apply(map[string]any{"topK": 2}, func(Config) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 2, store.Snapshot().TopK)
}

func TestStoreInMemory(t *testing.T) {
	store := NewStore("", storeConfig())
	_, err := store.Update(map[string]any{"debug": true})
	require.NoError(t, err)
	assert.True(t, store.Snapshot().Debug)
	assert.Empty(t, store.Path())
}

func TestStoreSnapshotIsCopy(t *testing.T) {
	store := NewStore("", storeConfig())
	snap := store.Snapshot()
	snap.Hosts[0].Name = "mutated"
	assert.Equal(t, "local", store.Snapshot().Hosts[0].Name)

	doc, err := store.Map()
	require.NoError(t, err)
	assert.Equal(t, "llama3.2", doc["generationModel"])
	assert.EqualValues(t, DefaultTopK, doc["topK"])
}

func TestValidateDocument(t *testing.T) {
	assert.NoError(t, ValidateDocument(map[string]any{"topK": 4, "extra": "kept"}))
	err := ValidateDocument(map[string]any{"debug": "yes"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}
