package docsearch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwiater/docqa/internal/appconfig"
	"github.com/mwiater/docqa/internal/providers"
	"github.com/mwiater/docqa/internal/qa"
)

// keywordEmbedder maps text onto a two-dimensional space: rain vs everything else.
type keywordEmbedder struct{}

func (keywordEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if strings.Contains(strings.ToLower(text), "rain") {
		return []float64{1, 0.1}, nil
	}
	return []float64{0.1, 1}, nil
}

// stageModel answers by stage: a fixed answer, a verdict, then a quote.
type stageModel struct {
	verdict string
	quote   string
	err     error
}

func (m stageModel) Invoke(ctx context.Context, _ []providers.ChatMessage) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	switch providers.StageFromContext(ctx) {
	case "generate":
		return "It rained yesterday.", nil
	case "evaluate":
		return m.verdict, nil
	default:
		return m.quote, nil
	}
}

func testConfig(dir string) appconfig.Config {
	return appconfig.Config{
		Hosts:           []appconfig.Host{{Name: "local", URL: "http://127.0.0.1:1"}},
		GenerationModel: "llama3.2",
		EmbeddingModel:  "nomic-embed-text",
		IndexPath:       filepath.Join(dir, "index.jsonl"),
		ChunkSize:       200,
		ChunkOverlap:    20,
	}
}

func newTestAgent(t *testing.T, model qa.Model) (*Agent, string) {
	t.Helper()
	dir := t.TempDir()
	store := appconfig.NewStore(filepath.Join(dir, "config.json"), testConfig(dir))
	agent, err := New(store, WithModel(model), WithEmbedder(keywordEmbedder{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = agent.Close() })
	return agent, dir
}

func writeDoc(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "weather.txt")
	body := "The forecast promised sun.\fThe sky is blue. It rained yester-\nday in the valley."
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestAgentAskBeforeUpload(t *testing.T) {
	agent, _ := newTestAgent(t, stageModel{verdict: "yes"})

	state, err := agent.Ask(context.Background(), "What happened?")
	assert.ErrorIs(t, err, qa.ErrNoEvidence)
	assert.Empty(t, state.Context)
	assert.EqualValues(t, 1, agent.Metrics().Outcomes[OutcomeNoEvidence])
}

func TestAgentUploadAndAsk(t *testing.T) {
	agent, dir := newTestAgent(t, stageModel{verdict: "Yes, it is supported.", quote: "It rained yesterday in the valley."})

	res, err := agent.Upload(context.Background(), writeDoc(t, dir), "weather.txt")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 2, res.Chunks)
	assert.Equal(t, 2, agent.IndexSize())

	state, err := agent.Ask(context.Background(), "Did it rain?")
	require.NoError(t, err)
	assert.Equal(t, "It rained yesterday.", state.Answer)
	require.NotNil(t, state.Evaluation)
	assert.True(t, state.Evaluation.IsCorrect())
	require.NotNil(t, state.Localization)
	assert.Equal(t, 1, state.Localization.PageIndex)
	assert.Equal(t, 0, state.Localization.ChunkIndex)
	assert.Len(t, state.Transcript, 6)

	snap := agent.Metrics()
	assert.EqualValues(t, 1, snap.Outcomes[OutcomeLocalized])
	assert.Len(t, snap.Stages, 4)
}

func TestAgentIncorrectAnswerStopsEarly(t *testing.T) {
	agent, dir := newTestAgent(t, stageModel{verdict: "No."})
	_, err := agent.Upload(context.Background(), writeDoc(t, dir), "")
	require.NoError(t, err)

	state, err := agent.Ask(context.Background(), "Did it rain?")
	require.NoError(t, err)
	assert.Nil(t, state.Localization)
	assert.EqualValues(t, 1, agent.Metrics().Outcomes[OutcomeIncorrect])
}

func TestAgentBackendFailure(t *testing.T) {
	boom := errors.New("connection refused")
	agent, dir := newTestAgent(t, stageModel{err: boom})
	_, err := agent.Upload(context.Background(), writeDoc(t, dir), "")
	require.NoError(t, err)

	state, err := agent.Ask(context.Background(), "Did it rain?")
	assert.ErrorIs(t, err, boom)
	assert.NotEmpty(t, state.Context)
	assert.EqualValues(t, 1, agent.Metrics().Outcomes[OutcomeFailed])
}

func TestAgentUpdateConfig(t *testing.T) {
	agent, dir := newTestAgent(t, stageModel{verdict: "yes"})

	doc, err := agent.UpdateConfig(map[string]any{"topK": 1, "indexPath": filepath.Join(dir, "other.jsonl")})
	require.NoError(t, err)
	assert.EqualValues(t, 1, doc["topK"])
	assert.Equal(t, 1, agent.Snapshot().TopK)

	_, err = agent.UpdateConfig(map[string]any{"topK": "many"})
	assert.Error(t, err)
	assert.Equal(t, 1, agent.Snapshot().TopK)

	_, err = agent.Upload(context.Background(), writeDoc(t, dir), "")
	require.NoError(t, err)
	state, err := agent.Ask(context.Background(), "Did it rain?")
	require.NoError(t, err)
	assert.Len(t, state.Context, 1)
	_, statErr := os.Stat(filepath.Join(dir, "other.jsonl"))
	assert.NoError(t, statErr)
}

func TestAgentUpdateConfigFailedBuildKeepsState(t *testing.T) {
	agent, dir := newTestAgent(t, stageModel{verdict: "yes", quote: "sky is blue"})
	_, err := agent.Upload(context.Background(), writeDoc(t, dir), "")
	require.NoError(t, err)

	configPath := filepath.Join(dir, "config.json")
	_, statErr := os.Stat(configPath)
	require.True(t, os.IsNotExist(statErr))

	corrupt := filepath.Join(dir, "corrupt.jsonl")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json\n"), 0o644))
	before := agent.Snapshot()

	_, err = agent.UpdateConfig(map[string]any{"indexPath": corrupt, "topK": 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply config")

	doc, err := agent.Config()
	require.NoError(t, err)
	assert.EqualValues(t, before.TopK, doc["topK"])
	assert.Equal(t, before.IndexPath, doc["indexPath"])
	assert.Equal(t, before, agent.Snapshot())
	_, statErr = os.Stat(configPath)
	assert.True(t, os.IsNotExist(statErr), "failed update must not be written")

	state, err := agent.Ask(context.Background(), "Did it rain?")
	require.NoError(t, err)
	assert.Len(t, state.Context, 2)
}

func TestStaleEmbeddings(t *testing.T) {
	base := testConfig(t.TempDir())

	model := base
	model.EmbeddingModel = "mxbai-embed-large"
	host := base
	host.EmbeddingHost = "other"
	moved := model
	moved.IndexPath = base.IndexPath + ".new"
	tuned := base
	tuned.TopK = 2

	assert.True(t, staleEmbeddings(base, model))
	assert.True(t, staleEmbeddings(base, host))
	assert.False(t, staleEmbeddings(base, moved))
	assert.False(t, staleEmbeddings(base, tuned))
}

func TestAgentUpdateEmbeddingModelKeepsIndex(t *testing.T) {
	agent, dir := newTestAgent(t, stageModel{verdict: "yes"})
	_, err := agent.Upload(context.Background(), writeDoc(t, dir), "")
	require.NoError(t, err)
	size := agent.IndexSize()

	_, err = agent.UpdateConfig(map[string]any{"embeddingModel": "mxbai-embed-large"})
	require.NoError(t, err)
	assert.Equal(t, "mxbai-embed-large", agent.Snapshot().EmbeddingModel)
	assert.Equal(t, size, agent.IndexSize())
}

func TestAgentConcurrentAskAndUpload(t *testing.T) {
	agent, dir := newTestAgent(t, stageModel{verdict: "yes", quote: "sky is blue"})
	path := writeDoc(t, dir)
	_, err := agent.Upload(context.Background(), path, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := agent.Ask(context.Background(), "Did it rain?")
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := agent.Upload(context.Background(), path, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 2, agent.IndexSize())
}

func TestNewRequiresStore(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}
