// internal/providers/ollama/provider.go
// Package ollama provides a ChatProvider backed by Ollama-compatible HTTP endpoints.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mwiater/docqa/internal/appconfig"
	"github.com/mwiater/docqa/internal/logging"
	"github.com/mwiater/docqa/internal/providers"
)

// Provider implements the providers.ChatProvider interface using Ollama HTTP APIs.
type Provider struct {
	client  *http.Client
	timeout time.Duration
}

// New constructs a Provider configured with the application's request timeout.
func New(cfg *appconfig.Config) *Provider {
	timeout := cfg.RequestTimeout()
	return &Provider{
		client: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{ForceAttemptHTTP2: false},
		},
		timeout: timeout,
	}
}

// chatResponse is one line of a streamed /api/chat reply, or the whole
// reply when streaming is off.
type chatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done               bool  `json:"done"`
	TotalDuration      int64 `json:"total_duration"`
	LoadDuration       int64 `json:"load_duration"`
	PromptEvalCount    int   `json:"prompt_eval_count"`
	PromptEvalDuration int64 `json:"prompt_eval_duration"`
	EvalCount          int   `json:"eval_count"`
	EvalDuration       int64 `json:"eval_duration"`
}

func (c chatResponse) metadata(fallbackModel string) providers.StreamMetadata {
	model := c.Model
	if model == "" {
		model = fallbackModel
	}
	return providers.StreamMetadata{
		Model:              model,
		CreatedAt:          time.Now(),
		Done:               c.Done,
		TotalDuration:      c.TotalDuration,
		LoadDuration:       c.LoadDuration,
		PromptEvalCount:    c.PromptEvalCount,
		PromptEvalDuration: c.PromptEvalDuration,
		EvalCount:          c.EvalCount,
		EvalDuration:       c.EvalDuration,
	}
}

// EnsureModelReady triggers a lightweight generate request to make sure the model is loaded.
func (p *Provider) EnsureModelReady(ctx context.Context, host appconfig.Host, model string) error {
	body, err := json.Marshal(map[string]any{"model": model})
	if err != nil {
		return err
	}
	logging.LogRequest("DOCQA->LLM", hostIdentifier(host), model, "", body)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, host.URL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	logging.LogRequest("LLM->DOCQA", hostIdentifier(host), model, "", respBody)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama: /api/generate returned %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}
	return nil
}

// Stream issues a chat request and forwards output to the provided callbacks.
func (p *Provider) Stream(ctx context.Context, req providers.StreamRequest, callbacks providers.StreamCallbacks) error {
	messages := req.History
	if len(messages) == 0 {
		messages = []providers.ChatMessage{}
	}
	hostID := hostIdentifier(req.Host)

	streamEnabled := !req.DisableStreaming
	payload := map[string]any{
		"model":    req.Model,
		"messages": messages,
		"options":  buildOptions(req.Parameters),
		"stream":   streamEnabled,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	logging.LogRequest("DOCQA->LLM", hostID, req.Model, req.Stage, body)

	streamCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(streamCtx, http.MethodPost, req.Host.URL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		logging.LogRequest("LLM->DOCQA", hostID, req.Model, req.Stage, raw)
		return fmt.Errorf("ollama: /api/chat returned %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	if !streamEnabled {
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		logging.LogRequest("LLM->DOCQA", hostID, req.Model, req.Stage, raw)
		var result chatResponse
		if err := json.Unmarshal(raw, &result); err != nil {
			return fmt.Errorf("ollama: decode /api/chat response: %w", err)
		}
		if callbacks.OnChunk != nil {
			role := result.Message.Role
			if role == "" {
				role = providers.RoleAssistant
			}
			if err := callbacks.OnChunk(providers.ChatMessage{Role: role, Content: result.Message.Content}); err != nil {
				return err
			}
		}
		if callbacks.OnComplete != nil {
			meta := result.metadata(req.Model)
			meta.Done = true
			return callbacks.OnComplete(meta)
		}
		return nil
	}

	decoder := json.NewDecoder(resp.Body)
	var final chatResponse
	for {
		var chunk chatResponse
		if err := decoder.Decode(&chunk); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		if callbacks.OnChunk != nil {
			if err := callbacks.OnChunk(providers.ChatMessage{Role: chunk.Message.Role, Content: chunk.Message.Content}); err != nil {
				return err
			}
		}
		if chunk.Done {
			final = chunk
			break
		}
	}
	if data, err := json.Marshal(final); err == nil {
		logging.LogRequest("LLM->DOCQA", hostID, req.Model, req.Stage, data)
	}

	if callbacks.OnComplete != nil {
		return callbacks.OnComplete(final.metadata(req.Model))
	}
	return nil
}

func buildOptions(params appconfig.Parameters) map[string]any {
	options := map[string]any{}
	if params.TopK != nil {
		options["top_k"] = *params.TopK
	}
	if params.TopP != nil {
		options["top_p"] = *params.TopP
	}
	if params.MinP != nil {
		options["min_p"] = *params.MinP
	}
	if params.TypicalP != nil {
		options["typical_p"] = *params.TypicalP
	}
	if params.RepeatLastN != nil {
		options["repeat_last_n"] = *params.RepeatLastN
	}
	if params.Temperature != nil {
		options["temperature"] = *params.Temperature
	}
	if params.RepeatPenalty != nil {
		options["repeat_penalty"] = *params.RepeatPenalty
	}
	if params.PresencePenalty != nil {
		options["presence_penalty"] = *params.PresencePenalty
	}
	if params.FrequencyPenalty != nil {
		options["frequency_penalty"] = *params.FrequencyPenalty
	}
	if params.NumCtx != nil {
		options["num_ctx"] = *params.NumCtx
	}
	if params.Seed != nil {
		options["seed"] = *params.Seed
	}
	return options
}

// hostIdentifier returns a string identifier for a given host, preferring the name over the URL.
func hostIdentifier(host appconfig.Host) string {
	if name := strings.TrimSpace(host.Name); name != "" {
		return name
	}
	if url := strings.TrimSpace(host.URL); url != "" {
		return url
	}
	return "ollama-host"
}

// Close releases any resources held by the provider.
func (p *Provider) Close() error {
	return nil
}
