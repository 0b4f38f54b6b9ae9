// internal/providers/llamacpp/provider.go
// Package llamacpp provides a ChatProvider backed by llama.cpp's OpenAI-compatible HTTP API.
package llamacpp

import (
	"bufio"
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

// Provider implements the providers.ChatProvider interface using llama.cpp HTTP APIs.
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

// EnsureModelReady asks a llama.cpp router to load model. Single-model servers
// without the router endpoints answer 404 and are treated as ready.
func (p *Provider) EnsureModelReady(ctx context.Context, host appconfig.Host, model string) error {
	body, err := json.Marshal(map[string]any{"model": model})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	logging.LogRequest("DOCQA->LLM", hostIdentifier(host), model, "", body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, host.URL+"/models/load", bytes.NewReader(body))
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

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusMethodNotAllowed:
		return nil
	case isAlreadyLoadedError(resp.StatusCode, respBody):
		return nil
	case resp.StatusCode >= 400:
		return fmt.Errorf("llama.cpp: /models/load returned %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}
	return nil
}

// Stream issues a chat request and forwards output to the provided callbacks.
func (p *Provider) Stream(ctx context.Context, req providers.StreamRequest, callbacks providers.StreamCallbacks) error {
	messages := req.History

	payload := map[string]any{
		"model":    req.Model,
		"messages": sanitizeMessages(messages),
		"stream":   !req.DisableStreaming,
	}
	applyParameters(payload, req.Parameters)

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	logging.LogRequest("DOCQA->LLM", hostIdentifier(req.Host), req.Model, req.Stage, body)

	streamCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(streamCtx, http.MethodPost, req.Host.URL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if !req.DisableStreaming {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		logging.LogRequest("LLM->DOCQA", hostIdentifier(req.Host), req.Model, req.Stage, raw)
		return fmt.Errorf("llama.cpp: /v1/chat/completions returned %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	if req.DisableStreaming {
		return p.handleNonStreaming(resp, req, callbacks)
	}
	return p.handleStreaming(resp, req, callbacks)
}

func (p *Provider) handleNonStreaming(resp *http.Response, req providers.StreamRequest, callbacks providers.StreamCallbacks) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	logging.LogRequest("LLM->DOCQA", hostIdentifier(req.Host), req.Model, req.Stage, body)

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("llama.cpp: decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return errors.New("llama.cpp: chat response contained no choices")
	}

	msg := parsed.Choices[0].Message
	if msg.Role == "" {
		msg.Role = providers.RoleAssistant
	}
	if callbacks.OnChunk != nil {
		if err := callbacks.OnChunk(providers.ChatMessage{Role: msg.Role, Content: msg.Content}); err != nil {
			return err
		}
	}
	if callbacks.OnComplete != nil {
		return callbacks.OnComplete(parsed.Timings.metadata(firstNonEmpty(parsed.Model, req.Model)))
	}
	return nil
}

func (p *Provider) handleStreaming(resp *http.Response, req providers.StreamRequest, callbacks providers.StreamCallbacks) error {
	reader := bufio.NewReader(resp.Body)
	var finalModel string
	var finalTimings timings
	for {
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		done := errors.Is(err, io.EOF)

		line = strings.TrimSpace(line)
		if data, ok := strings.CutPrefix(line, "data:"); ok {
			data = strings.TrimSpace(data)
			if data == "[DONE]" {
				break
			}
			var chunk chatResponse
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				return fmt.Errorf("llama.cpp: decode stream chunk: %w", err)
			}
			if chunk.Model != "" {
				finalModel = chunk.Model
			}
			if chunk.Timings.PredictedN > 0 {
				finalTimings = chunk.Timings
			}
			if len(chunk.Choices) > 0 && callbacks.OnChunk != nil {
				delta := chunk.Choices[0].Delta
				if delta.Content != "" {
					role := delta.Role
					if role == "" {
						role = providers.RoleAssistant
					}
					if err := callbacks.OnChunk(providers.ChatMessage{Role: role, Content: delta.Content}); err != nil {
						return err
					}
				}
			}
		}
		if done {
			break
		}
	}
	logging.LogRequest("LLM->DOCQA", hostIdentifier(req.Host), req.Model, req.Stage, finalTimings)

	if callbacks.OnComplete != nil {
		return callbacks.OnComplete(finalTimings.metadata(firstNonEmpty(finalModel, req.Model)))
	}
	return nil
}

// Close releases any resources held by the provider.
func (p *Provider) Close() error {
	return nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
		Delta   chatMessage `json:"delta"`
	} `json:"choices"`
	Timings timings `json:"timings"`
}

// timings is the llama.cpp server's per-request performance block.
type timings struct {
	PromptN     int     `json:"prompt_n"`
	PromptMS    float64 `json:"prompt_ms"`
	PredictedN  int     `json:"predicted_n"`
	PredictedMS float64 `json:"predicted_ms"`
}

func (t timings) metadata(model string) providers.StreamMetadata {
	return providers.StreamMetadata{
		Model:              model,
		CreatedAt:          time.Now(),
		Done:               true,
		TotalDuration:      msToNs(t.PromptMS + t.PredictedMS),
		PromptEvalCount:    t.PromptN,
		PromptEvalDuration: msToNs(t.PromptMS),
		EvalCount:          t.PredictedN,
		EvalDuration:       msToNs(t.PredictedMS),
	}
}

func msToNs(ms float64) int64 {
	return int64(ms * float64(time.Millisecond))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func isAlreadyLoadedError(statusCode int, body []byte) bool {
	if statusCode != http.StatusBadRequest {
		return false
	}
	return strings.Contains(strings.ToLower(string(body)), "already loaded")
}

func applyParameters(payload map[string]any, params appconfig.Parameters) {
	if params.TopK != nil {
		payload["top_k"] = *params.TopK
	}
	if params.TopP != nil {
		payload["top_p"] = *params.TopP
	}
	if params.MinP != nil {
		payload["min_p"] = *params.MinP
	}
	if params.TypicalP != nil {
		payload["typical_p"] = *params.TypicalP
	}
	if params.RepeatLastN != nil {
		payload["repeat_last_n"] = *params.RepeatLastN
	}
	if params.Temperature != nil {
		payload["temperature"] = *params.Temperature
	}
	if params.RepeatPenalty != nil {
		payload["repeat_penalty"] = *params.RepeatPenalty
	}
	if params.PresencePenalty != nil {
		payload["presence_penalty"] = *params.PresencePenalty
	}
	if params.FrequencyPenalty != nil {
		payload["frequency_penalty"] = *params.FrequencyPenalty
	}
	if params.NumCtx != nil {
		payload["n_ctx"] = *params.NumCtx
	}
	if params.Seed != nil {
		payload["seed"] = *params.Seed
	}
}

// sanitizeMessages defaults empty roles to user and drops empty non-assistant turns.
func sanitizeMessages(messages []providers.ChatMessage) []chatMessage {
	out := make([]chatMessage, 0, len(messages))
	for _, msg := range messages {
		role := strings.TrimSpace(msg.Role)
		if role == "" {
			role = providers.RoleUser
		}
		if role != providers.RoleAssistant && strings.TrimSpace(msg.Content) == "" {
			continue
		}
		out = append(out, chatMessage{Role: role, Content: msg.Content})
	}
	return out
}

// hostIdentifier returns a string identifier for a given host, preferring the name over the URL.
func hostIdentifier(host appconfig.Host) string {
	if name := strings.TrimSpace(host.Name); name != "" {
		return name
	}
	if url := strings.TrimSpace(host.URL); url != "" {
		return url
	}
	return "llama.cpp-host"
}
