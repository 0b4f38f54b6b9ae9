package qa

import (
	"context"
	"errors"
	"fmt"

	"github.com/mwiater/docqa/internal/providers"
)

// ErrNoEvidence is returned when retrieval finds no passage for the question.
var ErrNoEvidence = errors.New("no context found")

// Retriever returns the passages relevant to a query, most relevant first.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (Context, error)
}

// Model turns a transcript into the assistant's next message.
type Model interface {
	Invoke(ctx context.Context, transcript []providers.ChatMessage) (string, error)
}

// Pipeline answers questions with the graph
//
//	retrieve -> generate -> evaluate -> {localize | end}
//
// A Pipeline holds no per-run state and may serve concurrent questions.
type Pipeline struct {
	retriever Retriever
	model     Model
	prompts   Prompts
	observer  Observer
	graph     *CompiledGraph
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver registers a callback invoked after every stage.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// New builds and compiles the question-answering graph.
func New(retriever Retriever, model Model, prompts Prompts, opts ...Option) (*Pipeline, error) {
	if retriever == nil {
		return nil, fmt.Errorf("retriever is nil")
	}
	if model == nil {
		return nil, fmt.Errorf("model is nil")
	}
	p := &Pipeline{retriever: retriever, model: model, prompts: prompts}
	for _, opt := range opts {
		opt(p)
	}

	graph, err := NewGraph().
		AddSequence(
			[]Node{NodeRetrieve, NodeGenerate, NodeEvaluate},
			[]Stage{p.retrieve, p.generate, p.evaluate},
		).
		AddNode(NodeLocalize, p.localize).
		AddConditionalEdge(NodeEvaluate, routeEvaluation, map[Verdict]Node{
			VerdictCorrect:   NodeLocalize,
			VerdictIncorrect: End,
		}).
		AddEdge(NodeLocalize, End).
		SetEntry(NodeRetrieve).
		Compile()
	if err != nil {
		return nil, fmt.Errorf("compile pipeline: %w", err)
	}
	p.graph = graph
	return p, nil
}

// Run answers question. On failure the partially populated state is returned along
// with the error.
func (p *Pipeline) Run(ctx context.Context, question string) (State, error) {
	return p.graph.Run(ctx, State{Question: question}, p.observer)
}

func routeEvaluation(s State) Verdict {
	if s.Evaluation == nil {
		return VerdictIncorrect
	}
	return s.Evaluation.Verdict
}

func (p *Pipeline) retrieve(ctx context.Context, s State) (Update, error) {
	passages, err := p.retriever.Retrieve(ctx, s.Question)
	if err != nil {
		return Update{}, err
	}
	if len(passages) == 0 {
		return Update{}, ErrNoEvidence
	}
	return Update{Context: passages}, nil
}

// generate starts a fresh transcript for this question.
func (p *Pipeline) generate(ctx context.Context, s State) (Update, error) {
	prompt := FormatPrompt(p.prompts.Generation, s)
	transcript := []providers.ChatMessage{{Role: "user", Content: prompt}}
	response, err := p.model.Invoke(ctx, transcript)
	if err != nil {
		return Update{}, err
	}
	return Update{
		Answer:     &response,
		Transcript: withTurn(nil, prompt, response),
	}, nil
}

func (p *Pipeline) evaluate(ctx context.Context, s State) (Update, error) {
	prompt := FormatPrompt(p.prompts.Evaluation, s)
	response, err := p.invokeAppending(ctx, s.Transcript, prompt)
	if err != nil {
		return Update{}, err
	}
	evaluation := ParseEvaluation(response)
	return Update{
		Evaluation: &evaluation,
		Transcript: withTurn(s.Transcript, prompt, response),
	}, nil
}

func (p *Pipeline) localize(ctx context.Context, s State) (Update, error) {
	prompt := FormatPrompt(p.prompts.Location, s)
	response, err := p.invokeAppending(ctx, s.Transcript, prompt)
	if err != nil {
		return Update{}, err
	}
	localization := Localize(response, s.Context)
	return Update{
		Localization: &localization,
		Transcript:   withTurn(s.Transcript, prompt, response),
	}, nil
}

func (p *Pipeline) invokeAppending(ctx context.Context, transcript []providers.ChatMessage, prompt string) (string, error) {
	history := make([]providers.ChatMessage, 0, len(transcript)+1)
	history = append(history, transcript...)
	history = append(history, providers.ChatMessage{Role: "user", Content: prompt})
	return p.model.Invoke(ctx, history)
}
