package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mwiater/docqa/internal/appconfig"
	"github.com/mwiater/docqa/internal/qa"
)

type fakeAsker struct {
	state     qa.State
	err       error
	warmupErr error
	asked     []string
}

func (f *fakeAsker) Ask(_ context.Context, question string) (qa.State, error) {
	f.asked = append(f.asked, question)
	return f.state, f.err
}

func (f *fakeAsker) Warmup(context.Context) error { return f.warmupErr }
func (f *fakeAsker) IndexSize() int               { return 12 }
func (f *fakeAsker) Snapshot() appconfig.Config {
	return appconfig.Config{GenerationModel: "llama3.2", TopK: 5}
}

func answeredState() qa.State {
	eval := qa.ParseEvaluation("Yes.")
	loc := qa.Localization{RelevantText: "the sky is blue", PageIndex: 2, ChunkIndex: 0}
	return qa.State{
		Answer:       "Blue.",
		Context:      qa.Context{qa.NewPassage("The sky is blue.", map[string]any{"page": 2}, 0.8)},
		Evaluation:   &eval,
		Localization: &loc,
	}
}

// TestUpdate walks the chat through warmup, a question and its answer.
func TestUpdate(t *testing.T) {
	asker := &fakeAsker{state: answeredState()}
	m := initialModel(context.Background(), asker)

	if m.state != viewLoading || !m.isLoading {
		t.Fatalf("expected loading view, got state=%v loading=%v", m.state, m.isLoading)
	}
	if m.View() != "Initializing..." {
		t.Fatalf("expected placeholder view before sizing")
	}

	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = next.(*model)
	if m.width != 100 || m.height != 30 {
		t.Fatalf("expected 100x30, got %dx%d", m.width, m.height)
	}
	if !strings.Contains(m.View(), "Loading llama3.2") {
		t.Fatalf("expected loading text, got %q", m.View())
	}

	next, _ = m.Update(warmupDoneMsg{})
	m = next.(*model)
	if m.state != viewChat || m.isLoading {
		t.Fatalf("expected chat view after warmup")
	}

	m.textArea.SetValue("  What colour is the sky?  ")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(*model)
	if !m.isLoading || cmd == nil {
		t.Fatalf("expected a pending question")
	}
	if len(m.history) != 1 || !m.history[0].pending || m.history[0].question != "What colour is the sky?" {
		t.Fatalf("unexpected history: %+v", m.history)
	}
	if m.textArea.Value() != "" {
		t.Fatalf("expected input to be cleared")
	}

	// Enter while a question is running is ignored.
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(*model)
	if len(m.history) != 1 {
		t.Fatalf("expected one exchange, got %d", len(m.history))
	}

	msg := askCmd(context.Background(), asker, m.history[0].question)()
	next, _ = m.Update(msg)
	m = next.(*model)
	if m.isLoading || m.history[0].pending {
		t.Fatalf("expected answered exchange")
	}
	if len(asker.asked) != 1 || asker.asked[0] != "What colour is the sky?" {
		t.Fatalf("unexpected questions: %v", asker.asked)
	}

	view := m.View()
	for _, want := range []string{"Blue.", "verified", "page 3", "Chunks: 12", "TopK: 5"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q, got:\n%s", want, view)
		}
	}
}

func TestUpdateQuit(t *testing.T) {
	m := initialModel(context.Background(), &fakeAsker{})
	for _, key := range []tea.KeyMsg{{Type: tea.KeyCtrlC}, {Type: tea.KeyEsc}} {
		_, cmd := m.Update(key)
		if cmd == nil {
			t.Fatalf("expected a quit command for %s", key)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("expected QuitMsg for %s", key)
		}
	}
}

func TestWarmupFailureKeepsChatUsable(t *testing.T) {
	asker := &fakeAsker{warmupErr: errors.New("connection refused")}
	m := initialModel(context.Background(), asker)
	_, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})

	msg := warmupCmd(context.Background(), asker)()
	next, _ := m.Update(msg)
	m = next.(*model)
	if m.state != viewChat {
		t.Fatalf("expected chat view after failed warmup")
	}
	if !strings.Contains(m.View(), "connection refused") {
		t.Fatalf("expected warmup error in view")
	}
}

func TestRenderExchange(t *testing.T) {
	out := renderExchange(exchange{question: "q", err: qa.ErrNoEvidence}, 80)
	if !strings.Contains(out, "Error: no context found") {
		t.Fatalf("expected error line, got %q", out)
	}

	state := answeredState()
	state.Evaluation = &qa.Evaluation{Verdict: qa.VerdictIncorrect}
	state.Localization = nil
	out = renderExchange(exchange{question: "q", state: state, elapsed: 1500 * time.Millisecond}, 80)
	if !strings.Contains(out, "unverified") || strings.Contains(out, "Evidence") {
		t.Fatalf("unexpected rendering: %q", out)
	}
	if !strings.Contains(out, "[1 passages] [1.5s]") {
		t.Fatalf("expected summary line, got %q", out)
	}

	state = answeredState()
	miss := qa.Localization{RelevantText: "x", PageIndex: qa.NoPage, ChunkIndex: qa.NoPage}
	state.Localization = &miss
	out = renderExchange(exchange{question: "q", state: state}, 80)
	if !strings.Contains(out, "Evidence not found") {
		t.Fatalf("expected miss line, got %q", out)
	}
}
