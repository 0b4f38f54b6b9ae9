// Package tui provides the interactive terminal chat for asking questions about
// the indexed document.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mwiater/docqa/internal/appconfig"
	"github.com/mwiater/docqa/internal/logging"
	"github.com/mwiater/docqa/internal/qa"
	"github.com/mwiater/docqa/internal/util"
)

const evidencePreviewRunes = 240

// Asker is the part of the agent the chat needs.
type Asker interface {
	Ask(ctx context.Context, question string) (qa.State, error)
	Warmup(ctx context.Context) error
	IndexSize() int
	Snapshot() appconfig.Config
}

// viewState represents the current screen of the chat.
type viewState int

const (
	// viewLoading is shown while the generation model is loaded.
	viewLoading viewState = iota
	// viewChat is the question/answer screen.
	viewChat
)

var (
	headerStyle    = lipgloss.NewStyle().Background(lipgloss.Color("62")).Foreground(lipgloss.Color("230")).Padding(0, 1)
	labelStyle     = lipgloss.NewStyle().Background(lipgloss.Color("0")).Foreground(lipgloss.Color("255")).Padding(0, 1)
	userStyle      = lipgloss.NewStyle().Bold(true)
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	metaStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	correctBadge   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("34")).Padding(0, 1)
	incorrectBadge = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("160")).Padding(0, 1)
)

// exchange is one question and what the pipeline made of it.
type exchange struct {
	question string
	state    qa.State
	err      error
	elapsed  time.Duration
	pending  bool
}

// model is the Bubble Tea model for the chat.
type model struct {
	ctx              context.Context
	asker            Asker
	cfg              appconfig.Config
	state            viewState
	isLoading        bool
	err              error
	textArea         textarea.Model
	viewport         viewport.Model
	spinner          spinner.Model
	history          []exchange
	width, height    int
	requestStartTime time.Time
}

// warmupDoneMsg is sent once the generation model is ready.
type warmupDoneMsg struct{}

// warmupErr is sent when the model could not be loaded.
type warmupErr struct{ error }

// answerMsg carries the result of one pipeline run.
type answerMsg struct {
	state   qa.State
	err     error
	elapsed time.Duration
}

func initialModel(ctx context.Context, asker Asker) *model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ta := textarea.New()
	ta.Placeholder = "Ask about the document..."
	ta.Focus()
	ta.Prompt = "Question: "
	ta.ShowLineNumbers = false
	ta.CharLimit = 4000
	ta.SetHeight(1)
	ta.KeyMap.InsertNewline.SetEnabled(false)

	return &model{
		ctx:              ctx,
		asker:            asker,
		cfg:              asker.Snapshot(),
		state:            viewLoading,
		isLoading:        true,
		textArea:         ta,
		viewport:         viewport.New(100, 5),
		spinner:          s,
		requestStartTime: time.Now(),
	}
}

func warmupCmd(ctx context.Context, asker Asker) tea.Cmd {
	return func() tea.Msg {
		if err := asker.Warmup(ctx); err != nil {
			return warmupErr{error: err}
		}
		return warmupDoneMsg{}
	}
}

func askCmd(ctx context.Context, asker Asker, question string) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		state, err := asker.Ask(ctx, question)
		return answerMsg{state: state, err: err, elapsed: time.Since(start)}
	}
}

// Init starts the spinner and loads the generation model.
func (m *model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, warmupCmd(m.ctx, m.asker))
}

// Update is the central update function for the Bubble Tea model.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.textArea.SetWidth(msg.Width - 3)
		headerHeight := 3
		footerHeight := 3
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - headerHeight - footerHeight
		m.refreshViewport()
		return m, nil

	case warmupDoneMsg:
		m.isLoading = false
		m.state = viewChat
		m.textArea.Focus()
		return m, nil

	case warmupErr:
		// The chat stays usable; the first question reports the failure in context.
		logging.LogWarn("model warmup failed: %v", msg.error)
		m.isLoading = false
		m.state = viewChat
		m.err = msg.error
		return m, nil

	case answerMsg:
		if n := len(m.history); n > 0 && m.history[n-1].pending {
			m.history[n-1] = exchange{
				question: m.history[n-1].question,
				state:    msg.state,
				err:      msg.err,
				elapsed:  msg.elapsed,
			}
		}
		m.isLoading = false
		m.textArea.Focus()
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, nil
	}

	if m.state == viewChat {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)

		if !m.isLoading {
			m.textArea, cmd = m.textArea.Update(msg)
			cmds = append(cmds, cmd)
		}

		if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "enter" && !m.isLoading {
			question := strings.TrimSpace(m.textArea.Value())
			if question != "" {
				m.history = append(m.history, exchange{question: question, pending: true})
				m.textArea.Reset()
				m.isLoading = true
				m.err = nil
				m.requestStartTime = time.Now()
				m.refreshViewport()
				m.viewport.GotoBottom()
				cmds = append(cmds, m.spinner.Tick, askCmd(m.ctx, m.asker, question))
			}
		}
	}

	if m.isLoading {
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View renders the chat based on the current state of the model.
func (m *model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	switch m.state {
	case viewLoading:
		timer := fmt.Sprintf("%.1f", time.Since(m.requestStartTime).Seconds())
		return fmt.Sprintf("\n  %s Loading %s... %ss\n", m.spinner.View(), m.cfg.GenerationModel, timer)
	case viewChat:
		return m.chatView()
	default:
		return "Unknown state"
	}
}

func (m *model) chatView() string {
	var builder strings.Builder

	status := lipgloss.JoinHorizontal(lipgloss.Top,
		labelStyle.Render("Config:"),
		headerStyle.Render(fmt.Sprintf("Model: %s", m.cfg.GenerationModel)),
		headerStyle.MarginLeft(1).Render(fmt.Sprintf("Chunks: %d", m.asker.IndexSize())),
		headerStyle.MarginLeft(1).Render(fmt.Sprintf("TopK: %d", m.cfg.TopK)),
	)
	builder.WriteString(status + metaStyle.Render(" (esc to quit)") + "\n\n")
	builder.WriteString(m.viewport.View())

	if m.isLoading {
		timer := fmt.Sprintf("%.1f", time.Since(m.requestStartTime).Seconds())
		builder.WriteString("\n" + m.spinner.View() + fmt.Sprintf(" Retrieving, answering and checking... %ss", timer))
	} else {
		builder.WriteString("\n" + m.textArea.View())
	}
	if m.err != nil {
		builder.WriteString("\n" + errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}
	return builder.String()
}

func (m *model) refreshViewport() {
	width := m.width
	if width <= 0 {
		width = 80
	}
	var b strings.Builder
	for _, ex := range m.history {
		b.WriteString(renderExchange(ex, width))
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())
}

// renderExchange formats one question with its answer, verdict and evidence.
func renderExchange(ex exchange, width int) string {
	var b strings.Builder
	wrap := func(role string, content string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, role, lipgloss.NewStyle().Width(max(width-lipgloss.Width(role)-2, 10)).Render(content)) + "\n"
	}

	b.WriteString(wrap(userStyle.Render("You: "), ex.question))
	if ex.pending {
		return b.String()
	}
	if ex.err != nil {
		b.WriteString(wrap(assistantStyle.Render("Assistant: "), errorStyle.Render("Error: "+ex.err.Error())))
		return b.String()
	}
	b.WriteString(wrap(assistantStyle.Render("Assistant: "), ex.state.Answer))

	if ev := ex.state.Evaluation; ev != nil {
		badge := incorrectBadge.Render("unverified")
		if ev.IsCorrect() {
			badge = correctBadge.Render("verified")
		}
		b.WriteString("  " + badge + "\n")
	}
	if loc := ex.state.Localization; loc != nil {
		if loc.Found() {
			b.WriteString(metaStyle.Render(fmt.Sprintf("  Evidence (page %d, passage %d): %q", loc.PageIndex+1, loc.ChunkIndex+1, util.Preview(loc.RelevantText, evidencePreviewRunes))) + "\n")
		} else {
			b.WriteString(metaStyle.Render("  Evidence not found in the retrieved passages") + "\n")
		}
	}
	b.WriteString(metaStyle.Render(fmt.Sprintf("  >>> [%d passages] [%.1fs]", len(ex.state.Context), ex.elapsed.Seconds())) + "\n")
	return b.String()
}

// Start runs the chat until the user quits.
func Start(ctx context.Context, asker Asker) error {
	m := initialModel(ctx, asker)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
