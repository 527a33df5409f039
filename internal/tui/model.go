package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"research-rag/internal/domain"
	"research-rag/internal/engine"
	"research-rag/internal/export"
)

// AnswerPort is the TUI-facing subset of the RAG engine.
type AnswerPort interface {
	Answer(ctx context.Context, question string, opts engine.Options) (*domain.QueryResult, error)
}

const exportPath = "answers.json"

// Model is the Bubble Tea model for the research assistant.
type Model struct {
	engine      AnswerPort
	input       textinput.Model
	viewport    viewport.Model
	history     []*domain.QueryResult
	current     *domain.QueryResult
	status      string
	cursor      int
	showSources bool
	ready       bool
}

// New creates a new TUI model instance.
func New(eng AnswerPort) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a research question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{engine: eng, input: ti, viewport: vp, status: "Ready. Tab toggles sources, Ctrl+E exports."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around answer and query boxes
		_, rh := answerBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, query box, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderContent())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				res, err := m.engine.Answer(context.Background(), q, engine.Options{})
				if err != nil {
					m.status = "Error: " + err.Error()
					m.current = nil
				} else {
					m.current = res
					m.history = append(m.history, res)
					m.cursor = 0
					m.showSources = false
					m.status = metricsLine(res)
					m.input.SetValue("")
				}
				m.viewport.SetContent(m.renderContent())
				return m, nil
			}
		case "tab":
			if m.current != nil {
				m.showSources = !m.showSources
				m.cursor = 0
				m.viewport.SetContent(m.renderContent())
				return m, nil
			}
		case "down":
			if m.showSources && m.current != nil && len(m.current.Sources) > 0 {
				m.cursor = (m.cursor + 1) % len(m.current.Sources)
				m.viewport.SetContent(m.renderContent())
				return m, nil
			}
		case "up":
			if m.showSources && m.current != nil && len(m.current.Sources) > 0 {
				m.cursor = (m.cursor - 1 + len(m.current.Sources)) % len(m.current.Sources)
				m.viewport.SetContent(m.renderContent())
				return m, nil
			}
		case "ctrl+e":
			if err := export.WriteJSON(exportPath, m.history); err != nil {
				m.status = "Export failed: " + err.Error()
			} else {
				m.status = fmt.Sprintf("Exported %d answers to %s", len(m.history), exportPath)
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Research Assistant")
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	body := answerBoxStyle.Render(m.viewport.View())
	return header + "\n" + body + "\n" + input + "\n" + status
}

func (m Model) renderContent() string {
	if m.current == nil {
		return "No answer yet. Ask a question."
	}
	if m.showSources {
		return m.renderCurrentSource()
	}
	question := questionStyle.Render("Q: " + m.current.Question)
	return question + "\n\n" + m.current.Answer
}

func (m Model) renderCurrentSource() string {
	srcs := m.current.Sources
	if len(srcs) == 0 {
		return "No sources supported this answer."
	}
	s := srcs[m.cursor]
	title := fmt.Sprintf("Source %d/%d  [%s]  score=%.4f", m.cursor+1, len(srcs), s.ID, s.Score)
	var sb strings.Builder
	sb.WriteString(sourceTitleStyle.Render(title))
	sb.WriteString("\n\n")
	if s.Title != "" {
		sb.WriteString(s.Title + "\n")
	}
	if s.URL != "" {
		sb.WriteString(s.URL + "\n")
	}
	sb.WriteString("\n")
	sb.WriteString(s.Excerpt)
	return sb.String()
}

func metricsLine(r *domain.QueryResult) string {
	return fmt.Sprintf("%d sources  embed %dms  search %dms  model %dms (%d retries)  %d+%d tokens",
		len(r.Sources),
		r.SearchMetrics.EmbeddingLatency.Milliseconds(),
		r.SearchMetrics.SearchLatency.Milliseconds(),
		r.ModelMetrics.RequestLatency.Milliseconds(),
		r.ModelMetrics.Retries,
		r.ModelMetrics.PromptTokens,
		r.ModelMetrics.CompletionTokens,
	)
}

var (
	answerBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	sourceTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	statusStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
