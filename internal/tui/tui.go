// internal/tui/tui.go
// Package tui renders a live dashboard for a cleaning run: overall chunk
// progress, a spinner while the backend is thinking, and the most recent
// pipeline events.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/scourlabs/scour/internal/pipeline"
)

// maxLogLines bounds the visible event history.
const maxLogLines = 12

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// eventMsg wraps a pipeline event for the bubbletea loop.
type eventMsg struct {
	ev pipeline.Event
}

// doneMsg signals that the pipeline goroutine finished.
type doneMsg struct {
	err error
}

// model is the dashboard state.
type model struct {
	spinner    spinner.Model
	progress   progress.Model
	chunkIndex int
	total      int
	iteration  int
	functions  int
	log        []string
	done       bool
	err        error
	width      int
}

func initialModel() *model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &model{
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient()),
	}
}

// Init starts the spinner ticking.
func (m *model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles pipeline events, completion, resize, and quit keys.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || (msg.Type == tea.KeyRunes && string(msg.Runes) == "q") {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = msg.Width - 8
		if m.progress.Width > 60 {
			m.progress.Width = 60
		}
	case eventMsg:
		m.apply(msg.ev)
	case doneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

// apply folds one pipeline event into the dashboard state.
func (m *model) apply(ev pipeline.Event) {
	m.total = ev.TotalChunks
	switch ev.Type {
	case pipeline.EventChunkStart:
		m.chunkIndex = ev.ChunkIndex
		m.iteration = 0
		m.appendLog(dimStyle.Render(fmt.Sprintf("chunk %d/%d started", ev.ChunkIndex+1, ev.TotalChunks)))
	case pipeline.EventIteration:
		m.iteration = ev.Iteration + 1
	case pipeline.EventValidationFailed:
		m.appendLog(warnStyle.Render(fmt.Sprintf("validation failed: %s", ev.Message)))
	case pipeline.EventFunctionGenerated:
		m.functions++
		m.appendLog(successStyle.Render(fmt.Sprintf("generated %s", ev.FunctionName)))
	case pipeline.EventChunkDone:
		m.chunkIndex = ev.ChunkIndex
		m.appendLog(dimStyle.Render(fmt.Sprintf("chunk %d/%d %s", ev.ChunkIndex+1, ev.TotalChunks, ev.Message)))
	case pipeline.EventComplete:
		m.appendLog(successStyle.Render("run complete"))
	}
}

func (m *model) appendLog(line string) {
	m.log = append(m.log, line)
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}

// View renders the dashboard.
func (m *model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("scour"))
	b.WriteString("\n\n")

	ratio := 0.0
	if m.total > 0 {
		ratio = float64(m.chunkIndex) / float64(m.total)
		if m.done {
			ratio = 1.0
		}
	}
	b.WriteString(m.progress.ViewAs(ratio))
	b.WriteString("\n\n")

	if !m.done {
		fmt.Fprintf(&b, "%s chunk %d/%d, iteration %d — %d functions accepted\n\n",
			m.spinner.View(), m.chunkIndex+1, m.total, m.iteration, m.functions)
	} else {
		fmt.Fprintf(&b, "finished — %d functions accepted\n\n", m.functions)
	}

	for _, line := range m.log {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("\nq to quit"))
	return b.String()
}

// Run executes cleaner under the dashboard. The pipeline runs in its own
// goroutine and streams events into the bubbletea program; Run returns the
// pipeline's error once both have finished.
func Run(ctx context.Context, cleaner *pipeline.Cleaner) error {
	m := initialModel()
	p := tea.NewProgram(m)

	cleaner.SetObserver(func(ev pipeline.Event) {
		p.Send(eventMsg{ev: ev})
	})

	errCh := make(chan error, 1)
	go func() {
		err := cleaner.Run(ctx)
		errCh <- err
		p.Send(doneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		return err
	}
	return <-errCh
}
