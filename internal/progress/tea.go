package progress

import (
	"fmt"
	"sync"
	"time"

	teaprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TeaReporter is a full-screen Bubble Tea dashboard alternative to
// TextReporter, gated behind --tui. It owns the terminal for the lifetime
// of a pipeline run and renders the same counters TextReporter does, just
// as animated bars instead of redrawn plain-text lines.
//
// Adapted from the teacher's tea_dashboard.go: a background tea.Program fed
// by a buffered channel of state updates, rather than that dashboard's
// fixed named-step list, since the engine's phases are counters (dirs,
// files, tools), not a small fixed checklist.
type TeaReporter struct {
	mu       sync.Mutex
	program  *tea.Program
	updates  chan Counters
	done     chan struct{}
	started  bool
}

// NewTeaReporter returns a TeaReporter; call Update/Done exactly as any
// other Sink. The underlying tea.Program starts lazily on the first Update.
func NewTeaReporter() *TeaReporter {
	return &TeaReporter{
		updates: make(chan Counters, 64),
		done:    make(chan struct{}),
	}
}

func (r *TeaReporter) ensureStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true

	model := newTeaModel()
	r.program = tea.NewProgram(model)

	go func() {
		_, _ = r.program.Run()
		close(r.done)
	}()
	go func() {
		for c := range r.updates {
			r.program.Send(teaCountersMsg(c))
		}
	}()
}

func (r *TeaReporter) Update(c Counters) {
	r.ensureStarted()
	select {
	case r.updates <- c:
	default:
	}
}

func (r *TeaReporter) Done() {
	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if !started {
		return
	}
	close(r.updates)
	if r.program != nil {
		r.program.Send(teaQuitMsg{})
	}
	<-r.done
}

type teaCountersMsg Counters
type teaQuitMsg struct{}
type teaTickMsg time.Time

type teaModel struct {
	counters  Counters
	toolNames map[int]string
	spin      spinner.Model
	bar       teaprogress.Model
	quitting  bool
}

func newTeaModel() *teaModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))

	p := teaprogress.New(
		teaprogress.WithDefaultGradient(),
		teaprogress.WithWidth(40),
	)

	return &teaModel{spin: s, bar: p, toolNames: map[int]string{}}
}

func (m *teaModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, teaTickCmd())
}

func teaTickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return teaTickMsg(t)
	})
}

func (m *teaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.quitting = true
			return m, tea.Quit
		}

	case teaTickMsg:
		return m, teaTickCmd()

	case teaCountersMsg:
		c := Counters(msg)
		if c.NDirs != 0 {
			m.counters.NDirs = c.NDirs
		}
		if c.DirIdx != 0 {
			m.counters.DirIdx = c.DirIdx
		}
		if c.NFiles != 0 {
			m.counters.NFiles = c.NFiles
		}
		if c.FileIdx != 0 {
			m.counters.FileIdx = c.FileIdx
		}
		if c.ToolIdx != 0 {
			m.counters.ToolIdx = c.ToolIdx
			if c.Tool != "" {
				m.toolNames[c.ToolIdx] = c.Tool
			}
		}
		if c.Tool != "" {
			m.counters.Tool = c.Tool
		}

	case teaQuitMsg:
		m.quitting = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

var (
	teaTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	teaLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (m *teaModel) View() string {
	dirFraction := fraction(m.counters.DirIdx, m.counters.NDirs)
	toolFraction := fraction(m.counters.FileIdx, m.counters.NFiles)

	out := teaTitleStyle.Render("makelint") + "\n\n"
	out += fmt.Sprintf("%s %s %s\n",
		m.spin.View(),
		teaLabelStyle.Render("indexing"),
		m.bar.ViewAs(dirFraction))
	if m.counters.ToolIdx > 0 {
		label := m.counters.Tool
		if label == "" {
			label = m.toolNames[m.counters.ToolIdx]
		}
		out += fmt.Sprintf("  %s %s\n", teaLabelStyle.Render(label), m.bar.ViewAs(toolFraction))
	}
	if m.quitting {
		out += "\n"
	}
	return out
}

func fraction(idx, total int) float64 {
	if total <= 0 {
		return 0
	}
	f := float64(idx) / float64(total)
	if f > 1 {
		f = 1
	}
	return f
}
