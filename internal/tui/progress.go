package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/vvka-141/csvetl/pkg/csvetl"
)

type progressMsg csvetl.Progress

type doneMsg struct{}

// progressModel shows a spinner until the first batch lands, then a bar.
type progressModel struct {
	table     string
	keys      KeyMap
	spinner   spinner.Model
	bar       progress.Model
	current   csvetl.Progress
	cancel    context.CancelFunc
	cancelled bool
	done      bool
}

func newProgressModel(table string, cancel context.CancelFunc) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return progressModel{
		table:   table,
		keys:    DefaultKeyMap(),
		spinner: s,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		cancel:  cancel,
	}
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Raw mode swallows SIGINT, so the key cancels the run context. The
		// program keeps drawing until the run has rolled back and calls Stop.
		if key.Matches(msg, m.keys.Cancel) && !m.cancelled {
			m.cancelled = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil
	case progressMsg:
		m.current = csvetl.Progress(msg)
		return m, nil
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) percent() float64 {
	if m.current.Total == 0 {
		return 0
	}
	return float64(m.current.Loaded) / float64(m.current.Total)
}

func (m progressModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	if m.current.Batches == 0 {
		fmt.Fprintf(&b, "%s Preparing load into %s", m.spinner.View(), m.table)
	} else {
		fmt.Fprintf(&b, "%s %s  %d/%d rows  batch %d/%d",
			m.spinner.View(), m.bar.ViewAs(m.percent()),
			m.current.Loaded, m.current.Total, m.current.Batch, m.current.Batches)
	}
	b.WriteString("\n")
	if m.cancelled {
		b.WriteString(WarningStyle.Render("Cancelling, rolling back..."))
	} else {
		b.WriteString(HelpStyle.Render(m.keys.HelpText()))
	}
	b.WriteString("\n")
	return b.String()
}

// ProgressView renders load progress in the terminal. It implements
// csvetl.ProgressReporter.
type ProgressView struct {
	program *tea.Program
	done    chan struct{}
	start   sync.Once
	stop    sync.Once
	started atomic.Bool
}

// NewProgressView draws on stderr by default. cancel is called when the
// user presses the cancel key; it may be nil.
func NewProgressView(table string, cancel context.CancelFunc, opts ...tea.ProgramOption) *ProgressView {
	opts = append([]tea.ProgramOption{tea.WithOutput(os.Stderr)}, opts...)
	return &ProgressView{
		program: tea.NewProgram(newProgressModel(table, cancel), opts...),
		done:    make(chan struct{}),
	}
}

// Start runs the program in the background. OnProgress starts the view on
// the first batch, so a confirmation prompt can own the terminal until then.
func (v *ProgressView) Start() {
	v.start.Do(func() {
		v.started.Store(true)
		go func() {
			defer close(v.done)
			_, _ = v.program.Run()
		}()
	})
}

func (v *ProgressView) OnProgress(_ context.Context, p csvetl.Progress) {
	v.Start()
	v.program.Send(progressMsg(p))
}

// Stop clears the view and waits for the program to restore the terminal.
// Safe to call more than once, and a no-op if the view never started.
func (v *ProgressView) Stop() {
	if !v.started.Load() {
		return
	}
	v.stop.Do(func() {
		v.program.Send(doneMsg{})
		<-v.done
	})
}

var _ csvetl.ProgressReporter = (*ProgressView)(nil)

// LineReporter logs progress as plain lines for pipes and CI logs.
type LineReporter struct {
	logger csvetl.Logger
}

// NewLineReporter panics if logger is nil.
func NewLineReporter(logger csvetl.Logger) *LineReporter {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &LineReporter{logger: logger}
}

func (r *LineReporter) OnProgress(_ context.Context, p csvetl.Progress) {
	r.logger.Verbose("Loaded %d/%d rows (batch %d/%d)", p.Loaded, p.Total, p.Batch, p.Batches)
}

var _ csvetl.ProgressReporter = (*LineReporter)(nil)
