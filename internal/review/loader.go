package review

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type workDoneMsg struct {
	err error
}

type progressMsg int

type spinnerTickMsg struct{}

type loaderModel struct {
	label      string
	total      int
	done       int
	work       func() error
	cancel     context.CancelFunc
	progress   chan int
	frame      int
	cancelling bool
	finished   bool
	err        error
}

func (m loaderModel) Init() tea.Cmd {
	return tea.Batch(m.runWork(), m.waitForProgress(), m.tick())
}

func (m loaderModel) runWork() tea.Cmd {
	work, progress := m.work, m.progress
	return func() tea.Msg {
		err := work()
		close(progress)
		return workDoneMsg{err: err}
	}
}

func (m loaderModel) waitForProgress() tea.Cmd {
	progress := m.progress
	return func() tea.Msg {
		n, ok := <-progress
		if !ok {
			return nil
		}
		return progressMsg(n)
	}
}

func (m loaderModel) tick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

func (m loaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case workDoneMsg:
		m.err = msg.err
		m.finished = true
		return m, tea.Quit
	case progressMsg:
		if int(msg) > m.done {
			m.done = int(msg)
		}
		return m, m.waitForProgress()
	case spinnerTickMsg:
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, m.tick()
	case tea.KeyMsg:
		// Cancelling lets the work finish and flush what it has.
		if msg.String() == "ctrl+c" && !m.cancelling {
			m.cancelling = true
			if m.cancel != nil {
				m.cancel()
			}
		}
	}
	return m, nil
}

func (m loaderModel) View() string {
	if m.finished {
		return ""
	}
	spinner := lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Render(spinnerFrames[m.frame])
	if m.cancelling {
		return fmt.Sprintf("%s Cancelling, writing partial results...\n", spinner)
	}
	return fmt.Sprintf("%s %s %d/%d\n", spinner, m.label, m.done, m.total)
}

// RunProgress shows a spinner with a done/total counter while work runs.
// work receives a report func that is safe to call from multiple goroutines.
// ctrl+c calls cancel and keeps the spinner up until work returns.
func RunProgress(label string, total int, cancel context.CancelFunc, work func(report func(done int)) error) error {
	progress := make(chan int, 64)
	report := func(done int) {
		select {
		case progress <- done:
		default:
		}
	}

	m := loaderModel{
		label:    label,
		total:    total,
		work:     func() error { return work(report) },
		cancel:   cancel,
		progress: progress,
	}
	p := tea.NewProgram(m)
	result, err := p.Run()
	if err != nil {
		return err
	}
	final := result.(loaderModel)
	return final.err
}
