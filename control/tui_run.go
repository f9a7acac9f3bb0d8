package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sv4u/saveimages/save"
)

const maxRecentInTUI = 10

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

// runMsg is a message from the run goroutine.
type runMsg struct {
	Result  *save.Result
	Confirm *confirmRequest
	Summary *save.Summary
	Err     error
}

// confirmRequest asks the user whether path may be overwritten. The answer
// is sent on reply.
type confirmRequest struct {
	path  string
	reply chan bool
}

// tuiConfirmer routes overwrite questions through the progress view.
type tuiConfirmer struct {
	ch chan<- runMsg
}

func (c tuiConfirmer) ConfirmOverwrite(ctx context.Context, path string) (bool, error) {
	req := &confirmRequest{path: path, reply: make(chan bool, 1)}
	select {
	case c.ch <- runMsg{Confirm: req}:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case ok := <-req.reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// runModel is the Bubble Tea model for the run progress view.
type runModel struct {
	saved      int
	kept       int
	total      int
	recent     []string
	logPath    string
	confirm    *confirmRequest
	cancelling bool
	done       bool
	runErr     error
	summary    *save.Summary
	cancel     context.CancelFunc
	ch         chan runMsg
	width      int
	height     int
}

func newRunModel(logPath string, total int, ch chan runMsg, cancel context.CancelFunc) *runModel {
	return &runModel{
		total:   total,
		logPath: logPath,
		recent:  make([]string, 0, maxRecentInTUI),
		ch:      ch,
		cancel:  cancel,
	}
}

func (m *runModel) Init() tea.Cmd {
	return m.waitForMsg()
}

func (m *runModel) waitForMsg() tea.Cmd {
	return func() tea.Msg {
		return <-m.ch
	}
}

func (m *runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case runMsg:
		switch {
		case msg.Confirm != nil:
			m.confirm = msg.Confirm
		case msg.Result != nil:
			m.addResult(*msg.Result)
		case msg.Summary != nil:
			m.done = true
			m.runErr = msg.Err
			m.summary = msg.Summary
			m.saved = msg.Summary.Saved()
			m.kept = msg.Summary.Skipped()
			return m, tea.Quit
		}
		return m, m.waitForMsg()
	}
	return m, nil
}

func (m *runModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if m.confirm != nil {
		switch key {
		case "y", "Y":
			m.answer(true)
		case "n", "N", "enter", "esc":
			m.answer(false)
		}
	}
	if key == "ctrl+c" || key == "q" {
		if m.done {
			return m, tea.Quit
		}
		if m.confirm != nil {
			m.answer(false)
		}
		if m.cancel != nil {
			m.cancel()
		}
		m.cancelling = true
	}
	return m, nil
}

func (m *runModel) answer(ok bool) {
	m.confirm.reply <- ok
	m.confirm = nil
}

func (m *runModel) addResult(r save.Result) {
	var line string
	switch {
	case r.Saved:
		m.saved++
		line = "saved " + r.Location
	case r.Skipped:
		m.kept++
		line = "kept  " + r.Location
	default:
		return
	}
	if r.Module != "" {
		line = r.Module + ": " + line
	}
	m.recent = append(m.recent, line)
	if len(m.recent) > maxRecentInTUI {
		m.recent = m.recent[len(m.recent)-maxRecentInTUI:]
	}
}

func (m *runModel) View() string {
	var b strings.Builder
	b.WriteString("  " + titleStyle.Render("saveimages run") + "\n\n")
	b.WriteString(fmt.Sprintf("  Saved: %d  Kept: %d  Images: %d\n", m.saved, m.kept, m.total))
	b.WriteString("  " + dimStyle.Render("Log file: "+m.logPath) + "\n\n")
	if len(m.recent) > 0 {
		b.WriteString("  Recent:\n")
		for _, line := range m.recent {
			b.WriteString("    • " + truncate(line, 70) + "\n")
		}
	}
	if m.confirm != nil {
		b.WriteString("\n  " + promptStyle.Render(fmt.Sprintf("Overwrite %s? [y/N]", filepath.Base(m.confirm.path))) + "\n")
	}
	if m.cancelling && !m.done {
		b.WriteString("\n  Cancelling...\n")
	}
	if m.done && m.runErr != nil {
		b.WriteString("\n  " + errorStyle.Render("Error: "+m.runErr.Error()) + "\n")
	}
	if !m.done && !m.cancelling {
		b.WriteString("\n  " + dimStyle.Render("Press q to cancel.") + "\n")
	}
	return b.String()
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max+3:]
}

// RunProgressTUI shows the progress view until the run goroutine sends its
// summary on progressCh. cancel stops the run when the user quits early.
// If the view cannot start, the run is cancelled and its summary is still
// returned.
func RunProgressTUI(logPath string, total int, progressCh chan runMsg, cancel context.CancelFunc) (*save.Summary, error) {
	model := newRunModel(logPath, total, progressCh, cancel)
	p := tea.NewProgram(model, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		cancel()
		if model.done {
			return model.summary, model.runErr
		}
		summary, runErr := drainRun(progressCh)
		if runErr == nil {
			runErr = fmt.Errorf("progress view failed: %w", err)
		}
		return summary, runErr
	}
	rm, ok := finalModel.(*runModel)
	if !ok || rm.summary == nil {
		return drainRun(progressCh)
	}
	return rm.summary, rm.runErr
}

// drainRun declines pending questions and waits for the run summary.
func drainRun(progressCh chan runMsg) (*save.Summary, error) {
	for msg := range progressCh {
		if msg.Confirm != nil {
			msg.Confirm.reply <- false
		}
		if msg.Summary != nil {
			return msg.Summary, msg.Err
		}
	}
	return &save.Summary{}, nil
}
