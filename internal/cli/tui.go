package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pmerten/fedicircle/pkg/circle"
)

// =============================================================================
// CircleModel - Live note processing progress
// =============================================================================

// progressMsg carries note processing progress into the model.
type progressMsg struct {
	done  int
	total int
}

// phaseMsg switches the displayed phase label.
type phaseMsg string

// resultMsg ends the program with the pipeline outcome.
type resultMsg struct {
	result *circle.Result
	err    error
}

const progressBarWidth = 30

// CircleModel is the bubbletea model shown while a circle is computed. The
// pipeline runs on its own goroutine and feeds the model through Send.
type CircleModel struct {
	handle string
	cancel context.CancelFunc

	phase  string
	done   int
	total  int
	result *circle.Result
	err    error
}

// NewCircleModel creates a progress model for the given handle. cancel is
// invoked when the user aborts.
func NewCircleModel(handle string, cancel context.CancelFunc) CircleModel {
	return CircleModel{handle: handle, cancel: cancel, phase: "resolving handle"}
}

func (m CircleModel) Init() tea.Cmd {
	return nil
}

func (m CircleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.cancel()
			m.err = context.Canceled
			return m, tea.Quit
		}
	case phaseMsg:
		m.phase = string(msg)
	case progressMsg:
		m.phase = "processing notes"
		m.done = msg.done
		m.total = msg.total
	case resultMsg:
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m CircleModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("fedicircle"))
	b.WriteString(" ")
	b.WriteString(StyleHighlight.Render("@" + m.handle))
	b.WriteString("\n\n")

	b.WriteString("  " + StyleDim.Render(m.phase))
	if m.total > 0 {
		b.WriteString("\n\n  ")
		b.WriteString(renderBar(m.done, m.total))
		b.WriteString(StyleDim.Render(fmt.Sprintf("  %d/%d notes", m.done, m.total)))
	}
	b.WriteString("\n\n")
	b.WriteString(StyleDim.Render("  q to abort"))
	b.WriteString("\n")

	return b.String()
}

// Result returns the pipeline outcome after the program finished.
func (m CircleModel) Result() (*circle.Result, error) {
	return m.result, m.err
}

func renderBar(done, total int) string {
	filled := 0
	if total > 0 {
		filled = done * progressBarWidth / total
	}
	if filled > progressBarWidth {
		filled = progressBarWidth
	}
	bar := StyleHighlight.Render(strings.Repeat("█", filled)) +
		StyleDim.Render(strings.Repeat("░", progressBarWidth-filled))
	return bar
}
