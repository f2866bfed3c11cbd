package ui

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// waitDoneMsg tells the spinner model the external condition flipped.
type waitDoneMsg struct{}

// waitModel animates the unbounded developer-tools wait. It has no
// input handling: the wait ends when the probe flips or the process is
// interrupted, never from inside the spinner.
type waitModel struct {
	spinner spinner.Model
	message string
	start   time.Time
	styles  Styles
}

func newWaitModel(message string) waitModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	styles := DefaultStyles()
	sp.Style = styles.Spinner
	return waitModel{
		spinner: sp,
		message: message,
		start:   time.Now(),
		styles:  styles,
	}
}

func (m waitModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m waitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case waitDoneMsg:
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	default:
		return m, nil
	}
}

func (m waitModel) View() string {
	elapsed := time.Since(m.start).Round(time.Second)
	return fmt.Sprintf("%s %s %s\n",
		m.spinner.View(),
		m.message,
		m.styles.Detail.Render(fmt.Sprintf("(%s elapsed)", elapsed)))
}

// ShowWait animates a spinner on out until done is closed or ctx is
// cancelled. It blocks; run the waiting work on another goroutine.
func ShowWait(ctx context.Context, out io.Writer, message string, done <-chan struct{}) error {
	p := tea.NewProgram(
		newWaitModel(message),
		tea.WithOutput(out),
		tea.WithoutSignalHandler(),
		tea.WithInput(nil),
	)

	go func() {
		select {
		case <-done:
		case <-ctx.Done():
		}
		p.Send(waitDoneMsg{})
	}()

	_, err := p.Run()
	return err
}
