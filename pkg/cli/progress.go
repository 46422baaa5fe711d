package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"launcher/pkg/display"
	"launcher/pkg/events"
)

type progressMsg events.Progress

type streamDoneMsg struct {
	n   int64
	err error
}

// getModel draws a progress bar for one Stream call.
type getModel struct {
	url      string
	progress progress.Model
	last     events.Progress
	start    time.Time
	cancel   context.CancelFunc
	done     bool
	err      error
}

func newGetModel(url string, cancel context.CancelFunc) getModel {
	return getModel{
		url:      url,
		progress: progress.New(progress.WithDefaultGradient()),
		last:     events.Progress{Total: events.UnknownTotal},
		start:    time.Now(),
		cancel:   cancel,
	}
}

func (m getModel) Init() tea.Cmd {
	return nil
}

func (m getModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.cancel()
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.progress.Width = min(msg.Width-4, 80)

	case progressMsg:
		m.last = events.Progress(msg)

	case streamDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m getModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("\n❌ Error: %v\n", m.err)
	}
	if m.done {
		return ""
	}

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("211")).
		Render(fmt.Sprintf("📥 Downloading: %s", m.url))

	var bar string
	if m.last.Known() && m.last.Total > 0 {
		bar = m.progress.ViewAs(float64(m.last.Downloaded) / float64(m.last.Total))
	}

	speed := float64(m.last.Downloaded) / max(time.Since(m.start).Seconds(), 0.001)
	stats := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render(fmt.Sprintf("%s | %s/s", display.ProgressText(m.last), humanize.Bytes(uint64(speed))))

	return "\n" + header + "\n\n" + bar + "\n" + stats + "\n"
}

// streamWithProgressBar runs Stream while a bubbletea program draws its
// progress on stderr.
func streamWithProgressBar(ctx context.Context, app *App, url, dest string) (int64, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newGetModel(url, cancel), tea.WithOutput(app.Stderr))

	type result struct {
		n   int64
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := app.Downloader.Stream(ctx, url, dest, events.Funcs{
			OnProgress: func(pr events.Progress) { p.Send(progressMsg(pr)) },
		})
		p.Send(streamDoneMsg{n: n, err: err})
		done <- result{n, err}
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return 0, fmt.Errorf("error running progress display: %w", err)
	}
	r := <-done
	return r.n, r.err
}
