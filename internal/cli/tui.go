package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/depfetch/pkg/observability"
)

// Messages fed to the download view by acquisition hooks.
type (
	acquireStartMsg struct{ coord string }
	acquireHitMsg   struct{ coord string }
	acquireDoneMsg  struct {
		coord string
		repo  string
		err   error
	}
	repoFailureMsg struct {
		coord string
		repo  string
	}
	downloadFinishedMsg struct{ err error }
)

// downloadModel is the bubbletea model behind "fetch --progress".
type downloadModel struct {
	total    int
	done     int
	cached   int
	failed   int
	retries  int
	active   map[string]time.Time
	start    time.Time
	err      error
	finished bool
	aborted  bool
}

func newDownloadModel(total int) downloadModel {
	return downloadModel{total: total, active: make(map[string]time.Time), start: time.Now()}
}

func (m downloadModel) Init() tea.Cmd { return nil }

func (m downloadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.aborted = true
			return m, tea.Quit
		}
	case acquireStartMsg:
		m.active[msg.coord] = time.Now()
	case acquireHitMsg:
		m.cached++
	case repoFailureMsg:
		m.retries++
	case acquireDoneMsg:
		delete(m.active, msg.coord)
		m.done++
		if msg.err != nil {
			m.failed++
		}
	case downloadFinishedMsg:
		m.err = msg.err
		m.finished = true
		return m, tea.Quit
	}
	return m, nil
}

const barWidth = 30

func (m downloadModel) View() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render("Downloading dependencies"))
	b.WriteString("\n\n")

	frac := 1.0
	if m.total > 0 {
		frac = float64(m.done) / float64(m.total)
	}
	filled := int(frac * barWidth)
	bar := lipgloss.NewStyle().Foreground(colorCyan).Render(strings.Repeat("█", filled)) +
		StyleDim.Render(strings.Repeat("░", barWidth-filled))
	fmt.Fprintf(&b, "%s %s\n", bar, StyleValue.Render(fmt.Sprintf("%d/%d", m.done, m.total)))

	stats := []string{fmt.Sprintf("%d cached", m.cached)}
	if m.retries > 0 {
		stats = append(stats, fmt.Sprintf("%d repository fallbacks", m.retries))
	}
	if m.failed > 0 {
		stats = append(stats, styleIconError.Render(fmt.Sprintf("%d failed", m.failed)))
	}
	stats = append(stats, time.Since(m.start).Round(100*time.Millisecond).String())
	b.WriteString(StyleDim.Render(strings.Join(stats, " · ")))
	b.WriteString("\n")

	active := make([]string, 0, len(m.active))
	for c := range m.active {
		active = append(active, c)
	}
	sort.Strings(active)
	const maxActive = 5
	for i, c := range active {
		if i == maxActive {
			b.WriteString(StyleDim.Render(fmt.Sprintf("  … and %d more\n", len(active)-maxActive)))
			break
		}
		b.WriteString("  " + styleIconSpinner.Render(iconArrow) + " " + c + "\n")
	}
	if m.finished {
		b.WriteString("\n")
	}
	return b.String()
}

// teaHooks forwards acquisition events to a running program.
type teaHooks struct {
	observability.NoopAcquireHooks
	send func(tea.Msg)
}

func (h teaHooks) OnAcquireStart(_ context.Context, coord string) {
	h.send(acquireStartMsg{coord: coord})
}

func (h teaHooks) OnCacheHit(_ context.Context, coord string) {
	h.send(acquireHitMsg{coord: coord})
}

func (h teaHooks) OnRepositoryFailure(_ context.Context, coord, repo string, _ error) {
	h.send(repoFailureMsg{coord: coord, repo: repo})
}

func (h teaHooks) OnAcquireComplete(_ context.Context, coord, repo string, _ time.Duration, err error) {
	h.send(acquireDoneMsg{coord: coord, repo: repo, err: err})
}

// runWithProgress runs work while rendering the download view to the
// terminal. It returns work's error, or context.Canceled if the user quit.
func runWithProgress(ctx context.Context, total int, opts []tea.ProgramOption, work func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts = append(opts, tea.WithContext(ctx))
	p := tea.NewProgram(newDownloadModel(total), opts...)
	observability.SetAcquireHooks(teaHooks{send: p.Send})
	defer observability.SetAcquireHooks(observability.NoopAcquireHooks{})

	go func() {
		p.Send(downloadFinishedMsg{err: work(ctx)})
	}()

	final, err := p.Run()
	if err != nil {
		return err
	}
	m := final.(downloadModel)
	if m.aborted {
		return context.Canceled
	}
	return m.err
}
