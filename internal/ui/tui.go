package ui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUIRenderer displays a Snapshot as a static bubbletea dashboard,
// blocking until the user quits it.
type TUIRenderer struct {
	cfg Config
}

// NewTUIRenderer constructs a TUIRenderer. It returns an error when
// cfg.Output is not a TTY, so NewRenderer can fall back to plain text.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("ui: output is not a TTY")
	}
	return &TUIRenderer{cfg: cfg}, nil
}

// Render runs the dashboard until the user presses q, esc, or ctrl+c.
func (r *TUIRenderer) Render(snap Snapshot) error {
	styles := GetStyles(r.cfg.NoColor || DetectNoColor())
	model := dashboardModel{snap: snap, styles: styles}

	var opts []tea.ProgramOption
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	opts = append(opts, tea.WithAltScreen())

	_, err := tea.NewProgram(model, opts...).Run()
	return err
}

// Close implements Renderer; the dashboard program has already exited
// by the time Render returns, so there is nothing left to release.
func (r *TUIRenderer) Close() error { return nil }

// dashboardModel renders one immutable Snapshot and quits on any of the
// standard exit keys; it never polls or refreshes on its own.
type dashboardModel struct {
	snap   Snapshot
	styles Styles
}

func (m dashboardModel) Init() tea.Cmd { return nil }

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m dashboardModel) View() string {
	row := func(label string, value any) string {
		return m.styles.Label.Render(label+": ") + m.styles.Value.Render(fmt.Sprint(value))
	}

	vfsPanel := m.styles.Panel.Render(lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Header.Render("Virtual File System"),
		row("Files", m.snap.FileCount),
		row("Directories", m.snap.DirectoryCount),
		row("Cache hit rate", fmt.Sprintf("%.1f%%", m.snap.CacheHitRate*100)),
	))

	graphPanel := m.styles.Panel.Render(lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Header.Render("Dependency Graph"),
		row("Code units", m.snap.CodeUnitCount),
		row("Edges", m.snap.EdgeCount),
		row("Cycles", m.snap.CycleCount),
	))

	searchPanel := m.styles.Panel.Render(lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Header.Render("Semantic Search"),
		row("Vectors", fmt.Sprintf("%d (dim %d)", m.snap.VectorCount, m.snap.VectorDimension)),
		row("Keyword docs", m.snap.KeywordDocCount),
	))

	memoryPanel := m.styles.Panel.Render(lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Header.Render("Cognitive Memory"),
		row("Episodes", fmt.Sprintf("%d (%d high-value)", m.snap.EpisodeCount, m.snap.HighValueEpisodes)),
		row("Patterns", m.snap.PatternCount),
		row("Working slots", m.snap.WorkingSlotCount),
	))

	top := lipgloss.JoinHorizontal(lipgloss.Top, vfsPanel, graphPanel)
	bottom := lipgloss.JoinHorizontal(lipgloss.Top, searchPanel, memoryPanel)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Header.Render(fmt.Sprintf("cortexd — %s", m.snap.WorkspaceName)),
		top,
		bottom,
		m.styles.Dim.Render("press q to quit"),
	)
}
