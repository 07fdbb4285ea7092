package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pellucid-io/ferry/types"
)

// Feed carries transfer events from the session goroutine into the TUI.
// Progress may be called concurrently with the Bubble Tea event loop;
// Finish must be called exactly once, after the last Progress call.
type Feed struct {
	events chan tea.Msg
}

// NewFeed creates a feed with enough buffer that a slow terminal never
// blocks chunk submission.
func NewFeed() *Feed {
	return &Feed{events: make(chan tea.Msg, 64)}
}

// Progress publishes a snapshot to the TUI. Drops the snapshot if the
// buffer is full; a newer one is always right behind it.
func (f *Feed) Progress(snap types.ProgressSnapshot) {
	select {
	case f.events <- progressMsg(snap):
	default:
	}
}

// Finish publishes the terminal outcome and closes the feed. The send is
// non-blocking so a detached viewer can never wedge the session goroutine.
func (f *Feed) Finish(outcome types.TransferOutcome) {
	select {
	case f.events <- outcomeMsg(outcome):
	default:
	}
	close(f.events)
}

type progressMsg types.ProgressSnapshot

type outcomeMsg types.TransferOutcome

// feedClosedMsg signals that the feed channel was closed.
type feedClosedMsg struct{}

// TransferModel is a Bubble Tea model rendering live transfer progress.
type TransferModel struct {
	agentID  string
	feed     *Feed
	bar      progress.Model
	latest   types.ProgressSnapshot
	outcome  *types.TransferOutcome
	width    int
	quitting bool
}

// NewTransferModel creates a transfer progress model.
func NewTransferModel(agentID string, feed *Feed) TransferModel {
	bar := progress.New(progress.WithDefaultGradient())
	return TransferModel{
		agentID: agentID,
		feed:    feed,
		bar:     bar,
	}
}

// Init implements tea.Model.
func (m TransferModel) Init() tea.Cmd {
	return waitForEvent(m.feed)
}

// Update implements tea.Model.
func (m TransferModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = msg.Width - 8
		if m.bar.Width > 60 {
			m.bar.Width = 60
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			// Quitting the view detaches the display only. The transfer
			// keeps running and remains resumable.
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case progressMsg:
		m.latest = types.ProgressSnapshot(msg)
		return m, waitForEvent(m.feed)

	case outcomeMsg:
		outcome := types.TransferOutcome(msg)
		m.outcome = &outcome
		return m, waitForEvent(m.feed)

	case feedClosedMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// View implements tea.Model.
func (m TransferModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Workspace Transfer"))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Agent:"),
		ValueStyle.Render(m.agentID)))

	mode := "incremental"
	if m.latest.IsFullBundle {
		mode = "full bundle"
	}
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Mode:"),
		ValueStyle.Render(mode)))

	b.WriteString(fmt.Sprintf("%s %s / %s\n",
		LabelStyle.Render("Transferred:"),
		ValueStyle.Render(formatBytes(m.latest.LoadedBytes)),
		ValueStyle.Render(formatBytes(m.latest.TotalBytes))))

	b.WriteString("\n")
	b.WriteString(m.bar.ViewAs(m.latest.Percentage / 100))
	b.WriteString(" ")
	b.WriteString(PercentStyle.Render(fmt.Sprintf("%.1f%%", m.latest.Percentage)))
	b.WriteString("\n")

	if m.outcome != nil {
		status := string(m.outcome.Status)
		line := StateStyle(status).Render(status)
		if m.outcome.Message != "" {
			line += " " + ValueStyle.Render(m.outcome.Message)
		}
		b.WriteString("\n" + line + "\n")
	}

	help := HelpStyle.Render("Press q or Ctrl+C to detach (transfer continues)")
	return BoxStyle.Render(b.String()) + "\n" + help
}

// waitForEvent returns a command that blocks on the next feed event.
func waitForEvent(feed *Feed) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-feed.events
		if !ok {
			return feedClosedMsg{}
		}
		return msg
	}
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// RunTransferTUI runs the transfer progress TUI until the feed closes or
// the user detaches.
func RunTransferTUI(agentID string, feed *Feed) error {
	model := NewTransferModel(agentID, feed)
	p := tea.NewProgram(model)
	_, err := p.Run()
	return err
}

func formatBytes(n int64) string {
	const (
		kib = 1 << 10
		mib = 1 << 20
		gib = 1 << 30
	)
	switch {
	case n >= gib:
		return fmt.Sprintf("%.2f GiB", float64(n)/gib)
	case n >= mib:
		return fmt.Sprintf("%.2f MiB", float64(n)/mib)
	case n >= kib:
		return fmt.Sprintf("%.1f KiB", float64(n)/kib)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
