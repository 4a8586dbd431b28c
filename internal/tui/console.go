package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/starvectl/internal/attack"
	"github.com/muurk/starvectl/internal/present"
	"github.com/muurk/starvectl/internal/session"
)

type actionKind int

const (
	actionNone actionKind = iota
	actionQuit
	actionTheme
	actionPickInterface
	actionDiscover
	actionToggle
	actionRelease
	actionReleaseAll
	actionSetServer
)

// consoleAction is what a console key press asks the app to do
type consoleAction struct {
	kind actionKind
	arg  string
}

// Row markers in the lease table
const (
	markerEntering  = "+"
	markerExiting   = "-"
	markerReleasing = "…"
)

// ConsoleModel is the attack console screen
type ConsoleModel struct {
	table       table.Model
	serverInput textinput.Model
	spinner     spinner.Model
	help        help.Model

	keys        consoleKeyMap
	editKeys    editKeyMap
	confirmKeys confirmKeyMap

	styles     Styles
	apiURL     string
	editing    bool
	confirming bool
	width      int
	height     int
}

// NewConsoleModel creates the console screen
func NewConsoleModel(styles Styles, apiURL, server string) ConsoleModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner

	in := textinput.New()
	in.Placeholder = "192.168.1.1"
	in.CharLimit = 15
	in.Width = 20
	in.SetValue(server)

	t := table.New(
		table.WithColumns(leaseColumns()),
		table.WithFocused(true),
		table.WithHeight(MinTableHeight),
	)
	t.SetStyles(tableStyles(styles))

	return ConsoleModel{
		table:       t,
		serverInput: in,
		spinner:     s,
		help:        help.New(),
		keys:        newConsoleKeyMap(),
		editKeys:    newEditKeyMap(),
		confirmKeys: newConfirmKeyMap(),
		styles:      styles,
		apiURL:      apiURL,
	}
}

func leaseColumns() []table.Column {
	return []table.Column{
		{Title: " ", Width: 2},
		{Title: "IP Address", Width: 16},
		{Title: "MAC Address", Width: 18},
		{Title: "Acquired", Width: 12},
	}
}

func tableStyles(styles Styles) table.Styles {
	ts := table.DefaultStyles()
	ts.Header = ts.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Palette.Border).
		BorderBottom(true).
		Bold(true)
	ts.Selected = ts.Selected.
		Foreground(styles.Palette.Text).
		Background(styles.Palette.Primary).
		Bold(false)
	return ts
}

// SetSize resizes the lease table to the terminal
func (m *ConsoleModel) SetSize(width, height int) {
	m.width, m.height = width, height
	h := height - 24
	if h < MinTableHeight {
		h = MinTableHeight
	}
	m.table.SetHeight(h)
	m.help.Width = width - 6
}

// SetStyles switches theme
func (m *ConsoleModel) SetStyles(styles Styles) {
	m.styles = styles
	m.spinner.Style = styles.Spinner
	m.table.SetStyles(tableStyles(styles))
}

// SetSnapshot rebuilds the lease table from a snapshot. The server field
// follows the controller unless it is being edited.
func (m *ConsoleModel) SetSnapshot(s present.Snapshot) {
	rows := make([]table.Row, 0, len(s.Rows))
	for _, r := range s.Rows {
		rows = append(rows, table.Row{rowMarker(r), r.Lease.Address, r.Lease.HardwareAddress, r.Lease.AcquiredAt})
	}
	m.table.SetRows(rows)
	if c := m.table.Cursor(); c >= len(rows) {
		if len(rows) == 0 {
			m.table.SetCursor(0)
		} else {
			m.table.SetCursor(len(rows) - 1)
		}
	}

	if !m.editing {
		m.serverInput.SetValue(s.Status.ServerAddress)
	}
	if !s.ShowReleaseAll() {
		m.confirming = false
	}
}

func rowMarker(r present.Row) string {
	switch {
	case r.State == present.RowExiting:
		return markerExiting
	case r.Releasing:
		return markerReleasing
	case r.State == present.RowEntering:
		return markerEntering
	default:
		return ""
	}
}

// SelectedAddress returns the address under the table cursor
func (m ConsoleModel) SelectedAddress() (string, bool) {
	row := m.table.SelectedRow()
	if len(row) < 2 || row[1] == "" {
		return "", false
	}
	return row[1], true
}

// Editing reports whether the server field has focus
func (m ConsoleModel) Editing() bool {
	return m.editing
}

// Confirming reports whether the release-all modal is open
func (m ConsoleModel) Confirming() bool {
	return m.confirming
}

// Update handles console keys and returns the action the app should run
func (m ConsoleModel) Update(msg tea.Msg, snap present.Snapshot) (ConsoleModel, consoleAction, tea.Cmd) {
	none := consoleAction{}

	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, none, cmd

	case tea.KeyMsg:
		switch {
		case m.confirming:
			return m.updateConfirm(msg)
		case m.editing:
			return m.updateEditing(msg, snap)
		}

		switch msg.String() {
		case "q":
			return m, consoleAction{kind: actionQuit}, nil
		case "t":
			return m, consoleAction{kind: actionTheme}, nil
		case "d":
			return m, consoleAction{kind: actionDiscover}, nil
		case "s":
			return m, consoleAction{kind: actionToggle}, nil
		case "x":
			if addr, ok := m.SelectedAddress(); ok {
				return m, consoleAction{kind: actionRelease, arg: addr}, nil
			}
			return m, none, nil
		case "R":
			if snap.ShowReleaseAll() && !snap.Status.Controls.ReleaseAllBusy {
				m.confirming = true
			}
			return m, none, nil
		case "e":
			if snap.Status.InputsLocked() {
				return m, none, nil
			}
			m.editing = true
			m.serverInput.SetValue(snap.Status.ServerAddress)
			m.serverInput.CursorEnd()
			return m, none, m.serverInput.Focus()
		case "i":
			if snap.Status.InputsLocked() {
				return m, none, nil
			}
			return m, consoleAction{kind: actionPickInterface}, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, none, cmd
}

func (m ConsoleModel) updateConfirm(msg tea.KeyMsg) (ConsoleModel, consoleAction, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.confirming = false
		return m, consoleAction{kind: actionReleaseAll}, nil
	case "n", "N", "esc":
		m.confirming = false
	}
	return m, consoleAction{}, nil
}

func (m ConsoleModel) updateEditing(msg tea.KeyMsg, snap present.Snapshot) (ConsoleModel, consoleAction, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.editing = false
		m.serverInput.Blur()
		return m, consoleAction{kind: actionSetServer, arg: strings.TrimSpace(m.serverInput.Value())}, nil
	case "esc":
		m.editing = false
		m.serverInput.Blur()
		m.serverInput.SetValue(snap.Status.ServerAddress)
		return m, consoleAction{}, nil
	}

	var cmd tea.Cmd
	m.serverInput, cmd = m.serverInput.Update(msg)
	return m, consoleAction{}, cmd
}

// View renders the console content
func (m ConsoleModel) View(snap present.Snapshot, notice *present.Notice) string {
	st := snap.Status
	var b strings.Builder

	b.WriteString(m.renderStatus(st))
	b.WriteString("\n\n")

	b.WriteString(m.field("Service", m.styles.Value.Render(m.apiURL)))
	b.WriteString(m.field("Interface", m.inputValue(st.Interface, st.InputsLocked())))
	if m.editing {
		b.WriteString(m.field("DHCP Server", m.serverInput.View()))
	} else {
		b.WriteString(m.field("DHCP Server", m.inputValue(st.ServerAddress, st.InputsLocked())))
	}

	if !st.Network.IsZero() {
		b.WriteString("\n")
		b.WriteString(m.renderNetwork(st.Network))
	}

	b.WriteString("\n\n")
	b.WriteString(m.renderControls(snap))
	b.WriteString("\n\n")

	b.WriteString(m.styles.Label.Render("Stolen IPs") + m.styles.Counter.Render(snap.Counter()))
	b.WriteString("\n")
	if snap.Placeholder {
		b.WriteString(m.styles.Subtitle.Render(present.PlaceholderText))
	} else {
		b.WriteString(m.table.View())
	}

	if notice != nil {
		b.WriteString("\n\n")
		b.WriteString(m.renderNotice(*notice))
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

func (m ConsoleModel) renderStatus(st session.Status) string {
	text := m.styles.Value.Render(st.Text)
	busy := st.Phase == session.PhaseDiscovering ||
		st.Controls.AttackBusy || st.Controls.ReleaseAllBusy
	if busy || st.Phase == session.PhaseAttacking {
		return m.spinner.View() + " " + text
	}
	return "  " + text
}

func (m ConsoleModel) field(label, value string) string {
	return m.styles.Label.Render(label) + value + "\n"
}

func (m ConsoleModel) inputValue(v string, locked bool) string {
	if v == "" {
		v = "-"
	}
	if locked {
		return m.styles.Locked.Render(v + " (locked)")
	}
	return m.styles.Value.Render(v)
}

func (m ConsoleModel) renderNetwork(n session.NetworkInfo) string {
	var lines []string
	add := func(label, v string) {
		if v != "" {
			lines = append(lines, m.styles.Label.Render(label)+v)
		}
	}
	add("Server", n.ServerAddress)
	add("Router", n.RouterAddress)
	add("Subnet", n.SubnetMask)
	add("Pool", n.PoolRange())
	return m.styles.Panel.Render(strings.Join(lines, "\n"))
}

func (m ConsoleModel) renderControls(snap present.Snapshot) string {
	st := snap.Status
	button := func(label string, enabled bool) string {
		if enabled {
			return m.styles.Button.Render(label)
		}
		return m.styles.Disabled.Render(label)
	}

	attackEnabled := st.CanStart() || st.CanStop()
	parts := []string{
		button("d Discover", st.CanDiscover()),
		button("s "+snap.AttackLabel(), attackEnabled),
	}
	if snap.ShowReleaseAll() {
		parts = append(parts, button("R "+snap.ReleaseAllLabel(), !st.Controls.ReleaseAllBusy))
	}
	return strings.Join(parts, " ")
}

func (m ConsoleModel) renderNotice(n present.Notice) string {
	switch n.Level {
	case present.NoticeSuccess:
		return m.styles.Success.Render("✓ " + n.Message)
	case present.NoticeError:
		return m.styles.Error.Render("✗ " + n.Message)
	default:
		return m.styles.Info.Render("· " + n.Message)
	}
}

// ConfirmView renders the release-all modal
func (m ConsoleModel) ConfirmView() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Error.Render("⚠  Release All"),
		"",
		attack.ReleaseAllPrompt,
		"",
		m.styles.Info.Render("[y] Yes    [n] No"),
	)
}

// HelpView renders the key help for the footer
func (m ConsoleModel) HelpView() string {
	switch {
	case m.confirming:
		return m.help.View(m.confirmKeys)
	case m.editing:
		return m.help.View(m.editKeys)
	default:
		return m.help.View(m.keys)
	}
}
