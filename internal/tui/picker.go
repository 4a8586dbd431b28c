package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/starvectl/internal/gateway"
	"github.com/muurk/starvectl/internal/session"
)

// interfaceItem wraps an Interface for use with bubbles/list
type interfaceItem struct {
	iface session.Interface
}

// FilterValue implements list.Item
func (i interfaceItem) FilterValue() string {
	return i.iface.Name + " " + i.iface.Address
}

// interfaceDelegate renders one interface per line
type interfaceDelegate struct {
	styles Styles
}

func (d interfaceDelegate) Height() int                             { return 1 }
func (d interfaceDelegate) Spacing() int                            { return 0 }
func (d interfaceDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d interfaceDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(interfaceItem)
	if !ok {
		return
	}
	if index == m.Index() {
		fmt.Fprint(w, d.styles.Selected.Render("→ "+it.iface.Label()))
		return
	}
	fmt.Fprint(w, "  "+it.iface.Label())
}

// PickerModel is the interface selection screen
type PickerModel struct {
	Loading bool
	Err     error
	List    list.Model

	styles  Styles
	spinner spinner.Model
	help    help.Model
	keys    pickerKeyMap
	width   int
	height  int
}

// NewPickerModel creates the picker in its loading state
func NewPickerModel(styles Styles) PickerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner

	l := list.New([]list.Item{}, interfaceDelegate{styles: styles}, MinTerminalWidth, 10)
	l.Title = "Network Interfaces"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = styles.Title

	return PickerModel{
		Loading: true,
		List:    l,
		styles:  styles,
		spinner: s,
		help:    help.New(),
		keys:    newPickerKeyMap(),
	}
}

// SetSize resizes the list to the terminal
func (m *PickerModel) SetSize(width, height int) {
	m.width, m.height = width, height
	h := height - 10
	if h < 5 {
		h = 5
	}
	m.List.SetSize(width-6, h)
	m.help.Width = width - 6
}

// SetStyles switches theme
func (m *PickerModel) SetStyles(styles Styles) {
	m.styles = styles
	m.spinner.Style = styles.Spinner
	m.List.SetDelegate(interfaceDelegate{styles: styles})
	m.List.Styles.Title = styles.Title
}

// SetLoading shows the loading state until the next SetInterfaces
func (m *PickerModel) SetLoading() {
	m.Loading = true
	m.Err = nil
}

// SetInterfaces fills the list from a load result
func (m *PickerModel) SetInterfaces(ifaces []session.Interface, err error) {
	m.Loading = false
	m.Err = err
	items := make([]list.Item, 0, len(ifaces))
	for _, iface := range ifaces {
		items = append(items, interfaceItem{iface: iface})
	}
	m.List.SetItems(items)
}

// Selected returns the highlighted interface name
func (m PickerModel) Selected() (string, bool) {
	if m.Loading {
		return "", false
	}
	it, ok := m.List.SelectedItem().(interfaceItem)
	if !ok {
		return "", false
	}
	return it.iface.Name, true
}

// Filtering reports whether the list filter input has focus
func (m PickerModel) Filtering() bool {
	return m.List.FilterState() == list.Filtering
}

// Update handles list navigation and the spinner
func (m PickerModel) Update(msg tea.Msg) (PickerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if m.Loading {
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.List, cmd = m.List.Update(msg)
	return m, cmd
}

// View renders the picker content
func (m PickerModel) View() string {
	var b strings.Builder

	switch {
	case m.Loading:
		b.WriteString(m.styles.Title.Render("Network Interfaces"))
		b.WriteString("\n")
		b.WriteString(m.spinner.View() + " Loading network interfaces...")
	case m.Err != nil:
		b.WriteString(m.styles.Title.Render("Network Interfaces"))
		b.WriteString("\n")
		b.WriteString(m.styles.Error.Render("✗ " + gateway.UserMessage(m.Err, "Failed to load network interfaces")))
		b.WriteString("\n\n")
		for _, hint := range gateway.Hint(m.Err) {
			b.WriteString(m.styles.Info.Render("  • " + hint))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(m.styles.Subtitle.Render("Press r to retry."))
	case len(m.List.Items()) == 0:
		b.WriteString(m.styles.Title.Render("Network Interfaces"))
		b.WriteString("\n")
		b.WriteString(m.styles.Subtitle.Render("The service reported no usable network interfaces. Press r to reload."))
	default:
		b.WriteString(m.List.View())
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

// HelpView renders the key help for the footer
func (m PickerModel) HelpView() string {
	return m.help.View(m.keys)
}
