package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/muurk/starvectl/internal/attack"
	"github.com/muurk/starvectl/internal/config"
	"github.com/muurk/starvectl/internal/logging"
	"github.com/muurk/starvectl/internal/present"
	"github.com/muurk/starvectl/internal/session"
)

// Screen represents the current active screen in the application
type Screen string

const (
	ScreenPicker  Screen = "picker"
	ScreenConsole Screen = "console"
)

// actionTimeout bounds operator-triggered requests made from the console
const actionTimeout = 30 * time.Second

// Options configures the application
type Options struct {
	// Controller drives the session. Its Renderer should be the Bridge
	// passed to Run.
	Controller *attack.Controller

	// Theme is the initial theme name ("light" or "dark")
	Theme string

	// SaveTheme persists a theme change (nil = not persisted)
	SaveTheme func(theme string) error

	// Interface is preselected once the interface list loads
	Interface string

	// ServerAddress prefills the DHCP server field
	ServerAddress string

	// APIURL is shown on the console
	APIURL string
}

// Messages for async operations
type interfacesLoadedMsg struct {
	interfaces []session.Interface
	err        error
}

type interfaceSelectedMsg struct {
	name string
	err  error
}

type actionDoneMsg struct {
	action string
	err    error
}

type themeSavedMsg struct {
	err error
}

// AppModel is the top-level model that owns screen transitions
type AppModel struct {
	CurrentScreen Screen

	Picker  PickerModel
	Console ConsoleModel

	ctrl      *attack.Controller
	styles    Styles
	saveTheme func(string) error
	preselect string

	// snapshot is the newest controller state seen
	snapshot present.Snapshot
	// notice is the last notification, shown under the console
	notice *present.Notice

	Width  int
	Height int
}

// NewAppModel creates the application model starting at the picker
func NewAppModel(opts Options) AppModel {
	styles := NewStyles(opts.Theme)
	m := AppModel{
		CurrentScreen: ScreenPicker,
		ctrl:          opts.Controller,
		styles:        styles,
		saveTheme:     opts.SaveTheme,
		preselect:     opts.Interface,
		snapshot:      opts.Controller.Snapshot(),
	}
	m.Picker = NewPickerModel(styles)
	m.Console = NewConsoleModel(styles, opts.APIURL, opts.ServerAddress)
	return m
}

// Styles returns the active styles
func (m AppModel) Styles() Styles {
	return m.styles
}

// Snapshot returns the newest controller state the model has seen
func (m AppModel) Snapshot() present.Snapshot {
	return m.snapshot
}

// Notice returns the last notification, if any
func (m AppModel) Notice() (present.Notice, bool) {
	if m.notice == nil {
		return present.Notice{}, false
	}
	return *m.notice, true
}

// Init loads the interface list
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.loadInterfacesCmd(), m.Picker.spinner.Tick)
}

// Update handles all messages and routes them to the active screen
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Picker.SetSize(msg.Width, msg.Height)
		m.Console.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}

	case snapshotMsg:
		m.applySnapshot(msg.snapshot)
		return m, nil

	case noticeMsg:
		n := msg.notice
		m.notice = &n
		return m, nil

	case interfacesLoadedMsg:
		m.applySnapshot(m.ctrl.Snapshot())
		m.Picker.SetInterfaces(msg.interfaces, msg.err)
		if msg.err == nil && m.preselect != "" {
			name := m.preselect
			m.preselect = ""
			for _, iface := range msg.interfaces {
				if iface.Name == name {
					return m, m.selectInterfaceCmd(name)
				}
			}
		}
		return m, nil

	case interfaceSelectedMsg:
		m.applySnapshot(m.ctrl.Snapshot())
		if msg.err != nil {
			return m, nil
		}
		m.CurrentScreen = ScreenConsole
		return m, m.Console.spinner.Tick

	case actionDoneMsg:
		m.applySnapshot(m.ctrl.Snapshot())
		if msg.err != nil && msg.err != attack.ErrCancelled && msg.err != attack.ErrControlDisabled {
			logging.Debug("Console action failed", zap.String("action", msg.action), zap.Error(msg.err))
		}
		return m, nil

	case themeSavedMsg:
		if msg.err != nil {
			m.notice = &present.Notice{Level: present.NoticeError, Message: "Failed to save theme: " + msg.err.Error()}
		}
		return m, nil
	}

	switch m.CurrentScreen {
	case ScreenPicker:
		return m.updatePicker(msg)
	default:
		return m.updateConsole(msg)
	}
}

func (m AppModel) updatePicker(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && !m.Picker.Filtering() {
		switch keyMsg.String() {
		case "q", "esc":
			return m.quit()
		case "t":
			return m.toggleTheme()
		case "r":
			m.Picker.SetLoading()
			return m, tea.Batch(m.loadInterfacesCmd(), m.Picker.spinner.Tick)
		case "enter":
			if name, ok := m.Picker.Selected(); ok {
				return m, m.selectInterfaceCmd(name)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.Picker, cmd = m.Picker.Update(msg)
	return m, cmd
}

func (m AppModel) updateConsole(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var action consoleAction
	m.Console, action, cmd = m.Console.Update(msg, m.snapshot)

	switch action.kind {
	case actionQuit:
		return m.quit()
	case actionTheme:
		return m.toggleTheme()
	case actionPickInterface:
		m.CurrentScreen = ScreenPicker
		m.Picker.SetLoading()
		return m, tea.Batch(m.loadInterfacesCmd(), m.Picker.spinner.Tick)
	case actionDiscover:
		return m, tea.Batch(cmd, m.runCmd("discover", m.ctrl.Discover))
	case actionToggle:
		return m, tea.Batch(cmd, m.runCmd("toggle", m.ctrl.Toggle))
	case actionRelease:
		addr := action.arg
		return m, tea.Batch(cmd, m.runCmd("release", func(ctx context.Context) error {
			return m.ctrl.Release(ctx, addr)
		}))
	case actionReleaseAll:
		return m, tea.Batch(cmd, m.runCmd("release-all", func(ctx context.Context) error {
			return m.ctrl.ReleaseAll(ctx, attack.AlwaysConfirm)
		}))
	case actionSetServer:
		addr := action.arg
		return m, tea.Batch(cmd, m.runCmd("set-server", func(context.Context) error {
			return m.ctrl.SetServerAddress(addr)
		}))
	}
	return m, cmd
}

func (m *AppModel) applySnapshot(s present.Snapshot) {
	if s.Seq < m.snapshot.Seq {
		return
	}
	m.snapshot = s
	m.Console.SetSnapshot(s)
}

func (m AppModel) toggleTheme() (tea.Model, tea.Cmd) {
	next := config.ThemeDark
	if m.styles.Name == config.ThemeDark {
		next = config.ThemeLight
	}
	m.styles = NewStyles(next)
	m.Picker.SetStyles(m.styles)
	m.Console.SetStyles(m.styles)

	save := m.saveTheme
	if save == nil {
		return m, nil
	}
	return m, func() tea.Msg {
		return themeSavedMsg{err: save(next)}
	}
}

func (m AppModel) quit() (tea.Model, tea.Cmd) {
	m.ctrl.Dispose()
	return m, tea.Quit
}

// View renders the current screen
func (m AppModel) View() string {
	switch m.CurrentScreen {
	case ScreenPicker:
		return m.styles.RenderApplicationContainer(m.Picker.View(), m.Picker.HelpView(), m.Width, m.Height)
	default:
		if m.Console.Confirming() {
			return m.styles.RenderModal(m.Console.ConfirmView(), m.Width, m.Height)
		}
		content := m.Console.View(m.snapshot, m.notice)
		return m.styles.RenderApplicationContainer(content, m.Console.HelpView(), m.Width, m.Height)
	}
}

func (m AppModel) loadInterfacesCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		ifaces, err := ctrl.LoadInterfaces(ctx)
		return interfacesLoadedMsg{interfaces: ifaces, err: err}
	}
}

func (m AppModel) selectInterfaceCmd(name string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		return interfaceSelectedMsg{name: name, err: ctrl.SelectInterface(name)}
	}
}

// runCmd runs a controller operation off the event loop. Controller
// operations publish through the Bridge, which must not be called from
// Update.
func (m AppModel) runCmd(action string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionDoneMsg{action: action, err: fn(ctx)}
	}
}

// Run starts the full-screen application and blocks until it exits
func Run(bridge *Bridge, opts Options) error {
	p := tea.NewProgram(NewAppModel(opts), tea.WithAltScreen())
	bridge.Attach(p)
	defer bridge.Detach()

	_, err := p.Run()
	return err
}
