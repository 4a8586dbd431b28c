package tui

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/starvectl/internal/attack"
	"github.com/muurk/starvectl/internal/config"
	"github.com/muurk/starvectl/internal/present"
	"github.com/muurk/starvectl/internal/session"
)

func TestPreselectedInterfaceOpensConsole(t *testing.T) {
	_, srv := newLab(t)
	m, ctrl := newTestApp(t, srv, Options{Interface: "wlan0"})

	m = drain(t, m, m.Init())

	assert.Equal(t, ScreenConsole, m.CurrentScreen)
	assert.Equal(t, "wlan0", ctrl.Snapshot().Status.Interface)
	assert.Equal(t, "wlan0", m.Snapshot().Status.Interface)
}

func TestUnknownPreselectStaysOnPicker(t *testing.T) {
	_, srv := newLab(t)
	m, _ := newTestApp(t, srv, Options{Interface: "eth9"})

	m = drain(t, m, m.Init())

	assert.Equal(t, ScreenPicker, m.CurrentScreen)
	assert.False(t, m.Picker.Loading)
	assert.Len(t, m.Picker.List.Items(), 2)
}

func TestPickerEnterSelectsHighlighted(t *testing.T) {
	_, srv := newLab(t)
	m, ctrl := newTestApp(t, srv, Options{})
	m = drain(t, m, m.Init())
	require.Equal(t, ScreenPicker, m.CurrentScreen)

	m = send(t, m, keyPress("enter"))

	assert.Equal(t, ScreenConsole, m.CurrentScreen)
	assert.Equal(t, "eth0", ctrl.Snapshot().Status.Interface)
}

func TestPickerLoadFailureShowsServerMessage(t *testing.T) {
	l, srv := newLab(t)
	l.failList = true
	m, _ := newTestApp(t, srv, Options{})

	m = drain(t, m, m.Init())

	assert.Error(t, m.Picker.Err)
	assert.Contains(t, m.View(), "Permission denied")

	// Reload after the service recovers
	l.mu.Lock()
	l.failList = false
	l.mu.Unlock()
	m = send(t, m, keyPress("r"))
	assert.NoError(t, m.Picker.Err)
	assert.Equal(t, 2, l.count("interfaces"))
}

func openConsole(t *testing.T, opts Options) (AppModel, *attack.Controller, *lab) {
	t.Helper()
	l, srv := newLab(t)
	opts.Interface = "eth0"
	m, ctrl := newTestApp(t, srv, opts)
	m = drain(t, m, m.Init())
	require.Equal(t, ScreenConsole, m.CurrentScreen)
	return m, ctrl, l
}

func TestDiscoverThenStartLocksInputs(t *testing.T) {
	m, _, l := openConsole(t, Options{})

	m = send(t, m, keyPress("d"))
	assert.Equal(t, "10.0.0.1", m.Snapshot().Status.ServerAddress)
	assert.Equal(t, "Ready", m.Snapshot().Status.Text)
	assert.Contains(t, m.View(), "255.255.255.0")

	m = send(t, m, keyPress("s"))
	assert.Equal(t, 1, l.count("start"))
	assert.Equal(t, session.PhaseAttacking, m.Snapshot().Status.Phase)

	view := m.View()
	assert.Contains(t, view, "Stop Attack")
	assert.Contains(t, view, "(locked)")

	// Editing and re-picking are refused while attacking
	m = send(t, m, keyPress("e"))
	assert.False(t, m.Console.Editing())
	m = send(t, m, keyPress("i"))
	assert.Equal(t, ScreenConsole, m.CurrentScreen)

	m = send(t, m, keyPress("s"))
	assert.Equal(t, 1, l.count("stop"))
	assert.Equal(t, session.PhaseIdle, m.Snapshot().Status.Phase)
	assert.Contains(t, m.View(), "Start Attack")
}

func TestEditServerAddress(t *testing.T) {
	m, ctrl, _ := openConsole(t, Options{})

	m = send(t, m, keyPress("e"))
	require.True(t, m.Console.Editing())
	m = send(t, m, keyPress("10.0.0.9"))
	m = send(t, m, keyPress("enter"))

	assert.False(t, m.Console.Editing())
	assert.Equal(t, "10.0.0.9", ctrl.Snapshot().Status.ServerAddress)

	// Escape discards the edit
	m = send(t, m, keyPress("e"))
	m = send(t, m, keyPress("5"))
	m = send(t, m, keyPress("esc"))
	assert.Equal(t, "10.0.0.9", ctrl.Snapshot().Status.ServerAddress)
}

func startWithLeases(t *testing.T, m AppModel, ctrl *attack.Controller) AppModel {
	t.Helper()
	m = send(t, m, keyPress("d"))
	m = send(t, m, keyPress("s"))
	require.Eventually(t, func() bool {
		return ctrl.Snapshot().Count == 2
	}, 2*time.Second, 5*time.Millisecond)
	return send(t, m, snapshotMsg{snapshot: ctrl.Snapshot()})
}

func TestLeaseTableFollowsSnapshots(t *testing.T) {
	m, ctrl, _ := openConsole(t, Options{})
	assert.Contains(t, m.View(), present.PlaceholderText)

	m = startWithLeases(t, m, ctrl)

	view := m.View()
	assert.NotContains(t, view, present.PlaceholderText)
	assert.Contains(t, view, "10.0.0.50")
	assert.Contains(t, view, "2 IPs")
	assert.Contains(t, view, "Release All")
}

func TestReleaseSelectedLease(t *testing.T) {
	m, ctrl, l := openConsole(t, Options{})
	m = startWithLeases(t, m, ctrl)

	addr, ok := m.Console.SelectedAddress()
	require.True(t, ok)

	m = send(t, m, keyPress("x"))

	assert.Equal(t, []string{addr}, l.releasedAddresses())
	assert.Equal(t, 1, m.Snapshot().Count)
}

func TestReleaseAllAsksFirst(t *testing.T) {
	m, ctrl, l := openConsole(t, Options{})
	m = startWithLeases(t, m, ctrl)

	m = send(t, m, keyPress("R"))
	require.True(t, m.Console.Confirming())
	assert.Contains(t, m.View(), attack.ReleaseAllPrompt)

	m = send(t, m, keyPress("n"))
	assert.False(t, m.Console.Confirming())
	assert.Zero(t, l.count("release-all"))

	m = send(t, m, keyPress("R"))
	m = send(t, m, keyPress("y"))
	assert.Equal(t, 1, l.count("release-all"))
	assert.Zero(t, m.Snapshot().Count)
	assert.True(t, m.Snapshot().Placeholder)
}

func TestReleaseAllHiddenWithoutLeases(t *testing.T) {
	m, _, _ := openConsole(t, Options{})

	m = send(t, m, keyPress("R"))

	assert.False(t, m.Console.Confirming())
	assert.NotContains(t, m.View(), "Release All")
}

func TestThemeTogglePersists(t *testing.T) {
	var mu sync.Mutex
	var saved []string
	m, _, _ := openConsole(t, Options{
		Theme: config.ThemeLight,
		SaveTheme: func(theme string) error {
			mu.Lock()
			defer mu.Unlock()
			saved = append(saved, theme)
			return nil
		},
	})

	m = send(t, m, keyPress("t"))
	assert.Equal(t, config.ThemeDark, m.Styles().Name)
	m = send(t, m, keyPress("t"))
	assert.Equal(t, config.ThemeLight, m.Styles().Name)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{config.ThemeDark, config.ThemeLight}, saved)
}

func TestQuitDisposesController(t *testing.T) {
	m, ctrl, _ := openConsole(t, Options{})

	_, cmd := m.Update(keyPress("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	assert.ErrorIs(t, ctrl.Start(context.Background()), attack.ErrDisposed)
}

func TestStaleSnapshotIgnored(t *testing.T) {
	m, _, _ := openConsole(t, Options{})
	base := m.Snapshot().Seq

	newer := present.Snapshot{Seq: base + 5, Status: session.Status{Text: "newer"}, Placeholder: true}
	older := present.Snapshot{Seq: base + 3, Status: session.Status{Text: "older"}, Placeholder: true}

	m = send(t, m, snapshotMsg{snapshot: newer})
	m = send(t, m, snapshotMsg{snapshot: older})

	assert.Equal(t, "newer", m.Snapshot().Status.Text)
}

func TestNoticeIsShown(t *testing.T) {
	m, _, _ := openConsole(t, Options{})

	m = send(t, m, noticeMsg{notice: present.Notice{Level: present.NoticeError, Message: "Failed to start attack"}})

	n, ok := m.Notice()
	require.True(t, ok)
	assert.Equal(t, present.NoticeError, n.Level)
	assert.Contains(t, m.View(), "✗ Failed to start attack")
}

func TestBridgeWithoutProgramDrops(t *testing.T) {
	b := NewBridge()
	b.Render(present.Snapshot{Seq: 1})
	b.Notify(present.Notice{Message: "dropped"})
	b.Detach()
}

func TestNewStylesFallsBackToLight(t *testing.T) {
	assert.Equal(t, config.ThemeLight, NewStyles("neon").Name)
	assert.Equal(t, config.ThemeDark, NewStyles(config.ThemeDark).Name)
	assert.Equal(t, DarkPalette, NewStyles(config.ThemeDark).Palette)
}
