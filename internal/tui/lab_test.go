package tui

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/starvectl/internal/attack"
	"github.com/muurk/starvectl/internal/gateway"
	"github.com/muurk/starvectl/internal/session"
)

// lab is an in-memory lab service
type lab struct {
	mu       sync.Mutex
	running  bool
	leases   []session.Lease
	calls    map[string]int
	released []string
	failList bool
}

func newLab(t *testing.T) (*lab, *httptest.Server) {
	t.Helper()
	l := &lab{calls: make(map[string]int)}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/interfaces", func(w http.ResponseWriter, r *http.Request) {
		l.record("interfaces")
		l.mu.Lock()
		fail := l.failList
		l.mu.Unlock()
		if fail {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Permission denied"})
			return
		}
		writeJSON(w, http.StatusOK, []session.Interface{
			{Name: "eth0", Address: "10.0.0.2"},
			{Name: "wlan0", Address: "192.168.1.20"},
		})
	})
	mux.HandleFunc("/api/discover", func(w http.ResponseWriter, r *http.Request) {
		l.record("discover")
		writeJSON(w, http.StatusOK, gateway.DiscoverResult{
			ServerAddress: "10.0.0.1",
			Network:       session.NetworkInfo{RouterAddress: "10.0.0.1", SubnetMask: "255.255.255.0"},
		})
	})
	mux.HandleFunc("/api/attack/start", func(w http.ResponseWriter, r *http.Request) {
		l.record("start")
		l.mu.Lock()
		l.running = true
		l.leases = []session.Lease{
			{Address: "10.0.0.50", HardwareAddress: "aa:bb:cc:dd:ee:01", AcquiredAt: "12:00:01"},
			{Address: "10.0.0.51", HardwareAddress: "aa:bb:cc:dd:ee:02", AcquiredAt: "12:00:02"},
		}
		l.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
	})
	mux.HandleFunc("/api/attack/stop", func(w http.ResponseWriter, r *http.Request) {
		l.record("stop")
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
	})
	mux.HandleFunc("/api/attack/status", func(w http.ResponseWriter, r *http.Request) {
		l.record("status")
		l.mu.Lock()
		res := gateway.StatusResult{Running: l.running, Leases: append([]session.Lease(nil), l.leases...)}
		l.mu.Unlock()
		writeJSON(w, http.StatusOK, res)
	})
	mux.HandleFunc("/api/attack/release", func(w http.ResponseWriter, r *http.Request) {
		l.record("release")
		var req gateway.ReleaseRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		l.mu.Lock()
		l.released = append(l.released, req.Address)
		kept := l.leases[:0]
		for _, lease := range l.leases {
			if lease.Address != req.Address {
				kept = append(kept, lease)
			}
		}
		l.leases = kept
		remaining := len(kept)
		l.mu.Unlock()
		writeJSON(w, http.StatusOK, gateway.ReleaseResult{Remaining: remaining})
	})
	mux.HandleFunc("/api/attack/release-all", func(w http.ResponseWriter, r *http.Request) {
		l.record("release-all")
		l.mu.Lock()
		n := len(l.leases)
		l.leases = nil
		l.mu.Unlock()
		writeJSON(w, http.StatusOK, gateway.ReleaseAllResult{Released: n})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return l, srv
}

func (l *lab) record(op string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[op]++
}

func (l *lab) count(op string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[op]
}

func (l *lab) releasedAddresses() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.released...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestApp(t *testing.T, srv *httptest.Server, opts Options) (AppModel, *attack.Controller) {
	t.Helper()
	client := gateway.NewClient(srv.URL)
	client.SetRateLimit(0, 0)
	ctrl := attack.New(client, attack.Config{
		PollInterval: 10 * time.Millisecond,
		ExitDelay:    10 * time.Millisecond,
	})
	t.Cleanup(ctrl.Dispose)

	opts.Controller = ctrl
	opts.APIURL = srv.URL
	m := NewAppModel(opts)
	m = send(t, m, tea.WindowSizeMsg{Width: 120, Height: 50})
	return m, ctrl
}

// send delivers msg and runs every resulting command to completion
func send(t *testing.T, m AppModel, msg tea.Msg) AppModel {
	t.Helper()
	updated, cmd := m.Update(msg)
	return drain(t, updated.(AppModel), cmd)
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drain runs cmd and feeds back the application's own messages. Timer
// driven messages such as spinner ticks are dropped.
func drain(t *testing.T, m AppModel, cmd tea.Cmd) AppModel {
	t.Helper()
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			m = drain(t, m, c)
		}
	case interfacesLoadedMsg, interfaceSelectedMsg, actionDoneMsg, themeSavedMsg:
		updated, next := m.Update(msg)
		m = drain(t, updated.(AppModel), next)
	}
	return m
}
