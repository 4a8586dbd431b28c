package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/starvectl/internal/present"
)

// snapshotMsg carries a controller snapshot into the event loop
type snapshotMsg struct {
	snapshot present.Snapshot
}

// noticeMsg carries a controller notification into the event loop
type noticeMsg struct {
	notice present.Notice
}

// Bridge is a present.Renderer that forwards snapshots and notices to a
// running tea.Program. Messages sent before Attach are dropped; the model
// reads a fresh snapshot on Init.
type Bridge struct {
	mu      sync.Mutex
	program *tea.Program
}

// NewBridge returns an unattached bridge
func NewBridge() *Bridge {
	return &Bridge{}
}

// Attach starts forwarding to p
func (b *Bridge) Attach(p *tea.Program) {
	b.mu.Lock()
	b.program = p
	b.mu.Unlock()
}

// Detach stops forwarding
func (b *Bridge) Detach() {
	b.Attach(nil)
}

// Render implements present.Renderer
func (b *Bridge) Render(s present.Snapshot) {
	b.send(snapshotMsg{snapshot: s})
}

// Notify implements present.Renderer
func (b *Bridge) Notify(n present.Notice) {
	b.send(noticeMsg{notice: n})
}

func (b *Bridge) send(msg tea.Msg) {
	b.mu.Lock()
	p := b.program
	b.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}
