package tcpserver

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConnectionInfo describes one accepted TCP session. The registry never
// nests with any devicememory bank lock.
type ConnectionInfo struct {
	SessionID   uuid.UUID
	PeerAddress string
	ConnectedAt time.Time
}

type connRegistry struct {
	mu    sync.Mutex
	conns map[uuid.UUID]ConnectionInfo
}

func newConnRegistry() *connRegistry {
	return &connRegistry{conns: make(map[uuid.UUID]ConnectionInfo)}
}

func (r *connRegistry) add(info ConnectionInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[info.SessionID] = info
}

func (r *connRegistry) remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
}

func (r *connRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

func (r *connRegistry) snapshot() []ConnectionInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ConnectionInfo, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

func (r *connRegistry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns = make(map[uuid.UUID]ConnectionInfo)
}
