package server

import (
	"sync"

	"github/sabouaram/breaknet/internal/protocol"
	"github/sabouaram/breaknet/internal/session"
	"github/sabouaram/breaknet/internal/slab"
)

// registry is the process-wide Slab of live sessions plus the port→session_id
// map, shared by every control channel's accept/handshake/close-cascade code
// and protected by a single lock (spec.md §5's "Slab... protected by a
// reader-writer lock" and "port_sessionid_map is RW-locked").
type registry struct {
	mu       sync.RWMutex
	sessions *slab.Slab[*session.Session]
	portMap  map[uint16]int
}

func newRegistry() *registry {
	return &registry{
		sessions: slab.New[*session.Session](protocol.SessionMax),
		portMap:  make(map[uint16]int),
	}
}

func (r *registry) get(id int) (*session.Session, bool) {
	return r.sessions.Get(id)
}

// insert registers sess under a freshly allocated session_id, or returns
// ok=false if the Slab is at SESSION_MAX.
func (r *registry) insert(sess *session.Session) (id int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok = r.sessions.Push(sess)
	if !ok {
		return 0, false
	}
	r.portMap[sess.Port] = id
	return id, true
}

// remove evicts session_id from both the Slab and the port map, and closes
// its Session (close cascade, spec.md §4.4).
func (r *registry) remove(id int) {
	r.mu.Lock()
	sess, ok := r.sessions.Remove(id)
	if ok {
		delete(r.portMap, sess.Port)
	}
	r.mu.Unlock()

	if ok {
		sess.Close()
	}
}

// evictPort tears down whatever session currently owns port, if any, so a
// new bind attempt on the same port can succeed (spec.md §4.4 step 4's
// "bind listener with conflict-eviction retry").
func (r *registry) evictPort(port uint16) {
	r.mu.Lock()
	id, ok := r.portMap[port]
	var sess *session.Session
	if ok {
		sess, _ = r.sessions.Remove(id)
		delete(r.portMap, port)
	}
	r.mu.Unlock()

	if sess != nil {
		sess.Close()
	}
}
