package realtime

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// Registry answers "is this recipient currently reachable, and through which
// connection?". It is process-local only: every entry disappears on restart
// and clients are expected to rejoin.
type Registry struct {
	mu     sync.RWMutex
	users  map[uuid.UUID]Conn
	admins map[Conn]bool
}

func NewRegistry() *Registry {
	return &Registry{
		users:  make(map[uuid.UUID]Conn),
		admins: make(map[Conn]bool),
	}
}

// RegisterUser associates a user with a connection, last writer wins. A user
// with multiple tabs only receives pushes on the most recently joined one.
// Any prior user entry held by the same connection is dropped so a connection
// never stands in for two identities.
func (r *Registry) RegisterUser(userID uuid.UUID, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.users {
		if c == conn && id != userID {
			delete(r.users, id)
		}
	}
	r.users[userID] = conn
	log.Printf("presence: user %s joined (users online: %d)", userID, len(r.users))
}

// RegisterAdmin adds a connection to the admin set.
func (r *Registry) RegisterAdmin(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admins[conn] = true
	log.Printf("presence: admin joined (admins online: %d)", len(r.admins))
}

// Unregister removes any user mapping and admin membership held by conn.
// Idempotent: unregistering an unknown connection is a no-op.
func (r *Registry) Unregister(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.users {
		if c == conn {
			delete(r.users, id)
			log.Printf("presence: user %s left (users online: %d)", id, len(r.users))
		}
	}
	if r.admins[conn] {
		delete(r.admins, conn)
		log.Printf("presence: admin left (admins online: %d)", len(r.admins))
	}
}

// LookupUser returns the live connection for a user, if any.
func (r *Registry) LookupUser(userID uuid.UUID) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.users[userID]
	return conn, ok
}

// AdminConns returns a snapshot of all admin connections.
func (r *Registry) AdminConns() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]Conn, 0, len(r.admins))
	for c := range r.admins {
		conns = append(conns, c)
	}
	return conns
}
