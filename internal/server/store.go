package server

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/carstage/carstage/pkg/depth"
	"github.com/carstage/carstage/pkg/session"
)

// SessionStore keeps the live placement sessions in memory. Sessions
// are cheap; eviction is left to server restarts.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
	depthCfg depth.Config
}

func NewSessionStore(cfg depth.Config) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*session.Session),
		depthCfg: cfg,
	}
}

// Create makes a fresh session and returns its id.
func (s *SessionStore) Create() (string, *session.Session) {
	id := newSessionID()
	sess := session.NewWithConfig(s.depthCfg)

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	return id, sess
}

// Get returns the session for an id, or nil.
func (s *SessionStore) Get(id string) *session.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// Delete removes a session.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func newSessionID() string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}
