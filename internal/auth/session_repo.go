package auth

import (
	"sync"
	"time"
)

// MemorySessionRepo holds sessions for the lifetime of the process.
type MemorySessionRepo struct {
	mu                   sync.RWMutex
	sessionsByID         map[string]Session
	sessionIDByTokenHash map[string]string
}

func NewMemorySessionRepo() *MemorySessionRepo {
	return &MemorySessionRepo{
		sessionsByID:         map[string]Session{},
		sessionIDByTokenHash: map[string]string{},
	}
}

func (r *MemorySessionRepo) CreateSession(s Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessionsByID[s.ID] = s
	r.sessionIDByTokenHash[s.TokenHash] = s.ID
	return nil
}

func (r *MemorySessionRepo) GetSessionByTokenHash(tokenHash string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.sessionIDByTokenHash[tokenHash]
	if !ok {
		return Session{}, false
	}
	s, ok := r.sessionsByID[id]
	return s, ok
}

func (r *MemorySessionRepo) DeleteSessionByID(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessionsByID[sessionID]
	if !ok {
		return
	}
	delete(r.sessionsByID, sessionID)
	delete(r.sessionIDByTokenHash, s.TokenHash)
}

func (r *MemorySessionRepo) DeleteSessionByTokenHash(tokenHash string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.sessionIDByTokenHash[tokenHash]
	if !ok {
		return
	}
	delete(r.sessionIDByTokenHash, tokenHash)
	delete(r.sessionsByID, id)
}

func (r *MemorySessionRepo) TouchSession(sessionID string, lastSeen time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessionsByID[sessionID]
	if !ok {
		return
	}
	s.LastSeen = lastSeen
	r.sessionsByID[sessionID] = s
}

// PurgeExpired drops sessions that expired before now and returns how many.
func (r *MemorySessionRepo) PurgeExpired(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, s := range r.sessionsByID {
		if now.After(s.ExpiresAt) {
			delete(r.sessionsByID, id)
			delete(r.sessionIDByTokenHash, s.TokenHash)
			n++
		}
	}
	return n
}

func (r *MemorySessionRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessionsByID)
}
