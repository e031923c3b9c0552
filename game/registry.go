package game

import (
	"context"
	"crypto/rand"
	"sync"
	"time"
)

// CodeAlphabet omits characters that are easy to misread (0/O, 1/I).
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Registry maps short room codes to sessions. Adding and removing rooms is
// serialized by mu; each session serializes its own state.
type Registry struct {
	mu      sync.Mutex
	rooms   map[string]*Session
	opts    Options
	out     Outbox
	newCode func() string
}

func NewRegistry(opts Options, out Outbox) *Registry {
	return &Registry{
		rooms: make(map[string]*Session),
		opts:  opts,
		out:   out,
		newCode: func() string {
			return randomCode(opts.CodeLength)
		},
	}
}

func randomCode(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = CodeAlphabet[int(buf[i])%len(CodeAlphabet)]
	}
	return string(out)
}

// CreateRoom opens a room with hostID as host and creator.
func (r *Registry) CreateRoom(hostID, hostName string) (string, Team, error) {
	name, err := normalizeName(hostName)
	if err != nil {
		return "", Team{}, err
	}

	r.mu.Lock()
	if len(r.rooms) >= r.opts.MaxRooms {
		r.mu.Unlock()
		return "", Team{}, errorf(KindCapacity, "too many rooms open (%d)", r.opts.MaxRooms)
	}

	code := r.newCode()
	for {
		if _, exists := r.rooms[code]; !exists {
			break
		}
		code = r.newCode()
	}

	s := newSession(code, Team{ID: hostID, Name: name}, r.opts, r.out)
	r.rooms[code] = s
	host := *s.roster[0]
	r.mu.Unlock()

	s.announce()

	r.opts.logf("ROOMS: Created room %s for %q", code, name)

	return code, host, nil
}

// JoinRoom adds a guesser to the lobby of code.
func (r *Registry) JoinRoom(code, teamID, name string) (Team, error) {
	name, err := normalizeName(name)
	if err != nil {
		return Team{}, err
	}

	s, err := r.Session(code)
	if err != nil {
		return Team{}, err
	}

	return s.join(teamID, name)
}

// Session resolves a live room.
func (r *Registry) Session(code string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.rooms[code]
	if !ok {
		return nil, errorf(KindNotFound, "no room with code %q", code)
	}
	return s, nil
}

// RemoveParticipant takes teamID out of room code. When that tears the room
// down, the code is released immediately.
func (r *Registry) RemoveParticipant(code, teamID string) {
	s, err := r.Session(code)
	if err != nil {
		return
	}

	if s.Leave(teamID) {
		r.forget(code, s)
	}
}

// Close tears down room code and releases it.
func (r *Registry) Close(code, reason string) bool {
	s, err := r.Session(code)
	if err != nil {
		return false
	}

	s.Close(reason)
	r.forget(code, s)

	return true
}

func (r *Registry) forget(code string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[code] == s {
		delete(r.rooms, code)
	}
}

// Len counts live rooms.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// Reap closes every room idle since before cutoff and returns how many.
func (r *Registry) Reap(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for code, s := range r.rooms {
		if !s.LastActive().Before(cutoff) {
			continue
		}
		delete(r.rooms, code)
		s.Close("idle timeout")
		n++
	}
	return n
}

// CloseAll tears down every room with the given reason.
func (r *Registry) CloseAll(reason string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.rooms)
	for code, s := range r.rooms {
		delete(r.rooms, code)
		s.Close(reason)
	}
	return n
}

// Run reaps idle rooms until ctx is done.
func (r *Registry) Run(ctx context.Context, idle time.Duration) {
	if idle <= 0 {
		return
	}

	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Reap(time.Now().Add(-idle)); n > 0 {
				r.opts.logf("ROOMS: Reaped %d idle room(s)", n)
			}
		}
	}
}
