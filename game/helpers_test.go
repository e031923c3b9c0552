package game

import (
	"encoding/json"
	"math/rand"
	"reflect"
	"sync"
	"testing"
	"time"
)

// recorder is an Outbox that keeps every event per recipient.
type recorder struct {
	mu     sync.Mutex
	events map[string][]any
}

func newRecorder() *recorder {
	return &recorder{events: make(map[string][]any)}
}

func (r *recorder) Send(teamID string, event any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[teamID] = append(r.events[teamID], event)
}

func eventType(ev any) string {
	data, err := json.Marshal(ev)
	if err != nil {
		return ""
	}
	var head struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(data, &head)
	return head.Type
}

// ofType returns every event of typ sent to teamID, oldest first.
func (r *recorder) ofType(teamID, typ string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []any
	for _, ev := range r.events[teamID] {
		if eventType(ev) == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) types(teamID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.events[teamID]))
	for _, ev := range r.events[teamID] {
		out = append(out, eventType(ev))
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.events)
}

// testOptions never lets the countdown fire on its own.
func testOptions() Options {
	opts := DefaultOptions()
	opts.TickInterval = time.Hour
	return opts
}

// newTestRoom creates a room hosted by "host" (name "H") and joins one
// guesser per name, using the name as the team id.
func newTestRoom(t *testing.T, opts Options, guessers ...string) (*Registry, *Session, *recorder) {
	t.Helper()

	rec := newRecorder()
	reg := NewRegistry(opts, rec)

	code, _, err := reg.CreateRoom("host", "H")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	for _, name := range guessers {
		if _, err := reg.JoinRoom(code, name, name); err != nil {
			t.Fatalf("JoinRoom(%s): %v", name, err)
		}
	}

	s, err := reg.Session(code)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	return reg, s, rec
}

func billOf(d Denomination, cells map[int]Element) Bill {
	b := Bill{Denomination: d}
	for i, e := range cells {
		b.Grid[i] = e
	}
	return b
}

func threeElementSecret() Bill {
	return billOf(Denomination10000, map[int]Element{
		0:  ElementPortrait,
		7:  ElementWatermark,
		14: ElementStamp,
	})
}

// startGuessing runs a room to the guessing phase with secret.
func startGuessing(t *testing.T, s *Session, secret Bill) {
	t.Helper()

	if err := s.Start("host"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.SubmitSecret("host", secret); err != nil {
		t.Fatalf("SubmitSecret: %v", err)
	}
	if got := s.Phase(); got != PhaseGuessing {
		t.Fatalf("phase = %s, want %s", got, PhaseGuessing)
	}
}

func waitForPhase(t *testing.T, s *Session, want Phase) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Phase() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("phase = %s after 2s, want %s", s.Phase(), want)
}

// Generate lets testing/quick produce structurally valid bills.
func (Bill) Generate(r *rand.Rand, _ int) reflect.Value {
	var b Bill
	for i := range b.Grid {
		if r.Intn(2) == 0 {
			b.Grid[i] = Elements[r.Intn(len(Elements))]
		}
	}
	b.Denomination = Denominations[r.Intn(len(Denominations))]
	return reflect.ValueOf(b)
}
