package game

import (
	"errors"
	"testing"
	"time"
)

func TestJoinRoomErrors(t *testing.T) {
	opts := testOptions()
	opts.MaxTeams = 3

	reg, s, _ := newTestRoom(t, opts, "G1")
	code := s.Code()

	tests := []struct {
		name    string
		code    string
		id      string
		display string
		want    error
	}{
		{"unknown code", "ZZZZZZ", "x", "X", ErrNotFound},
		{"duplicate name", code, "x", "G1", ErrDuplicate},
		{"duplicate host name", code, "x", "H", ErrDuplicate},
		{"duplicate id", code, "G1", "Other", ErrDuplicate},
		{"blank name", code, "x", "   ", ErrInvalid},
		{"long name", code, "x", "abcdefghijklmnopqrstuvwxyz", ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(s.Roster())
			_, err := reg.JoinRoom(tt.code, tt.id, tt.display)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if after := len(s.Roster()); after != before {
				t.Errorf("roster changed from %d to %d", before, after)
			}
		})
	}

	if _, err := reg.JoinRoom(code, "G2", "G2"); err != nil {
		t.Fatalf("third team: %v", err)
	}
	if _, err := reg.JoinRoom(code, "G3", "G3"); !errors.Is(err, ErrCapacity) {
		t.Errorf("join into full room = %v, want capacity", err)
	}
}

func TestJoinAfterStartIsRejected(t *testing.T) {
	reg, s, _ := newTestRoom(t, testOptions(), "G1")
	if err := s.Start("host"); err != nil {
		t.Fatal(err)
	}

	if _, err := reg.JoinRoom(s.Code(), "late", "Late"); !errors.Is(err, ErrStarted) {
		t.Errorf("late join = %v, want started", err)
	}
}

func TestJoinTrimsName(t *testing.T) {
	reg, s, rec := newTestRoom(t, testOptions())

	team, err := reg.JoinRoom(s.Code(), "g", "  Alpha ")
	if err != nil {
		t.Fatal(err)
	}
	if team.Name != "Alpha" || team.Role != RoleGuesser {
		t.Errorf("team = %+v", team)
	}

	accepted := rec.ofType("g", EventJoinAccepted)
	if len(accepted) != 1 || accepted[0].(RoomJoinedEvent).Code != s.Code() {
		t.Errorf("joinAccepted = %+v", accepted)
	}
	if n := len(rec.ofType("host", EventRosterChanged)); n != 2 {
		t.Errorf("host saw %d rosterChanged events, want 2", n)
	}
}

func TestCreateRoomRegeneratesCollidingCode(t *testing.T) {
	rec := newRecorder()
	reg := NewRegistry(testOptions(), rec)

	codes := []string{"AAAAAA", "AAAAAA", "AAAAAA", "BBBBBB"}
	reg.newCode = func() string {
		c := codes[0]
		codes = codes[1:]
		return c
	}

	first, _, err := reg.CreateRoom("h1", "One")
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := reg.CreateRoom("h2", "Two")
	if err != nil {
		t.Fatal(err)
	}

	if first != "AAAAAA" || second != "BBBBBB" {
		t.Errorf("codes = %s, %s; want AAAAAA, BBBBBB", first, second)
	}
	if reg.Len() != 2 {
		t.Errorf("registry has %d rooms", reg.Len())
	}
}

func TestCreateRoomAnnouncesHost(t *testing.T) {
	rec := newRecorder()
	reg := NewRegistry(testOptions(), rec)

	code, host, err := reg.CreateRoom("h", "Host")
	if err != nil {
		t.Fatal(err)
	}
	if host.Role != RoleCreator || host.Name != "Host" {
		t.Errorf("host = %+v", host)
	}
	if len(code) != 6 {
		t.Errorf("code %q has length %d", code, len(code))
	}

	types := rec.types("h")
	if len(types) != 2 || types[0] != EventRoomCreated || types[1] != EventRosterChanged {
		t.Errorf("host events = %v", types)
	}
}

func TestMaxRooms(t *testing.T) {
	opts := testOptions()
	opts.MaxRooms = 1
	reg := NewRegistry(opts, newRecorder())

	if _, _, err := reg.CreateRoom("a", "A"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := reg.CreateRoom("b", "B"); !errors.Is(err, ErrCapacity) {
		t.Errorf("second room = %v, want capacity", err)
	}
}

func TestHostLeavingClosesRoom(t *testing.T) {
	opts := testOptions()
	rec := newRecorder()
	reg := NewRegistry(opts, rec)
	reg.newCode = func() string { return "ROOM42" }

	code, _, err := reg.CreateRoom("host", "H")
	if err != nil {
		t.Fatal(err)
	}
	for _, g := range []string{"G1", "G2"} {
		if _, err := reg.JoinRoom(code, g, g); err != nil {
			t.Fatal(err)
		}
	}
	s, _ := reg.Session(code)
	startGuessing(t, s, threeElementSecret())

	reg.RemoveParticipant(code, "host")

	for _, g := range []string{"G1", "G2"} {
		closed := rec.ofType(g, EventRoomClosed)
		if len(closed) != 1 {
			t.Errorf("%s got %d roomClosed events", g, len(closed))
		}
	}
	if n := len(rec.ofType("host", EventRoomClosed)); n != 0 {
		t.Errorf("departed host got %d roomClosed events", n)
	}
	if !s.Closed() {
		t.Error("session still open")
	}
	if err := s.SubmitGuess("G1", NewBill()); !errors.Is(err, ErrNotFound) {
		t.Errorf("guess into closed room = %v, want notFound", err)
	}

	again, _, err := reg.CreateRoom("host2", "H")
	if err != nil {
		t.Fatalf("code was not released: %v", err)
	}
	if again != code {
		t.Errorf("code = %s, want reused %s", again, code)
	}
}

func TestRemoveUnknownParticipantIsNoop(t *testing.T) {
	reg, s, _ := newTestRoom(t, testOptions(), "G1")

	reg.RemoveParticipant(s.Code(), "ghost")
	reg.RemoveParticipant("NOPE00", "G1")

	if n := len(s.Roster()); n != 2 {
		t.Errorf("roster size = %d", n)
	}
}

func TestReapClosesIdleRooms(t *testing.T) {
	reg, s, rec := newTestRoom(t, testOptions(), "G1")

	if n := reg.Reap(time.Now().Add(-time.Hour)); n != 0 {
		t.Errorf("reaped %d fresh rooms", n)
	}
	if n := reg.Reap(time.Now().Add(time.Second)); n != 1 {
		t.Errorf("reaped %d rooms, want 1", n)
	}

	if reg.Len() != 0 || !s.Closed() {
		t.Error("idle room still live")
	}
	if n := len(rec.ofType("G1", EventRoomClosed)); n != 1 {
		t.Errorf("G1 got %d roomClosed events", n)
	}
}

func TestCloseReleasesCode(t *testing.T) {
	reg, s, _ := newTestRoom(t, testOptions(), "G1")

	if !reg.Close(s.Code(), "shutdown") {
		t.Fatal("Close reported no room")
	}
	if reg.Close(s.Code(), "shutdown") {
		t.Error("second Close found the room again")
	}
	if _, err := reg.Session(s.Code()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Session after Close = %v", err)
	}
}

func TestCloseAllTearsDownEveryRoom(t *testing.T) {
	reg, s, rec := newTestRoom(t, testOptions(), "G1")

	if _, _, err := reg.CreateRoom("other", "O"); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	if n := reg.CloseAll("server shutting down"); n != 2 {
		t.Errorf("closed %d rooms, want 2", n)
	}
	if reg.Len() != 0 || !s.Closed() {
		t.Error("rooms still live after CloseAll")
	}
	for _, id := range []string{"host", "G1", "other"} {
		if n := len(rec.ofType(id, EventRoomClosed)); n != 1 {
			t.Errorf("%s got %d roomClosed events, want 1", id, n)
		}
	}
}

func TestRotatedCreatorLeavingClosesRoom(t *testing.T) {
	opts := testOptions()
	opts.CreatorPolicy = CreatorRotating
	opts.MaxRounds = 1

	reg, s, rec := newTestRoom(t, opts, "G1", "G2")
	code := s.Code()

	startGuessing(t, s, threeElementSecret())
	playRound(t, s, NewBill(), "G1", "G2")
	if err := s.AdvanceRound("host"); err != nil {
		t.Fatal(err)
	}
	if err := s.AdvanceStage("host"); err != nil {
		t.Fatal(err)
	}
	if got := s.CreatorID(); got != "G1" {
		t.Fatalf("creator = %s, want G1", got)
	}

	reg.RemoveParticipant(code, "G1")

	if !s.Closed() {
		t.Fatal("room still open after the creator left")
	}
	for _, id := range []string{"host", "G2"} {
		if n := len(rec.ofType(id, EventRoomClosed)); n != 1 {
			t.Errorf("%s got %d roomClosed events, want 1", id, n)
		}
	}
	if n := len(rec.ofType("G1", EventRoomClosed)); n != 0 {
		t.Errorf("departed creator got %d roomClosed events", n)
	}
	if reg.Len() != 0 {
		t.Errorf("registry still holds %d room(s)", reg.Len())
	}
	if _, err := reg.Session(code); !errors.Is(err, ErrNotFound) {
		t.Errorf("Session(%s) = %v, want notFound", code, err)
	}
}
