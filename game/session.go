package game

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// Phase is the session's position in the round/stage state machine.
type Phase string

const (
	PhaseLobby        Phase = "lobby"
	PhaseCreating     Phase = "creating"
	PhaseGuessing     Phase = "guessing"
	PhaseRoundResult  Phase = "roundResult"
	PhaseStageWaiting Phase = "stageWaiting"
	PhaseFinal        Phase = "final"
)

type Role string

const (
	RoleCreator Role = "creator"
	RoleGuesser Role = "guesser"
)

// MaxNameLength bounds display names, in runes.
const MaxNameLength = 20

// Team is one participant in a room.
type Team struct {
	ID       string
	Name     string
	Role     Role
	JoinedAt time.Time
}

// Session is one room's game. Every exported method takes s.mu, and so do the
// countdown callbacks, which makes the lock the room's single mutation stream.
// Events are handed to the Outbox while the lock is held, so every
// participant observes them in the same order.
type Session struct {
	mu sync.Mutex

	code       string
	hostID     string
	createdAt  time.Time
	lastActive time.Time
	opts       Options
	out        Outbox

	roster     []*Team
	phase      Phase
	stage      int
	round      int
	creatorID  string
	creatorIdx int
	secret     *Bill
	usage      Usage
	tracker    *Tracker
	timedOut   map[string]bool
	history    map[string]map[int][]RoundOutcome
	final      []FinalScore
	countdown  *Countdown
	closed     bool
}

func newSession(code string, host Team, opts Options, out Outbox) *Session {
	now := time.Now()

	host.Role = RoleCreator
	host.JoinedAt = now

	s := &Session{
		code:       code,
		hostID:     host.ID,
		createdAt:  now,
		lastActive: now,
		opts:       opts,
		out:        out,
		roster:     []*Team{&host},
		phase:      PhaseLobby,
		creatorID:  host.ID,
		tracker:    NewTracker(),
		timedOut:   make(map[string]bool),
		history:    make(map[string]map[int][]RoundOutcome),
	}
	s.countdown = NewCountdown(&s.mu, opts.TickInterval)

	return s
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errorf(KindInvalid, "name must not be empty")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", errorf(KindInvalid, "name must be at most %d characters", MaxNameLength)
	}
	return name, nil
}

func (s *Session) Code() string { return s.code }

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Position returns the current stage and round.
func (s *Session) Position() (stage, round int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage, s.round
}

func (s *Session) Roster() []TeamView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rosterLocked()
}

func (s *Session) CreatorID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creatorID
}

// Secret returns a copy of the current secret bill, if one is set.
func (s *Session) Secret() (Bill, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.secret == nil {
		return Bill{}, false
	}
	return *s.secret, true
}

// History returns a copy of teamID's outcomes for stage.
func (s *Session) History(teamID string, stage int) []RoundOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history[teamID][stage])
}

// FinalScores returns the ranking computed on entering the final phase.
func (s *Session) FinalScores() []FinalScore {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.final)
}

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// announce tells the host the room exists. Called once by the registry.
func (s *Session) announce() {
	s.mu.Lock()
	defer s.mu.Unlock()

	host := s.roster[0]
	s.out.Send(host.ID, RoomJoinedEvent{
		Type: EventRoomCreated,
		Code: s.code,
		Team: s.viewLocked(host),
	})
	s.broadcastRosterLocked()
}

func (s *Session) join(id, name string) (Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Team{}, errorf(KindNotFound, "room %s no longer exists", s.code)
	}
	if s.phase != PhaseLobby {
		return Team{}, errorf(KindStarted, "the game in room %s has already started", s.code)
	}
	if len(s.roster) >= s.opts.MaxTeams {
		return Team{}, errorf(KindCapacity, "room %s is full (%d teams)", s.code, s.opts.MaxTeams)
	}
	for _, t := range s.roster {
		if t.ID == id {
			return Team{}, errorf(KindDuplicate, "already in room %s", s.code)
		}
		if t.Name == name {
			return Team{}, errorf(KindDuplicate, "the name %q is already taken", name)
		}
	}

	team := &Team{
		ID:       id,
		Name:     name,
		Role:     RoleGuesser,
		JoinedAt: time.Now(),
	}
	s.roster = append(s.roster, team)
	s.touchLocked()

	s.out.Send(id, RoomJoinedEvent{
		Type: EventJoinAccepted,
		Code: s.code,
		Team: s.viewLocked(team),
	})
	s.broadcastRosterLocked()

	s.opts.logf("GAMES: %q joined room %s", name, s.code)

	return *team, nil
}

// Start moves the lobby into the first creating phase.
func (s *Session) Start(teamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHostLocked(teamID); err != nil {
		return err
	}
	if err := s.requirePhaseLocked(PhaseLobby); err != nil {
		return err
	}

	creatorIdx := 0
	if s.opts.CreatorPolicy == CreatorFixed {
		creatorIdx = s.indexLocked(s.hostID)
	}
	if guessers := len(s.roster) - 1; guessers < s.opts.MinGuessers {
		return errorf(KindComposition, "need at least %d guesser(s) to start, have %d", s.opts.MinGuessers, guessers)
	}

	s.creatorIdx = creatorIdx
	s.creatorID = s.roster[creatorIdx].ID
	s.assignRolesLocked()

	s.stage, s.round = 1, 1
	s.secret = nil
	s.usage = Usage{}
	s.final = nil
	clear(s.history)
	s.phase = PhaseCreating
	s.touchLocked()

	s.broadcastLocked(GameStartedEvent{
		Type:      EventGameStarted,
		Stage:     s.stage,
		Round:     s.round,
		MaxStages: s.opts.MaxStages,
		MaxRounds: s.opts.MaxRounds,
		Creator:   s.creatorViewLocked(),
		Roster:    s.rosterLocked(),
	})

	s.opts.logf("GAMES: Room %s started with %d teams", s.code, len(s.roster))

	return nil
}

// SubmitSecret records the creator's bill and opens guessing.
func (s *Session) SubmitSecret(teamID string, bill Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.memberLocked(teamID); err != nil {
		return err
	}
	if err := s.requirePhaseLocked(PhaseCreating); err != nil {
		return err
	}
	if teamID != s.creatorID {
		return errorf(KindAuthorization, "only the current creator may submit the secret bill")
	}
	if err := bill.Validate(); err != nil {
		return err
	}
	if bill.Placed() == 0 {
		return errorf(KindInvalid, "place at least one element on the bill")
	}

	s.secret = &bill
	s.usage = bill.Usage()
	s.touchLocked()

	s.opts.logf("GAMES: Secret bill set in room %s (stage %d, %d elements)", s.code, s.stage, s.usage.Count)

	s.enterGuessingLocked(EventEnteredGuessing)

	return nil
}

// SubmitGuess records a guesser's bill, resolving the round once every
// guesser has submitted.
func (s *Session) SubmitGuess(teamID string, bill Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	team, err := s.memberLocked(teamID)
	if err != nil {
		return err
	}
	if err := s.requirePhaseLocked(PhaseGuessing); err != nil {
		return err
	}
	if teamID == s.creatorID {
		return errorf(KindAuthorization, "the creator does not submit guesses")
	}
	if err := bill.Validate(); err != nil {
		return err
	}
	if err := s.tracker.Record(teamID, bill); err != nil {
		return err
	}
	s.touchLocked()

	s.opts.logf("GAMES: %q submitted a guess in room %s", team.Name, s.code)

	s.broadcastProgressLocked()
	if s.tracker.IsComplete(s.guesserIDsLocked()) {
		s.resolveLocked()
	}

	return nil
}

// AdvanceRound leaves roundResult for the next round, the stage break, or the
// final results.
func (s *Session) AdvanceRound(teamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHostLocked(teamID); err != nil {
		return err
	}
	if err := s.requirePhaseLocked(PhaseRoundResult); err != nil {
		return err
	}
	s.touchLocked()

	nextStage, nextRound := s.stage, s.round+1
	if nextRound > s.opts.MaxRounds {
		nextStage, nextRound = nextStage+1, 1
	}

	switch {
	case nextStage > s.opts.MaxStages:
		s.finishLocked()

	case nextStage != s.stage:
		completed := s.stage
		s.stage, s.round = nextStage, nextRound
		s.secret = nil
		s.usage = Usage{}
		s.tracker.Reset(s.creatorID)
		s.phase = PhaseStageWaiting

		s.broadcastLocked(StageCompleteEvent{
			Type:           EventStageComplete,
			CompletedStage: completed,
			NextStage:      nextStage,
			History:        s.historyLocked(),
		})

	default:
		s.round = nextRound
		s.enterGuessingLocked(EventNextRoundEntered)
	}

	return nil
}

// AdvanceStage leaves stageWaiting for a fresh creating phase.
func (s *Session) AdvanceStage(teamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHostLocked(teamID); err != nil {
		return err
	}
	if err := s.requirePhaseLocked(PhaseStageWaiting); err != nil {
		return err
	}

	s.secret = nil
	s.usage = Usage{}
	if s.opts.CreatorPolicy == CreatorRotating {
		s.creatorIdx = (s.creatorIdx + 1) % len(s.roster)
		s.creatorID = s.roster[s.creatorIdx].ID
		s.assignRolesLocked()
	}
	s.phase = PhaseCreating
	s.touchLocked()

	s.broadcastLocked(NextStageEvent{
		Type:    EventNextStageEntered,
		Stage:   s.stage,
		Round:   s.round,
		Creator: s.creatorViewLocked(),
	})

	return nil
}

// Reset returns the room to the lobby from any phase.
func (s *Session) Reset(teamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHostLocked(teamID); err != nil {
		return err
	}
	s.touchLocked()
	s.resetLocked("reset by host", s.opts.ResetPolicy == ResetPruneToHost)

	return nil
}

// Leave removes teamID from the roster. It reports true when the room was torn
// down because the host or the current creator left.
func (s *Session) Leave(teamID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return true
	}
	idx := s.indexLocked(teamID)
	if idx < 0 {
		return false
	}
	team := s.roster[idx]

	if teamID == s.hostID || (s.phase != PhaseLobby && teamID == s.creatorID) {
		s.teardownLocked(fmt.Sprintf("%s left the room", team.Name), teamID)
		return true
	}

	s.roster = slices.Delete(s.roster, idx, idx+1)
	if idx < s.creatorIdx {
		s.creatorIdx--
	}
	delete(s.history, teamID)
	delete(s.timedOut, teamID)
	s.tracker.Forget(teamID)
	s.touchLocked()

	s.broadcastLocked(ParticipantLeftEvent{
		Type:   EventParticipantLeft,
		Roster: s.rosterLocked(),
		Who:    s.viewLocked(team),
	})

	s.opts.logf("GAMES: %q left room %s", team.Name, s.code)

	switch {
	case s.phase == PhaseLobby:
	case len(s.guesserIDsLocked()) == 0:
		s.resetLocked("no guessers left", false)
	case s.phase == PhaseGuessing:
		s.broadcastProgressLocked()
		if s.tracker.IsComplete(s.guesserIDsLocked()) {
			s.resolveLocked()
		}
	}

	return false
}

// Close tears the room down, notifying everyone still in it.
func (s *Session) Close(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.teardownLocked(reason, "")
}

func (s *Session) enterGuessingLocked(eventType string) {
	s.tracker.Reset(s.creatorID)
	clear(s.timedOut)
	s.phase = PhaseGuessing

	s.broadcastLocked(GuessingEvent{
		Type:             eventType,
		Stage:            s.stage,
		Round:            s.round,
		Creator:          s.creatorViewLocked(),
		UsedElementKinds: slices.Clone(s.usage.Kinds),
		UsedElementCount: s.usage.Count,
		TimeLimit:        s.opts.TimeLimit,
	})

	s.countdown.Start(s.opts.TimeLimit, s.tickLocked, s.expireLocked)
}

func (s *Session) tickLocked(remaining int) {
	s.broadcastLocked(TimerTickEvent{
		Type:      EventTimerTick,
		Remaining: remaining,
	})
}

// expireLocked runs when the countdown reaches zero. Guessers who never
// submitted get a BlankBill.
func (s *Session) expireLocked() {
	if s.closed || s.phase != PhaseGuessing {
		return
	}

	for _, id := range s.guesserIDsLocked() {
		if _, ok := s.tracker.Bill(id); ok {
			continue
		}
		s.tracker.Fill(id, BlankBill())
		s.timedOut[id] = true
	}
	s.touchLocked()

	s.opts.logf("GAMES: Time expired in room %s (stage %d, round %d)", s.code, s.stage, s.round)

	s.resolveLocked()
}

type resolvedRow struct {
	team     *Team
	bill     Bill
	outcome  RoundOutcome
	timedOut bool
}

// resolveLocked scores the round exactly once; callers have already checked
// that the phase is guessing.
func (s *Session) resolveLocked() {
	s.countdown.Stop()
	s.phase = PhaseRoundResult

	rows := make([]resolvedRow, 0, len(s.roster))
	for _, t := range s.guessersLocked() {
		bill, ok := s.tracker.Bill(t.ID)
		if !ok {
			bill = BlankBill()
		}
		outcome := Evaluate(*s.secret, bill)

		if s.history[t.ID] == nil {
			s.history[t.ID] = make(map[int][]RoundOutcome)
		}
		s.history[t.ID][s.stage] = append(s.history[t.ID][s.stage], outcome)

		rows = append(rows, resolvedRow{
			team:     t,
			bill:     bill,
			outcome:  outcome,
			timedOut: !ok || s.timedOut[t.ID],
		})
	}

	history := s.historyLocked()
	for _, viewer := range s.roster {
		s.out.Send(viewer.ID, s.resolvedViewLocked(viewer, rows, history))
	}

	s.opts.logf("GAMES: Resolved stage %d round %d in room %s", s.stage, s.round, s.code)
}

// resolvedViewLocked builds roundResolved for one viewer. Only the creator
// sees the secret and every submission; a guesser sees their own graded
// submission and the bare counts of everyone else.
func (s *Session) resolvedViewLocked(viewer *Team, rows []resolvedRow, history []TeamHistory) RoundResolvedEvent {
	isCreator := viewer.ID == s.creatorID

	ev := RoundResolvedEvent{
		Type:      EventRoundResolved,
		Stage:     s.stage,
		Round:     s.round,
		Creator:   s.creatorViewLocked(),
		Results:   make([]GuesserResult, 0, len(rows)),
		History:   history,
		LastRound: s.round >= s.opts.MaxRounds,
		LastStage: s.stage >= s.opts.MaxStages,
	}
	if isCreator {
		secret := *s.secret
		ev.SecretBill = &secret
	}

	for _, row := range rows {
		gr := GuesserResult{
			TeamID:         row.team.ID,
			Name:           row.team.Name,
			MatchCount:     row.outcome.MatchCount,
			TotalPositions: row.outcome.TotalPositions,
			Perfect:        row.outcome.Perfect(),
			TimedOut:       row.timedOut,
		}
		if isCreator || row.team.ID == viewer.ID {
			bill := row.bill
			denomination := row.outcome.DenominationCorrect
			gr.Submission = &bill
			gr.MatchedPositions = slices.Clone(row.outcome.MatchedPositions)
			gr.DenominationCorrect = &denomination
		}
		ev.Results = append(ev.Results, gr)
	}

	return ev
}

func (s *Session) finishLocked() {
	s.countdown.Stop()
	s.phase = PhaseFinal
	s.secret = nil
	s.usage = Usage{}
	s.final = rankScores(s.roster, s.history, s.opts.MaxStages)

	ev := FinalResultsEvent{
		Type:         EventFinalResults,
		RankedScores: slices.Clone(s.final),
	}
	if len(s.final) > 0 {
		winner := s.final[0]
		ev.Winner = &winner
		s.opts.logf("GAMES: Room %s finished, winner %q", s.code, winner.Name)
	}

	s.broadcastLocked(ev)
}

func (s *Session) resetLocked(reason string, prune bool) {
	s.countdown.Stop()

	s.phase = PhaseLobby
	s.stage, s.round = 0, 0
	s.secret = nil
	s.usage = Usage{}
	s.final = nil
	clear(s.history)
	clear(s.timedOut)
	s.creatorID = s.hostID
	s.creatorIdx = s.indexLocked(s.hostID)
	s.tracker.Reset(s.hostID)

	if prune {
		kept := s.roster[:0]
		for _, t := range s.roster {
			if t.ID == s.hostID {
				kept = append(kept, t)
				continue
			}
			s.out.Send(t.ID, RoomClosedEvent{
				Type:   EventRoomClosed,
				Code:   s.code,
				Reason: "reset",
			})
		}
		s.roster = kept
		s.creatorIdx = 0
	}
	s.assignRolesLocked()

	s.broadcastLocked(GameResetEvent{
		Type:   EventGameReset,
		Reason: reason,
		Roster: s.rosterLocked(),
	})

	s.opts.logf("GAMES: Room %s reset (%s)", s.code, reason)
}

func (s *Session) teardownLocked(reason, except string) {
	s.countdown.Stop()
	s.closed = true

	for _, t := range s.roster {
		if t.ID == except {
			continue
		}
		s.out.Send(t.ID, RoomClosedEvent{
			Type:   EventRoomClosed,
			Code:   s.code,
			Reason: reason,
		})
	}
	s.roster = nil

	s.opts.logf("GAMES: Closed room %s (%s)", s.code, reason)
}

func (s *Session) touchLocked() {
	s.lastActive = time.Now()
}

func (s *Session) indexLocked(teamID string) int {
	return slices.IndexFunc(s.roster, func(t *Team) bool { return t.ID == teamID })
}

func (s *Session) memberLocked(teamID string) (*Team, error) {
	if s.closed {
		return nil, errorf(KindNotFound, "room %s no longer exists", s.code)
	}
	idx := s.indexLocked(teamID)
	if idx < 0 {
		return nil, errorf(KindNotFound, "not a member of room %s", s.code)
	}
	return s.roster[idx], nil
}

func (s *Session) requireHostLocked(teamID string) error {
	if _, err := s.memberLocked(teamID); err != nil {
		return err
	}
	if teamID != s.hostID {
		return errorf(KindAuthorization, "only the host may do that")
	}
	return nil
}

func (s *Session) requirePhaseLocked(want Phase) error {
	if s.phase != want {
		return errorf(KindPhase, "not allowed during %s (needs %s)", s.phase, want)
	}
	return nil
}

func (s *Session) assignRolesLocked() {
	for _, t := range s.roster {
		if t.ID == s.creatorID {
			t.Role = RoleCreator
		} else {
			t.Role = RoleGuesser
		}
	}
}

func (s *Session) guessersLocked() []*Team {
	out := make([]*Team, 0, len(s.roster))
	for _, t := range s.roster {
		if t.Role == RoleGuesser {
			out = append(out, t)
		}
	}
	return out
}

func (s *Session) guesserIDsLocked() []string {
	guessers := s.guessersLocked()
	ids := make([]string, len(guessers))
	for i, t := range guessers {
		ids[i] = t.ID
	}
	return ids
}

func (s *Session) viewLocked(t *Team) TeamView {
	return TeamView{
		ID:   t.ID,
		Name: t.Name,
		Role: t.Role,
		Host: t.ID == s.hostID,
	}
}

func (s *Session) creatorViewLocked() TeamView {
	if idx := s.indexLocked(s.creatorID); idx >= 0 {
		return s.viewLocked(s.roster[idx])
	}
	return TeamView{}
}

func (s *Session) rosterLocked() []TeamView {
	views := make([]TeamView, len(s.roster))
	for i, t := range s.roster {
		views[i] = s.viewLocked(t)
	}
	return views
}

func (s *Session) broadcastLocked(ev any) {
	for _, t := range s.roster {
		s.out.Send(t.ID, ev)
	}
}

func (s *Session) broadcastRosterLocked() {
	s.broadcastLocked(RosterChangedEvent{
		Type:   EventRosterChanged,
		Code:   s.code,
		Phase:  s.phase,
		Roster: s.rosterLocked(),
	})
}

func (s *Session) broadcastProgressLocked() {
	p := s.tracker.Progress(s.guessersLocked())
	s.broadcastLocked(SubmissionProgressEvent{
		Type:           EventSubmissionProgress,
		SubmittedCount: p.SubmittedCount,
		RequiredCount:  p.RequiredCount,
		SubmittedNames: p.SubmittedNames,
	})
}
