package game

import "errors"

// Outbox delivers events to a single connection. Sessions call Send while
// holding their lock, so implementations must not block and must not call
// back into the session or the registry.
type Outbox interface {
	Send(teamID string, event any)
}

// Event type discriminators, sent as the "type" field.
const (
	EventRoomCreated        = "roomCreated"
	EventJoinAccepted       = "joinAccepted"
	EventRosterChanged      = "rosterChanged"
	EventParticipantLeft    = "participantLeft"
	EventRoomClosed         = "roomClosed"
	EventGameStarted        = "gameStarted"
	EventEnteredGuessing    = "enteredGuessing"
	EventTimerTick          = "timerTick"
	EventSubmissionProgress = "submissionProgress"
	EventRoundResolved      = "roundResolved"
	EventStageComplete      = "stageComplete"
	EventNextRoundEntered   = "nextRoundEntered"
	EventNextStageEntered   = "nextStageEntered"
	EventFinalResults       = "finalResults"
	EventGameReset          = "gameReset"
	EventError              = "error"
)

// TeamView is the public face of a Team.
type TeamView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
	Host bool   `json:"host"`
}

// RoomJoinedEvent answers createRoom (roomCreated) and joinRoom (joinAccepted).
type RoomJoinedEvent struct {
	Type string   `json:"type"`
	Code string   `json:"code"`
	Team TeamView `json:"team"`
}

type RosterChangedEvent struct {
	Type   string     `json:"type"`
	Code   string     `json:"code"`
	Phase  Phase      `json:"phase"`
	Roster []TeamView `json:"roster"`
}

type ParticipantLeftEvent struct {
	Type   string     `json:"type"`
	Roster []TeamView `json:"roster"`
	Who    TeamView   `json:"who"`
}

type RoomClosedEvent struct {
	Type   string `json:"type"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

type GameStartedEvent struct {
	Type      string     `json:"type"`
	Stage     int        `json:"stage"`
	Round     int        `json:"round"`
	MaxStages int        `json:"maxStages"`
	MaxRounds int        `json:"maxRounds"`
	Creator   TeamView   `json:"creator"`
	Roster    []TeamView `json:"roster"`
}

// GuessingEvent opens a guessing phase: enteredGuessing after a new secret,
// nextRoundEntered when a stage replays its secret.
type GuessingEvent struct {
	Type             string    `json:"type"`
	Stage            int       `json:"stage"`
	Round            int       `json:"round"`
	Creator          TeamView  `json:"creator"`
	UsedElementKinds []Element `json:"usedElementKinds"`
	UsedElementCount int       `json:"usedElementCount"`
	TimeLimit        int       `json:"timeLimit"`
}

type TimerTickEvent struct {
	Type      string `json:"type"`
	Remaining int    `json:"remaining"`
}

type SubmissionProgressEvent struct {
	Type           string   `json:"type"`
	SubmittedCount int      `json:"submittedCount"`
	RequiredCount  int      `json:"requiredCount"`
	SubmittedNames []string `json:"submittedNames"`
}

// GuesserResult is one row of roundResolved. Submission and MatchedPositions
// are only filled in for viewers allowed to see them.
type GuesserResult struct {
	TeamID              string `json:"teamId"`
	Name                string `json:"name"`
	MatchCount          int    `json:"matchCount"`
	TotalPositions      int    `json:"totalPositions"`
	MatchedPositions    []int  `json:"matchedPositions,omitempty"`
	DenominationCorrect *bool  `json:"denominationCorrect,omitempty"`
	Submission          *Bill  `json:"submission,omitempty"`
	Perfect             bool   `json:"perfect"`
	TimedOut            bool   `json:"timedOut"`
}

type RoundResolvedEvent struct {
	Type       string          `json:"type"`
	Stage      int             `json:"stage"`
	Round      int             `json:"round"`
	Creator    TeamView        `json:"creator"`
	SecretBill *Bill           `json:"secretBill,omitempty"`
	Results    []GuesserResult `json:"results"`
	History    []TeamHistory   `json:"history"`
	LastRound  bool            `json:"lastRound"`
	LastStage  bool            `json:"lastStage"`
}

// StageTally sums one team's outcomes within a stage.
type StageTally struct {
	Stage   int `json:"stage"`
	Matches int `json:"matches"`
	Total   int `json:"total"`
	Perfect int `json:"perfect"`
	Rounds  int `json:"rounds"`
}

type TeamHistory struct {
	TeamID string       `json:"teamId"`
	Name   string       `json:"name"`
	Stages []StageTally `json:"stages"`
}

type StageCompleteEvent struct {
	Type           string        `json:"type"`
	CompletedStage int           `json:"completedStage"`
	NextStage      int           `json:"nextStage"`
	History        []TeamHistory `json:"history"`
}

type NextStageEvent struct {
	Type    string   `json:"type"`
	Stage   int      `json:"stage"`
	Round   int      `json:"round"`
	Creator TeamView `json:"creator"`
}

// FinalScore is one ranked row of finalResults.
type FinalScore struct {
	TeamID         string       `json:"teamId"`
	Name           string       `json:"name"`
	TotalMatches   int          `json:"totalMatches"`
	TotalPositions int          `json:"totalPositions"`
	PerfectRounds  int          `json:"perfectRounds"`
	RoundsPlayed   int          `json:"roundsPlayed"`
	Stages         []StageTally `json:"stages"`
}

type FinalResultsEvent struct {
	Type         string       `json:"type"`
	RankedScores []FinalScore `json:"rankedScores"`
	Winner       *FinalScore  `json:"winner,omitempty"`
}

type GameResetEvent struct {
	Type   string     `json:"type"`
	Reason string     `json:"reason"`
	Roster []TeamView `json:"roster"`
}

// ErrorEvent is sent only to the connection whose command failed.
type ErrorEvent struct {
	Type    string `json:"type"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// NewErrorEvent converts err into its wire form.
func NewErrorEvent(err error) ErrorEvent {
	ev := ErrorEvent{Type: EventError, Kind: "internal", Message: err.Error()}
	var e *Error
	if errors.As(err, &e) {
		ev.Kind = e.Kind
		ev.Message = e.Message
	}
	return ev
}
