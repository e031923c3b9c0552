package game

import (
	"fmt"
	"time"
)

// CreatorPolicy decides who builds the secret bill for each stage.
type CreatorPolicy string

const (
	// CreatorFixed keeps the host as creator for the whole game.
	CreatorFixed CreatorPolicy = "fixed"
	// CreatorRotating walks the roster in join order, one creator per stage.
	CreatorRotating CreatorPolicy = "rotating"
)

// ResetPolicy decides what happens to the roster on resetGame.
type ResetPolicy string

const (
	ResetKeepRoster  ResetPolicy = "keep"
	ResetPruneToHost ResetPolicy = "host"
)

// Options configures one variant of the game. The zero value is not usable;
// start from DefaultOptions.
type Options struct {
	MaxStages    int
	MaxRounds    int
	TimeLimit    int
	TickInterval time.Duration
	MaxTeams     int
	MaxRooms     int
	MinGuessers  int
	CodeLength   int

	CreatorPolicy CreatorPolicy
	ResetPolicy   ResetPolicy

	// Logf receives verbose diagnostics. Nil disables logging.
	Logf func(format string, args ...any)
}

func DefaultOptions() Options {
	return Options{
		MaxStages:     3,
		MaxRounds:     5,
		TimeLimit:     30,
		TickInterval:  time.Second,
		MaxTeams:      10,
		MaxRooms:      1000,
		MinGuessers:   1,
		CodeLength:    6,
		CreatorPolicy: CreatorFixed,
		ResetPolicy:   ResetKeepRoster,
	}
}

// Validate reports the first invalid field.
func (o Options) Validate() error {
	switch {
	case o.MaxStages < 1:
		return fmt.Errorf("stages must be at least 1: %d", o.MaxStages)
	case o.MaxRounds < 1:
		return fmt.Errorf("rounds must be at least 1: %d", o.MaxRounds)
	case o.TimeLimit < 1:
		return fmt.Errorf("time limit must be at least 1: %d", o.TimeLimit)
	case o.TickInterval <= 0:
		return fmt.Errorf("tick interval must be positive: %s", o.TickInterval)
	case o.MaxTeams < 2:
		return fmt.Errorf("max teams must be at least 2: %d", o.MaxTeams)
	case o.MaxRooms < 1:
		return fmt.Errorf("max rooms must be at least 1: %d", o.MaxRooms)
	case o.MinGuessers < 1 || o.MinGuessers >= o.MaxTeams:
		return fmt.Errorf("min guessers must be between 1 and %d: %d", o.MaxTeams-1, o.MinGuessers)
	case o.CodeLength < 4:
		return fmt.Errorf("room code length must be at least 4: %d", o.CodeLength)
	}

	switch o.CreatorPolicy {
	case CreatorFixed, CreatorRotating:
	default:
		return fmt.Errorf("unknown creator policy %q", o.CreatorPolicy)
	}

	switch o.ResetPolicy {
	case ResetKeepRoster, ResetPruneToHost:
	default:
		return fmt.Errorf("unknown reset policy %q", o.ResetPolicy)
	}

	return nil
}

func (o Options) logf(format string, args ...any) {
	if o.Logf != nil {
		o.Logf(format, args...)
	}
}
