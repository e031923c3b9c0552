package game

// RoundOutcome is one guesser's score for one round.
type RoundOutcome struct {
	MatchCount          int   `json:"matchCount"`
	TotalPositions      int   `json:"totalPositions"`
	MatchedPositions    []int `json:"matchedPositions"`
	DenominationCorrect bool  `json:"denominationCorrect"`
}

// Perfect reports whether every scored position matched.
func (o RoundOutcome) Perfect() bool {
	return o.MatchCount == o.TotalPositions
}

// Evaluate scores guess against secret. Only cells the secret fills are
// scored; the denomination always counts as one more position.
func Evaluate(secret, guess Bill) RoundOutcome {
	out := RoundOutcome{MatchedPositions: []int{}}

	for i, want := range secret.Grid {
		if want == ElementNone {
			continue
		}
		out.TotalPositions++
		if guess.Grid[i] == want {
			out.MatchCount++
			out.MatchedPositions = append(out.MatchedPositions, i)
		}
	}

	out.TotalPositions++
	if secret.Denomination == guess.Denomination {
		out.MatchCount++
		out.DenominationCorrect = true
	}

	return out
}
