package game

import "sort"

func tallyStage(stage int, outcomes []RoundOutcome) StageTally {
	t := StageTally{Stage: stage}
	for _, o := range outcomes {
		t.Matches += o.MatchCount
		t.Total += o.TotalPositions
		t.Rounds++
		if o.Perfect() {
			t.Perfect++
		}
	}
	return t
}

func tallyStages(byStage map[int][]RoundOutcome, maxStages int) []StageTally {
	tallies := make([]StageTally, 0, maxStages)
	for stage := 1; stage <= maxStages; stage++ {
		tallies = append(tallies, tallyStage(stage, byStage[stage]))
	}
	return tallies
}

// historyLocked lists per-stage tallies for every team that has been scored
// at least once or is guessing now, in roster order.
func (s *Session) historyLocked() []TeamHistory {
	out := make([]TeamHistory, 0, len(s.roster))
	for _, t := range s.roster {
		byStage, scored := s.history[t.ID]
		if !scored && t.Role != RoleGuesser {
			continue
		}
		out = append(out, TeamHistory{
			TeamID: t.ID,
			Name:   t.Name,
			Stages: tallyStages(byStage, s.opts.MaxStages),
		})
	}
	return out
}

// rankScores totals every scored team across all stages and orders them by
// matches, then perfect rounds. Ties keep roster order.
func rankScores(roster []*Team, history map[string]map[int][]RoundOutcome, maxStages int) []FinalScore {
	scores := make([]FinalScore, 0, len(roster))
	for _, t := range roster {
		byStage, ok := history[t.ID]
		if !ok {
			continue
		}

		fs := FinalScore{
			TeamID: t.ID,
			Name:   t.Name,
			Stages: tallyStages(byStage, maxStages),
		}
		for _, st := range fs.Stages {
			fs.TotalMatches += st.Matches
			fs.TotalPositions += st.Total
			fs.PerfectRounds += st.Perfect
			fs.RoundsPlayed += st.Rounds
		}
		scores = append(scores, fs)
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].TotalMatches != scores[j].TotalMatches {
			return scores[i].TotalMatches > scores[j].TotalMatches
		}
		return scores[i].PerfectRounds > scores[j].PerfectRounds
	})

	return scores
}
