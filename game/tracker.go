package game

// Tracker collects one bill per guesser for the current round.
type Tracker struct {
	creatorID string
	bills     map[string]Bill
	order     []string
}

func NewTracker() *Tracker {
	return &Tracker{bills: make(map[string]Bill)}
}

// Reset clears all submissions and records who may not submit.
func (t *Tracker) Reset(creatorID string) {
	t.creatorID = creatorID
	clear(t.bills)
	t.order = t.order[:0]
}

// Record stores teamID's bill. The creator and repeat submitters are rejected.
func (t *Tracker) Record(teamID string, bill Bill) error {
	if teamID == t.creatorID {
		return errorf(KindAuthorization, "the creator does not submit guesses")
	}
	if _, ok := t.bills[teamID]; ok {
		return errorf(KindDuplicate, "already submitted this round")
	}
	t.Fill(teamID, bill)
	return nil
}

// Fill stores bill for teamID unless it already has one. Used for timeout
// back-fill, so it skips the creator check.
func (t *Tracker) Fill(teamID string, bill Bill) {
	if _, ok := t.bills[teamID]; ok {
		return
	}
	t.bills[teamID] = bill
	t.order = append(t.order, teamID)
}

// Bill returns teamID's submission, if any.
func (t *Tracker) Bill(teamID string) (Bill, bool) {
	b, ok := t.bills[teamID]
	return b, ok
}

// Forget drops teamID's submission, e.g. when the team leaves.
func (t *Tracker) Forget(teamID string) {
	if _, ok := t.bills[teamID]; !ok {
		return
	}
	delete(t.bills, teamID)
	for i, id := range t.order {
		if id == teamID {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// IsComplete reports whether every id in required has submitted.
func (t *Tracker) IsComplete(required []string) bool {
	for _, id := range required {
		if _, ok := t.bills[id]; !ok {
			return false
		}
	}
	return true
}

// Progress is the live submission summary.
type Progress struct {
	SubmittedCount int
	RequiredCount  int
	SubmittedNames []string
}

// Progress counts submissions among required, naming them in submission order.
func (t *Tracker) Progress(required []*Team) Progress {
	byID := make(map[string]string, len(required))
	for _, team := range required {
		byID[team.ID] = team.Name
	}

	p := Progress{
		RequiredCount:  len(required),
		SubmittedNames: []string{},
	}
	for _, id := range t.order {
		if name, ok := byID[id]; ok {
			p.SubmittedCount++
			p.SubmittedNames = append(p.SubmittedNames, name)
		}
	}
	return p
}
