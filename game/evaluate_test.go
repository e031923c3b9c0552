package game

import (
	"slices"
	"testing"
	"testing/quick"
)

func TestEvaluateTotalPositions(t *testing.T) {
	f := func(a, b Bill) bool {
		return Evaluate(a, b).TotalPositions == a.Placed()+1
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestEvaluateSelfMatchIsPerfect(t *testing.T) {
	f := func(a Bill) bool {
		o := Evaluate(a, a)
		return o.MatchCount == o.TotalPositions && o.Perfect() && o.DenominationCorrect
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestEvaluateMatchesNeverExceedTotal(t *testing.T) {
	f := func(a, b Bill) bool {
		o := Evaluate(a, b)
		return o.MatchCount <= o.TotalPositions && len(o.MatchedPositions) <= o.MatchCount
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestEvaluate(t *testing.T) {
	secret := threeElementSecret()

	tests := []struct {
		name      string
		guess     Bill
		matches   int
		positions []int
		denom     bool
	}{
		{
			name:      "identical",
			guess:     secret,
			matches:   4,
			positions: []int{0, 7, 14},
			denom:     true,
		},
		{
			name:      "fresh bill keeps default denomination",
			guess:     NewBill(),
			matches:   1,
			positions: []int{},
			denom:     true,
		},
		{
			name:      "blank back-fill scores nothing",
			guess:     BlankBill(),
			matches:   0,
			positions: []int{},
		},
		{
			name: "right kind wrong cell",
			guess: billOf(Denomination5000, map[int]Element{
				1:  ElementPortrait,
				7:  ElementWatermark,
				13: ElementStamp,
			}),
			matches:   1,
			positions: []int{7},
		},
		{
			name: "extra guessed cells are ignored",
			guess: billOf(Denomination10000, map[int]Element{
				0:  ElementPortrait,
				3:  ElementLogo,
				4:  ElementSerial,
				14: ElementStamp,
			}),
			matches:   3,
			positions: []int{0, 14},
			denom:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(secret, tt.guess)

			if got.TotalPositions != 4 {
				t.Errorf("totalPositions = %d, want 4", got.TotalPositions)
			}
			if got.MatchCount != tt.matches {
				t.Errorf("matchCount = %d, want %d", got.MatchCount, tt.matches)
			}
			if !slices.Equal(got.MatchedPositions, tt.positions) {
				t.Errorf("matchedPositions = %v, want %v", got.MatchedPositions, tt.positions)
			}
			if got.DenominationCorrect != tt.denom {
				t.Errorf("denominationCorrect = %v, want %v", got.DenominationCorrect, tt.denom)
			}
		})
	}
}
