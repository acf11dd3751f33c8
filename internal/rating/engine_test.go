package rating

import (
	"math"
	"testing"
)

func TestCalculateDelta_Scenarios(t *testing.T) {
	tests := []struct {
		name       string
		user, prob int
		correct    bool
		timeSec    int
		wantDelta  int
		wantRating int
	}{
		{"even match correct", 1200, 1200, true, 0, 16, 1216},
		{"even match incorrect", 1200, 1200, false, 0, -16, 1184},
		{"favourite misses", 1500, 1100, false, 0, -29, 1471},
		{"underdog wins", 1100, 1500, true, 0, 29, 1129},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delta := CalculateDelta(tt.user, tt.prob, tt.correct, tt.timeSec)
			if delta != tt.wantDelta {
				t.Errorf("CalculateDelta() = %d, want %d", delta, tt.wantDelta)
			}
			if got := ApplyDelta(tt.user, delta); got != tt.wantRating {
				t.Errorf("ApplyDelta() = %d, want %d", got, tt.wantRating)
			}
		})
	}
}

func TestCalculateDelta_Symmetry(t *testing.T) {
	for r := MinRating; r <= MaxRating; r += 100 {
		win := CalculateDelta(r, r, true, 0)
		loss := CalculateDelta(r, r, false, 0)
		if win != -loss || win <= 0 {
			t.Errorf("rating %d: win %d, loss %d; want equal magnitude, opposite sign", r, win, loss)
		}
	}
}

func TestCalculate_SignPreservation(t *testing.T) {
	ratings := []int{800, 1000, 1200, 1500, 1800, 2200}
	times := []int{0, 1, 300, 900, 1500, 2400, 10000, 100000}
	hints := []int{0, 1, 3, 20}

	for _, u := range ratings {
		for _, p := range ratings {
			for _, ts := range times {
				for _, h := range hints {
					win := Calculate(Outcome{UserRating: u, ProblemRating: p, IsCorrect: true, TimeSpentSec: ts, HintsUsed: h})
					loss := Calculate(Outcome{UserRating: u, ProblemRating: p, IsCorrect: false, TimeSpentSec: ts, HintsUsed: h})
					if win < 0 {
						t.Errorf("u=%d p=%d t=%d h=%d: correct delta %d < 0", u, p, ts, h, win)
					}
					if loss > 0 {
						t.Errorf("u=%d p=%d t=%d h=%d: incorrect delta %d > 0", u, p, ts, h, loss)
					}
					if win < loss {
						t.Errorf("u=%d p=%d t=%d h=%d: correct %d below incorrect %d", u, p, ts, h, win, loss)
					}
					if win > MaxDelta || loss < -MaxDelta {
						t.Errorf("u=%d p=%d: delta outside ±%d", u, p, MaxDelta)
					}
				}
			}
		}
	}
}

func TestCalculate_HugeGapIsBounded(t *testing.T) {
	if d := CalculateDelta(800, 100000, true, 0); d > MaxDelta || d != K {
		t.Errorf("huge underdog win = %d, want %d", d, K)
	}
	if d := CalculateDelta(100000, 800, false, 0); d < -MaxDelta || d != -K {
		t.Errorf("huge favourite loss = %d, want %d", d, -K)
	}
}

func TestTimeMultiplier(t *testing.T) {
	tests := []struct {
		name string
		o    Outcome
		want float64
	}{
		{"no time no hints is neutral", Outcome{ProblemRating: 1200, IsCorrect: true}, 1.0},
		{"exactly on time", Outcome{ProblemRating: 1000, IsCorrect: true, TimeSpentSec: 900}, 1.0},
		{"half the expected time", Outcome{ProblemRating: 1000, IsCorrect: true, TimeSpentSec: 450}, 1.125},
		{"twice the expected time", Outcome{ProblemRating: 1300, IsCorrect: true, TimeSpentSec: 3000}, 0.875},
		{"very slow correct floors", Outcome{ProblemRating: 1300, IsCorrect: true, TimeSpentSec: 100000}, 0.75},
		{"hints only", Outcome{ProblemRating: 1600, IsCorrect: true, HintsUsed: 2}, 0.9},
		{"slow wrong loses more", Outcome{ProblemRating: 1600, IsCorrect: false, TimeSpentSec: 4800}, 1.125},
		{"fast wrong is not softened", Outcome{ProblemRating: 1600, IsCorrect: false, TimeSpentSec: 60}, 1.0},
		{"wrong with many hints caps", Outcome{ProblemRating: 1000, IsCorrect: false, HintsUsed: 50}, 1.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TimeMultiplier(tt.o)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("TimeMultiplier() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplyDelta_Clamping(t *testing.T) {
	tests := []struct {
		current, delta int
		want           int
		clamped        bool
	}{
		{1200, 16, 1216, false},
		{2190, 50, 2200, true},
		{810, -40, 800, true},
		{800, 0, 800, false},
		{2200, 100, 2200, true},
	}

	for _, tt := range tests {
		got, clamped := ApplyDeltaReport(tt.current, tt.delta)
		if got != tt.want || clamped != tt.clamped {
			t.Errorf("ApplyDeltaReport(%d, %d) = %d, %v; want %d, %v",
				tt.current, tt.delta, got, clamped, tt.want, tt.clamped)
		}
		if ApplyDelta(tt.current, tt.delta) != tt.want {
			t.Errorf("ApplyDelta(%d, %d) != %d", tt.current, tt.delta, tt.want)
		}
	}

	for current := MinRating; current <= MaxRating; current += 50 {
		for delta := -MaxDelta; delta <= MaxDelta; delta += 7 {
			r := ApplyDelta(current, delta)
			if r < MinRating || r > MaxRating {
				t.Fatalf("ApplyDelta(%d, %d) = %d outside bounds", current, delta, r)
			}
		}
	}
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		rating int
		tier   Tier
		secs   int
	}{
		{900, TierEasy, 900},
		{1199, TierEasy, 900},
		{1200, TierMedium, 1500},
		{1499, TierMedium, 1500},
		{1500, TierHard, 2400},
	}
	for _, tt := range tests {
		if got := TierFor(tt.rating); got != tt.tier || got.ExpectedTime() != tt.secs {
			t.Errorf("TierFor(%d) = %q (%ds), want %q (%ds)", tt.rating, got, got.ExpectedTime(), tt.tier, tt.secs)
		}
	}
}

func TestInitialForRole(t *testing.T) {
	if InitialForRole("senior") != 1500 {
		t.Errorf("senior = %d, want 1500", InitialForRole("senior"))
	}
	if InitialForRole("unknown") != DefaultRating {
		t.Errorf("unknown role should use DefaultRating")
	}
}
