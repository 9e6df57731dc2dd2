package gmaps

import (
	"testing"

	"github.com/dekimage/scraper-usa-platform/config"
)

func TestContinueScrollingStopsAtTarget(t *testing.T) {
	tuning := config.DefaultTuning()
	if continueScrolling(20, 20, 2, 0, tuning) {
		t.Error("should stop once the target entry count is loaded")
	}
	if !continueScrolling(10, 20, 2, 0, tuning) {
		t.Error("should keep scrolling below the target")
	}
}

func TestContinueScrollingStopsAtMaxAttempts(t *testing.T) {
	tuning := config.DefaultTuning()
	if continueScrolling(10, 300, tuning.MaxScrollAttempts, 0, tuning) {
		t.Error("should stop at the attempt ceiling even while growing")
	}
}

func TestContinueScrollingEarlyExhaustion(t *testing.T) {
	tuning := config.DefaultTuning()

	// Below the minimum attempt count, stalling is not yet exhaustion.
	if !continueScrolling(10, 300, tuning.MinScrollAttempts-1, tuning.NoGrowthLimit, tuning) {
		t.Error("should not give up before the minimum attempt count")
	}
	// Past the minimum, a run of no-growth attempts ends the loop.
	if continueScrolling(10, 300, tuning.MinScrollAttempts, tuning.NoGrowthLimit, tuning) {
		t.Error("should stop after NoGrowthLimit stalled attempts")
	}
	if !continueScrolling(10, 300, tuning.MinScrollAttempts, tuning.NoGrowthLimit-1, tuning) {
		t.Error("should continue while the stall run is below the limit")
	}
}

// TestScrollLoopTerminates simulates a feed that never grows and
// checks the loop's decision function cannot run forever.
func TestScrollLoopTerminates(t *testing.T) {
	tuning := config.DefaultTuning()

	attempts := 0
	noGrowth := 0
	for continueScrolling(8, 300, attempts, noGrowth, tuning) {
		// Entry count stays at 8 on every poll.
		noGrowth++
		attempts++
		if attempts > tuning.MaxScrollAttempts {
			t.Fatal("scroll loop exceeded the attempt ceiling")
		}
	}

	if attempts > tuning.MinScrollAttempts+tuning.NoGrowthLimit {
		t.Errorf("never-growing feed took %d attempts, want at most %d",
			attempts, tuning.MinScrollAttempts+tuning.NoGrowthLimit)
	}
}
