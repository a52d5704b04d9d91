package batch

import (
	"testing"
	"time"

	"github.com/festipick/festipick/internal/constants"
)

func testLocation(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		t.Fatalf("load location failed: %v", err)
	}
	return loc
}

func TestResolveMorningBatch(t *testing.T) {
	loc := testLocation(t)
	now := time.Date(2026, 3, 10, 10, 30, 0, 0, loc)

	w := Resolve(now, loc)
	if w.BatchID != constants.BatchMorning {
		t.Fatalf("batch id want 1 got %d", w.BatchID)
	}
	if !w.Start.Equal(time.Date(2026, 3, 10, 6, 0, 0, 0, loc)) {
		t.Fatalf("unexpected start: %v", w.Start)
	}
	if !w.Cutoff.Equal(time.Date(2026, 3, 10, 15, 0, 0, 0, loc)) {
		t.Fatalf("unexpected cutoff: %v", w.Cutoff)
	}
	if !w.PickupEnd.Equal(time.Date(2026, 3, 10, 20, 0, 0, 0, loc)) {
		t.Fatalf("unexpected pickup end: %v", w.PickupEnd)
	}
}

func TestResolveEveningBatchSpansMidnight(t *testing.T) {
	loc := testLocation(t)

	lateEvening := time.Date(2026, 3, 10, 23, 30, 0, 0, loc)
	earlyMorning := time.Date(2026, 3, 11, 2, 0, 0, 0, loc)

	w1 := Resolve(lateEvening, loc)
	w2 := Resolve(earlyMorning, loc)

	if w1.BatchID != constants.BatchEvening || w2.BatchID != constants.BatchEvening {
		t.Fatalf("batch ids want 2/2 got %d/%d", w1.BatchID, w2.BatchID)
	}
	if !w1.Date.Equal(w2.Date) {
		t.Fatalf("expected same batch instance, dates %v vs %v", w1.Date, w2.Date)
	}
	if !w1.Cutoff.Equal(time.Date(2026, 3, 11, 3, 0, 0, 0, loc)) {
		t.Fatalf("unexpected cutoff: %v", w1.Cutoff)
	}
	if !w1.PickupStart.Equal(time.Date(2026, 3, 11, 8, 0, 0, 0, loc)) {
		t.Fatalf("unexpected pickup start: %v", w1.PickupStart)
	}
}

func TestIsOrderableCutoffBoundary(t *testing.T) {
	loc := testLocation(t)
	w := Resolve(time.Date(2026, 3, 10, 10, 0, 0, 0, loc), loc)

	beforeCutoff := time.Date(2026, 3, 10, 14, 59, 59, 0, loc)
	atCutoff := time.Date(2026, 3, 10, 15, 0, 0, 0, loc)

	if !IsOrderable(w, beforeCutoff) {
		t.Fatalf("14:59:59 should be orderable")
	}
	if IsOrderable(w, atCutoff) {
		t.Fatalf("15:00:00 should not be orderable")
	}
}

func TestComputeStatusPhases(t *testing.T) {
	loc := testLocation(t)
	w := Resolve(time.Date(2026, 3, 10, 23, 0, 0, 0, loc), loc)

	cases := []struct {
		name string
		now  time.Time
		want string
	}{
		{"before start", time.Date(2026, 3, 10, 17, 0, 0, 0, loc), PhaseUpcoming},
		{"ordering open", time.Date(2026, 3, 10, 22, 0, 0, 0, loc), PhaseActive},
		{"past cutoff", time.Date(2026, 3, 11, 4, 0, 0, 0, loc), PhaseCutoff},
		{"preparation", time.Date(2026, 3, 11, 7, 0, 0, 0, loc), PhasePreparation},
		{"pickup", time.Date(2026, 3, 11, 9, 0, 0, 0, loc), PhasePickup},
		{"completed", time.Date(2026, 3, 11, 13, 0, 0, 0, loc), PhaseCompleted},
	}
	for _, tc := range cases {
		if got := ComputeStatus(w, tc.now); got != tc.want {
			t.Fatalf("%s: want %s got %s", tc.name, tc.want, got)
		}
	}
}

func TestNextAlternatesBatches(t *testing.T) {
	loc := testLocation(t)
	morning := Resolve(time.Date(2026, 3, 10, 10, 0, 0, 0, loc), loc)

	evening := Next(morning, loc)
	if evening.BatchID != constants.BatchEvening || !evening.Date.Equal(morning.Date) {
		t.Fatalf("unexpected next window: %+v", evening)
	}

	nextMorning := Next(evening, loc)
	if nextMorning.BatchID != constants.BatchMorning {
		t.Fatalf("batch id want 1 got %d", nextMorning.BatchID)
	}
	if !nextMorning.Date.Equal(morning.Date.AddDate(0, 0, 1)) {
		t.Fatalf("unexpected next morning date: %v", nextMorning.Date)
	}
}

func TestNextPickupWindowAfterCutoff(t *testing.T) {
	loc := testLocation(t)

	// 场次一截止后应落到当天场次二的取货窗口
	afterCutoff := time.Date(2026, 3, 10, 16, 0, 0, 0, loc)
	w := NextPickupWindow(afterCutoff, loc)
	if w.BatchID != constants.BatchEvening {
		t.Fatalf("batch id want 2 got %d", w.BatchID)
	}
	if !w.PickupStart.Equal(time.Date(2026, 3, 11, 8, 0, 0, 0, loc)) {
		t.Fatalf("unexpected pickup start: %v", w.PickupStart)
	}

	// 场次二截止后应落到次日场次一的取货窗口
	lateNight := time.Date(2026, 3, 11, 4, 0, 0, 0, loc)
	w = NextPickupWindow(lateNight, loc)
	if w.BatchID != constants.BatchMorning {
		t.Fatalf("batch id want 1 got %d", w.BatchID)
	}
	if !w.PickupStart.Equal(time.Date(2026, 3, 11, 18, 0, 0, 0, loc)) {
		t.Fatalf("unexpected pickup start: %v", w.PickupStart)
	}
}

func TestNextPickupWindowBeforeCutoff(t *testing.T) {
	loc := testLocation(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, loc)

	w := NextPickupWindow(now, loc)
	if w.BatchID != constants.BatchMorning {
		t.Fatalf("batch id want 1 got %d", w.BatchID)
	}
	if !w.PickupStart.Equal(time.Date(2026, 3, 10, 18, 0, 0, 0, loc)) {
		t.Fatalf("unexpected pickup start: %v", w.PickupStart)
	}
}
