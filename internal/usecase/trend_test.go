package usecase

import (
	"context"
	"testing"

	"CoinPulse/internal/domain/models"
	"CoinPulse/internal/repository"
)

func testTrendUseCase(t *testing.T) (*TrendUseCase, *repository.MemoryTrendLog, *Engine) {
	t.Helper()
	e, _, _ := testEngine(t, &stubGen{})
	log := repository.NewMemoryTrendLog()
	e.trendLog = log
	return NewTrendUseCase(testLogger(t), log, e), log, e
}

func TestSetTrendAppendsAndApplies(t *testing.T) {
	uc, tlog, e := testTrendUseCase(t)

	mode, err := uc.Set(context.Background(), "scenario4")
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if mode != models.TrendScenario4 {
		t.Errorf("mode: %v", mode)
	}
	if tlog.Size() != 1 {
		t.Errorf("log size: %d", tlog.Size())
	}
	if e.CurrentTrend() != models.TrendScenario4 {
		t.Errorf("engine trend not applied: %v", e.CurrentTrend())
	}
}

func TestSetTrendRejectsUnknownMode(t *testing.T) {
	uc, tlog, _ := testTrendUseCase(t)
	if _, err := uc.Set(context.Background(), "sideways"); err == nil {
		t.Fatal("unknown mode must be rejected")
	}
	if tlog.Size() != 0 {
		t.Error("rejected mode must not be logged")
	}
}

func TestCurrentReflectsEngine(t *testing.T) {
	uc, _, e := testTrendUseCase(t)
	e.ApplyTrend(context.Background(), models.TrendDown)
	if got := uc.Current(context.Background()); got != models.TrendDown {
		t.Errorf("current: %v", got)
	}
}

func TestModesListsAllRegimes(t *testing.T) {
	uc, _, _ := testTrendUseCase(t)
	modes := uc.Modes()
	if len(modes) != 8 {
		t.Fatalf("mode count: got %d, want 8", len(modes))
	}
}
