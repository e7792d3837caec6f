package usecase

import (
	"context"
	"fmt"

	"CoinPulse/internal/domain/models"
	domrepo "CoinPulse/internal/domain/repository"
)

// InstrumentsUseCase handles onboarding and listing of instruments. Lifecycle
// actions that need a running generator go through the engine.
type InstrumentsUseCase struct {
	registry domrepo.InstrumentRegistry
	engine   *Engine
}

func NewInstrumentsUseCase(registry domrepo.InstrumentRegistry, engine *Engine) *InstrumentsUseCase {
	return &InstrumentsUseCase{registry: registry, engine: engine}
}

// List returns all instruments with their live fields.
func (uc *InstrumentsUseCase) List(ctx context.Context) ([]models.Instrument, error) {
	return uc.registry.List(ctx)
}

// Get returns a single instrument.
func (uc *InstrumentsUseCase) Get(ctx context.Context, symbol string) (*models.Instrument, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	inst, err := uc.registry.Get(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, fmt.Errorf("instrument %q not found", symbol)
	}
	return inst, nil
}

type AddInstrumentParams struct {
	Symbol           string
	Kind             string
	BasePrice        float64
	PayoutPercentage float64
	Interval         string
}

// Add onboards a new instrument and starts candle generation for it.
func (uc *InstrumentsUseCase) Add(ctx context.Context, p AddInstrumentParams) (*models.Instrument, error) {
	kind := models.InstrumentKind(p.Kind)
	if kind == "" {
		kind = models.KindOTC
	}
	inst := &models.Instrument{
		Symbol:           p.Symbol,
		Kind:             kind,
		BasePrice:        p.BasePrice,
		PayoutPercentage: p.PayoutPercentage,
		SelectedInterval: models.NormalizeInterval(p.Interval),
		CurrentTrend:     uc.engine.CurrentTrend(),
	}
	inst.CurrentDuration = inst.SelectedInterval
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	if err := uc.engine.Add(ctx, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// Remove stops generation and deletes the instrument with its history.
func (uc *InstrumentsUseCase) Remove(ctx context.Context, symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol required")
	}
	inst, err := uc.registry.Get(ctx, symbol)
	if err != nil {
		return err
	}
	if inst == nil {
		return fmt.Errorf("instrument %q not found", symbol)
	}
	return uc.engine.Remove(ctx, symbol)
}

// UpdateInterval changes an instrument's candle cadence.
func (uc *InstrumentsUseCase) UpdateInterval(ctx context.Context, symbol, interval string) error {
	if symbol == "" {
		return fmt.Errorf("symbol required")
	}
	if !models.IsValidInterval(models.Interval(interval)) {
		return fmt.Errorf("invalid interval %q", interval)
	}
	return uc.engine.UpdateInterval(ctx, symbol, models.Interval(interval))
}
