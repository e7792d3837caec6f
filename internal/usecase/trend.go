package usecase

import (
	"context"
	"fmt"
	"time"

	"CoinPulse/internal/domain/models"
	domrepo "CoinPulse/internal/domain/repository"
	"CoinPulse/pkg/logger"
)

// TrendUseCase is the operator-facing trend authority. Set appends to the
// audit log and pushes the new regime into the engine immediately; the
// engine's sweep covers changes made by other replicas.
type TrendUseCase struct {
	log      *logger.Logger
	trendLog domrepo.TrendLog
	engine   *Engine
}

func NewTrendUseCase(log *logger.Logger, trendLog domrepo.TrendLog, engine *Engine) *TrendUseCase {
	return &TrendUseCase{log: log, trendLog: trendLog, engine: engine}
}

// Set validates and applies a new global trend regime.
func (uc *TrendUseCase) Set(ctx context.Context, raw string) (models.TrendMode, error) {
	mode, err := models.ParseTrendMode(raw)
	if err != nil {
		return "", err
	}
	rec := models.TrendRecord{Mode: mode, UpdatedAt: time.Now().UTC()}
	if err := uc.trendLog.Append(ctx, rec); err != nil {
		return "", fmt.Errorf("append trend record: %w", err)
	}
	uc.engine.ApplyTrend(ctx, mode)
	uc.log.Info("trend set", logger.String("trend", string(mode)))
	return mode, nil
}

// Current returns the regime the engine is generating under.
func (uc *TrendUseCase) Current(ctx context.Context) models.TrendMode {
	return uc.engine.CurrentTrend()
}

// Modes lists every accepted trend value.
func (uc *TrendUseCase) Modes() []models.TrendMode {
	return models.AllTrendModes()
}
