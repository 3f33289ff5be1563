package vwap

import (
	"context"
	"fmt"

	"github.com/namtrader/engine/internal/config"
	"github.com/namtrader/engine/internal/exchange"
	"github.com/namtrader/engine/internal/indicators"
	"github.com/namtrader/engine/pkg/models"
)

// Analyzer дает независимое VWAP-подтверждение направления входа:
// цена в зоне перепроданности подтверждает покупку, в зоне
// перекупленности - продажу
type Analyzer struct {
	config config.VWAPConfig
	client exchange.Gateway
}

// NewAnalyzer создает новый VWAP-анализатор
func NewAnalyzer(cfg config.VWAPConfig, client exchange.Gateway) *Analyzer {
	return &Analyzer{
		config: cfg,
		client: client,
	}
}

// Signal возвращает направление, которое подтверждает текущая цена
// относительно зон VWAP. TrendIndeterminate означает отсутствие сигнала.
func (a *Analyzer) Signal(ctx context.Context, symbol string) (models.TrendDirection, error) {
	candles, err := a.client.GetKlines(ctx, symbol, a.config.Interval, a.config.Lookback)
	if err != nil {
		return models.TrendIndeterminate, fmt.Errorf("ошибка получения свечей для VWAP: %w", err)
	}

	rows, err := indicators.VwapBands(candles, a.config.DevUp, a.config.DevDown)
	if err != nil {
		return models.TrendIndeterminate, err
	}

	price, err := a.client.GetTickerPrice(ctx, symbol)
	if err != nil {
		return models.TrendIndeterminate, fmt.Errorf("ошибка получения текущей цены: %w", err)
	}

	latest := rows[len(rows)-1]
	switch {
	case price <= latest.Oversold:
		return models.TrendUp, nil
	case price >= latest.Overbought:
		return models.TrendDown, nil
	default:
		return models.TrendIndeterminate, nil
	}
}
