package volumeprofile

import (
	"context"
	"fmt"
	"math"

	"github.com/namtrader/engine/internal/config"
	"github.com/namtrader/engine/internal/exchange"
	"github.com/namtrader/engine/internal/indicators"
)

// Analyzer считает точку контроля (POC) профиля объема и проверяет
// близость к текущей цене как фильтр подтверждения входа
type Analyzer struct {
	config config.VolumeProfileConfig
	client exchange.Gateway
}

// NewAnalyzer создает новый анализатор профиля объема
func NewAnalyzer(cfg config.VolumeProfileConfig, client exchange.Gateway) *Analyzer {
	return &Analyzer{
		config: cfg,
		client: client,
	}
}

// Poc возвращает цену точки контроля по окну свечей
func (a *Analyzer) Poc(ctx context.Context, symbol string) (float64, error) {
	candles, err := a.client.GetKlines(ctx, symbol, a.config.Interval, a.config.Lookback)
	if err != nil {
		return 0, fmt.Errorf("ошибка получения свечей для профиля объема: %w", err)
	}

	return indicators.VolumeProfilePoc(candles, a.config.Bins)
}

// Confirms проверяет, что POC находится в пределах допустимого отклонения
// от mark price. Возвращает отклонение в процентах для логов.
func (a *Analyzer) Confirms(ctx context.Context, symbol string, markPrice float64) (bool, float64, error) {
	poc, err := a.Poc(ctx, symbol)
	if err != nil {
		return false, 0, err
	}
	if markPrice == 0 {
		return false, 0, fmt.Errorf("нулевая mark price для %s", symbol)
	}

	deviation := math.Abs(poc-markPrice) / markPrice * 100
	return deviation <= a.config.ProximityPercent, deviation, nil
}
