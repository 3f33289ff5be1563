package fusion

import (
	"github.com/namtrader/engine/internal/config"
	"github.com/namtrader/engine/pkg/logger"
	"github.com/namtrader/engine/pkg/models"
	"go.uber.org/zap"
)

// Resolver объединяет вердикты двух таймфреймов в итоговый тренд
type Resolver struct {
	config config.FusionConfig
}

// NewResolver создает новый объединитель трендов
func NewResolver(cfg config.FusionConfig) *Resolver {
	return &Resolver{
		config: cfg,
	}
}

// CombinedProbability вероятность объединения двух не полностью независимых
// моделей: p1 + p2 - p1*p2. Аргументы - доли, не проценты.
func CombinedProbability(p1, p2 float64) float64 {
	return p1 + p2 - p1*p2
}

// Resolve применяет правила объединения. Порядок проверки:
// неопределенность любого горизонта, затем восходящие условия, затем
// симметричные нисходящие, иначе тренд неясен.
// Одиночные условия по горизонтам сознательно либеральны - это
// политика стратегии, а не выводимый оптимум.
func (r *Resolver) Resolve(primary, secondary *models.TimeframeVerdict) models.FusedTrend {
	if primary.Direction == models.TrendIndeterminate || secondary.Direction == models.TrendIndeterminate {
		return models.TrendUnclear
	}

	combined := CombinedProbability(primary.Accuracy/100, secondary.Accuracy/100)

	trend := models.TrendUnclear
	switch {
	case r.matches(primary, secondary, models.TrendUp, combined):
		trend = models.Uptrend
	case r.matches(primary, secondary, models.TrendDown, combined):
		trend = models.Downtrend
	}

	logger.Debug("Тренды объединены",
		zap.String("primary", primary.Direction.String()),
		zap.String("secondary", secondary.Direction.String()),
		zap.Float64("combined", combined),
		zap.String("trend", trend.String()))

	return trend
}

// matches проверяет три условия для заданного направления:
// оба горизонта согласны и объединенная вероятность выше порога, либо
// короткий горизонт сам по себе достаточно точен, либо длинный.
func (r *Resolver) matches(primary, secondary *models.TimeframeVerdict, dir models.TrendDirection, combined float64) bool {
	if primary.Direction == dir && secondary.Direction == dir && combined >= r.config.CombinedThreshold {
		return true
	}
	if primary.Direction == dir && primary.Accuracy > r.config.PrimaryAccuracy && primary.F1 > r.config.PrimaryF1 {
		return true
	}
	if secondary.Direction == dir && secondary.Accuracy > r.config.SecondaryAccuracy && secondary.F1 > r.config.SecondaryF1 {
		return true
	}
	return false
}
