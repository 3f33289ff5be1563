package trend

import (
	"context"

	"github.com/namtrader/engine/internal/analysis/classifier"
	"github.com/namtrader/engine/internal/analysis/fusion"
	"github.com/namtrader/engine/internal/config"
	"github.com/namtrader/engine/internal/exchange"
	"github.com/namtrader/engine/pkg/logger"
	"github.com/namtrader/engine/pkg/models"
	"go.uber.org/zap"
)

// Analyzer объединяет классификаторы двух горизонтов в итоговый тренд.
// Модели обучаются заново на каждом вызове Resolve.
type Analyzer struct {
	client     exchange.Gateway
	classifier *classifier.Analyzer
	fusion     *fusion.Resolver
	symbol     string
	primary    string
	secondary  string
	lookback   int
}

// NewAnalyzer создает новый анализатор тренда
func NewAnalyzer(cfg config.TradingConfig, client exchange.Gateway, cls *classifier.Analyzer, resolver *fusion.Resolver) *Analyzer {
	return &Analyzer{
		client:     client,
		classifier: cls,
		fusion:     resolver,
		symbol:     cfg.Symbol,
		primary:    cfg.PrimaryInterval,
		secondary:  cfg.SecondaryInterval,
		lookback:   cfg.Lookback,
	}
}

// Resolve обучает оба классификатора и возвращает объединенный тренд
func (a *Analyzer) Resolve(ctx context.Context) (models.FusedTrend, error) {
	primaryVerdict, err := a.analyzeInterval(ctx, a.primary)
	if err != nil {
		return models.TrendUnclear, err
	}

	secondaryVerdict, err := a.analyzeInterval(ctx, a.secondary)
	if err != nil {
		return models.TrendUnclear, err
	}

	result := a.fusion.Resolve(primaryVerdict, secondaryVerdict)
	logger.Info("Тренд определен",
		zap.String("symbol", a.symbol),
		zap.String("trend", result.String()),
		zap.Float64("primary_accuracy", primaryVerdict.Accuracy),
		zap.Float64("secondary_accuracy", secondaryVerdict.Accuracy))
	return result, nil
}

// analyzeInterval обучает классификатор на окне одного таймфрейма
func (a *Analyzer) analyzeInterval(ctx context.Context, interval string) (*models.TimeframeVerdict, error) {
	candles, err := a.client.GetKlines(ctx, a.symbol, interval, a.lookback)
	if err != nil {
		return nil, err
	}
	return a.classifier.Analyze(candles, a.symbol, interval)
}
