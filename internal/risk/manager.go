package risk

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/namtrader/engine/internal/config"
	"github.com/namtrader/engine/internal/exchange"
	"github.com/namtrader/engine/internal/indicators"
	"github.com/namtrader/engine/pkg/logger"
	"github.com/namtrader/engine/pkg/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrInvalidOrderSize рассчитанное количество не положительно, ордер подавляется
var ErrInvalidOrderSize = errors.New("недопустимый размер ордера")

// Пределы плеча Binance USDT-M
const (
	minLeverage = 1
	maxLeverage = 125
)

// StopLevels уровни стопов, выведенные из ATR
type StopLevels struct {
	ATR       float64 // уже умноженный на multiplier
	ShortStop float64 // highest-high + ATR
	LongStop  float64 // lowest-low - ATR
}

// OrderPlan готовый план входа: размер, плечо и защитный стоп
type OrderPlan struct {
	Side      string // BUY или SELL
	StopSide  string // сторона защитного стопа, противоположна входу
	Quantity  float64
	Leverage  int
	StopPrice float64
}

// Manager превращает дистанцию ATR-стопа в плечо и размер ордера
type Manager struct {
	config config.RiskConfig
	atrCfg config.ATRConfig
	client exchange.Gateway
	sizing SizingStrategy
}

// NewManager создает новый менеджер риска с выбранной стратегией размера
func NewManager(cfg config.RiskConfig, atrCfg config.ATRConfig, client exchange.Gateway) (*Manager, error) {
	sizing, err := newSizingStrategy(cfg)
	if err != nil {
		return nil, err
	}

	return &Manager{
		config: cfg,
		atrCfg: atrCfg,
		client: client,
		sizing: sizing,
	}, nil
}

// StopLevels считает уровни стопов по окну из length+1 свечей
func (m *Manager) StopLevels(ctx context.Context, symbol string) (*StopLevels, error) {
	candles, err := m.client.GetKlines(ctx, symbol, m.atrCfg.Interval, m.atrCfg.Length+1)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения свечей для ATR: %w", err)
	}
	if len(candles) < m.atrCfg.Length+1 {
		return nil, &indicators.DataInsufficientError{Indicator: "atr", Need: m.atrCfg.Length + 1, Got: len(candles)}
	}

	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	closes := make([]float64, len(candles))
	for i, c := range candles {
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
	}

	atr, err := indicators.Atr(highs, lows, closes, m.atrCfg.Length, m.atrCfg.Smoothing)
	if err != nil {
		return nil, err
	}
	atr *= m.atrCfg.Multiplier

	highest := highs[0]
	lowest := lows[0]
	for i := range candles {
		highest = math.Max(highest, highs[i])
		lowest = math.Min(lowest, lows[i])
	}

	return &StopLevels{
		ATR:       atr,
		ShortStop: highest + atr,
		LongStop:  lowest - atr,
	}, nil
}

// Leverage выводит плечо из дистанции стопа: стоп соответствует 1%
// риска нотионала при полном плече. Второй результат false, если
// дистанция нулевая и плечо менять нельзя.
func Leverage(stopPrice, markPrice float64) (int, bool) {
	if markPrice == 0 {
		return 0, false
	}
	percentChange := math.Abs(stopPrice-markPrice) / markPrice * 100
	if percentChange == 0 {
		return 0, false
	}

	leverage := int(math.Round(100 / percentChange))
	if leverage < minLeverage {
		leverage = minLeverage
	}
	if leverage > maxLeverage {
		leverage = maxLeverage
	}
	return leverage, true
}

// Quantity переводит нотионал в количество базового актива,
// округленное до 3 знаков
func Quantity(notional, price float64) float64 {
	if price <= 0 {
		return 0
	}
	q := decimal.NewFromFloat(notional).
		Div(decimal.NewFromFloat(price)).
		Round(3)
	result, _ := q.Float64()
	return result
}

// RoundStopPrice округляет цену стопа до 1 знака под шаг цены Binance
func RoundStopPrice(price float64) float64 {
	result, _ := decimal.NewFromFloat(price).Round(1).Float64()
	return result
}

// PlanOrder строит план входа для разрешенного направления.
// Возвращает ErrInvalidOrderSize, если рассчитанное количество не
// положительно - в этом случае ни один ордер размещаться не должен.
func (m *Manager) PlanOrder(ctx context.Context, symbol string, direction models.FusedTrend) (*OrderPlan, error) {
	levels, err := m.StopLevels(ctx, symbol)
	if err != nil {
		return nil, err
	}

	markPrice, err := m.client.GetMarkPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}

	plan := &OrderPlan{}
	switch direction {
	case models.Uptrend:
		plan.Side = "BUY"
		plan.StopSide = "SELL"
		plan.StopPrice = RoundStopPrice(levels.LongStop)
	case models.Downtrend:
		plan.Side = "SELL"
		plan.StopSide = "BUY"
		plan.StopPrice = RoundStopPrice(levels.ShortStop)
	default:
		return nil, fmt.Errorf("направление %s не торгуется", direction)
	}

	leverage, ok := Leverage(plan.StopPrice, markPrice)
	if !ok {
		return nil, fmt.Errorf("нулевая дистанция стопа, плечо не определено")
	}
	plan.Leverage = leverage

	balance, err := m.client.GetAccountBalance(ctx)
	if err != nil {
		return nil, err
	}

	price, err := m.client.GetTickerPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}

	notional := m.sizing.Notional(balance, leverage)
	plan.Quantity = Quantity(notional, price)

	logger.Debug("План ордера рассчитан",
		zap.String("symbol", symbol),
		zap.String("side", plan.Side),
		zap.String("sizing", m.sizing.Name()),
		zap.Float64("atr", levels.ATR),
		zap.Float64("stop", plan.StopPrice),
		zap.Int("leverage", plan.Leverage),
		zap.Float64("quantity", plan.Quantity))

	if plan.Quantity <= 0 {
		return nil, ErrInvalidOrderSize
	}
	return plan, nil
}
