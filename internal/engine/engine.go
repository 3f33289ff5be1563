package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
	"github.com/namtrader/engine/internal/alert"
	"github.com/namtrader/engine/internal/analysis/volumeprofile"
	"github.com/namtrader/engine/internal/analysis/vwap"
	"github.com/namtrader/engine/internal/config"
	"github.com/namtrader/engine/internal/exchange"
	"github.com/namtrader/engine/internal/history"
	"github.com/namtrader/engine/internal/indicators"
	"github.com/namtrader/engine/internal/risk"
	"github.com/namtrader/engine/internal/status"
	"github.com/namtrader/engine/pkg/logger"
	"github.com/namtrader/engine/pkg/models"
	"go.uber.org/zap"
)

// Engine рабочий цикл принятия решений и машина состояний позиции.
// Все вызовы биржи строго последовательны внутри одного цикла,
// внешние читатели получают состояние только через status.Store.
type Engine struct {
	config     config.EngineConfig
	riskConfig config.RiskConfig
	vwapOn     bool
	symbol     string

	client        exchange.Gateway
	trend         TrendSource
	volumeProfile *volumeprofile.Analyzer
	vwap          *vwap.Analyzer
	risk          *risk.Manager
	history       history.Sink
	alerter       alert.Alerter
	store         *status.Store

	state           State
	lastOrderStatus string
	stopPrice       float64
	cycleCount      int
	retry           *backoff.Backoff
}

// TrendSource источник итогового тренда для цикла принятия решений
type TrendSource interface {
	Resolve(ctx context.Context) (models.FusedTrend, error)
}

// Deps зависимости движка
type Deps struct {
	Client        exchange.Gateway
	Trend         TrendSource
	VolumeProfile *volumeprofile.Analyzer
	VWAP          *vwap.Analyzer
	Risk          *risk.Manager
	History       history.Sink
	Alerter       alert.Alerter
	Store         *status.Store
}

// NewEngine создает движок
func NewEngine(cfg *config.Config, deps Deps) *Engine {
	return &Engine{
		config:        cfg.Engine,
		riskConfig:    cfg.Risk,
		vwapOn:        cfg.VWAP.Enabled,
		symbol:        cfg.Trading.Symbol,
		client:        deps.Client,
		trend:         deps.Trend,
		volumeProfile: deps.VolumeProfile,
		vwap:          deps.VWAP,
		risk:          deps.Risk,
		history:       deps.History,
		alerter:       deps.Alerter,
		store:         deps.Store,
		state:         StateFlat,
		retry: &backoff.Backoff{
			Min:    time.Duration(cfg.Engine.ErrorSeconds) * time.Second,
			Max:    time.Minute,
			Factor: 2,
		},
	}
}

// State возвращает текущее состояние машины позиции
func (e *Engine) State() State {
	return e.state
}

// Run выполняет цикл принятия решений до отмены контекста
func (e *Engine) Run(ctx context.Context) error {
	logger.Info("Движок запущен", zap.String("symbol", e.symbol))

	for {
		pause := e.Cycle(ctx)

		select {
		case <-ctx.Done():
			logger.Info("Движок остановлен")
			return ctx.Err()
		case <-time.After(pause):
		}
	}
}

// Cycle выполняет один цикл принятия решений и возвращает паузу до
// следующего. Все ошибки удерживаются внутри цикла.
func (e *Engine) Cycle(ctx context.Context) time.Duration {
	// Проверка связи с биржей перед любыми действиями
	if err := e.client.Ping(ctx); err != nil {
		e.alerter.ConnectivityLost(err)
		return e.retry.Duration()
	}

	position, err := e.client.GetPosition(ctx, e.symbol)
	if err != nil {
		logger.Error("Ошибка чтения позиции", zap.Error(err))
		return e.retry.Duration()
	}

	// Биржа - источник истины: состояние синхронизируется со снимком
	e.syncState(position)

	// Стоп-лосс / тейк-профит по PNL проверяются до анализа тренда
	if e.state == StateOpenProtected {
		if closed, err := e.checkStopTakeProfit(ctx, position); err != nil {
			logger.Error("Ошибка проверки SL/TP", zap.Error(err))
			return e.retry.Duration()
		} else if closed {
			e.finishCycle(ctx, position, models.TrendUnclear)
			return e.pollPause()
		}
	}

	trend, err := e.trend.Resolve(ctx)
	if err != nil {
		var insufficient *indicators.DataInsufficientError
		if errors.As(err, &insufficient) {
			// Сигнал цикла недоступен, это не фатально
			logger.Warn("Сигнал недоступен", zap.Error(err))
			e.finishCycle(ctx, position, models.TrendUnclear)
			return e.pollPause()
		}
		logger.Error("Ошибка анализа тренда", zap.Error(err))
		return e.retry.Duration()
	}

	// Разворот тренда против удерживаемой позиции закрывает ее досрочно
	if e.state == StateOpenProtected && e.trendAgainstPosition(position, trend) {
		logger.Warn("Тренд развернулся против позиции",
			zap.String("side", position.Side.String()),
			zap.String("trend", trend.String()))
		if err := e.closePosition(ctx, position); err != nil {
			logger.Error("Ошибка закрытия позиции", zap.Error(err))
			return e.retry.Duration()
		}
		e.finishCycle(ctx, position, trend)
		return e.retry.Duration()
	}

	if e.state == StateFlat {
		if trend == models.TrendUnclear {
			logger.Info("Тренд неясен, длинная пауза")
			e.finishCycle(ctx, position, trend)
			return time.Duration(e.config.UnclearSeconds) * time.Second
		}

		if err := e.tryEnter(ctx, trend); err != nil {
			if errors.Is(err, risk.ErrInvalidOrderSize) {
				logger.Warn("Размер ордера не положителен, вход отменен")
			} else {
				logger.Error("Ошибка входа в позицию", zap.Error(err))
				e.finishCycle(ctx, position, trend)
				return e.retry.Duration()
			}
		}
	}

	e.finishCycle(ctx, position, trend)
	e.retry.Reset()
	return e.pollPause()
}

// syncState выравнивает машину состояний по снимку позиции с биржи
func (e *Engine) syncState(position *models.Position) {
	switch {
	case position.Side == models.SideFlat && e.state == StateOpenProtected:
		// Стоп сработал на бирже без нашего участия
		logger.Info("Позиция закрыта биржей, переход в FLAT")
		e.state = StateFlat
		e.stopPrice = 0
	case position.Side != models.SideFlat && e.state == StateFlat:
		e.state = StateOpenProtected
	}
}

// checkStopTakeProfit закрывает позицию по порогам PNL.
// Возвращает true, если позиция была закрыта.
func (e *Engine) checkStopTakeProfit(ctx context.Context, position *models.Position) (bool, error) {
	pnl, ok := position.PnlPercent()
	if !ok {
		return false, nil
	}

	switch {
	case pnl <= e.riskConfig.StopLossPercent:
		logger.Warn("Достигнут порог стоп-лосса", zap.Float64("pnl", pnl))
	case pnl >= e.riskConfig.TakeProfitPercent:
		logger.Info("Достигнут порог тейк-профита", zap.Float64("pnl", pnl))
	default:
		return false, nil
	}

	if err := e.closePosition(ctx, position); err != nil {
		return false, err
	}
	return true, nil
}

// trendAgainstPosition тренд противоречит удерживаемой стороне
func (e *Engine) trendAgainstPosition(position *models.Position, trend models.FusedTrend) bool {
	return (position.Side == models.SideLong && trend == models.Downtrend) ||
		(position.Side == models.SideShort && trend == models.Uptrend)
}

// tryEnter проверяет фильтры подтверждения и открывает позицию.
// Любой сбой шлюза возвращает машину в FLAT - частичных состояний нет.
func (e *Engine) tryEnter(ctx context.Context, trend models.FusedTrend) error {
	markPrice, err := e.client.GetMarkPrice(ctx, e.symbol)
	if err != nil {
		return err
	}

	confirmed, deviation, err := e.volumeProfile.Confirms(ctx, e.symbol, markPrice)
	if err != nil {
		return err
	}

	// VWAP может подтвердить вход, когда POC слишком далеко
	if !confirmed && e.vwapOn {
		signal, err := e.vwap.Signal(ctx, e.symbol)
		if err != nil {
			return err
		}
		confirmed = (trend == models.Uptrend && signal == models.TrendUp) ||
			(trend == models.Downtrend && signal == models.TrendDown)
	}

	if !confirmed {
		logger.Info("Вход не подтвержден",
			zap.String("trend", trend.String()),
			zap.Float64("poc_deviation", deviation))
		return nil
	}

	e.state = StatePendingEntry

	plan, err := e.risk.PlanOrder(ctx, e.symbol, trend)
	if err != nil {
		e.state = StateFlat
		return err
	}

	if err := e.client.SetLeverage(ctx, e.symbol, plan.Leverage); err != nil {
		e.state = StateFlat
		return err
	}
	if err := e.client.PlaceMarketOrder(ctx, e.symbol, plan.Side, plan.Quantity); err != nil {
		e.state = StateFlat
		return err
	}
	if err := e.client.PlaceStopMarketOrder(ctx, e.symbol, plan.StopSide, plan.StopPrice); err != nil {
		// Рыночный ордер мог пройти: биржа пересинхронизирует состояние
		// на следующем цикле, машина остается FLAT
		e.state = StateFlat
		return err
	}

	e.state = StateOpenProtected
	e.stopPrice = plan.StopPrice
	e.lastOrderStatus = fmt.Sprintf("%s %.3f %s, стоп на %.1f USDT",
		plan.Side, plan.Quantity, e.symbol, plan.StopPrice)

	logger.Info("Позиция открыта",
		zap.String("side", plan.Side),
		zap.Float64("quantity", plan.Quantity),
		zap.Int("leverage", plan.Leverage),
		zap.Float64("stop", plan.StopPrice))
	return nil
}

// closePosition закрывает позицию: сначала отменяются защитные ордера,
// затем отправляется встречный рыночный ордер, затем пишется журнал.
// Любой сбой до встречного ордера оставляет OPEN_PROTECTED для повтора.
func (e *Engine) closePosition(ctx context.Context, position *models.Position) error {
	if position.Side == models.SideFlat || position.Quantity == 0 {
		e.state = StateFlat
		return nil
	}

	e.state = StateClosing

	// Защитные ордера отменяются до встречного, чтобы не оставить
	// конфликтующих заявок
	orders, err := e.client.ListOpenOrders(ctx, e.symbol)
	if err != nil {
		e.state = StateOpenProtected
		return fmt.Errorf("ошибка получения ордеров перед закрытием: %w", err)
	}
	for _, order := range orders {
		if order.Type != "STOP_MARKET" && order.Type != "TAKE_PROFIT_MARKET" {
			continue
		}
		if err := e.client.CancelOrder(ctx, e.symbol, order.OrderID); err != nil {
			e.state = StateOpenProtected
			return fmt.Errorf("ошибка отмены защитного ордера: %w", err)
		}
	}

	side := "SELL"
	if position.Side == models.SideShort {
		side = "BUY"
	}
	if err := e.client.PlaceMarketOrder(ctx, e.symbol, side, position.Quantity); err != nil {
		e.state = StateOpenProtected
		return fmt.Errorf("ошибка встречного ордера: %w", err)
	}

	pnlPercent, _ := position.PnlPercent()
	record := &models.TradeRecord{
		PnlPercent: pnlPercent,
		PnlUSDT:    position.PnlUSDT(),
		EntryPrice: position.EntryPrice,
		EntryType:  position.Side.String(),
	}
	if err := e.history.Append(record); err != nil {
		// Ордер уже отправлен, потерю записи можно только залогировать
		logger.Error("Ошибка записи в журнал сделок", zap.Error(err))
	}

	e.lastOrderStatus = fmt.Sprintf("Закрыта позиция %s %.3f %s, PNL %.2f%%",
		position.Side.String(), position.Quantity, e.symbol, pnlPercent)
	e.state = StateFlat
	e.stopPrice = 0

	logger.Info("Позиция закрыта",
		zap.String("side", position.Side.String()),
		zap.Float64("quantity", position.Quantity),
		zap.Float64("pnl_percent", pnlPercent),
		zap.Float64("pnl_usdt", record.PnlUSDT))
	return nil
}

// finishCycle публикует снимок состояния и ведет счетчик циклов
func (e *Engine) finishCycle(ctx context.Context, position *models.Position, trend models.FusedTrend) {
	balance, err := e.client.GetAccountBalance(ctx)
	if err != nil {
		logger.Warn("Баланс недоступен для снимка", zap.Error(err))
	}

	pnl, pnlKnown := position.PnlPercent()
	e.store.Publish(models.StatusSnapshot{
		Symbol:          e.symbol,
		Balance:         balance,
		EntryPrice:      position.EntryPrice,
		MarkPrice:       position.MarkPrice,
		PositionSide:    position.Side.String(),
		PnlPercent:      pnl,
		PnlKnown:        pnlKnown,
		LastOrderStatus: e.lastOrderStatus,
		Trend:           trend.String(),
		ServerTimeLocal: time.Now().In(history.Location),
	})

	e.cycleCount++
	if e.cycleCount >= e.config.ResetCycles {
		logger.Info("Достигнут лимит циклов, сброс кэша", zap.Int("cycles", e.cycleCount))
		e.lastOrderStatus = ""
		e.stopPrice = 0
		e.cycleCount = 0
	}
}

func (e *Engine) pollPause() time.Duration {
	return time.Duration(e.config.PollSeconds) * time.Second
}
