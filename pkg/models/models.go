package models

import (
	"time"
)

// Candle представляет свечу
type Candle struct {
	Symbol    string
	Interval  string
	OpenTime  time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime time.Time
}

// TrendDirection направление тренда на одном таймфрейме
type TrendDirection int

const (
	// TrendIndeterminate вероятности модели попали в зону шума
	TrendIndeterminate TrendDirection = iota
	// TrendUp модель предсказывает рост следующей свечи
	TrendUp
	// TrendDown модель предсказывает падение следующей свечи
	TrendDown
)

// String возвращает читаемое имя направления
func (d TrendDirection) String() string {
	switch d {
	case TrendUp:
		return "UP"
	case TrendDown:
		return "DOWN"
	default:
		return "INDETERMINATE"
	}
}

// TimeframeVerdict результат классификатора для одного таймфрейма
type TimeframeVerdict struct {
	Symbol    string
	Interval  string
	Direction TrendDirection
	Accuracy  float64 // процент на отложенной выборке, 0-100
	F1        float64 // процент на отложенной выборке, 0-100
}

// FusedTrend итоговый тренд после объединения двух таймфреймов
type FusedTrend int

const (
	// TrendUnclear тренд не определен, торговля не ведется
	TrendUnclear FusedTrend = iota
	// Uptrend восходящий тренд
	Uptrend
	// Downtrend нисходящий тренд
	Downtrend
)

// String возвращает читаемое имя тренда
func (t FusedTrend) String() string {
	switch t {
	case Uptrend:
		return "UPTREND"
	case Downtrend:
		return "DOWNTREND"
	default:
		return "UNCLEAR"
	}
}

// PositionSide сторона открытой позиции
type PositionSide int

const (
	// SideFlat позиции нет
	SideFlat PositionSide = iota
	// SideLong длинная позиция
	SideLong
	// SideShort короткая позиция
	SideShort
)

// String возвращает читаемое имя стороны
func (s PositionSide) String() string {
	switch s {
	case SideLong:
		return "Long"
	case SideShort:
		return "Short"
	default:
		return "Flat"
	}
}

// Position снимок позиции с биржи. Источник истины - сама биржа,
// поля перечитываются каждый цикл.
type Position struct {
	Symbol     string
	Side       PositionSide
	Quantity   float64 // абсолютное значение
	EntryPrice float64
	MarkPrice  float64
	Leverage   float64
}

// PnlUSDT возвращает нереализованный PNL в USDT
func (p *Position) PnlUSDT() float64 {
	switch p.Side {
	case SideLong:
		return (p.MarkPrice - p.EntryPrice) * p.Quantity
	case SideShort:
		return (p.EntryPrice - p.MarkPrice) * p.Quantity
	default:
		return 0
	}
}

// PnlPercent возвращает PNL в процентах от маржинальной стоимости позиции.
// Второй результат false, если стоимость позиции нулевая и процент не определен.
func (p *Position) PnlPercent() (float64, bool) {
	if p.Side == SideFlat || p.Leverage == 0 {
		return 0, false
	}
	positionValue := (p.EntryPrice * p.Quantity) / p.Leverage
	if positionValue == 0 {
		return 0, false
	}
	return p.PnlUSDT() / positionValue * 100, true
}

// TradeRecord запись о закрытой сделке для журнала истории
type TradeRecord struct {
	Sequence   int
	Timestamp  time.Time // локальное время UTC+7
	PnlPercent float64
	PnlUSDT    float64
	EntryPrice float64
	EntryType  string // "Long" или "Short"
}

// StatusSnapshot снимок состояния для страницы статуса
type StatusSnapshot struct {
	Symbol          string
	Balance         float64
	EntryPrice      float64
	MarkPrice       float64
	PositionSide    string
	PnlPercent      float64
	PnlKnown        bool
	LastOrderStatus string
	Trend           string
	ServerTimeLocal time.Time
}

// Order открытый ордер на бирже
type Order struct {
	OrderID   int64
	Symbol    string
	Type      string // MARKET, STOP_MARKET, TAKE_PROFIT_MARKET
	Side      string // BUY, SELL
	StopPrice float64
}
