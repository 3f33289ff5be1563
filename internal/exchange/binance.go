package exchange

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/google/uuid"
	"github.com/namtrader/engine/internal/config"
	"github.com/namtrader/engine/pkg/models"
)

// Gateway контракт биржевого шлюза, потребляемый ядром.
// Все вызовы блокирующие и строго последовательные внутри цикла.
type Gateway interface {
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*models.Candle, error)
	GetKlinesEndingAt(ctx context.Context, symbol, interval string, limit int, endTime time.Time) ([]*models.Candle, error)
	GetMarkPrice(ctx context.Context, symbol string) (float64, error)
	GetTickerPrice(ctx context.Context, symbol string) (float64, error)
	GetPosition(ctx context.Context, symbol string) (*models.Position, error)
	GetAccountBalance(ctx context.Context) (float64, error)
	SetLeverage(ctx context.Context, symbol string, leverage int) error
	PlaceMarketOrder(ctx context.Context, symbol, side string, quantity float64) error
	PlaceStopMarketOrder(ctx context.Context, symbol, side string, stopPrice float64) error
	ListOpenOrders(ctx context.Context, symbol string) ([]*models.Order, error)
	CancelOrder(ctx context.Context, symbol string, orderID int64) error
	Ping(ctx context.Context) error
}

// BinanceClient клиент фьючерсного рынка Binance
type BinanceClient struct {
	futures *futures.Client
}

// NewBinanceClient создает новый клиент Binance
func NewBinanceClient(cfg config.BinanceConfig) (*BinanceClient, error) {
	futuresClient := futures.NewClient(cfg.APIKey, cfg.APISecret)
	if cfg.Testnet {
		futures.UseTestnet = true
	}

	return &BinanceClient{
		futures: futuresClient,
	}, nil
}

// Ping проверяет доступность биржи
func (c *BinanceClient) Ping(ctx context.Context) error {
	if err := c.futures.NewPingService().Do(ctx); err != nil {
		return fmt.Errorf("биржа недоступна: %w", err)
	}
	return nil
}

// GetKlines получает последние свечи
func (c *BinanceClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*models.Candle, error) {
	return c.GetKlinesEndingAt(ctx, symbol, interval, limit, time.Time{})
}

// GetKlinesEndingAt получает свечи, заканчивающиеся на endTime.
// Нулевое время означает самые свежие свечи.
func (c *BinanceClient) GetKlinesEndingAt(ctx context.Context, symbol, interval string, limit int, endTime time.Time) ([]*models.Candle, error) {
	service := c.futures.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit)
	if !endTime.IsZero() {
		service = service.EndTime(endTime.UnixMilli())
	}

	klines, err := service.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения свечей: %w", err)
	}

	candles := make([]*models.Candle, len(klines))
	for i, k := range klines {
		open, _ := strconv.ParseFloat(k.Open, 64)
		high, _ := strconv.ParseFloat(k.High, 64)
		low, _ := strconv.ParseFloat(k.Low, 64)
		closePrice, _ := strconv.ParseFloat(k.Close, 64)
		volume, _ := strconv.ParseFloat(k.Volume, 64)

		candles[i] = &models.Candle{
			Symbol:    symbol,
			Interval:  interval,
			OpenTime:  time.Unix(k.OpenTime/1000, 0),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
			CloseTime: time.Unix(k.CloseTime/1000, 0),
		}
	}

	return candles, nil
}

// GetMarkPrice получает mark price символа
func (c *BinanceClient) GetMarkPrice(ctx context.Context, symbol string) (float64, error) {
	indexes, err := c.futures.NewPremiumIndexService().
		Symbol(symbol).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка получения mark price: %w", err)
	}
	if len(indexes) == 0 {
		return 0, fmt.Errorf("нет данных mark price для %s", symbol)
	}

	price, err := strconv.ParseFloat(indexes[0].MarkPrice, 64)
	if err != nil {
		return 0, fmt.Errorf("ошибка разбора mark price: %w", err)
	}
	return price, nil
}

// GetTickerPrice получает последнюю цену сделки
func (c *BinanceClient) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := c.futures.NewListPricesService().
		Symbol(symbol).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка получения цены тикера: %w", err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("нет данных цены для %s", symbol)
	}

	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("ошибка разбора цены тикера: %w", err)
	}
	return price, nil
}

// GetPosition получает снимок позиции по символу.
// Ошибка разбора entry price возвращается наверх: закрытие позиции
// без достоверной цены входа запрещено.
func (c *BinanceClient) GetPosition(ctx context.Context, symbol string) (*models.Position, error) {
	positions, err := c.futures.NewGetPositionRiskService().
		Symbol(symbol).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения позиции: %w", err)
	}
	if len(positions) == 0 {
		return nil, fmt.Errorf("нет информации о позиции для %s", symbol)
	}

	p := positions[0]
	amount, err := strconv.ParseFloat(p.PositionAmt, 64)
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора количества позиции: %w", err)
	}
	entryPrice, err := strconv.ParseFloat(p.EntryPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора цены входа: %w", err)
	}
	markPrice, err := strconv.ParseFloat(p.MarkPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора mark price позиции: %w", err)
	}
	leverage, err := strconv.ParseFloat(p.Leverage, 64)
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора плеча: %w", err)
	}

	side := models.SideFlat
	if amount > 0 {
		side = models.SideLong
	} else if amount < 0 {
		side = models.SideShort
		amount = -amount
	}

	return &models.Position{
		Symbol:     symbol,
		Side:       side,
		Quantity:   amount,
		EntryPrice: entryPrice,
		MarkPrice:  markPrice,
		Leverage:   leverage,
	}, nil
}

// GetAccountBalance получает баланс кошелька в USDT
func (c *BinanceClient) GetAccountBalance(ctx context.Context) (float64, error) {
	account, err := c.futures.NewGetAccountService().Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка получения баланса: %w", err)
	}

	balance, err := strconv.ParseFloat(account.TotalWalletBalance, 64)
	if err != nil {
		return 0, fmt.Errorf("ошибка разбора баланса: %w", err)
	}
	return balance, nil
}

// SetLeverage устанавливает плечо для символа
func (c *BinanceClient) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	_, err := c.futures.NewChangeLeverageService().
		Symbol(symbol).
		Leverage(leverage).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("ошибка установки плеча: %w", err)
	}
	return nil
}

// PlaceMarketOrder размещает рыночный ордер
func (c *BinanceClient) PlaceMarketOrder(ctx context.Context, symbol, side string, quantity float64) error {
	_, err := c.futures.NewCreateOrderService().
		Symbol(symbol).
		Side(futures.SideType(side)).
		Type(futures.OrderTypeMarket).
		Quantity(strconv.FormatFloat(quantity, 'f', -1, 64)).
		NewClientOrderID(newClientOrderID()).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("ошибка размещения рыночного ордера: %w", err)
	}
	return nil
}

// PlaceStopMarketOrder размещает защитный STOP_MARKET ордер,
// закрывающий всю позицию по срабатыванию
func (c *BinanceClient) PlaceStopMarketOrder(ctx context.Context, symbol, side string, stopPrice float64) error {
	_, err := c.futures.NewCreateOrderService().
		Symbol(symbol).
		Side(futures.SideType(side)).
		Type(futures.OrderTypeStopMarket).
		StopPrice(strconv.FormatFloat(stopPrice, 'f', -1, 64)).
		ClosePosition(true).
		NewClientOrderID(newClientOrderID()).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("ошибка размещения стоп-ордера: %w", err)
	}
	return nil
}

// ListOpenOrders возвращает открытые ордера по символу
func (c *BinanceClient) ListOpenOrders(ctx context.Context, symbol string) ([]*models.Order, error) {
	orders, err := c.futures.NewListOpenOrdersService().
		Symbol(symbol).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения открытых ордеров: %w", err)
	}

	result := make([]*models.Order, len(orders))
	for i, o := range orders {
		stopPrice, _ := strconv.ParseFloat(o.StopPrice, 64)
		result[i] = &models.Order{
			OrderID:   o.OrderID,
			Symbol:    o.Symbol,
			Type:      string(o.Type),
			Side:      string(o.Side),
			StopPrice: stopPrice,
		}
	}
	return result, nil
}

// CancelOrder отменяет ордер по идентификатору
func (c *BinanceClient) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	_, err := c.futures.NewCancelOrderService().
		Symbol(symbol).
		OrderID(orderID).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("ошибка отмены ордера %d: %w", orderID, err)
	}
	return nil
}

// newClientOrderID генерирует уникальный идентификатор клиентского ордера
func newClientOrderID() string {
	return "namtrader-" + uuid.NewString()[:18]
}
