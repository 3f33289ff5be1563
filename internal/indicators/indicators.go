package indicators

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
	"github.com/namtrader/engine/pkg/models"
)

// DataInsufficientError сигнализирует, что свечей меньше минимума индикатора.
// Такой цикл пропускается, ошибка не фатальна.
type DataInsufficientError struct {
	Indicator string
	Need      int
	Got       int
}

func (e *DataInsufficientError) Error() string {
	return fmt.Sprintf("недостаточно данных для %s: нужно %d свечей, есть %d", e.Indicator, e.Need, e.Got)
}

// HeikinAshi преобразует обычные свечи в свечи Heikin-Ashi.
// Исходный ряд не изменяется, downstream-индикаторы работают по результату.
func HeikinAshi(candles []*models.Candle) ([]*models.Candle, error) {
	if len(candles) == 0 {
		return nil, &DataInsufficientError{Indicator: "heikin-ashi", Need: 1, Got: 0}
	}

	result := make([]*models.Candle, len(candles))
	var prevOpen, prevClose float64

	for i, c := range candles {
		haClose := (c.Open + c.High + c.Low + c.Close) / 4

		var haOpen float64
		if i == 0 {
			haOpen = (c.Open + c.Close) / 2
		} else {
			haOpen = (prevOpen + prevClose) / 2
		}

		haHigh := math.Max(c.High, math.Max(haOpen, haClose))
		haLow := math.Min(c.Low, math.Min(haOpen, haClose))

		ha := *c
		ha.Open = haOpen
		ha.High = haHigh
		ha.Low = haLow
		ha.Close = haClose
		result[i] = &ha

		prevOpen = haOpen
		prevClose = haClose
	}

	return result, nil
}

// Ema рассчитывает экспоненциальную скользящую среднюю с заданным span.
// Рекурсия: ema[0] = x[0], ema[i] = alpha*x[i] + (1-alpha)*ema[i-1], alpha = 2/(span+1).
func Ema(values []float64, span int) []float64 {
	result := make([]float64, len(values))
	if len(values) == 0 {
		return result
	}

	alpha := 2.0 / (float64(span) + 1.0)
	result[0] = values[0]
	for i := 1; i < len(values); i++ {
		result[i] = alpha*values[i] + (1-alpha)*result[i-1]
	}
	return result
}

// Ribbon содержит EMA-ленту и производные бинарные признаки
type Ribbon struct {
	Ema5  []float64
	Ema11 []float64
	Ema15 []float64
	Ema34 []float64
	// Признаки хранятся как 0/1 для матрицы признаков
	LongTrend  []float64 // ema11 > ema34
	CrossDown  []float64 // ema5 < ema11
	TriangleUp []float64 // ema11 > ema15
}

// EmaRibbon строит EMA-ленту со спанами 5/11/15/34 и бинарные признаки тренда
func EmaRibbon(closes []float64) *Ribbon {
	r := &Ribbon{
		Ema5:       Ema(closes, 5),
		Ema11:      Ema(closes, 11),
		Ema15:      Ema(closes, 15),
		Ema34:      Ema(closes, 34),
		LongTrend:  make([]float64, len(closes)),
		CrossDown:  make([]float64, len(closes)),
		TriangleUp: make([]float64, len(closes)),
	}

	for i := range closes {
		if r.Ema11[i] > r.Ema34[i] {
			r.LongTrend[i] = 1
		}
		if r.Ema5[i] < r.Ema11[i] {
			r.CrossDown[i] = 1
		}
		if r.Ema11[i] > r.Ema15[i] {
			r.TriangleUp[i] = 1
		}
	}
	return r
}

// Rsi рассчитывает RSI через скользящие средние положительных и отрицательных
// приращений. Первые window значений равны NaN (разогрев).
func Rsi(closes []float64, window int) []float64 {
	result := make([]float64, len(closes))
	for i := range result {
		result[i] = math.NaN()
	}
	if len(closes) <= window {
		return result
	}

	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	for i := window; i < len(closes); i++ {
		var gainSum, lossSum float64
		for j := i - window + 1; j <= i; j++ {
			gainSum += gains[j]
			lossSum += losses[j]
		}
		rs := gainSum / lossSum
		result[i] = 100 - 100/(1+rs)
	}
	return result
}

// Macd рассчитывает MACD и сигнальную линию
func Macd(closes []float64, fast, slow, signal int) (macd, signalLine []float64) {
	emaFast := Ema(closes, fast)
	emaSlow := Ema(closes, slow)

	macd = make([]float64, len(closes))
	for i := range closes {
		macd[i] = emaFast[i] - emaSlow[i]
	}
	signalLine = Ema(macd, signal)
	return macd, signalLine
}

// ParabolicSar рассчитывает Parabolic SAR прямой рекурсией.
// Начальные условия: sar[0] = close[0], ep = high[0], восходящий тренд.
func ParabolicSar(highs, lows, closes []float64, accel, maximum float64) ([]float64, error) {
	if len(closes) == 0 {
		return nil, &DataInsufficientError{Indicator: "parabolic-sar", Need: 1, Got: 0}
	}

	sar := make([]float64, len(closes))
	sar[0] = closes[0]
	ep := highs[0]
	af := accel
	trend := 1

	for i := 1; i < len(closes); i++ {
		sar[i] = sar[i-1] + af*(ep-sar[i-1])

		if trend == 1 {
			if lows[i] < sar[i] {
				// Разворот вниз: SAR сбрасывается на экстремум
				trend = -1
				sar[i] = ep
				af = accel
				ep = lows[i]
			}
		} else {
			if highs[i] > sar[i] {
				// Разворот вверх
				trend = 1
				sar[i] = ep
				af = accel
				ep = highs[i]
			}
		}

		if trend == 1 && highs[i] > ep {
			ep = highs[i]
			af = math.Min(af+accel, maximum)
		} else if trend == -1 && lows[i] < ep {
			ep = lows[i]
			af = math.Min(af+accel, maximum)
		}
	}
	return sar, nil
}

// TrueRange рассчитывает ряд истинных диапазонов.
// Результат короче входа на один элемент.
func TrueRange(highs, lows, closes []float64) ([]float64, error) {
	if len(closes) < 2 {
		return nil, &DataInsufficientError{Indicator: "true-range", Need: 2, Got: len(closes)}
	}

	tr := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		tr[i-1] = math.Max(hl, math.Max(hc, lc))
	}
	return tr, nil
}

// Atr сглаживает истинный диапазон выбранным методом и возвращает
// последнее значение. RMA считается рекурсией с alpha = 1/length,
// SMA/EMA/WMA берутся из talib.
func Atr(highs, lows, closes []float64, length int, smoothing string) (float64, error) {
	tr, err := TrueRange(highs, lows, closes)
	if err != nil {
		return 0, err
	}
	if len(tr) < length {
		return 0, &DataInsufficientError{Indicator: "atr", Need: length + 1, Got: len(closes)}
	}

	switch smoothing {
	case "RMA":
		alpha := 1.0 / float64(length)
		rma := tr[0]
		for i := 1; i < len(tr); i++ {
			rma = alpha*tr[i] + (1-alpha)*rma
		}
		return rma, nil
	case "SMA":
		smoothed := talib.Ma(tr, length, talib.SMA)
		return smoothed[len(smoothed)-1], nil
	case "EMA":
		smoothed := talib.Ma(tr, length, talib.EMA)
		return smoothed[len(smoothed)-1], nil
	case "WMA":
		smoothed := talib.Ma(tr, length, talib.WMA)
		return smoothed[len(smoothed)-1], nil
	default:
		return 0, fmt.Errorf("неизвестный метод сглаживания ATR: %s", smoothing)
	}
}

// VwapRow строка ряда VWAP с зонами отклонения
type VwapRow struct {
	Vwap       float64
	Oversold   float64
	Overbought float64
	Close      float64
}

// VwapBands рассчитывает VWAP и зоны перекупленности/перепроданности
// на накопительных суммах по окну свечей.
func VwapBands(candles []*models.Candle, devUp, devDown float64) ([]VwapRow, error) {
	if len(candles) < 2 {
		return nil, &DataInsufficientError{Indicator: "vwap", Need: 2, Got: len(candles)}
	}

	rows := make([]VwapRow, len(candles))
	var priceVolSum, volSum, price2VolSum float64

	for i, c := range candles {
		hlc := (c.High + c.Low + c.Close) / 3
		priceVolSum += hlc * c.Volume
		volSum += c.Volume
		price2VolSum += hlc * hlc * c.Volume

		vwap := priceVolSum / volSum
		// Дисперсия не должна уходить в минус из-за ошибок округления
		variance := math.Max(price2VolSum/volSum-vwap*vwap, 0)
		stdDev := math.Sqrt(variance)

		rows[i] = VwapRow{
			Vwap:       vwap,
			Oversold:   vwap - devDown*stdDev,
			Overbought: vwap + devUp*stdDev,
			Close:      c.Close,
		}
	}
	return rows, nil
}

// VolumeProfilePoc делит ценовой диапазон окна на bins равных каналов,
// считает для каждого канала число свечей, чей интервал [low, high] его
// пересекает, и возвращает середину канала с максимумом.
// При равенстве выигрывает канал с меньшей ценой.
func VolumeProfilePoc(candles []*models.Candle, bins int) (float64, error) {
	if len(candles) == 0 {
		return 0, &DataInsufficientError{Indicator: "volume-profile", Need: 1, Got: 0}
	}

	highest := candles[0].High
	lowest := candles[0].Low
	for _, c := range candles {
		highest = math.Max(highest, c.High)
		lowest = math.Min(lowest, c.Low)
	}

	if highest == lowest {
		return highest, nil
	}

	channelWidth := (highest - lowest) / float64(bins)
	bestCount := -1
	bestIndex := 0

	for i := 0; i < bins; i++ {
		lower := lowest + float64(i)*channelWidth
		upper := lower + channelWidth

		count := 0
		for _, c := range candles {
			if c.Low <= upper && c.High >= lower {
				count++
			}
		}
		if count > bestCount {
			bestCount = count
			bestIndex = i
		}
	}

	pocLower := lowest + float64(bestIndex)*channelWidth
	return pocLower + channelWidth/2, nil
}
