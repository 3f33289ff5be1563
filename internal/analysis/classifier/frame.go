package classifier

import (
	"math"

	"github.com/namtrader/engine/internal/indicators"
	"github.com/namtrader/engine/pkg/models"
	"gonum.org/v1/gonum/stat"
)

// frame матрица признаков с целевой переменной.
// Строки выровнены: target[i] = 1, если close следующей свечи выше текущей.
// Latest - признаки самой свежей свечи, для которой цель еще неизвестна.
type frame struct {
	features [][]float64
	target   []float64
	latest   []float64
}

// featureCount размер вектора признаков:
// rsi, macd, signal, longTrend, crossDown, triangleUp, parabolicSar
const featureCount = 7

// buildFrame строит матрицу признаков по свечам Heikin-Ashi
func buildFrame(candles []*models.Candle, cfg frameConfig) (*frame, error) {
	ha, err := indicators.HeikinAshi(candles)
	if err != nil {
		return nil, err
	}

	n := len(ha)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i, c := range ha {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	rsi := indicators.Rsi(closes, cfg.rsiPeriod)
	macd, signalLine := indicators.Macd(closes, cfg.macdFast, cfg.macdSlow, cfg.macdSignal)
	ribbon := indicators.EmaRibbon(closes)
	sar, err := indicators.ParabolicSar(highs, lows, closes, 0.02, 0.2)
	if err != nil {
		return nil, err
	}

	row := func(i int) []float64 {
		return []float64{
			rsi[i],
			macd[i],
			signalLine[i],
			ribbon.LongTrend[i],
			ribbon.CrossDown[i],
			ribbon.TriangleUp[i],
			sar[i],
		}
	}

	f := &frame{}
	for i := 0; i < n-1; i++ {
		r := row(i)
		if hasNaN(r) {
			continue
		}
		f.features = append(f.features, r)
		if closes[i+1] > closes[i] {
			f.target = append(f.target, 1)
		} else {
			f.target = append(f.target, 0)
		}
	}

	last := row(n - 1)
	if hasNaN(last) {
		return nil, &indicators.DataInsufficientError{Indicator: "classifier", Need: cfg.rsiPeriod + 2, Got: n}
	}
	f.latest = last

	return f, nil
}

type frameConfig struct {
	rsiPeriod  int
	macdFast   int
	macdSlow   int
	macdSignal int
}

func hasNaN(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// standardize приводит каждый столбец к нулевому среднему и единичной
// дисперсии по обучающим строкам и применяет те же параметры к latest.
// Константные столбцы остаются нулями.
func (f *frame) standardize() {
	for col := 0; col < featureCount; col++ {
		column := make([]float64, len(f.features))
		for i, r := range f.features {
			column[i] = r[col]
		}

		mean, std := stat.MeanStdDev(column, nil)
		if std == 0 || math.IsNaN(std) {
			for i := range f.features {
				f.features[i][col] = 0
			}
			f.latest[col] = 0
			continue
		}

		for i := range f.features {
			f.features[i][col] = (f.features[i][col] - mean) / std
		}
		f.latest[col] = (f.latest[col] - mean) / std
	}
}
