package classifier

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/namtrader/engine/internal/config"
	"github.com/namtrader/engine/internal/indicators"
	"github.com/namtrader/engine/pkg/models"
)

func TestGateVerdict(t *testing.T) {
	tests := []struct {
		name   string
		p0, p1 float64
		want   models.TrendDirection
	}{
		{"максимальная неуверенность", 0.50, 0.50, models.TrendIndeterminate},
		{"нижняя граница зоны включена", 0.55, 0.45, models.TrendIndeterminate},
		{"верхняя граница зоны включена", 0.45, 0.55, models.TrendIndeterminate},
		{"чуть выше зоны - рост", 0.449, 0.551, models.TrendUp},
		{"чуть ниже зоны - падение", 0.551, 0.449, models.TrendDown},
		{"уверенный рост", 0.1, 0.9, models.TrendUp},
		{"уверенное падение", 0.9, 0.1, models.TrendDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GateVerdict(tt.p0, tt.p1, 0.45, 0.55); got != tt.want {
				t.Errorf("GateVerdict(%v, %v) = %v, ожидалось %v", tt.p0, tt.p1, got, tt.want)
			}
		})
	}
}

func TestTrainLogisticSeparable(t *testing.T) {
	// Линейно разделимая выборка: класс определяется знаком признака
	var features [][]float64
	var target []float64
	for i := -20; i <= 20; i++ {
		if i == 0 {
			continue
		}
		features = append(features, []float64{float64(i) / 10})
		if i > 0 {
			target = append(target, 1)
		} else {
			target = append(target, 0)
		}
	}

	for _, solver := range []string{"gradient", "lbfgs"} {
		model, err := trainLogistic(features, target, 1, solver)
		if err != nil {
			t.Fatalf("%s: неожиданная ошибка: %v", solver, err)
		}
		if p := model.probability([]float64{3}); p <= 0.5 {
			t.Errorf("%s: p(up | x=3) = %v, ожидалось > 0.5", solver, p)
		}
		if p := model.probability([]float64{-3}); p >= 0.5 {
			t.Errorf("%s: p(up | x=-3) = %v, ожидалось < 0.5", solver, p)
		}
		if acc := accuracyScore(model, features, target); acc < 0.9 {
			t.Errorf("%s: точность на обучении = %v, ожидалось >= 0.9", solver, acc)
		}
	}
}

func TestTrainLogisticUnknownSolver(t *testing.T) {
	if _, err := trainLogistic([][]float64{{1}}, []float64{1}, 1, "newton"); err == nil {
		t.Fatal("ожидалась ошибка для неизвестного метода")
	}
}

func TestF1Score(t *testing.T) {
	// Модель с сильным положительным весом предсказывает 1 для x > 0
	model := &logisticModel{weights: []float64{0, 10}}
	features := [][]float64{{1}, {1}, {-1}, {1}}
	target := []float64{1, 0, 1, 1}

	// tp=2, fp=1, fn=1: f1 = 4/6
	if got := f1Score(model, features, target); math.Abs(got-2.0/3.0) > 1e-12 {
		t.Errorf("f1 = %v, ожидалось 2/3", got)
	}
}

func TestSplitSizesAndDeterminism(t *testing.T) {
	n := 100
	features := make([][]float64, n)
	target := make([]float64, n)
	for i := range features {
		features[i] = []float64{float64(i)}
	}

	trainX, trainY, testX, testY := split(features, target, 0.2, rand.New(rand.NewSource(42)))
	if len(testX) != 20 || len(trainX) != 80 {
		t.Fatalf("размеры выборок %d/%d, ожидалось 80/20", len(trainX), len(testX))
	}
	if len(trainY) != len(trainX) || len(testY) != len(testX) {
		t.Fatal("длины признаков и меток разошлись")
	}

	// Одинаковый seed дает одинаковое разбиение
	trainX2, _, _, _ := split(features, target, 0.2, rand.New(rand.NewSource(42)))
	for i := range trainX {
		if trainX[i][0] != trainX2[i][0] {
			t.Fatal("разбиение не воспроизводится при одном seed")
		}
	}
}

func testConfig() config.ClassifierConfig {
	return config.ClassifierConfig{
		RSIPeriod:  14,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
		TestSize:   0.2,
		Seed:       42,
		CGrid:      []float64{0.1, 1},
		Solvers:    []string{"lbfgs"},
		GateLow:    0.45,
		GateHigh:   0.55,
	}
}

func TestAnalyzeInsufficientData(t *testing.T) {
	candles := make([]*models.Candle, 30)
	for i := range candles {
		price := 100 + float64(i)
		candles[i] = &models.Candle{Open: price, High: price + 1, Low: price - 1, Close: price + 0.5, Volume: 10}
	}

	_, err := NewAnalyzer(testConfig()).Analyze(candles, "BTCUSDT", "1h")
	var insufficient *indicators.DataInsufficientError
	if !errors.As(err, &insufficient) {
		t.Fatalf("ожидалась DataInsufficientError, получено %v", err)
	}
}

func TestAnalyzeReturnsVerdict(t *testing.T) {
	// Зигзаг с трендом дает обучаемую выборку обоих классов
	candles := make([]*models.Candle, 300)
	for i := range candles {
		price := 100 + 0.1*float64(i) + 5*math.Sin(float64(i)/3)
		candles[i] = &models.Candle{
			Open:   price,
			High:   price + 2,
			Low:    price - 2,
			Close:  price + math.Cos(float64(i)/3),
			Volume: 10,
		}
	}

	verdict, err := NewAnalyzer(testConfig()).Analyze(candles, "BTCUSDT", "1h")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if verdict.Symbol != "BTCUSDT" || verdict.Interval != "1h" {
		t.Errorf("вердикт привязан к %s/%s", verdict.Symbol, verdict.Interval)
	}
	if verdict.Accuracy < 0 || verdict.Accuracy > 100 {
		t.Errorf("точность %v вне [0, 100]", verdict.Accuracy)
	}
	if verdict.F1 < 0 || verdict.F1 > 100 {
		t.Errorf("F1 %v вне [0, 100]", verdict.F1)
	}

	// Одинаковый вход и seed дают одинаковый вердикт
	verdict2, err := NewAnalyzer(testConfig()).Analyze(candles, "BTCUSDT", "1h")
	if err != nil {
		t.Fatalf("неожиданная ошибка повтора: %v", err)
	}
	if verdict.Direction != verdict2.Direction || verdict.Accuracy != verdict2.Accuracy {
		t.Error("повторный анализ с тем же seed дал другой результат")
	}
}
