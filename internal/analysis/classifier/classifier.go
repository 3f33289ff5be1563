package classifier

import (
	"fmt"
	"math/rand"

	"github.com/namtrader/engine/internal/config"
	"github.com/namtrader/engine/internal/indicators"
	"github.com/namtrader/engine/pkg/logger"
	"github.com/namtrader/engine/pkg/models"
	"go.uber.org/zap"
)

// minTrainRows минимум строк после отбрасывания разогрева индикаторов
const minTrainRows = 50

// Analyzer классификатор направления для одного таймфрейма.
// Модель обучается заново на каждом вызове Analyze.
type Analyzer struct {
	config config.ClassifierConfig
}

// NewAnalyzer создает новый классификатор
func NewAnalyzer(cfg config.ClassifierConfig) *Analyzer {
	return &Analyzer{
		config: cfg,
	}
}

// Analyze обучает модель на окне свечей и возвращает вердикт по направлению
// следующей свечи с точностью и F1 на отложенной выборке.
func (a *Analyzer) Analyze(candles []*models.Candle, symbol, interval string) (*models.TimeframeVerdict, error) {
	f, err := buildFrame(candles, frameConfig{
		rsiPeriod:  a.config.RSIPeriod,
		macdFast:   a.config.MACDFast,
		macdSlow:   a.config.MACDSlow,
		macdSignal: a.config.MACDSignal,
	})
	if err != nil {
		return nil, err
	}
	if len(f.features) < minTrainRows {
		return nil, &indicators.DataInsufficientError{Indicator: "classifier", Need: minTrainRows, Got: len(f.features)}
	}

	f.standardize()

	// Фиксированный seed дает воспроизводимое разбиение
	rng := rand.New(rand.NewSource(a.config.Seed))
	trainX, trainY, testX, testY := split(f.features, f.target, a.config.TestSize, rng)

	best, err := a.gridSearch(trainX, trainY, rng)
	if err != nil {
		return nil, err
	}

	// Лучшая комбинация дообучается на всей обучающей части
	model, err := trainLogistic(trainX, trainY, best.c, best.solver)
	if err != nil {
		return nil, fmt.Errorf("ошибка финального обучения: %w", err)
	}

	accuracy := accuracyScore(model, testX, testY) * 100
	f1 := f1Score(model, testX, testY) * 100

	p1 := model.probability(f.latest)
	direction := GateVerdict(1-p1, p1, a.config.GateLow, a.config.GateHigh)

	logger.Debug("Классификатор обучен",
		zap.String("symbol", symbol),
		zap.String("interval", interval),
		zap.Float64("c", best.c),
		zap.String("solver", best.solver),
		zap.Float64("accuracy", accuracy),
		zap.Float64("f1", f1),
		zap.Float64("p_up", p1),
		zap.String("direction", direction.String()))

	return &models.TimeframeVerdict{
		Symbol:    symbol,
		Interval:  interval,
		Direction: direction,
		Accuracy:  accuracy,
		F1:        f1,
	}, nil
}

// GateVerdict применяет зону уверенности: вероятность любого класса в
// [low, high] означает шум, а не сигнал, и дает неопределенный вердикт.
func GateVerdict(p0, p1, low, high float64) models.TrendDirection {
	if (p0 >= low && p0 <= high) || (p1 >= low && p1 <= high) {
		return models.TrendIndeterminate
	}
	if p1 > p0 {
		return models.TrendUp
	}
	return models.TrendDown
}

type gridResult struct {
	c      float64
	solver string
}

// gridSearch перебирает сетку силы регуляризации и методов оптимизации,
// выбирая комбинацию с лучшей точностью на валидационной части обучающей
// выборки. При равенстве выигрывает первая комбинация.
func (a *Analyzer) gridSearch(trainX [][]float64, trainY []float64, rng *rand.Rand) (*gridResult, error) {
	subX, subY, valX, valY := split(trainX, trainY, a.config.TestSize, rng)

	var best *gridResult
	bestScore := -1.0

	for _, c := range a.config.CGrid {
		for _, solver := range a.config.Solvers {
			model, err := trainLogistic(subX, subY, c, solver)
			if err != nil {
				logger.Warn("Комбинация сетки пропущена",
					zap.Float64("c", c), zap.String("solver", solver), zap.Error(err))
				continue
			}
			score := accuracyScore(model, valX, valY)
			if score > bestScore {
				bestScore = score
				best = &gridResult{c: c, solver: solver}
			}
		}
	}

	if best == nil {
		return nil, fmt.Errorf("ни одна комбинация сетки не обучилась")
	}
	return best, nil
}

// split перемешивает строки и отделяет хвост в размере testSize
func split(features [][]float64, target []float64, testSize float64, rng *rand.Rand) (trainX [][]float64, trainY []float64, testX [][]float64, testY []float64) {
	n := len(features)
	perm := rng.Perm(n)

	testCount := int(float64(n) * testSize)
	if testCount < 1 {
		testCount = 1
	}
	trainCount := n - testCount

	for i, idx := range perm {
		if i < trainCount {
			trainX = append(trainX, features[idx])
			trainY = append(trainY, target[idx])
		} else {
			testX = append(testX, features[idx])
			testY = append(testY, target[idx])
		}
	}
	return trainX, trainY, testX, testY
}
