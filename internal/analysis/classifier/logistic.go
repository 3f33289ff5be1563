package classifier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// logisticModel логистическая регрессия с L2-регуляризацией.
// weights[0] - свободный член, далее коэффициенты признаков.
type logisticModel struct {
	weights []float64
}

// trainLogistic минимизирует регуляризованную кросс-энтропию методом
// градиентного спуска или L-BFGS из gonum/optimize.
// Регуляризация: 1/(2C) * ||w||^2, свободный член не штрафуется.
func trainLogistic(features [][]float64, target []float64, c float64, solver string) (*logisticModel, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("пустая обучающая выборка")
	}
	dim := len(features[0]) + 1

	problem := optimize.Problem{
		Func: func(theta []float64) float64 {
			var loss float64
			for i, row := range features {
				z := theta[0]
				for j, v := range row {
					z += theta[j+1] * v
				}
				// Метки переводятся в {-1, +1} для устойчивой формы потерь
				y := 2*target[i] - 1
				loss += softplus(-y * z)
			}
			for j := 1; j < dim; j++ {
				loss += theta[j] * theta[j] / (2 * c)
			}
			return loss
		},
		Grad: func(grad, theta []float64) {
			for j := range grad {
				grad[j] = 0
			}
			for i, row := range features {
				z := theta[0]
				for j, v := range row {
					z += theta[j+1] * v
				}
				// d/dz softplus(-y*z) = -y * sigmoid(-y*z)
				y := 2*target[i] - 1
				g := -y * sigmoid(-y*z)
				grad[0] += g
				for j, v := range row {
					grad[j+1] += g * v
				}
			}
			for j := 1; j < dim; j++ {
				grad[j] += theta[j] / c
			}
		},
	}

	var method optimize.Method
	switch solver {
	case "gradient":
		method = &optimize.GradientDescent{}
	case "lbfgs":
		method = &optimize.LBFGS{}
	default:
		return nil, fmt.Errorf("неизвестный метод оптимизации: %s", solver)
	}

	settings := &optimize.Settings{MajorIterations: 1000}
	initial := make([]float64, dim)

	result, err := optimize.Minimize(problem, initial, settings, method)
	if result == nil {
		return nil, fmt.Errorf("ошибка обучения модели: %w", err)
	}
	for _, w := range result.X {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("обучение модели разошлось")
		}
	}

	return &logisticModel{weights: result.X}, nil
}

// probability возвращает вероятность класса 1 для вектора признаков
func (m *logisticModel) probability(row []float64) float64 {
	z := m.weights[0]
	for j, v := range row {
		z += m.weights[j+1] * v
	}
	return sigmoid(z)
}

// predict возвращает предсказанный класс 0/1
func (m *logisticModel) predict(row []float64) float64 {
	if m.probability(row) >= 0.5 {
		return 1
	}
	return 0
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// softplus численно устойчивый log(1+exp(t))
func softplus(t float64) float64 {
	if t > 0 {
		return t + math.Log1p(math.Exp(-t))
	}
	return math.Log1p(math.Exp(t))
}

// accuracyScore доля совпавших предсказаний
func accuracyScore(m *logisticModel, features [][]float64, target []float64) float64 {
	if len(features) == 0 {
		return 0
	}
	correct := 0
	for i, row := range features {
		if m.predict(row) == target[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(features))
}

// f1Score F1-мера по положительному классу
func f1Score(m *logisticModel, features [][]float64, target []float64) float64 {
	var tp, fp, fn float64
	for i, row := range features {
		pred := m.predict(row)
		switch {
		case pred == 1 && target[i] == 1:
			tp++
		case pred == 1 && target[i] == 0:
			fp++
		case pred == 0 && target[i] == 1:
			fn++
		}
	}
	if 2*tp+fp+fn == 0 {
		return 0
	}
	return 2 * tp / (2*tp + fp + fn)
}
