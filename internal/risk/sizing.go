package risk

import (
	"fmt"
	"math"

	"github.com/namtrader/engine/internal/config"
)

// SizingStrategy политика расчета нотионала сделки.
// Две несовместимые формулы из разных вариантов стратегии
// выставлены как именованные реализации, выбор - в конфигурации.
type SizingStrategy interface {
	Name() string
	Notional(balance float64, leverage int) float64
}

// newSizingStrategy выбирает стратегию по имени из конфигурации
func newSizingStrategy(cfg config.RiskConfig) (SizingStrategy, error) {
	switch cfg.Strategy {
	case "balance_fraction":
		return &BalanceFraction{Fraction: cfg.BalanceFraction, Floor: cfg.FloorUSDT}, nil
	case "fixed_risk":
		return &FixedRisk{Amount: cfg.FixedUSDT}, nil
	default:
		return nil, fmt.Errorf("неизвестная стратегия размера позиции: %s", cfg.Strategy)
	}
}

// BalanceFraction нотионал как доля баланса с минимальной базой,
// база округляется до целого USDT
type BalanceFraction struct {
	Fraction float64
	Floor    float64
}

func (s *BalanceFraction) Name() string {
	return "balance_fraction"
}

func (s *BalanceFraction) Notional(balance float64, leverage int) float64 {
	base := math.Round(math.Max(balance*s.Fraction, s.Floor))
	return base * float64(leverage)
}

// FixedRisk нотионал от фиксированной базы в USDT, баланс не участвует
type FixedRisk struct {
	Amount float64
}

func (s *FixedRisk) Name() string {
	return "fixed_risk"
}

func (s *FixedRisk) Notional(balance float64, leverage int) float64 {
	return s.Amount * float64(leverage)
}
