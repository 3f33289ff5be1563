package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "binance:\n  api_key: \"key\"\n"))
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if cfg.Trading.Symbol != "BTCUSDT" {
		t.Errorf("Symbol = %s, ожидался BTCUSDT", cfg.Trading.Symbol)
	}
	if cfg.Trading.PrimaryInterval != "1h" || cfg.Trading.SecondaryInterval != "4h" {
		t.Errorf("интервалы %s/%s, ожидались 1h/4h", cfg.Trading.PrimaryInterval, cfg.Trading.SecondaryInterval)
	}
	if cfg.Classifier.GateLow != 0.45 || cfg.Classifier.GateHigh != 0.55 {
		t.Errorf("зона шума %v-%v, ожидалась 0.45-0.55", cfg.Classifier.GateLow, cfg.Classifier.GateHigh)
	}
	if len(cfg.Classifier.CGrid) != 5 {
		t.Errorf("сетка C из %d значений, ожидалось 5", len(cfg.Classifier.CGrid))
	}
	if cfg.Fusion.CombinedThreshold != 0.89 {
		t.Errorf("порог объединения %v, ожидался 0.89", cfg.Fusion.CombinedThreshold)
	}
	if cfg.ATR.Smoothing != "RMA" {
		t.Errorf("сглаживание %s, ожидалось RMA", cfg.ATR.Smoothing)
	}
	if cfg.Risk.StopLossPercent != -100 || cfg.Risk.TakeProfitPercent != 170 {
		t.Errorf("пороги PNL %v/%v, ожидались -100/170", cfg.Risk.StopLossPercent, cfg.Risk.TakeProfitPercent)
	}
	if cfg.Engine.PollSeconds != 60 || cfg.Engine.UnclearSeconds != 600 {
		t.Errorf("паузы %d/%d, ожидались 60/600", cfg.Engine.PollSeconds, cfg.Engine.UnclearSeconds)
	}
	if cfg.History.Type != "file" {
		t.Errorf("тип журнала %s, ожидался file", cfg.History.Type)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	content := `
trading:
  symbol: "ETHUSDT"
  lookback: 700
risk:
  strategy: "fixed_risk"
  take_profit_percent: 175
engine:
  poll_seconds: 30
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if cfg.Trading.Symbol != "ETHUSDT" || cfg.Trading.Lookback != 700 {
		t.Errorf("trading %s/%d, переопределение не применилось", cfg.Trading.Symbol, cfg.Trading.Lookback)
	}
	if cfg.Risk.Strategy != "fixed_risk" || cfg.Risk.TakeProfitPercent != 175 {
		t.Errorf("risk %s/%v, переопределение не применилось", cfg.Risk.Strategy, cfg.Risk.TakeProfitPercent)
	}
	if cfg.Engine.PollSeconds != 30 {
		t.Errorf("poll_seconds = %d, ожидалось 30", cfg.Engine.PollSeconds)
	}
	// Незаданные поля по-прежнему получают значения по умолчанию
	if cfg.Risk.FixedUSDT != 27 {
		t.Errorf("fixed_usdt = %v, ожидалось 27", cfg.Risk.FixedUSDT)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "нет.yaml")); err == nil {
		t.Fatal("ожидалась ошибка для отсутствующего файла")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "trading: [не карта")); err == nil {
		t.Fatal("ожидалась ошибка для некорректного YAML")
	}
}
