package config

import (
	"fmt"
	"os"

	"github.com/namtrader/engine/pkg/logger"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// Config представляет полную конфигурацию приложения
type Config struct {
	Binance    BinanceConfig    `yaml:"binance"`
	Trading    TradingConfig    `yaml:"trading"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Fusion     FusionConfig     `yaml:"fusion"`
	ATR        ATRConfig        `yaml:"atr"`
	VolumeProfile VolumeProfileConfig `yaml:"volume_profile"`
	VWAP       VWAPConfig       `yaml:"vwap"`
	Risk       RiskConfig       `yaml:"risk"`
	Engine     EngineConfig     `yaml:"engine"`
	Server     ServerConfig     `yaml:"server"`
	History    HistoryConfig    `yaml:"history"`
}

// BinanceConfig содержит настройки подключения к Binance
type BinanceConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Testnet   bool   `yaml:"testnet"`
}

// TradingConfig содержит настройки торговли
type TradingConfig struct {
	Symbol            string `yaml:"symbol"`
	PrimaryInterval   string `yaml:"primary_interval"`   // короткий горизонт, например 1h
	SecondaryInterval string `yaml:"secondary_interval"` // длинный горизонт, например 4h
	Lookback          int    `yaml:"lookback"`           // количество свечей для обучения
}

// ClassifierConfig настройки классификатора направления
type ClassifierConfig struct {
	RSIPeriod  int       `yaml:"rsi_period"`
	MACDFast   int       `yaml:"macd_fast"`
	MACDSlow   int       `yaml:"macd_slow"`
	MACDSignal int       `yaml:"macd_signal"`
	TestSize   float64   `yaml:"test_size"` // доля отложенной выборки
	Seed       int64     `yaml:"seed"`
	CGrid      []float64 `yaml:"c_grid"`  // сетка силы регуляризации
	Solvers    []string  `yaml:"solvers"` // gradient, lbfgs
	GateLow    float64   `yaml:"gate_low"`  // нижняя граница зоны шума
	GateHigh   float64   `yaml:"gate_high"` // верхняя граница зоны шума
}

// FusionConfig пороговые значения объединения двух таймфреймов
type FusionConfig struct {
	CombinedThreshold float64 `yaml:"combined_threshold"` // порог для совпадающих вердиктов
	PrimaryAccuracy   float64 `yaml:"primary_accuracy"`   // порог одиночного короткого горизонта
	PrimaryF1         float64 `yaml:"primary_f1"`
	SecondaryAccuracy float64 `yaml:"secondary_accuracy"` // порог одиночного длинного горизонта
	SecondaryF1       float64 `yaml:"secondary_f1"`
}

// ATRConfig настройки расчета стопов по ATR
type ATRConfig struct {
	Interval   string  `yaml:"interval"`
	Length     int     `yaml:"length"`
	Multiplier float64 `yaml:"multiplier"`
	Smoothing  string  `yaml:"smoothing"` // RMA, SMA, EMA, WMA
}

// VolumeProfileConfig настройки профиля объема для подтверждения входа
type VolumeProfileConfig struct {
	Interval         string  `yaml:"interval"`
	Lookback         int     `yaml:"lookback"`
	Bins             int     `yaml:"bins"`
	ProximityPercent float64 `yaml:"proximity_percent"` // макс. отклонение POC от mark price
}

// VWAPConfig настройки VWAP-подтверждения входа
type VWAPConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Interval string  `yaml:"interval"`
	Lookback int     `yaml:"lookback"`
	DevUp    float64 `yaml:"dev_up"`
	DevDown  float64 `yaml:"dev_down"`
}

// RiskConfig настройки риска и расчета размера позиции
type RiskConfig struct {
	Strategy          string  `yaml:"strategy"`          // balance_fraction или fixed_risk
	BalanceFraction   float64 `yaml:"balance_fraction"`  // доля баланса на сделку
	FloorUSDT         float64 `yaml:"floor_usdt"`        // минимальная база в USDT
	FixedUSDT         float64 `yaml:"fixed_usdt"`        // фиксированная база в USDT
	StopLossPercent   float64 `yaml:"stop_loss_percent"` // порог PNL% для стоп-лосса
	TakeProfitPercent float64 `yaml:"take_profit_percent"`
}

// EngineConfig настройки цикла принятия решений
type EngineConfig struct {
	PollSeconds    int `yaml:"poll_seconds"`    // пауза активного цикла
	UnclearSeconds int `yaml:"unclear_seconds"` // пауза после неясного тренда
	ErrorSeconds   int `yaml:"error_seconds"`   // базовая пауза после ошибки
	ResetCycles    int `yaml:"reset_cycles"`    // сброс кэша после N циклов
}

// ServerConfig настройки страницы статуса
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// HistoryConfig настройки журнала сделок
type HistoryConfig struct {
	Type     string              `yaml:"type"` // file или influxdb
	FilePath string              `yaml:"file_path"`
	Influx   InfluxHistoryConfig `yaml:"influxdb"`
}

// InfluxHistoryConfig настройки подключения к InfluxDB
type InfluxHistoryConfig struct {
	URL          string `yaml:"url"`
	Token        string `yaml:"token"`
	Organization string `yaml:"organization"`
	Bucket       string `yaml:"bucket"`
}

// Load загружает конфигурацию из файла
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("ошибка разбора файла конфигурации: %w", err)
	}

	config.applyDefaults()

	logger.Info("Загружена конфигурация",
		zap.String("path", path),
		zap.String("symbol", config.Trading.Symbol),
		zap.String("strategy", config.Risk.Strategy))
	return &config, nil
}

// applyDefaults заполняет незаданные поля значениями по умолчанию
func (c *Config) applyDefaults() {
	if c.Trading.Symbol == "" {
		c.Trading.Symbol = "BTCUSDT"
	}
	if c.Trading.PrimaryInterval == "" {
		c.Trading.PrimaryInterval = "1h"
	}
	if c.Trading.SecondaryInterval == "" {
		c.Trading.SecondaryInterval = "4h"
	}
	if c.Trading.Lookback == 0 {
		c.Trading.Lookback = 1500
	}
	if c.Classifier.RSIPeriod == 0 {
		c.Classifier.RSIPeriod = 14
	}
	if c.Classifier.MACDFast == 0 {
		c.Classifier.MACDFast = 12
	}
	if c.Classifier.MACDSlow == 0 {
		c.Classifier.MACDSlow = 26
	}
	if c.Classifier.MACDSignal == 0 {
		c.Classifier.MACDSignal = 9
	}
	if c.Classifier.TestSize == 0 {
		c.Classifier.TestSize = 0.2
	}
	if c.Classifier.Seed == 0 {
		c.Classifier.Seed = 42
	}
	if len(c.Classifier.CGrid) == 0 {
		c.Classifier.CGrid = []float64{0.01, 0.1, 1, 10, 100}
	}
	if len(c.Classifier.Solvers) == 0 {
		c.Classifier.Solvers = []string{"gradient", "lbfgs"}
	}
	if c.Classifier.GateLow == 0 {
		c.Classifier.GateLow = 0.45
	}
	if c.Classifier.GateHigh == 0 {
		c.Classifier.GateHigh = 0.55
	}
	if c.Fusion.CombinedThreshold == 0 {
		c.Fusion.CombinedThreshold = 0.89
	}
	if c.Fusion.PrimaryAccuracy == 0 {
		c.Fusion.PrimaryAccuracy = 72
	}
	if c.Fusion.PrimaryF1 == 0 {
		c.Fusion.PrimaryF1 = 72
	}
	if c.Fusion.SecondaryAccuracy == 0 {
		c.Fusion.SecondaryAccuracy = 69
	}
	if c.Fusion.SecondaryF1 == 0 {
		c.Fusion.SecondaryF1 = 70
	}
	if c.ATR.Interval == "" {
		c.ATR.Interval = "1h"
	}
	if c.ATR.Length == 0 {
		c.ATR.Length = 14
	}
	if c.ATR.Multiplier == 0 {
		c.ATR.Multiplier = 1.5
	}
	if c.ATR.Smoothing == "" {
		c.ATR.Smoothing = "RMA"
	}
	if c.VolumeProfile.Interval == "" {
		c.VolumeProfile.Interval = "5m"
	}
	if c.VolumeProfile.Lookback == 0 {
		c.VolumeProfile.Lookback = 500
	}
	if c.VolumeProfile.Bins == 0 {
		c.VolumeProfile.Bins = 20
	}
	if c.VolumeProfile.ProximityPercent == 0 {
		c.VolumeProfile.ProximityPercent = 0.5
	}
	if c.VWAP.Interval == "" {
		c.VWAP.Interval = "5m"
	}
	if c.VWAP.Lookback == 0 {
		c.VWAP.Lookback = 50
	}
	if c.VWAP.DevUp == 0 {
		c.VWAP.DevUp = 1.28
	}
	if c.VWAP.DevDown == 0 {
		c.VWAP.DevDown = 1.28
	}
	if c.Risk.Strategy == "" {
		c.Risk.Strategy = "balance_fraction"
	}
	if c.Risk.BalanceFraction == 0 {
		c.Risk.BalanceFraction = 0.23
	}
	if c.Risk.FloorUSDT == 0 {
		c.Risk.FloorUSDT = 17
	}
	if c.Risk.FixedUSDT == 0 {
		c.Risk.FixedUSDT = 27
	}
	if c.Risk.StopLossPercent == 0 {
		c.Risk.StopLossPercent = -100
	}
	if c.Risk.TakeProfitPercent == 0 {
		c.Risk.TakeProfitPercent = 170
	}
	if c.Engine.PollSeconds == 0 {
		c.Engine.PollSeconds = 60
	}
	if c.Engine.UnclearSeconds == 0 {
		c.Engine.UnclearSeconds = 600
	}
	if c.Engine.ErrorSeconds == 0 {
		c.Engine.ErrorSeconds = 5
	}
	if c.Engine.ResetCycles == 0 {
		c.Engine.ResetCycles = 100
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.History.Type == "" {
		c.History.Type = "file"
	}
	if c.History.FilePath == "" {
		c.History.FilePath = "trade_history.txt"
	}
}
