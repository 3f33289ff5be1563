package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/namtrader/engine/internal/alert"
	"github.com/namtrader/engine/internal/analysis/classifier"
	"github.com/namtrader/engine/internal/analysis/fusion"
	"github.com/namtrader/engine/internal/analysis/trend"
	"github.com/namtrader/engine/internal/analysis/volumeprofile"
	"github.com/namtrader/engine/internal/analysis/vwap"
	"github.com/namtrader/engine/internal/config"
	"github.com/namtrader/engine/internal/engine"
	"github.com/namtrader/engine/internal/exchange"
	"github.com/namtrader/engine/internal/history"
	"github.com/namtrader/engine/internal/risk"
	"github.com/namtrader/engine/internal/server"
	"github.com/namtrader/engine/internal/status"
	"github.com/namtrader/engine/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Init()
	defer logger.GetLogger().Sync()

	// Обработка флагов командной строки
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	flag.Parse()

	// Проверяем наличие файла конфигурации
	logger.Info("Проверка наличия файла конфигурации", zap.String("path", *configPath))
	if _, err := os.Stat(*configPath); os.IsNotExist(err) {
		logger.Fatal("Файл конфигурации не найден", zap.String("path", *configPath))
	}

	// Загружаем конфигурацию
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Ошибка загрузки конфигурации", zap.Error(err))
	}

	// Контекст отменяется сигналами завершения
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Получен сигнал завершения")
		cancel()
	}()

	// Инициализируем клиент биржи
	client, err := exchange.NewBinanceClient(cfg.Binance)
	if err != nil {
		logger.Fatal("Ошибка инициализации клиента биржи", zap.Error(err))
	}

	// Журнал сделок
	sink, err := history.NewSink(cfg.History)
	if err != nil {
		logger.Fatal("Ошибка инициализации журнала сделок", zap.Error(err))
	}
	defer sink.Close()

	// Менеджер риска со стратегией размера позиции
	riskManager, err := risk.NewManager(cfg.Risk, cfg.ATR, client)
	if err != nil {
		logger.Fatal("Ошибка инициализации менеджера риска", zap.Error(err))
	}

	// Хранилище снимка состояния для страницы статуса
	store := status.NewStore()

	// Источник тренда: два классификатора плюс объединение вердиктов
	trendAnalyzer := trend.NewAnalyzer(cfg.Trading, client,
		classifier.NewAnalyzer(cfg.Classifier), fusion.NewResolver(cfg.Fusion))

	// Собираем движок
	eng := engine.NewEngine(cfg, engine.Deps{
		Client:        client,
		Trend:         trendAnalyzer,
		VolumeProfile: volumeprofile.NewAnalyzer(cfg.VolumeProfile, client),
		VWAP:          vwap.NewAnalyzer(cfg.VWAP, client),
		Risk:          riskManager,
		History:       sink,
		Alerter:       alert.NewLogAlerter(),
		Store:         store,
	})

	// Рабочий цикл в горутине, сервер статуса блокирует основной поток
	go func() {
		if err := eng.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("Движок завершился с ошибкой", zap.Error(err))
		}
	}()

	statusServer := server.NewServer(cfg.Server, store)
	if err := statusServer.Run(ctx); err != nil {
		logger.Fatal("Ошибка сервера статуса", zap.Error(err))
	}
}
