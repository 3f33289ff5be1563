package alert

import (
	"github.com/namtrader/engine/pkg/logger"
	"go.uber.org/zap"
)

// Alerter внешний механизм оповещения о потере связи с биржей.
// Звуковая сигнализация остается внешним коллаборатором.
type Alerter interface {
	ConnectivityLost(err error)
}

// LogAlerter пишет оповещения в общий лог
type LogAlerter struct{}

// NewLogAlerter создает лог-оповещатель
func NewLogAlerter() *LogAlerter {
	return &LogAlerter{}
}

// ConnectivityLost фиксирует потерю связи
func (a *LogAlerter) ConnectivityLost(err error) {
	logger.Error("Потеряна связь с биржей", zap.Error(err))
}
