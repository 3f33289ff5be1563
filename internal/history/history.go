package history

import (
	"fmt"
	"time"

	"github.com/namtrader/engine/internal/config"
	"github.com/namtrader/engine/pkg/models"
)

// Sink журнал закрытых сделок. Записи только добавляются,
// порядковый номер и локальное время присваивает реализация.
type Sink interface {
	Append(record *models.TradeRecord) error
	Close() error
}

// Location локальная зона журнала (UTC+7)
var Location = time.FixedZone("UTC+7", 7*60*60)

// NewSink создает журнал по типу из конфигурации
func NewSink(cfg config.HistoryConfig) (Sink, error) {
	switch cfg.Type {
	case "file":
		return NewFileSink(cfg.FilePath)
	case "influxdb":
		return NewInfluxSink(cfg.Influx)
	default:
		return nil, fmt.Errorf("неизвестный тип журнала сделок: %s", cfg.Type)
	}
}
