package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/namtrader/engine/internal/config"
	"github.com/namtrader/engine/pkg/models"
)

// InfluxSink журнал сделок в InfluxDB
type InfluxSink struct {
	mu       sync.Mutex
	client   influxdb2.Client
	queryAPI api.QueryAPI
	writeAPI api.WriteAPI
	bucket   string
	sequence int
}

// NewInfluxSink подключается к InfluxDB и восстанавливает счетчик записей
func NewInfluxSink(cfg config.InfluxHistoryConfig) (*InfluxSink, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	// Проверка соединения
	health, err := client.Health(context.Background())
	if err != nil {
		return nil, fmt.Errorf("ошибка соединения с InfluxDB: %w", err)
	}
	if health == nil || health.Status != "pass" {
		return nil, fmt.Errorf("InfluxDB не в состоянии 'pass': %+v", health)
	}

	s := &InfluxSink{
		client:   client,
		queryAPI: client.QueryAPI(cfg.Organization),
		writeAPI: client.WriteAPI(cfg.Organization, cfg.Bucket),
		bucket:   cfg.Bucket,
	}

	sequence, err := s.countRecords(context.Background())
	if err != nil {
		client.Close()
		return nil, err
	}
	s.sequence = sequence

	return s, nil
}

// countRecords считает существующие записи для продолжения нумерации
func (s *InfluxSink) countRecords(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`
		from(bucket: "%s")
			|> range(start: 0)
			|> filter(fn: (r) => r._measurement == "trades")
			|> filter(fn: (r) => r._field == "pnl_percent")
			|> count()
	`, s.bucket)

	result, err := s.queryAPI.Query(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("ошибка запроса числа сделок: %w", err)
	}

	count := 0
	for result.Next() {
		if v, ok := result.Record().Value().(int64); ok {
			count += int(v)
		}
	}
	if result.Err() != nil {
		return 0, fmt.Errorf("ошибка при обработке результатов: %w", result.Err())
	}
	return count, nil
}

// Append записывает сделку как точку измерения trades
func (s *InfluxSink) Append(record *models.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sequence++
	record.Sequence = s.sequence
	record.Timestamp = time.Now().In(Location)

	point := influxdb2.NewPoint(
		"trades",
		map[string]string{
			"entry_type": record.EntryType,
		},
		map[string]interface{}{
			"sequence":    record.Sequence,
			"pnl_percent": record.PnlPercent,
			"pnl_usdt":    record.PnlUSDT,
			"entry_price": record.EntryPrice,
		},
		record.Timestamp,
	)

	s.writeAPI.WritePoint(point)
	s.writeAPI.Flush()

	return nil
}

// Close закрывает соединение с базой данных
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}
