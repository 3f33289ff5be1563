package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/namtrader/engine/internal/config"
	"github.com/namtrader/engine/pkg/models"
)

func TestFileSinkAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trade_history.txt")

	sink, err := NewFileSink(path)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	record := &models.TradeRecord{PnlPercent: -105.5, PnlUSDT: -5.25, EntryPrice: 100, EntryType: "Long"}
	if err := sink.Append(record); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if record.Sequence != 1 {
		t.Errorf("Sequence = %d, ожидался 1", record.Sequence)
	}
	if record.Timestamp.IsZero() {
		t.Error("время записи не проставлено")
	}
	if zone, _ := record.Timestamp.Zone(); zone != "UTC+7" {
		t.Errorf("зона %s, ожидалась UTC+7", zone)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("строк в журнале %d, ожидались заголовок и запись", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Номер |") {
		t.Errorf("заголовок %q не соответствует формату", lines[0])
	}
	if !strings.Contains(lines[1], "-105.50%") || !strings.Contains(lines[1], "-5.25 USDT") {
		t.Errorf("запись %q не содержит PNL", lines[1])
	}
	if !strings.HasSuffix(lines[1], "| Long") {
		t.Errorf("запись %q не содержит тип входа", lines[1])
	}
}

func TestFileSinkPositivePnlSigned(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trade_history.txt")
	sink, err := NewFileSink(path)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	record := &models.TradeRecord{PnlPercent: 171.2, PnlUSDT: 8.56, EntryPrice: 100, EntryType: "Short"}
	if err := sink.Append(record); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "+171.20%") || !strings.Contains(string(data), "+8.56 USDT") {
		t.Errorf("положительный PNL должен иметь знак плюс: %q", string(data))
	}
}

func TestFileSinkRestoresSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trade_history.txt")

	first, err := NewFileSink(path)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := first.Append(&models.TradeRecord{EntryPrice: 100, EntryType: "Long"}); err != nil {
			t.Fatalf("неожиданная ошибка: %v", err)
		}
	}

	// Перезапуск продолжает нумерацию, не начинает заново
	second, err := NewFileSink(path)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	record := &models.TradeRecord{EntryPrice: 100, EntryType: "Short"}
	if err := second.Append(record); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if record.Sequence != 4 {
		t.Errorf("Sequence = %d после перезапуска, ожидался 4", record.Sequence)
	}
}

func TestNewSinkUnknownType(t *testing.T) {
	if _, err := NewSink(config.HistoryConfig{Type: "kafka"}); err == nil {
		t.Fatal("ожидалась ошибка для неизвестного типа журнала")
	}
}
