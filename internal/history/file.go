package history

import (
	"bufio"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/namtrader/engine/pkg/models"
)

// FileSink текстовый журнал сделок. Формат строки:
// номер | дата/время UTC+7 | PNL (%) | PNL (USDT) | цена входа | тип входа
type FileSink struct {
	mu       sync.Mutex
	path     string
	sequence int
}

// NewFileSink открывает журнал и восстанавливает счетчик записей
func NewFileSink(path string) (*FileSink, error) {
	s := &FileSink{path: path}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("ошибка открытия журнала сделок: %w", err)
	}
	defer file.Close()

	// Первая строка - заголовок, остальные - записи
	scanner := bufio.NewScanner(file)
	lines := 0
	for scanner.Scan() {
		lines++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения журнала сделок: %w", err)
	}
	if lines > 0 {
		s.sequence = lines - 1
	}

	return s, nil
}

// Append дописывает запись в конец журнала, присваивая порядковый номер
// и локальное время. Существующие записи никогда не изменяются.
func (s *FileSink) Append(record *models.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("ошибка открытия журнала сделок: %w", err)
	}
	defer file.Close()

	if s.sequence == 0 {
		if info, err := file.Stat(); err == nil && info.Size() == 0 {
			header := "Номер | Дата/Время (UTC+7) | PNL (%) | PNL (USDT) | Цена входа | Тип входа\n"
			if _, err := file.WriteString(header); err != nil {
				return fmt.Errorf("ошибка записи заголовка журнала: %w", err)
			}
		}
	}

	s.sequence++
	record.Sequence = s.sequence
	record.Timestamp = time.Now().In(Location)

	line := fmt.Sprintf("%d | %s | %s | %s | %.2f USDT | %s\n",
		record.Sequence,
		record.Timestamp.Format("2006-01-02 15:04:05"),
		signedPercent(record.PnlPercent),
		signedUSDT(record.PnlUSDT),
		record.EntryPrice,
		record.EntryType)

	if _, err := file.WriteString(line); err != nil {
		return fmt.Errorf("ошибка записи в журнал сделок: %w", err)
	}
	return nil
}

// Close у файлового журнала нет постоянных ресурсов
func (s *FileSink) Close() error {
	return nil
}

func signedPercent(v float64) string {
	if v >= 0 {
		return fmt.Sprintf("+%.2f%%", v)
	}
	return fmt.Sprintf("%.2f%%", v)
}

func signedUSDT(v float64) string {
	if v >= 0 {
		return fmt.Sprintf("+%.2f USDT", v)
	}
	return fmt.Sprintf("%.2f USDT", v)
}
