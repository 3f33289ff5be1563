package engine

// State состояние машины позиции
type State int

const (
	// StateFlat позиции нет, идет поиск сигнала на вход
	StateFlat State = iota
	// StatePendingEntry сигнал подтвержден, ордера входа отправляются
	StatePendingEntry
	// StateOpenProtected позиция открыта и защищена стоп-ордером
	StateOpenProtected
	// StateClosing позиция закрывается явными ордерами
	StateClosing
)

// String возвращает читаемое имя состояния
func (s State) String() string {
	switch s {
	case StatePendingEntry:
		return "PENDING_ENTRY"
	case StateOpenProtected:
		return "OPEN_PROTECTED"
	case StateClosing:
		return "CLOSING"
	default:
		return "FLAT"
	}
}
