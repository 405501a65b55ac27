// Package month содержит календарную арифметику: сдвиг на месяцы
// и сравнение дат без учёта времени суток.
package month

import "time"

// Add сдвигает момент на n календарных месяцев (а не на фиксированное число дней).
func Add(t time.Time, n int) time.Time {
	return t.AddDate(0, n, 0)
}

// Day отбрасывает время суток, оставляя полночь того же дня в той же зоне.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Civil возвращает календарную дату момента в его собственной зоне как полночь UTC.
// Даты заявок хранятся без времени, поэтому сравниваются именно так.
func Civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// OnOrAfter сообщает, что календарная дата date не раньше дня today.
func OnOrAfter(date, today time.Time) bool {
	return !Civil(date).Before(Civil(today))
}

// OnOrBefore сообщает, что календарная дата date не позже дня today.
func OnOrBefore(date, today time.Time) bool {
	return !Civil(date).After(Civil(today))
}
