// Package datefmt отвечает за формат временных меток в хранилище записей
// и за вычисление оставшихся дней подписки в фиксированном часовом поясе.
package datefmt

import (
	"fmt"
	"math"
	"time"
)

// Layout формат временной метки в хранилище: 12-часовое время с AM/PM.
const Layout = "02-01-2006 03:04:05 PM"

// Format возвращает строковое представление t в поясе loc.
func Format(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(Layout)
}

// Parse разбирает строку s как временную метку хранилища в поясе loc.
func Parse(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("datefmt.Parse: %w", err)
	}
	return t, nil
}

// DaysLeft считает количество полных дней между now и end, округляя вниз.
// Отрицательная разница тоже округляется вниз: через полдня после
// окончания подписки результат уже -1, а не 0.
func DaysLeft(end, now time.Time) int {
	return int(math.Floor(end.Sub(now).Hours() / 24))
}
