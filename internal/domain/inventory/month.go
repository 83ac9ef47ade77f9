package inventory

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	MonthLayout   = "Jan-2006"
	UnknownMonth  = "Unknown"
	DateLayoutISO = "2006-01-02"
)

var dateLayouts = []string{
	DateLayoutISO,
	"01/02/06",
	"02/01/2006",
	time.RFC3339,
}

// MonthBucket возвращает ключ месяца "Mon-YYYY" для даты транзакции.
func MonthBucket(d time.Time) string {
	if d.IsZero() {
		return UnknownMonth
	}
	return d.Format(MonthLayout)
}

// ParseDate разбирает дату в одном из поддерживаемых форматов и отбрасывает время.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date %q", raw)
}

// Day обрезает время до календарного дня (UTC).
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween: целое число дней между двумя календарными днями.
func DaysBetween(from, to time.Time) int64 {
	return int64(Day(to).Sub(Day(from)).Hours() / 24)
}

// SortMonths упорядочивает ключи месяцев по календарю, Unknown: в конце.
func SortMonths(buckets []string) {
	sort.SliceStable(buckets, func(i, j int) bool {
		return monthLess(buckets[i], buckets[j])
	})
}

func monthLess(a, b string) bool {
	ta, errA := time.Parse(MonthLayout, a)
	tb, errB := time.Parse(MonthLayout, b)
	switch {
	case errA != nil && errB != nil:
		return a < b
	case errA != nil:
		return false
	case errB != nil:
		return true
	}
	return ta.Before(tb)
}
