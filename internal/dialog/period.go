package dialog

import (
	"strings"
	"time"
)

var ruMonths = map[string]time.Month{
	"январь":   time.January,
	"февраль":  time.February,
	"март":     time.March,
	"апрель":   time.April,
	"май":      time.May,
	"июнь":     time.June,
	"июль":     time.July,
	"август":   time.August,
	"сентябрь": time.September,
	"октябрь":  time.October,
	"ноябрь":   time.November,
	"декабрь":  time.December,
}

// parsePeriod resolves a budget period phrase to (year, month). Understood
// forms: "текущий месяц", "следующий месяц", a nominative Russian month
// name (year inferred as the next occurrence), or empty. Anything else
// falls back to the current month.
func parsePeriod(phrase string, now time.Time) (int, int) {
	p := strings.ToLower(strings.TrimSpace(phrase))

	switch p {
	case "", "текущий месяц", "этот месяц":
		return now.Year(), int(now.Month())
	case "следующий месяц":
		next := now.AddDate(0, 1, 0)
		return next.Year(), int(next.Month())
	}

	for name, month := range ruMonths {
		if strings.Contains(p, name) {
			year := now.Year()
			if month < now.Month() {
				year++
			}
			return year, int(month)
		}
	}

	return now.Year(), int(now.Month())
}
