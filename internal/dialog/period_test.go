package dialog

import (
	"testing"
	"time"
)

func TestParsePeriod(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.Local)

	tests := []struct {
		phrase    string
		wantYear  int
		wantMonth int
	}{
		{"", 2024, 3},
		{"текущий месяц", 2024, 3},
		{"этот месяц", 2024, 3},
		{"Текущий Месяц", 2024, 3},
		{"следующий месяц", 2024, 4},
		{"апрель", 2024, 4},
		{"бюджет на декабрь", 2024, 12},
		{"январь", 2025, 1}, // already passed this year
		{"февраль", 2025, 2},
		{"что-то непонятное", 2024, 3},
	}

	for _, tt := range tests {
		t.Run(tt.phrase, func(t *testing.T) {
			year, month := parsePeriod(tt.phrase, now)
			if year != tt.wantYear || month != tt.wantMonth {
				t.Errorf("parsePeriod(%q) = (%d, %d), want (%d, %d)",
					tt.phrase, year, month, tt.wantYear, tt.wantMonth)
			}
		})
	}
}

func TestParsePeriod_DecemberRollover(t *testing.T) {
	now := time.Date(2024, 12, 10, 0, 0, 0, 0, time.Local)
	year, month := parsePeriod("следующий месяц", now)
	if year != 2025 || month != 1 {
		t.Errorf("parsePeriod(следующий месяц) = (%d, %d), want (2025, 1)", year, month)
	}
}
