package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatClock форматирует секунды как HH:MM:SS (дробная часть отбрасывается)
func FormatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(math.Floor(seconds))
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// ParseClock разбирает "HH:MM:SS", "MM:SS" или "HH:MM:SS.mmm" (также с запятой) в секунды
func ParseClock(value string) (float64, error) {
	value = strings.TrimSpace(strings.ReplaceAll(value, ",", "."))
	if value == "" {
		return 0, fmt.Errorf("пустая временная метка")
	}

	parts := strings.Split(value, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("неверный формат временной метки: %q", value)
	}

	var seconds float64
	for _, part := range parts {
		n, err := strconv.ParseFloat(part, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("неверный формат временной метки: %q", value)
		}
		seconds = seconds*60 + n
	}
	return seconds, nil
}
