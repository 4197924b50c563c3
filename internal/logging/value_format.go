package logging

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
)

// scoreDecimals bounds how many decimals console output keeps for floats.
// Similarity scores and ratios never need more.
const scoreDecimals = 4

// componentName renders the component attribute without quoting so the
// console prefix reads "dedup: ..." rather than "\"dedup\": ...".
func componentName(v slog.Value) string {
	return strings.TrimSpace(plainValue(v.Resolve()))
}

// formatValue renders one console key=value right-hand side.
func formatValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString, slog.KindAny:
		return quoteIfNeeded(plainValue(v))
	default:
		return plainValue(v)
	}
}

func plainValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindFloat64:
		return formatScore(v.Float64())
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

func formatScore(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	scale := math.Pow10(scoreDecimals)
	return strconv.FormatFloat(math.Round(f*scale)/scale, 'f', -1, 64)
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\r=\"") {
		return strconv.Quote(s)
	}
	for _, r := range s {
		if r < ' ' {
			return strconv.Quote(s)
		}
	}
	return s
}
