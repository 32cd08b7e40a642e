package recognizer

import (
	"math"
	"strconv"
	"strings"
)

// LineKind classifies one helper output line.
type LineKind int

const (
	LinePartial LineKind = iota + 1
	LineFinal
	LineLevel
	LineError
	LineReady
)

// Line is one parsed helper output line.
type Line struct {
	Kind  LineKind
	Text  string
	Level float64
}

// ParseLine decodes PARTIAL:/FINAL:/LEVEL:/ERROR: lines. ok is false for anything else,
// including LEVEL values that are not finite numbers.
func ParseLine(raw string) (Line, bool) {
	raw = strings.TrimRight(raw, "\r\n")

	if raw == "READY" {
		return Line{Kind: LineReady}, true
	}

	prefix, payload, found := strings.Cut(raw, ":")
	if !found {
		return Line{}, false
	}
	payload = strings.TrimSpace(payload)

	switch prefix {
	case "PARTIAL":
		return Line{Kind: LinePartial, Text: payload}, true
	case "FINAL":
		return Line{Kind: LineFinal, Text: payload}, true
	case "ERROR":
		return Line{Kind: LineError, Text: payload}, true
	case "LEVEL":
		level, err := strconv.ParseFloat(payload, 64)
		if err != nil || math.IsNaN(level) || math.IsInf(level, 0) {
			return Line{}, false
		}
		return Line{Kind: LineLevel, Level: level}, true
	default:
		return Line{}, false
	}
}
