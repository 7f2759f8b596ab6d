package domain

import (
	"fmt"
	"math"
)

// RoundDirection controls which side of the tick boundary RoundToTick
// favors.
type RoundDirection string

const (
	RoundDown    RoundDirection = "down"
	RoundUp      RoundDirection = "up"
	RoundNearest RoundDirection = "nearest"
)

// tickEps guards values already sitting exactly on a tick from being
// pushed across a boundary by floating-point noise.
const tickEps = 1e-12

// RoundToTick rounds price to a valid multiple of tickSize. "down" and
// "up" bias toward the lower/higher tick; "nearest" is standard rounding.
func RoundToTick(price, tickSize float64, dir RoundDirection) (float64, error) {
	if tickSize <= 0 {
		return 0, fmt.Errorf("domain.RoundToTick: tick_size must be > 0, got %v", tickSize)
	}
	return roundTick(price, tickSize, dir), nil
}

// roundTick is RoundToTick without the tick-size check, for callers that
// validated tickSize up front.
func roundTick(price, tickSize float64, dir RoundDirection) float64 {
	switch dir {
	case RoundDown:
		return math.Floor((price+tickEps)/tickSize) * tickSize
	case RoundUp:
		return math.Ceil((price-tickEps)/tickSize) * tickSize
	default:
		return math.Round(price/tickSize) * tickSize
	}
}

// TickSizeFor returns the minimum price increment for known futures
// symbols. /ES and /MES trade in quarter points.
func TickSizeFor(symbol string) float64 {
	switch symbol {
	case "/ES", "/MES":
		return 0.25
	}
	return 0.01
}
