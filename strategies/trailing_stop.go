package strategies

import (
	"time"
)

// TrailingStopName trailing stop strategy name
const TrailingStopName = "trailing_stop"

// TrailingStop dynamic stop loss. The sell rule is local to vpa: the
// strategy it is named after only passed decisions through unchanged.
// It signals sell once the rate falls distance below the highest buy
// rate seen within lookback.
type TrailingStop struct {
	*Base
	distance float64
	lookback time.Duration
}

// NewTrailingStop create trailing stop with 5% distance over the last 30 minutes
func NewTrailingStop() Strategy {
	return NewTrailingStopWith(0.05, time.Minute*30)
}

// NewTrailingStopWith create trailing stop
func NewTrailingStopWith(distance float64, lookback time.Duration) Strategy {
	s := &TrailingStop{distance: distance, lookback: lookback}
	s.Base = NewBase(TrailingStopName, s)
	return s
}

// Decide signal sell once the rate falls distance below the lookback peak
func (s TrailingStop) Decide(decision *Decision) *Decision {
	stop := decision.Timestamp.Add(time.Nanosecond)
	r := s.Trades().Range(stop.Add(-s.lookback), stop)

	var peak float64
	for _, trade := range r.Buys {
		if trade.Rate > peak {
			peak = trade.Rate
		}
	}

	for _, trade := range r.Sells {
		if trade.Rate > peak {
			peak = trade.Rate
		}
	}

	if peak == 0 {
		return decision
	}

	stopRate := peak * (1 - s.distance)
	decision.Indicators["peak"] = peak
	decision.Indicators["stop"] = stopRate

	if decision.Rate <= stopRate {
		decision.Action = ActionSell
	}

	return decision
}
