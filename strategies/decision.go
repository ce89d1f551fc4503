package strategies

import "time"

// Action decision signal
type Action int

const (
	// ActionNone no signal
	ActionNone Action = 0
	// ActionBuy buy signal
	ActionBuy Action = 1
	// ActionSell sell signal
	ActionSell Action = -1
)

func (a Action) String() string {
	switch a {
	case ActionBuy:
		return "buy"
	case ActionSell:
		return "sell"
	default:
		return "none"
	}
}

// Decision strategy output for one trade
type Decision struct {
	Timestamp  time.Time          `json:"timestamp"`
	Rate       float64            `json:"rate"`
	Action     Action             `json:"do"`
	Indicators map[string]float64 `json:"indicators"`
}

// NewDecision create decision without signal
func NewDecision(timestamp time.Time, rate float64) *Decision {
	return &Decision{
		Timestamp:  timestamp,
		Rate:       rate,
		Action:     ActionNone,
		Indicators: map[string]float64{},
	}
}
