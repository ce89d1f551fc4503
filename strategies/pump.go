package strategies

import (
	"time"
)

// PumpName pump strategy name
const PumpName = "pump"

// Pump watch for price rapidly increasing with volume supporting it
type Pump struct {
	*Base
	period time.Duration
}

// NewPump create pump strategy
func NewPump() Strategy {
	p := &Pump{period: time.Minute}
	p.Base = NewBase(PumpName, p)
	return p
}

// Decide signal buy, attach the last period window stats when both sides traded
func (p Pump) Decide(decision *Decision) *Decision {
	decision.Action = ActionBuy

	stop := decision.Timestamp.Add(time.Nanosecond)
	stats, err := p.Trades().Stats(stop.Add(-p.period), stop)
	if err != nil {
		return decision
	}

	decision.Indicators["nbuy"] = float64(stats.NBuy)
	decision.Indicators["nsell"] = float64(stats.NSell)
	decision.Indicators["vbuy"] = stats.VBuy
	decision.Indicators["vsell"] = stats.VSell
	if stats.OBuy > 0 {
		decision.Indicators["buy_change"] = (stats.CBuy - stats.OBuy) / stats.OBuy
	}

	return decision
}
