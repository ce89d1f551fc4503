package notifiers

import "github.com/nzai/vpa/strategies"

// DecisionEvent decision emitted by a strategy for a market
type DecisionEvent struct {
	Market   string               `json:"market"`
	Strategy string               `json:"strategy"`
	Action   string               `json:"action"`
	Decision *strategies.Decision `json:"decision"`
}

// NewDecisionEvent create decision event
func NewDecisionEvent(market, strategy string, decision *strategies.Decision) *DecisionEvent {
	return &DecisionEvent{
		Market:   market,
		Strategy: strategy,
		Action:   decision.Action.String(),
		Decision: decision,
	}
}
