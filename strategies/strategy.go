package strategies

import (
	"github.com/nzai/vpa/trades"
)

// Decider decide on a fresh decision
type Decider interface {
	Decide(*Decision) *Decision
}

// Strategy decision unit owning one trade window
type Strategy interface {
	Decider
	Name() string
	// AddTrade append trade to the window and decide on it
	AddTrade(trades.Trade) *Decision
	Trades() *trades.Window
	SetTrades(*trades.Window)
}

// Factory create a new strategy instance
type Factory func() Strategy

// Base identity strategy, concrete strategies embed it and pass themselves as decider
type Base struct {
	name    string
	window  *trades.Window
	decider Decider
}

// NewBase create base strategy, nil decider keeps the identity decision
func NewBase(name string, decider Decider) *Base {
	b := &Base{
		name:   name,
		window: trades.NewWindow(),
	}

	b.decider = decider
	if decider == nil {
		b.decider = b
	}

	return b
}

// Name strategy name
func (b Base) Name() string {
	return b.name
}

// Trades strategy window
func (b Base) Trades() *trades.Window {
	return b.window
}

// SetTrades replace strategy window
func (b *Base) SetTrades(window *trades.Window) {
	if window == nil {
		window = trades.NewWindow()
	}

	b.window = window
}

// Decide return decision unchanged
func (b Base) Decide(decision *Decision) *Decision {
	return decision
}

// AddTrade append trade and decide
func (b *Base) AddTrade(trade trades.Trade) *Decision {
	b.window.Append(trade)
	return b.decider.Decide(NewDecision(trade.Timestamp, trade.Rate))
}
