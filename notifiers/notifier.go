package notifiers

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	// TypeLog write decisions to the log
	TypeLog = "log"
	// TypeNsq publish decisions to nsq
	TypeNsq = "nsq"
)

// Notifier notify strategy decisions
type Notifier interface {
	Notify(*DecisionEvent) error
	Close()
}

// Options notifier options
type Options struct {
	Type    string
	Broker  string
	Topic   string
	TLSCert string
	TLSKey  string
}

// Parse create notifier by type, empty type means log
func Parse(options Options) (Notifier, error) {
	switch strings.ToLower(strings.TrimSpace(options.Type)) {
	case "", TypeLog:
		return NewLog(), nil
	case TypeNsq:
		notifier, err := NewNsq(options.Broker, options.TLSCert, options.TLSKey, options.Topic)
		if err != nil {
			return nil, err
		}
		return notifier, nil
	default:
		zap.L().Error("notifier type invalid", zap.String("type", options.Type))
		return nil, fmt.Errorf("invalid notifier type: %s", options.Type)
	}
}

// Log notify by log
type Log struct{}

// NewLog create log notifier
func NewLog() *Log {
	return &Log{}
}

// Notify log decision
func (Log) Notify(event *DecisionEvent) error {
	zap.L().Info("strategy decision",
		zap.String("market", event.Market),
		zap.String("strategy", event.Strategy),
		zap.String("action", event.Action),
		zap.Time("timestamp", event.Decision.Timestamp),
		zap.Float64("rate", event.Decision.Rate),
		zap.Any("indicators", event.Decision.Indicators))
	return nil
}

// Close nothing to release
func (Log) Close() {}
