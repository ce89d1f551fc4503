package trades

import (
	"fmt"
	"strings"
	"time"

	"github.com/nzai/vpa/constants"
	"go.uber.org/zap"
)

// OrderType trade side
type OrderType string

const (
	// OrderTypeBuy buy side
	OrderTypeBuy OrderType = "BUY"
	// OrderTypeSell sell side
	OrderTypeSell OrderType = "SELL"
)

// ParseOrderType parse venue order type
func ParseOrderType(s string) (OrderType, error) {
	switch OrderType(strings.ToUpper(strings.TrimSpace(s))) {
	case OrderTypeBuy:
		return OrderTypeBuy, nil
	case OrderTypeSell:
		return OrderTypeSell, nil
	default:
		return "", fmt.Errorf("invalid order type: %s", s)
	}
}

// Trade executed trade
type Trade struct {
	Timestamp time.Time `json:"timestamp"`
	OrderType OrderType `json:"order_type"`
	Quantity  float64   `json:"quantity"`
	Rate      float64   `json:"rate"`
	Market    string    `json:"market"`
}

// Validate check trade fields
func (t Trade) Validate() error {
	if t.OrderType != OrderTypeBuy && t.OrderType != OrderTypeSell {
		return fmt.Errorf("invalid order type: %s", t.OrderType)
	}

	if t.Quantity < 0 {
		return fmt.Errorf("invalid quantity: %f", t.Quantity)
	}

	if t.Rate <= 0 {
		return fmt.Errorf("invalid rate: %f", t.Rate)
	}

	if t.Timestamp.IsZero() {
		return fmt.Errorf("invalid timestamp")
	}

	return nil
}

// Fill single executed trade reported by the venue
type Fill struct {
	OrderType string  `json:"OrderType"`
	Rate      float64 `json:"Rate"`
	Quantity  float64 `json:"Quantity"`
	TimeStamp string  `json:"TimeStamp"`
}

// Trade convert fill to market trade
func (f Fill) Trade(market string) (Trade, error) {
	orderType, err := ParseOrderType(f.OrderType)
	if err != nil {
		zap.L().Warn("parse fill order type failed",
			zap.Error(err),
			zap.String("market", market),
			zap.Any("fill", f))
		return Trade{}, err
	}

	timestamp, err := ParseTimestamp(f.TimeStamp)
	if err != nil {
		zap.L().Warn("parse fill timestamp failed",
			zap.Error(err),
			zap.String("market", market),
			zap.Any("fill", f))
		return Trade{}, err
	}

	trade := Trade{
		Timestamp: timestamp,
		OrderType: orderType,
		Quantity:  f.Quantity,
		Rate:      f.Rate,
		Market:    market,
	}

	return trade, trade.Validate()
}

// ParseTimestamp parse venue timestamp, zone-less values are utc
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t.UTC(), nil
	}

	return time.ParseInLocation(constants.TimestampPattern, s, time.UTC)
}
