package trades

import "time"

// MinuteKey minute bucket primary key
type MinuteKey struct {
	Market string
	Minute time.Time
}

// NewMinuteKey create key, minute is truncated and normalized to utc
func NewMinuteKey(market string, minute time.Time) MinuteKey {
	return MinuteKey{Market: market, Minute: minute.UTC().Truncate(time.Minute)}
}

// MinuteBucket per market per minute trade summary
type MinuteBucket struct {
	Market   string    `json:"market"`
	Minute   time.Time `json:"minute"`
	VSell    float64   `json:"vsell"`
	VBuy     float64   `json:"vbuy"`
	NSell    int       `json:"nsell"`
	NBuy     int       `json:"nbuy"`
	RateSell *float64  `json:"ratesell"`
	RateBuy  *float64  `json:"ratebuy"`
}

// NewMinuteBucket create empty bucket
func NewMinuteBucket(market string, minute time.Time) *MinuteBucket {
	key := NewMinuteKey(market, minute)
	return &MinuteBucket{Market: key.Market, Minute: key.Minute}
}

// Key bucket primary key
func (b MinuteBucket) Key() MinuteKey {
	return NewMinuteKey(b.Market, b.Minute)
}

// Add fold trade into bucket, trades must be added in timestamp order
func (b *MinuteBucket) Add(trade Trade) {
	rate := trade.Rate
	switch trade.OrderType {
	case OrderTypeBuy:
		b.VBuy += trade.Quantity
		b.NBuy++
		b.RateBuy = &rate
	case OrderTypeSell:
		b.VSell += trade.Quantity
		b.NSell++
		b.RateSell = &rate
	}
}

// Equal compare bucket values
func (b MinuteBucket) Equal(s MinuteBucket) bool {
	return b.Key() == s.Key() &&
		b.VSell == s.VSell &&
		b.VBuy == s.VBuy &&
		b.NSell == s.NSell &&
		b.NBuy == s.NBuy &&
		equalRate(b.RateSell, s.RateSell) &&
		equalRate(b.RateBuy, s.RateBuy)
}

func equalRate(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return *a == *b
}
