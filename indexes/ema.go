package indexes

import (
	"time"

	"github.com/nzai/vpa/trades"
)

// EMA exponential moving average of minute close rates
type EMA struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// EMAIndex ema calculator
type EMAIndex struct {
	Period int
}

// NewEMAIndex create ema calculator
func NewEMAIndex(period int) *EMAIndex {
	return &EMAIndex{Period: period}
}

// closeRate last buy rate of the minute, last sell rate when nobody bought
func closeRate(bucket *trades.MinuteBucket) (float64, bool) {
	if bucket.RateBuy != nil {
		return *bucket.RateBuy, true
	}

	if bucket.RateSell != nil {
		return *bucket.RateSell, true
	}

	return 0, false
}

// Calculate ema over buckets ordered by minute, buckets without trade are skipped
func (s *EMAIndex) Calculate(buckets []*trades.MinuteBucket) ([]*EMA, error) {
	emas := make([]*EMA, 0, len(buckets))
	for _, bucket := range buckets {
		rate, ok := closeRate(bucket)
		if !ok {
			continue
		}

		value := rate
		if len(emas) > 0 {
			value = (rate*2 + float64(s.Period-1)*emas[len(emas)-1].Value) / float64(s.Period+1)
		}

		emas = append(emas, &EMA{
			Timestamp: bucket.Minute,
			Value:     value,
		})
	}

	return emas, nil
}
