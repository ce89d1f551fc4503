package indexes

import (
	"sort"

	"github.com/nzai/vpa/constants"
	"github.com/nzai/vpa/trades"
)

// VolumeLevel traded quantity up to a rate level
type VolumeLevel struct {
	Rate   float64 `json:"rate"`
	Volume float64 `json:"volume"`
}

// VolumeProfile volume by price of one side
type VolumeProfile struct {
	OrderType trades.OrderType `json:"order_type"`
	LastRate  float64          `json:"last_rate"`
	// Levels level i holds quantities with previous level < rate <= level
	Levels []VolumeLevel `json:"levels"`
	// Above quantities beyond the last level
	Above VolumeLevel `json:"above"`
}

// VolumeProfileIndex volume by price calculator
type VolumeProfileIndex struct {
	Levels int
	Spread float64
}

// NewVolumeProfileIndex create calculator with 10 levels across last rate +-5%
func NewVolumeProfileIndex() *VolumeProfileIndex {
	return &VolumeProfileIndex{Levels: 10, Spread: 0.05}
}

// Calculate profile of one side around its last traded rate
func (s *VolumeProfileIndex) Calculate(ts []trades.Trade, orderType trades.OrderType) (*VolumeProfile, error) {
	var side []trades.Trade
	for _, trade := range ts {
		if trade.OrderType == orderType {
			side = append(side, trade)
		}
	}

	if len(side) == 0 {
		return nil, constants.ErrRecordNotFound
	}

	sort.SliceStable(side, func(i, j int) bool {
		return side[i].Timestamp.Before(side[j].Timestamp)
	})

	last := side[len(side)-1].Rate
	from := last * (1 - s.Spread)
	to := last * (1 + s.Spread)
	step := (to - from) / float64(s.Levels)

	profile := &VolumeProfile{
		OrderType: orderType,
		LastRate:  last,
		Levels:    make([]VolumeLevel, s.Levels),
	}

	for index := range profile.Levels {
		profile.Levels[index].Rate = from + step*float64(index)
	}
	top := profile.Levels[len(profile.Levels)-1].Rate
	profile.Above.Rate = top

	for _, trade := range side {
		if trade.Rate > top {
			profile.Above.Volume += trade.Quantity
			continue
		}

		// first level with rate <= level
		index := sort.Search(len(profile.Levels), func(i int) bool {
			return trade.Rate <= profile.Levels[i].Rate
		})
		profile.Levels[index].Volume += trade.Quantity
	}

	return profile, nil
}
