package trades

import (
	"sort"
	"sync"
	"time"

	"github.com/nzai/vpa/constants"
)

// Range trades of a time range split by side
type Range struct {
	Buys  []Trade `json:"buys"`
	Sells []Trade `json:"sells"`
}

// Stats trade statistics of a time range
type Stats struct {
	NSell int     `json:"nsell"`
	NBuy  int     `json:"nbuy"`
	VSell float64 `json:"vsell"`
	VBuy  float64 `json:"vbuy"`
	OSell float64 `json:"osell"` // first sell rate
	CSell float64 `json:"csell"` // last sell rate
	OBuy  float64 `json:"obuy"`
	CBuy  float64 `json:"cbuy"`
}

// Window bounded recent trades in append order
type Window struct {
	limit  int
	trades []Trade
	mutex  *sync.RWMutex
}

// NewWindow create window with constants.StorageLimit
func NewWindow() *Window {
	return NewWindowWithLimit(constants.StorageLimit)
}

// NewWindowWithLimit create window keeping at most limit trades
func NewWindowWithLimit(limit int) *Window {
	if limit <= 0 {
		limit = constants.StorageLimit
	}

	return &Window{
		limit:  limit,
		trades: make([]Trade, 0, limit+1),
		mutex:  new(sync.RWMutex),
	}
}

// Limit max window length
func (w *Window) Limit() int {
	return w.limit
}

// Len current window length
func (w *Window) Len() int {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	return len(w.trades)
}

// Add append trade by fields
func (w *Window) Add(timestamp time.Time, orderType OrderType, quantity, rate float64) {
	w.Append(Trade{
		Timestamp: timestamp,
		OrderType: orderType,
		Quantity:  quantity,
		Rate:      rate,
	})
}

// Append add trade, drop the oldest limit/20 trades at once when the limit is exceeded
func (w *Window) Append(trade Trade) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	w.trades = append(w.trades, trade)
	if len(w.trades) <= w.limit {
		return
	}

	drop := (w.limit + 19) / 20
	if drop > len(w.trades) {
		drop = len(w.trades)
	}

	// copy into a fresh slice so the dropped head can be collected
	remain := make([]Trade, len(w.trades)-drop, w.limit+1)
	copy(remain, w.trades[drop:])
	w.trades = remain
}

// Trades copy of all trades in append order
func (w *Window) Trades() []Trade {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	trades := make([]Trade, len(w.trades))
	copy(trades, w.trades)

	return trades
}

// Last latest appended trade
func (w *Window) Last() (Trade, bool) {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	if len(w.trades) == 0 {
		return Trade{}, false
	}

	return w.trades[len(w.trades)-1], true
}

// Range trades in [start, stop) split by side, each side sorted by timestamp
func (w *Window) Range(start, stop time.Time) Range {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	r := Range{Buys: []Trade{}, Sells: []Trade{}}
	for _, trade := range w.trades {
		if trade.Timestamp.Before(start) || !trade.Timestamp.Before(stop) {
			continue
		}

		switch trade.OrderType {
		case OrderTypeBuy:
			r.Buys = append(r.Buys, trade)
		case OrderTypeSell:
			r.Sells = append(r.Sells, trade)
		}
	}

	sortByTimestamp(r.Buys)
	sortByTimestamp(r.Sells)

	return r
}

// Stats statistics of [start, stop), constants.ErrEmptyRange if either side has no trade
func (w *Window) Stats(start, stop time.Time) (*Stats, error) {
	r := w.Range(start, stop)
	if len(r.Buys) == 0 || len(r.Sells) == 0 {
		return nil, constants.ErrEmptyRange
	}

	stats := &Stats{
		NSell: len(r.Sells),
		NBuy:  len(r.Buys),
		OSell: r.Sells[0].Rate,
		CSell: r.Sells[len(r.Sells)-1].Rate,
		OBuy:  r.Buys[0].Rate,
		CBuy:  r.Buys[len(r.Buys)-1].Rate,
	}

	for _, trade := range r.Sells {
		stats.VSell += trade.Quantity
	}

	for _, trade := range r.Buys {
		stats.VBuy += trade.Quantity
	}

	return stats, nil
}

func sortByTimestamp(trades []Trade) {
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Timestamp.Before(trades[j].Timestamp)
	})
}
