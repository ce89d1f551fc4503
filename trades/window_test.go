package trades

import (
	"errors"
	"testing"
	"time"

	"github.com/nzai/vpa/constants"
)

func TestWindow_Append(t *testing.T) {
	w := NewWindow()
	start := time.Date(2018, 1, 1, 10, 0, 0, 0, time.UTC)

	for index := 0; index < constants.StorageLimit; index++ {
		w.Add(start.Add(time.Second*time.Duration(index)), OrderTypeBuy, 1, float64(index+1))
	}

	if w.Len() != constants.StorageLimit {
		t.Errorf("Window.Len() = %d, want %d", w.Len(), constants.StorageLimit)
	}

	// trigger eviction
	w.Add(start.Add(time.Second*time.Duration(constants.StorageLimit)), OrderTypeSell, 1, float64(constants.StorageLimit+1))

	want := constants.StorageLimit + 1 - 100
	if w.Len() != want {
		t.Errorf("Window.Len() = %d, want %d", w.Len(), want)
	}

	trades := w.Trades()
	if trades[0].Rate != 101 {
		t.Errorf("first trade rate = %v, want %v", trades[0].Rate, 101)
	}

	for index := 1; index < len(trades); index++ {
		if trades[index].Rate != trades[index-1].Rate+1 {
			t.Errorf("trades[%d] rate = %v, want %v", index, trades[index].Rate, trades[index-1].Rate+1)
		}
	}

	last, found := w.Last()
	if !found || last.OrderType != OrderTypeSell {
		t.Errorf("Window.Last() = %v, %v", last, found)
	}
}

func TestWindow_AppendNeverExceedsLimit(t *testing.T) {
	cases := []struct {
		limit int
		drop  int
	}{
		{limit: 20, drop: 1},
		{limit: 21, drop: 2},
		{limit: 100, drop: 5},
		{limit: 2000, drop: 100},
	}

	start := time.Date(2018, 1, 1, 10, 0, 0, 0, time.UTC)
	for _, _case := range cases {
		w := NewWindowWithLimit(_case.limit)
		for index := 0; index < _case.limit*5; index++ {
			w.Add(start.Add(time.Millisecond*time.Duration(index)), OrderTypeBuy, 1, float64(index))
			if w.Len() > _case.limit {
				t.Errorf("limit %d: Window.Len() = %d after %d appends", _case.limit, w.Len(), index+1)
				break
			}

			if index == _case.limit && w.Len() != _case.limit+1-_case.drop {
				t.Errorf("limit %d: Window.Len() = %d at trigger, want %d", _case.limit, w.Len(), _case.limit+1-_case.drop)
			}
		}
	}
}

func TestWindow_Range(t *testing.T) {
	start := time.Date(2018, 1, 1, 10, 0, 0, 0, time.UTC)
	w := NewWindow()
	// appended out of time order on purpose
	w.Add(start.Add(time.Second*30), OrderTypeBuy, 3, 103)
	w.Add(start.Add(time.Second*10), OrderTypeBuy, 1, 101)
	w.Add(start.Add(time.Second*20), OrderTypeSell, 2, 102)
	w.Add(start, OrderTypeSell, 4, 100)
	w.Add(start.Add(time.Minute), OrderTypeBuy, 5, 105)
	w.Add(start.Add(-time.Second), OrderTypeSell, 6, 99)

	r := w.Range(start, start.Add(time.Minute))
	if len(r.Buys) != 2 || len(r.Sells) != 2 {
		t.Fatalf("Window.Range() buys = %d, sells = %d, want 2, 2", len(r.Buys), len(r.Sells))
	}

	if r.Buys[0].Rate != 101 || r.Buys[1].Rate != 103 {
		t.Errorf("Window.Range() buys = %v", r.Buys)
	}

	// start inclusive
	if r.Sells[0].Rate != 100 || r.Sells[1].Rate != 102 {
		t.Errorf("Window.Range() sells = %v", r.Sells)
	}

	for _, trade := range r.Buys {
		if trade.OrderType != OrderTypeBuy {
			t.Errorf("sell trade in buys: %v", trade)
		}
	}

	empty := w.Range(start.Add(time.Hour), start.Add(time.Hour*2))
	if empty.Buys == nil || empty.Sells == nil || len(empty.Buys)+len(empty.Sells) != 0 {
		t.Errorf("Window.Range() = %v, want empty sides", empty)
	}
}

func TestWindow_Stats(t *testing.T) {
	start := time.Date(2018, 1, 1, 10, 0, 0, 0, time.UTC)
	w := NewWindow()
	w.Add(start.Add(time.Second*5), OrderTypeBuy, 2, 100)
	w.Add(start.Add(time.Second*40), OrderTypeSell, 1, 101)
	w.Add(start.Add(time.Second*50), OrderTypeSell, 1.5, 99)
	w.Add(start.Add(time.Second*55), OrderTypeBuy, 3, 102)

	stats, err := w.Stats(start, start.Add(time.Minute))
	if err != nil {
		t.Fatalf("Window.Stats() error = %v", err)
	}

	want := Stats{NSell: 2, NBuy: 2, VSell: 2.5, VBuy: 5, OSell: 101, CSell: 99, OBuy: 100, CBuy: 102}
	if *stats != want {
		t.Errorf("Window.Stats() = %+v, want %+v", *stats, want)
	}

	_, err = w.Stats(start, start.Add(time.Second*30))
	if !errors.Is(err, constants.ErrEmptyRange) {
		t.Errorf("Window.Stats() error = %v, want %v", err, constants.ErrEmptyRange)
	}
}
