package stores

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nzai/vpa/constants"
	"github.com/nzai/vpa/trades"
)

func openTestStores(t *testing.T) map[string]Store {
	t.Helper()

	gormStore, err := NewGorm(dialectSQLite, "file::memory:")
	if err != nil {
		t.Fatalf("NewGorm() error = %v", err)
	}

	levelStore, err := NewMemoryLevelDB()
	if err != nil {
		t.Fatalf("NewMemoryLevelDB() error = %v", err)
	}

	redisStore := newTestRedis(t)

	t.Cleanup(func() {
		gormStore.Close()
		levelStore.Close()
		redisStore.Close()
	})

	return map[string]Store{
		"gorm":    gormStore,
		"leveldb": levelStore,
		"redis":   redisStore,
	}
}

func newTestRedis(t *testing.T) *Redis {
	t.Helper()

	server := miniredis.RunT(t)

	store, err := NewRedis(server.Addr(), "")
	if err != nil {
		t.Fatalf("NewRedis() error = %v", err)
	}

	return store
}

func TestStore_Trades(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2018, 1, 2, 10, 0, 0, 0, time.UTC)

	ts := []trades.Trade{
		{Timestamp: base.Add(time.Second * 30), OrderType: trades.OrderTypeBuy, Quantity: 2, Rate: 0.5, Market: "BTC-ETH"},
		{Timestamp: base, OrderType: trades.OrderTypeSell, Quantity: 1, Rate: 0.4, Market: "BTC-ETH"},
		{Timestamp: base.Add(time.Second * 10), OrderType: trades.OrderTypeBuy, Quantity: 3, Rate: 1.5, Market: "BTC-LTC"},
		{Timestamp: base.Add(time.Minute), OrderType: trades.OrderTypeSell, Quantity: 4, Rate: 0.6, Market: "BTC-ETH"},
	}

	for name, store := range openTestStores(t) {
		err := store.InsertTrades(ctx, ts...)
		if err != nil {
			t.Errorf("%s InsertTrades() error = %v", name, err)
			continue
		}

		got, err := store.QueryTrades(ctx, "BTC-ETH", base, base.Add(time.Minute))
		if err != nil {
			t.Errorf("%s QueryTrades() error = %v", name, err)
			continue
		}

		if len(got) != 2 {
			t.Errorf("%s QueryTrades() got %d trades, want 2", name, len(got))
			continue
		}

		if !got[0].Timestamp.Equal(base) || got[0].OrderType != trades.OrderTypeSell || got[0].Rate != 0.4 {
			t.Errorf("%s QueryTrades()[0] = %+v", name, got[0])
		}

		if !got[1].Timestamp.Equal(base.Add(time.Second*30)) || got[1].Quantity != 2 || got[1].Market != "BTC-ETH" {
			t.Errorf("%s QueryTrades()[1] = %+v", name, got[1])
		}

		all, err := store.QueryTrades(ctx, "", base, base.Add(time.Hour))
		if err != nil {
			t.Errorf("%s QueryTrades(all) error = %v", name, err)
			continue
		}

		if len(all) != len(ts) {
			t.Errorf("%s QueryTrades(all) got %d trades, want %d", name, len(all), len(ts))
		}
	}
}

func TestStore_TradesWithinMillisecond(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2018, 1, 2, 10, 0, 0, 0, time.UTC)

	ts := []trades.Trade{
		{Timestamp: base.Add(time.Microsecond * 300), OrderType: trades.OrderTypeBuy, Quantity: 1, Rate: 0.5, Market: "BTC-ETH"},
		{Timestamp: base.Add(time.Microsecond * 100), OrderType: trades.OrderTypeSell, Quantity: 2, Rate: 0.4, Market: "BTC-ETH"},
		{Timestamp: base.Add(time.Microsecond * 800), OrderType: trades.OrderTypeBuy, Quantity: 3, Rate: 0.6, Market: "BTC-ETH"},
	}

	cases := []struct {
		start time.Time
		stop  time.Time
		want  []float64
	}{
		{start: base, stop: base.Add(time.Microsecond * 500), want: []float64{2, 1}},
		{start: base.Add(time.Microsecond * 200), stop: base.Add(time.Millisecond), want: []float64{1, 3}},
		{start: base, stop: base.Add(time.Microsecond * 100), want: nil},
	}

	store := newTestRedis(t)
	defer store.Close()

	err := store.InsertTrades(ctx, ts...)
	if err != nil {
		t.Fatalf("InsertTrades() error = %v", err)
	}

	for _, _case := range cases {
		got, err := store.QueryTrades(ctx, "BTC-ETH", _case.start, _case.stop)
		if err != nil {
			t.Errorf("QueryTrades(%s, %s) error = %v", _case.start, _case.stop, err)
			continue
		}

		if len(got) != len(_case.want) {
			t.Errorf("QueryTrades(%s, %s) got %d trades, want %d", _case.start, _case.stop, len(got), len(_case.want))
			continue
		}

		for index, quantity := range _case.want {
			if got[index].Quantity != quantity {
				t.Errorf("QueryTrades(%s, %s)[%d] quantity = %f, want %f", _case.start, _case.stop, index, got[index].Quantity, quantity)
			}
		}
	}
}

func TestStore_Minutes(t *testing.T) {
	ctx := context.Background()
	minute := time.Date(2018, 1, 2, 10, 0, 0, 0, time.UTC)
	rate := 0.5

	bucket := trades.NewMinuteBucket("BTC-ETH", minute)
	bucket.VBuy = 2
	bucket.NBuy = 1
	bucket.RateBuy = &rate

	for name, store := range openTestStores(t) {
		keys, err := store.QueryMinuteKeys(ctx, minute, minute.Add(time.Minute))
		if err != nil {
			t.Errorf("%s QueryMinuteKeys() error = %v", name, err)
			continue
		}

		if len(keys) != 0 {
			t.Errorf("%s QueryMinuteKeys() got %d keys on empty store", name, len(keys))
		}

		err = store.InsertMinute(ctx, bucket)
		if err != nil {
			t.Errorf("%s InsertMinute() error = %v", name, err)
			continue
		}

		keys, err = store.QueryMinuteKeys(ctx, minute, minute.Add(time.Minute))
		if err != nil {
			t.Errorf("%s QueryMinuteKeys() error = %v", name, err)
			continue
		}

		if !keys[trades.NewMinuteKey("BTC-ETH", minute)] {
			t.Errorf("%s QueryMinuteKeys() = %v, missing inserted bucket", name, keys)
		}

		inserted, err := store.QueryMinutes(ctx, "BTC-ETH", minute, minute.Add(time.Minute))
		if err != nil {
			t.Errorf("%s QueryMinutes() error = %v", name, err)
			continue
		}

		// sell side idle, its rate stays null
		if len(inserted) != 1 || !inserted[0].Equal(*bucket) || inserted[0].RateSell != nil {
			t.Errorf("%s QueryMinutes() = %+v, want %+v", name, inserted, bucket)
		}

		updated := *bucket
		sellRate := 0.45
		updated.VSell = 1
		updated.NSell = 1
		updated.RateSell = &sellRate

		err = store.UpdateMinute(ctx, &updated)
		if err != nil {
			t.Errorf("%s UpdateMinute() error = %v", name, err)
			continue
		}

		buckets, err := store.QueryMinutes(ctx, "BTC-ETH", minute, minute.Add(time.Minute))
		if err != nil {
			t.Errorf("%s QueryMinutes() error = %v", name, err)
			continue
		}

		if len(buckets) != 1 {
			t.Errorf("%s QueryMinutes() got %d buckets, want 1", name, len(buckets))
			continue
		}

		if !buckets[0].Equal(updated) {
			t.Errorf("%s QueryMinutes()[0] = %+v, want %+v", name, buckets[0], updated)
		}

		others, err := store.QueryMinutes(ctx, "BTC-LTC", minute, minute.Add(time.Minute))
		if err != nil {
			t.Errorf("%s QueryMinutes(other) error = %v", name, err)
			continue
		}

		if len(others) != 0 {
			t.Errorf("%s QueryMinutes(other) got %d buckets, want 0", name, len(others))
		}
	}
}

func TestMinuteValue(t *testing.T) {
	minute := time.Date(2018, 1, 2, 10, 0, 0, 0, time.UTC)
	rate := 0.25

	cases := []*trades.MinuteBucket{
		{Market: "BTC-ETH", Minute: minute},
		{Market: "BTC-ETH", Minute: minute, VSell: 1.5, NSell: 3, RateSell: &rate},
		{Market: "BTC-ETH", Minute: minute, VSell: 1.5, VBuy: 2, NSell: 3, NBuy: 1, RateSell: &rate, RateBuy: &rate},
	}

	for _, _case := range cases {
		value := formatMinuteValue(_case)
		got, err := parseMinuteValue(_case.Market, _case.Minute, value)
		if err != nil {
			t.Errorf("parseMinuteValue(%s) error = %v", value, err)
			continue
		}

		if !got.Equal(*_case) {
			t.Errorf("parseMinuteValue(%s) = %+v, want %+v", value, got, _case)
		}
	}

	_, err := parseMinuteValue("BTC-ETH", minute, "1,2,3")
	if err == nil {
		t.Error("parseMinuteValue() expect error on short value")
	}
}

func TestParse(t *testing.T) {
	cases := []string{
		"",
		"sqlite",
		"mongo|localhost",
	}

	for _, _case := range cases {
		_, err := Parse(_case)
		if err == nil {
			t.Errorf("Parse(%s) expect error", _case)
		}
	}

	_, err := Parse("mongo|localhost")
	if !errors.Is(err, constants.ErrUnknownStore) {
		t.Errorf("Parse() error = %v, want %v", err, constants.ErrUnknownStore)
	}

	store, err := Parse("sqlite|file::memory:")
	if err != nil {
		t.Fatalf("Parse(sqlite) error = %v", err)
	}
	defer store.Close()

	if _, ok := store.(*Gorm); !ok {
		t.Errorf("Parse(sqlite) = %T, want *Gorm", store)
	}
}
