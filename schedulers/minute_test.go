package schedulers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nzai/vpa/stores"
	"github.com/nzai/vpa/trades"
)

// countingStore count bucket writes of the wrapped store
type countingStore struct {
	stores.Store
	inserts int
	updates int
	queries int
	err     error
}

func (s *countingStore) QueryTrades(ctx context.Context, market string, start, stop time.Time) ([]trades.Trade, error) {
	s.queries++
	if s.err != nil {
		return nil, s.err
	}
	return s.Store.QueryTrades(ctx, market, start, stop)
}

func (s *countingStore) InsertMinute(ctx context.Context, bucket *trades.MinuteBucket) error {
	s.inserts++
	return s.Store.InsertMinute(ctx, bucket)
}

func (s *countingStore) UpdateMinute(ctx context.Context, bucket *trades.MinuteBucket) error {
	s.updates++
	return s.Store.UpdateMinute(ctx, bucket)
}

func newTestStore(t *testing.T) *countingStore {
	t.Helper()

	store, err := stores.NewMemoryLevelDB()
	if err != nil {
		t.Fatalf("NewMemoryLevelDB() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return &countingStore{Store: store}
}

func at(hour, minute, second int) time.Time {
	return time.Date(2018, 1, 2, hour, minute, second, 0, time.UTC)
}

func rate(r float64) *float64 {
	return &r
}

func TestMinuteAggregator_Tick(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	err := store.InsertTrades(ctx,
		trades.Trade{Timestamp: at(10, 0, 5), OrderType: trades.OrderTypeBuy, Quantity: 2, Rate: 100, Market: "BTC-ETH"},
		trades.Trade{Timestamp: at(10, 0, 40), OrderType: trades.OrderTypeSell, Quantity: 1, Rate: 101, Market: "BTC-ETH"},
		trades.Trade{Timestamp: at(10, 1, 10), OrderType: trades.OrderTypeBuy, Quantity: 3, Rate: 102, Market: "BTC-ETH"},
	)
	if err != nil {
		t.Fatalf("InsertTrades() error = %v", err)
	}

	aggregator := NewMinuteAggregator(store, time.Second)
	err = aggregator.Tick(ctx, at(10, 1, 30))
	if err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	want := []trades.MinuteBucket{
		{Market: "BTC-ETH", Minute: at(10, 0, 0), VBuy: 2, NBuy: 1, RateBuy: rate(100), VSell: 1, NSell: 1, RateSell: rate(101)},
		{Market: "BTC-ETH", Minute: at(10, 1, 0), VBuy: 3, NBuy: 1, RateBuy: rate(102)},
	}

	got, err := store.QueryMinutes(ctx, "BTC-ETH", at(10, 0, 0), at(10, 2, 0))
	if err != nil {
		t.Fatalf("QueryMinutes() error = %v", err)
	}

	if len(got) != len(want) {
		t.Fatalf("QueryMinutes() got %d buckets, want %d", len(got), len(want))
	}

	for index, bucket := range got {
		if !bucket.Equal(want[index]) {
			t.Errorf("bucket[%d] = %+v, want %+v", index, bucket, want[index])
		}
	}

	if store.inserts != 2 || store.updates != 0 {
		t.Errorf("first tick inserts = %d, updates = %d, want 2 and 0", store.inserts, store.updates)
	}

	// same raw set, same buckets, now as updates
	err = aggregator.Tick(ctx, at(10, 1, 40))
	if err != nil {
		t.Fatalf("second Tick() error = %v", err)
	}

	if store.inserts != 2 || store.updates != 2 {
		t.Errorf("second tick inserts = %d, updates = %d, want 2 and 2", store.inserts, store.updates)
	}

	again, err := store.QueryMinutes(ctx, "BTC-ETH", at(10, 0, 0), at(10, 2, 0))
	if err != nil {
		t.Fatalf("QueryMinutes() error = %v", err)
	}

	for index, bucket := range again {
		if !bucket.Equal(*got[index]) {
			t.Errorf("bucket[%d] changed after second tick: %+v, want %+v", index, bucket, got[index])
		}
	}
}

func TestMinuteAggregator_TickIdle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	err := store.InsertTrades(ctx,
		trades.Trade{Timestamp: at(9, 0, 5), OrderType: trades.OrderTypeBuy, Quantity: 2, Rate: 100, Market: "BTC-ETH"},
	)
	if err != nil {
		t.Fatalf("InsertTrades() error = %v", err)
	}

	err = NewMinuteAggregator(store, time.Second).Tick(ctx, at(10, 1, 30))
	if err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if store.inserts != 0 || store.updates != 0 {
		t.Errorf("idle tick wrote buckets: inserts = %d, updates = %d", store.inserts, store.updates)
	}
}

func TestMinuteAggregator_TickError(t *testing.T) {
	store := newTestStore(t)
	store.err = errors.New("connection refused")

	err := NewMinuteAggregator(store, time.Second).Tick(context.Background(), at(10, 1, 30))
	if !errors.Is(err, store.err) {
		t.Errorf("Tick() error = %v, want %v", err, store.err)
	}
}

func TestMinuteAggregator_Run(t *testing.T) {
	store := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	aggregator := NewMinuteAggregator(store, time.Millisecond*10)

	done := make(chan error, 1)
	go func() {
		done <- aggregator.Run(ctx)
	}()

	time.Sleep(time.Millisecond * 50)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(time.Second * 5):
		t.Fatal("Run() did not return after cancel")
	}

	if store.queries == 0 {
		t.Error("Run() never ticked")
	}
}

func TestMinuteAggregator_RunError(t *testing.T) {
	store := newTestStore(t)
	store.err = errors.New("connection refused")

	aggregator := NewMinuteAggregator(store, time.Millisecond*10)
	err := aggregator.Run(context.Background())
	if !errors.Is(err, store.err) {
		t.Errorf("Run() error = %v, want %v", err, store.err)
	}
}

func TestAggregate(t *testing.T) {
	ts := []trades.Trade{
		{Timestamp: at(10, 0, 40), OrderType: trades.OrderTypeBuy, Quantity: 1, Rate: 5, Market: "BTC-LTC"},
		{Timestamp: at(10, 0, 50), OrderType: trades.OrderTypeBuy, Quantity: 1, Rate: 3, Market: "BTC-ETH"},
		{Timestamp: at(10, 0, 10), OrderType: trades.OrderTypeBuy, Quantity: 1, Rate: 2, Market: "BTC-ETH"},
	}

	buckets := Aggregate(ts)
	if len(buckets) != 2 {
		t.Fatalf("Aggregate() got %d buckets, want 2", len(buckets))
	}

	if buckets[0].Market != "BTC-ETH" || buckets[1].Market != "BTC-LTC" {
		t.Errorf("Aggregate() order = %s, %s", buckets[0].Market, buckets[1].Market)
	}

	// rate is the last trade in timestamp order, not arrival order
	if buckets[0].NBuy != 2 || buckets[0].RateBuy == nil || *buckets[0].RateBuy != 3 {
		t.Errorf("Aggregate()[0] = %+v", buckets[0])
	}
}
