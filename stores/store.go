package stores

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nzai/vpa/constants"
	"github.com/nzai/vpa/trades"
	"go.uber.org/zap"
)

// Store define raw trade and minute bucket store
type Store interface {
	// InsertTrades save raw trades
	InsertTrades(context.Context, ...trades.Trade) error
	// QueryTrades trades in [start, stop) ordered by timestamp, empty market means all markets
	QueryTrades(ctx context.Context, market string, start, stop time.Time) ([]trades.Trade, error)
	// QueryMinuteKeys keys of persisted buckets in [start, stop)
	QueryMinuteKeys(ctx context.Context, start, stop time.Time) (map[trades.MinuteKey]bool, error)
	// QueryMinutes buckets of market in [start, stop) ordered by minute
	QueryMinutes(ctx context.Context, market string, start, stop time.Time) ([]*trades.MinuteBucket, error)
	// InsertMinute save new bucket
	InsertMinute(context.Context, *trades.MinuteBucket) error
	// UpdateMinute overwrite existing bucket
	UpdateMinute(context.Context, *trades.MinuteBucket) error
	// Close release store
	Close() error
}

// Parse parse store argument, eg: sqlite|vpa.db, leveldb|/data/vpa, redis|password@127.0.0.1:6379
func Parse(arg string) (Store, error) {
	parts := strings.SplitN(arg, "|", 2)
	if len(parts) != 2 {
		zap.L().Error("store arg invalid", zap.String("arg", arg))
		return nil, fmt.Errorf("store arg invalid: %s", arg)
	}

	var store Store
	var err error
	switch parts[0] {
	case dialectMySQL, dialectPostgres, dialectSQLite:
		store, err = NewGorm(parts[0], parts[1])
	case "leveldb":
		store, err = NewLevelDB(parts[1])
	case "redis":
		// password@address
		address, password := parts[1], ""
		if index := strings.LastIndex(address, "@"); index >= 0 {
			address, password = address[index+1:], address[:index]
		}
		store, err = NewRedis(address, password)
	default:
		zap.L().Error("store type invalid", zap.String("type", parts[0]))
		return nil, fmt.Errorf("%w: %s", constants.ErrUnknownStore, parts[0])
	}
	if err != nil {
		return nil, err
	}

	return store, nil
}
