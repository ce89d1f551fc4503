package stores

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nzai/vpa/trades"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.uber.org/zap"
)

// raw trade		key: t:{timestamp ns}:{market}:{uuid}	value:{order type},{quantity},{rate}
// minute bucket	key: m:{minute ns}:{market}				value:{vsell},{vbuy},{nsell},{nbuy},{ratesell|-},{ratebuy|-}
// timestamps are zero padded so that key order is time order

const (
	tradePrefix  = "t:"
	minutePrefix = "m:"
)

// LevelDB level db store
type LevelDB struct {
	db *leveldb.DB
}

// NewLevelDB open level db store
func NewLevelDB(root string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(root, nil)
	if err != nil {
		zap.L().Error("open db failed", zap.Error(err), zap.String("root", root))
		return nil, err
	}

	return &LevelDB{db}, nil
}

// NewMemoryLevelDB open level db store kept in memory
func NewMemoryLevelDB() (*LevelDB, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		zap.L().Error("open memory db failed", zap.Error(err))
		return nil, err
	}

	return &LevelDB{db}, nil
}

// Close close level db store
func (s LevelDB) Close() error {
	if s.db == nil {
		return nil
	}

	return s.db.Close()
}

func timeKey(prefix string, t time.Time) string {
	return fmt.Sprintf("%s%020d", prefix, t.UnixNano())
}

// InsertTrades save raw trades in one batch
func (s LevelDB) InsertTrades(ctx context.Context, ts ...trades.Trade) error {
	if len(ts) == 0 {
		return nil
	}

	batch := new(leveldb.Batch)
	for _, trade := range ts {
		// key: t:{timestamp ns}:{market}:{uuid} value:{order type},{quantity},{rate}
		key := fmt.Sprintf("%s:%s:%s", timeKey(tradePrefix, trade.Timestamp), trade.Market, uuid.NewString())
		batch.Put([]byte(key), []byte(fmt.Sprintf("%s,%s,%s",
			trade.OrderType,
			strconv.FormatFloat(trade.Quantity, 'g', -1, 64),
			strconv.FormatFloat(trade.Rate, 'g', -1, 64))))
	}

	err := s.db.Write(batch, nil)
	if err != nil {
		zap.L().Error("batch save trades failed", zap.Error(err), zap.Int("trades", len(ts)))
		return err
	}

	return nil
}

// QueryTrades trades in [start, stop) ordered by timestamp
func (s LevelDB) QueryTrades(ctx context.Context, market string, start, stop time.Time) ([]trades.Trade, error) {
	iter := s.db.NewIterator(&util.Range{
		Start: []byte(timeKey(tradePrefix, start)),
		Limit: []byte(timeKey(tradePrefix, stop)),
	}, nil)
	defer iter.Release()

	var result []trades.Trade
	for iter.Next() {
		trade, err := s.parseTrade(string(iter.Key()), string(iter.Value()))
		if err != nil {
			zap.L().Error("parse trade failed",
				zap.Error(err),
				zap.ByteString("key", iter.Key()),
				zap.ByteString("value", iter.Value()))
			return nil, err
		}

		if market != "" && trade.Market != market {
			continue
		}

		result = append(result, *trade)
	}

	err := iter.Error()
	if err != nil {
		zap.L().Error("iterate trades failed", zap.Error(err), zap.Time("start", start), zap.Time("stop", stop))
		return nil, err
	}

	return result, nil
}

func (s LevelDB) parseTrade(key, value string) (*trades.Trade, error) {
	// key: t:{timestamp ns}:{market}:{uuid}
	parts := strings.Split(key, ":")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid trade key: %s", key)
	}

	ns, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, err
	}

	// value: {order type},{quantity},{rate}
	fields := strings.Split(value, ",")
	if len(fields) != 3 {
		return nil, fmt.Errorf("invalid trade value: %s", value)
	}

	quantity, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return nil, err
	}

	rate, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return nil, err
	}

	return &trades.Trade{
		Timestamp: time.Unix(0, ns).UTC(),
		OrderType: trades.OrderType(fields[0]),
		Quantity:  quantity,
		Rate:      rate,
		Market:    parts[2],
	}, nil
}

// QueryMinuteKeys keys of persisted buckets in [start, stop)
func (s LevelDB) QueryMinuteKeys(ctx context.Context, start, stop time.Time) (map[trades.MinuteKey]bool, error) {
	buckets, err := s.queryMinutes("", start, stop)
	if err != nil {
		return nil, err
	}

	keys := make(map[trades.MinuteKey]bool, len(buckets))
	for _, bucket := range buckets {
		keys[bucket.Key()] = true
	}

	return keys, nil
}

// QueryMinutes buckets of market in [start, stop)
func (s LevelDB) QueryMinutes(ctx context.Context, market string, start, stop time.Time) ([]*trades.MinuteBucket, error) {
	return s.queryMinutes(market, start, stop)
}

func (s LevelDB) queryMinutes(market string, start, stop time.Time) ([]*trades.MinuteBucket, error) {
	iter := s.db.NewIterator(&util.Range{
		Start: []byte(timeKey(minutePrefix, start)),
		Limit: []byte(timeKey(minutePrefix, stop)),
	}, nil)
	defer iter.Release()

	buckets := make([]*trades.MinuteBucket, 0)
	for iter.Next() {
		bucket, err := s.parseMinute(string(iter.Key()), string(iter.Value()))
		if err != nil {
			zap.L().Error("parse minute failed",
				zap.Error(err),
				zap.ByteString("key", iter.Key()),
				zap.ByteString("value", iter.Value()))
			return nil, err
		}

		if market != "" && bucket.Market != market {
			continue
		}

		buckets = append(buckets, bucket)
	}

	err := iter.Error()
	if err != nil {
		zap.L().Error("iterate minutes failed", zap.Error(err), zap.Time("start", start), zap.Time("stop", stop))
		return nil, err
	}

	return buckets, nil
}

func (s LevelDB) parseMinute(key, value string) (*trades.MinuteBucket, error) {
	// key: m:{minute ns}:{market}
	parts := strings.SplitN(key, ":", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid minute key: %s", key)
	}

	ns, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, err
	}

	return parseMinuteValue(parts[2], time.Unix(0, ns), value)
}

func (s LevelDB) minuteKey(bucket *trades.MinuteBucket) []byte {
	// key: m:{minute ns}:{market}
	return []byte(fmt.Sprintf("%s:%s", timeKey(minutePrefix, bucket.Minute), bucket.Market))
}

// InsertMinute save new bucket
func (s LevelDB) InsertMinute(ctx context.Context, bucket *trades.MinuteBucket) error {
	err := s.db.Put(s.minuteKey(bucket), []byte(formatMinuteValue(bucket)), nil)
	if err != nil {
		zap.L().Error("insert minute failed",
			zap.Error(err),
			zap.String("market", bucket.Market),
			zap.Time("minute", bucket.Minute))
		return err
	}

	return nil
}

// UpdateMinute overwrite existing bucket
func (s LevelDB) UpdateMinute(ctx context.Context, bucket *trades.MinuteBucket) error {
	key := s.minuteKey(bucket)
	exists, err := s.db.Has(key, nil)
	if err != nil {
		zap.L().Error("check minute exists failed",
			zap.Error(err),
			zap.String("market", bucket.Market),
			zap.Time("minute", bucket.Minute))
		return err
	}

	if !exists {
		zap.L().Warn("update missing minute",
			zap.String("market", bucket.Market),
			zap.Time("minute", bucket.Minute))
	}

	return s.InsertMinute(ctx, bucket)
}
