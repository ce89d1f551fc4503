package stores

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis"
	"github.com/google/uuid"
	"github.com/nzai/vpa/trades"
	"go.uber.org/zap"
)

// raw trades		zset: trades	score:{timestamp ms}	member:{market},{order type},{quantity},{rate},{timestamp ns},{uuid}
// minute keys		zset: minutes	score:{minute s}		member:m:{market}:{minute s}
// minute bucket	key: m:{market}:{minute s}				value:{vsell},{vbuy},{nsell},{nbuy},{ratesell|-},{ratebuy|-}

const (
	redisTradesKey  = "trades"
	redisMinutesKey = "minutes"
)

// Redis define redis store
type Redis struct {
	client *redis.Client
}

// NewRedis create redis store
func NewRedis(address, password string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         address,
		Password:     password,
		DB:           0, // use default DB
		MaxRetries:   2,
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
	})

	err := client.Ping().Err()
	if err != nil {
		zap.L().Error("ping redis failed", zap.Error(err), zap.String("address", address))
		client.Close()
		return nil, err
	}

	return &Redis{client}, nil
}

// Close close redis store
func (s Redis) Close() error {
	if s.client == nil {
		return nil
	}

	return s.client.Close()
}

// InsertTrades save raw trades
func (s Redis) InsertTrades(ctx context.Context, ts ...trades.Trade) error {
	if len(ts) == 0 {
		return nil
	}

	members := make([]redis.Z, 0, len(ts))
	for _, trade := range ts {
		members = append(members, redis.Z{
			Score: float64(trade.Timestamp.UnixNano() / int64(time.Millisecond)),
			Member: fmt.Sprintf("%s,%s,%s,%s,%d,%s",
				trade.Market,
				trade.OrderType,
				strconv.FormatFloat(trade.Quantity, 'g', -1, 64),
				strconv.FormatFloat(trade.Rate, 'g', -1, 64),
				trade.Timestamp.UnixNano(),
				uuid.NewString()),
		})
	}

	err := s.client.ZAdd(redisTradesKey, members...).Err()
	if err != nil {
		zap.L().Error("save trades failed", zap.Error(err), zap.Int("trades", len(ts)))
		return err
	}

	return nil
}

// QueryTrades trades in [start, stop) ordered by timestamp
func (s Redis) QueryTrades(ctx context.Context, market string, start, stop time.Time) ([]trades.Trade, error) {
	// scores are floored to the millisecond, stop is enforced exactly below
	members, err := s.client.ZRangeByScore(redisTradesKey, redis.ZRangeBy{
		Min: strconv.FormatInt(start.UnixNano()/int64(time.Millisecond), 10),
		Max: strconv.FormatInt(stop.UnixNano()/int64(time.Millisecond), 10),
	}).Result()
	if err != nil {
		zap.L().Error("query trades failed", zap.Error(err), zap.Time("start", start), zap.Time("stop", stop))
		return nil, err
	}

	var result []trades.Trade
	for _, member := range members {
		trade, err := s.parseTrade(member)
		if err != nil {
			zap.L().Error("parse trade failed", zap.Error(err), zap.String("member", member))
			return nil, err
		}

		if market != "" && trade.Market != market {
			continue
		}

		if trade.Timestamp.Before(start) || !trade.Timestamp.Before(stop) {
			continue
		}

		result = append(result, *trade)
	}

	// members sharing a millisecond score come back in member order
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	return result, nil
}

func (s Redis) parseTrade(member string) (*trades.Trade, error) {
	// member: {market},{order type},{quantity},{rate},{timestamp ns},{uuid}
	parts := strings.Split(member, ",")
	if len(parts) != 6 {
		return nil, fmt.Errorf("invalid trade member: %s", member)
	}

	quantity, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return nil, err
	}

	rate, err := strconv.ParseFloat(parts[3], 64)
	if err != nil {
		return nil, err
	}

	ns, err := strconv.ParseInt(parts[4], 10, 64)
	if err != nil {
		return nil, err
	}

	return &trades.Trade{
		Timestamp: time.Unix(0, ns).UTC(),
		OrderType: trades.OrderType(parts[1]),
		Quantity:  quantity,
		Rate:      rate,
		Market:    parts[0],
	}, nil
}

func (s Redis) minuteKey(market string, minute time.Time) string {
	return fmt.Sprintf("m:%s:%d", market, minute.Unix())
}

func (s Redis) minuteMembers(start, stop time.Time) ([]string, error) {
	members, err := s.client.ZRangeByScore(redisMinutesKey, redis.ZRangeBy{
		Min: strconv.FormatInt(start.Unix(), 10),
		Max: "(" + strconv.FormatInt(stop.Unix(), 10),
	}).Result()
	if err != nil {
		zap.L().Error("query minute keys failed", zap.Error(err), zap.Time("start", start), zap.Time("stop", stop))
		return nil, err
	}

	return members, nil
}

func (s Redis) parseMinuteKey(member string) (*trades.MinuteKey, error) {
	// member: m:{market}:{minute s}
	parts := strings.Split(member, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid minute key: %s", member)
	}

	seconds, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return nil, err
	}

	key := trades.NewMinuteKey(parts[1], time.Unix(seconds, 0))
	return &key, nil
}

// QueryMinuteKeys keys of persisted buckets in [start, stop)
func (s Redis) QueryMinuteKeys(ctx context.Context, start, stop time.Time) (map[trades.MinuteKey]bool, error) {
	members, err := s.minuteMembers(start, stop)
	if err != nil {
		return nil, err
	}

	keys := make(map[trades.MinuteKey]bool, len(members))
	for _, member := range members {
		key, err := s.parseMinuteKey(member)
		if err != nil {
			zap.L().Error("parse minute key failed", zap.Error(err), zap.String("member", member))
			return nil, err
		}

		keys[*key] = true
	}

	return keys, nil
}

// QueryMinutes buckets of market in [start, stop) ordered by minute
func (s Redis) QueryMinutes(ctx context.Context, market string, start, stop time.Time) ([]*trades.MinuteBucket, error) {
	members, err := s.minuteMembers(start, stop)
	if err != nil {
		return nil, err
	}

	buckets := make([]*trades.MinuteBucket, 0)
	var keys []string
	for _, member := range members {
		if strings.HasPrefix(member, fmt.Sprintf("m:%s:", market)) {
			keys = append(keys, member)
		}
	}

	if len(keys) == 0 {
		return buckets, nil
	}

	values, err := s.client.MGet(keys...).Result()
	if err != nil {
		zap.L().Error("get minutes failed", zap.Error(err), zap.String("market", market), zap.Int("keys", len(keys)))
		return nil, err
	}

	for index, value := range values {
		text, ok := value.(string)
		if !ok {
			// key listed but value gone
			zap.L().Warn("minute value missing", zap.String("key", keys[index]))
			continue
		}

		key, err := s.parseMinuteKey(keys[index])
		if err != nil {
			zap.L().Error("parse minute key failed", zap.Error(err), zap.String("key", keys[index]))
			return nil, err
		}

		bucket, err := parseMinuteValue(key.Market, key.Minute, text)
		if err != nil {
			zap.L().Error("parse minute failed", zap.Error(err), zap.String("key", keys[index]), zap.String("value", text))
			return nil, err
		}

		buckets = append(buckets, bucket)
	}

	return buckets, nil
}

// InsertMinute save new bucket
func (s Redis) InsertMinute(ctx context.Context, bucket *trades.MinuteBucket) error {
	key := s.minuteKey(bucket.Market, bucket.Minute)

	pipe := s.client.TxPipeline()
	pipe.Set(key, formatMinuteValue(bucket), 0)
	pipe.ZAdd(redisMinutesKey, redis.Z{Score: float64(bucket.Minute.Unix()), Member: key})

	_, err := pipe.Exec()
	if err != nil {
		zap.L().Error("save minute failed",
			zap.Error(err),
			zap.String("market", bucket.Market),
			zap.Time("minute", bucket.Minute))
		return err
	}

	return nil
}

// UpdateMinute overwrite existing bucket
func (s Redis) UpdateMinute(ctx context.Context, bucket *trades.MinuteBucket) error {
	err := s.client.Set(s.minuteKey(bucket.Market, bucket.Minute), formatMinuteValue(bucket), 0).Err()
	if err != nil {
		zap.L().Error("update minute failed",
			zap.Error(err),
			zap.String("market", bucket.Market),
			zap.Time("minute", bucket.Minute))
		return err
	}

	return nil
}
