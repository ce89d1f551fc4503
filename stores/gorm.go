package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/nzai/vpa/trades"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	dialectMySQL    = "mysql"
	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite"
)

// tradeRecord trades table
type tradeRecord struct {
	TradeID   uint      `gorm:"column:trade_id;primaryKey;autoIncrement"`
	Market    string    `gorm:"column:market;size:10"`
	OrderType string    `gorm:"column:order_type;size:4"`
	Rate      float64   `gorm:"column:rate"`
	Quantity  float64   `gorm:"column:quantity"`
	Timestamp time.Time `gorm:"column:timestamp;index:idx_timestamp"`
}

// TableName table name
func (tradeRecord) TableName() string {
	return "trades"
}

func (r tradeRecord) trade() trades.Trade {
	return trades.Trade{
		Timestamp: r.Timestamp.UTC(),
		OrderType: trades.OrderType(r.OrderType),
		Quantity:  r.Quantity,
		Rate:      r.Rate,
		Market:    r.Market,
	}
}

// minuteRecord minutes table, last sell/buy rates are null when the side had no trade
type minuteRecord struct {
	Market    string    `gorm:"column:market;size:10;primaryKey"`
	Timestamp time.Time `gorm:"column:timestamp;primaryKey"`
	VSell     float64   `gorm:"column:vsell"`
	VBuy      float64   `gorm:"column:vbuy"`
	NSell     int       `gorm:"column:nsell"`
	NBuy      int       `gorm:"column:nbuy"`
	RateSell  *float64  `gorm:"column:ratesell"`
	RateBuy   *float64  `gorm:"column:ratebuy"`
}

// TableName table name
func (minuteRecord) TableName() string {
	return "minutes"
}

func newMinuteRecord(bucket *trades.MinuteBucket) *minuteRecord {
	return &minuteRecord{
		Market:    bucket.Market,
		Timestamp: bucket.Minute.UTC(),
		VSell:     bucket.VSell,
		VBuy:      bucket.VBuy,
		NSell:     bucket.NSell,
		NBuy:      bucket.NBuy,
		RateSell:  bucket.RateSell,
		RateBuy:   bucket.RateBuy,
	}
}

func (r minuteRecord) bucket() *trades.MinuteBucket {
	return &trades.MinuteBucket{
		Market:   r.Market,
		Minute:   r.Timestamp.UTC(),
		VSell:    r.VSell,
		VBuy:     r.VBuy,
		NSell:    r.NSell,
		NBuy:     r.NBuy,
		RateSell: r.RateSell,
		RateBuy:  r.RateBuy,
	}
}

// Gorm relational store: mysql, postgres or sqlite
type Gorm struct {
	db *gorm.DB
}

// NewGorm open relational store and migrate tables
func NewGorm(dialect, dsn string) (*Gorm, error) {
	var dialector gorm.Dialector
	switch dialect {
	case dialectMySQL:
		dialector = mysql.Open(dsn)
	case dialectPostgres:
		dialector = postgres.Open(dsn)
	case dialectSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("invalid gorm dialect: %s", dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		zap.L().Error("open database failed", zap.Error(err), zap.String("dialect", dialect))
		return nil, err
	}

	if dialect == dialectSQLite {
		// sqlite allows a single writer, in-memory databases live in one connection
		sqlDB, err := db.DB()
		if err != nil {
			zap.L().Error("get sql db failed", zap.Error(err))
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	err = db.AutoMigrate(&tradeRecord{}, &minuteRecord{})
	if err != nil {
		zap.L().Error("migrate tables failed", zap.Error(err), zap.String("dialect", dialect))
		return nil, err
	}

	zap.L().Debug("open database success", zap.String("dialect", dialect))

	return &Gorm{db: db}, nil
}

// Close close database
func (s Gorm) Close() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// InsertTrades save raw trades
func (s Gorm) InsertTrades(ctx context.Context, ts ...trades.Trade) error {
	if len(ts) == 0 {
		return nil
	}

	records := make([]*tradeRecord, 0, len(ts))
	for _, trade := range ts {
		records = append(records, &tradeRecord{
			Market:    trade.Market,
			OrderType: string(trade.OrderType),
			Rate:      trade.Rate,
			Quantity:  trade.Quantity,
			Timestamp: trade.Timestamp.UTC(),
		})
	}

	err := s.db.WithContext(ctx).CreateInBatches(records, 256).Error
	if err != nil {
		zap.L().Error("insert trades failed", zap.Error(err), zap.Int("trades", len(ts)))
		return err
	}

	return nil
}

// QueryTrades trades in [start, stop) ordered by timestamp
func (s Gorm) QueryTrades(ctx context.Context, market string, start, stop time.Time) ([]trades.Trade, error) {
	query := s.db.WithContext(ctx).
		Where("timestamp >= ? AND timestamp < ?", start.UTC(), stop.UTC())
	if market != "" {
		query = query.Where("market = ?", market)
	}

	var records []*tradeRecord
	err := query.Order("timestamp").Order("trade_id").Find(&records).Error
	if err != nil {
		zap.L().Error("query trades failed",
			zap.Error(err),
			zap.String("market", market),
			zap.Time("start", start),
			zap.Time("stop", stop))
		return nil, err
	}

	result := make([]trades.Trade, 0, len(records))
	for _, record := range records {
		result = append(result, record.trade())
	}

	return result, nil
}

// QueryMinuteKeys keys of persisted buckets in [start, stop)
func (s Gorm) QueryMinuteKeys(ctx context.Context, start, stop time.Time) (map[trades.MinuteKey]bool, error) {
	var records []*minuteRecord
	err := s.db.WithContext(ctx).
		Select("market", "timestamp").
		Where("timestamp >= ? AND timestamp < ?", start.UTC(), stop.UTC()).
		Find(&records).Error
	if err != nil {
		zap.L().Error("query minute keys failed",
			zap.Error(err),
			zap.Time("start", start),
			zap.Time("stop", stop))
		return nil, err
	}

	keys := make(map[trades.MinuteKey]bool, len(records))
	for _, record := range records {
		keys[trades.NewMinuteKey(record.Market, record.Timestamp)] = true
	}

	return keys, nil
}

// QueryMinutes buckets of market in [start, stop)
func (s Gorm) QueryMinutes(ctx context.Context, market string, start, stop time.Time) ([]*trades.MinuteBucket, error) {
	var records []*minuteRecord
	err := s.db.WithContext(ctx).
		Where("market = ? AND timestamp >= ? AND timestamp < ?", market, start.UTC(), stop.UTC()).
		Order("timestamp").
		Find(&records).Error
	if err != nil {
		zap.L().Error("query minutes failed",
			zap.Error(err),
			zap.String("market", market),
			zap.Time("start", start),
			zap.Time("stop", stop))
		return nil, err
	}

	buckets := make([]*trades.MinuteBucket, 0, len(records))
	for _, record := range records {
		buckets = append(buckets, record.bucket())
	}

	return buckets, nil
}

// InsertMinute save new bucket
func (s Gorm) InsertMinute(ctx context.Context, bucket *trades.MinuteBucket) error {
	err := s.db.WithContext(ctx).Create(newMinuteRecord(bucket)).Error
	if err != nil {
		zap.L().Error("insert minute failed",
			zap.Error(err),
			zap.String("market", bucket.Market),
			zap.Time("minute", bucket.Minute))
		return err
	}

	return nil
}

// UpdateMinute overwrite existing bucket, null rates included
func (s Gorm) UpdateMinute(ctx context.Context, bucket *trades.MinuteBucket) error {
	record := newMinuteRecord(bucket)
	err := s.db.WithContext(ctx).
		Model(&minuteRecord{}).
		Where("market = ? AND timestamp = ?", record.Market, record.Timestamp).
		Select("vsell", "vbuy", "nsell", "nbuy", "ratesell", "ratebuy").
		Updates(record).Error
	if err != nil {
		zap.L().Error("update minute failed",
			zap.Error(err),
			zap.String("market", bucket.Market),
			zap.Time("minute", bucket.Minute))
		return err
	}

	return nil
}
