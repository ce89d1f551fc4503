package stores

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nzai/vpa/trades"
)

// minute value: {vsell},{vbuy},{nsell},{nbuy},{ratesell|-},{ratebuy|-}

const nullRate = "-"

func formatMinuteValue(bucket *trades.MinuteBucket) string {
	return fmt.Sprintf("%s,%s,%d,%d,%s,%s",
		strconv.FormatFloat(bucket.VSell, 'g', -1, 64),
		strconv.FormatFloat(bucket.VBuy, 'g', -1, 64),
		bucket.NSell,
		bucket.NBuy,
		formatRate(bucket.RateSell),
		formatRate(bucket.RateBuy))
}

func parseMinuteValue(market string, minute time.Time, value string) (*trades.MinuteBucket, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 6 {
		return nil, fmt.Errorf("invalid minute value: %s", value)
	}

	bucket := trades.NewMinuteBucket(market, minute)

	var err error
	bucket.VSell, err = strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return nil, err
	}

	bucket.VBuy, err = strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return nil, err
	}

	bucket.NSell, err = strconv.Atoi(parts[2])
	if err != nil {
		return nil, err
	}

	bucket.NBuy, err = strconv.Atoi(parts[3])
	if err != nil {
		return nil, err
	}

	bucket.RateSell, err = parseRate(parts[4])
	if err != nil {
		return nil, err
	}

	bucket.RateBuy, err = parseRate(parts[5])
	if err != nil {
		return nil, err
	}

	return bucket, nil
}

func formatRate(rate *float64) string {
	if rate == nil {
		return nullRate
	}

	return strconv.FormatFloat(*rate, 'g', -1, 64)
}

func parseRate(s string) (*float64, error) {
	if s == nullRate {
		return nil, nil
	}

	rate, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}

	return &rate, nil
}
