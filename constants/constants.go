package constants

import "time"

const (
	// RetryCount defind retry count
	RetryCount = 6
	// RetryInterval define retry intervals
	RetryInterval = time.Second * 10
	// StorageLimit max trades kept by a strategy window
	StorageLimit = 2000
	// ReconnectTimeout reconnect the stream after this long without a frame
	ReconnectTimeout = time.Second * 300
	// AggregateInterval minute aggregator tick
	AggregateInterval = time.Second * 10
	// DefaultHistory trades loaded into strategy windows on start
	DefaultHistory = time.Hour * 2
	// SocketURL bittrex signalr endpoint
	SocketURL = "https://socket.bittrex.com/signalr/"
	// SocketHub signalr hub name
	SocketHub = "corehub"
	// ClientProtocol signalr negotiate protocol version
	ClientProtocol = "1.5"
	// TimestampPattern venue fill timestamp layout, always utc
	TimestampPattern = "2006-01-02T15:04:05.999999999"
)

const (
	// MarketPattern valid market name, eg: BTC-ETH
	MarketPattern = `^\w{2,5}-\w{2,5}$`
	// DefaultStrategies strategies attached to every market
	DefaultStrategies = "pump"
	// DefaultServerAddress read api listen address
	DefaultServerAddress = ":8080"
	// DefaultPeriod read api query period
	DefaultPeriod = time.Hour * 2
	// DefaultAhead read api query end beyond now
	DefaultAhead = time.Hour
	// DefaultAnalysisPeriod volume profile period
	DefaultAnalysisPeriod = time.Hour
)
