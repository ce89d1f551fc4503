package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/nzai/vpa/constants"
	"github.com/nzai/vpa/metrics"
	"github.com/nzai/vpa/trades"
	"github.com/nzai/vpa/utils"
	"go.uber.org/zap"
)

const (
	subscribeMethod   = "SubscribeToExchangeDeltas"
	exchangeDeltaName = "updateExchangeState"
)

// TradesHandler receive fills of one market, called from the listen goroutine only
type TradesHandler func(ctx context.Context, market string, fills []trades.Fill) error

// Credentials anti-bot context sent with negotiate and connect requests
type Credentials interface {
	Get(ctx context.Context, negotiateURL string) (cookie, userAgent string, err error)
}

// StaticCredentials credentials obtained out of band
type StaticCredentials struct {
	Cookie    string
	UserAgent string
}

// Get return configured values
func (c StaticCredentials) Get(ctx context.Context, negotiateURL string) (string, string, error) {
	return c.Cookie, c.UserAgent, nil
}

// BittrexOptions streaming client options
type BittrexOptions struct {
	SocketURL        string
	Hub              string
	ReconnectTimeout time.Duration
	NegotiateRetry   int
	Credentials      Credentials
}

func (o *BittrexOptions) fill() {
	if o.SocketURL == "" {
		o.SocketURL = constants.SocketURL
	}

	if !strings.HasSuffix(o.SocketURL, "/") {
		o.SocketURL += "/"
	}

	if o.Hub == "" {
		o.Hub = constants.SocketHub
	}

	if o.ReconnectTimeout <= 0 {
		o.ReconnectTimeout = constants.ReconnectTimeout
	}

	if o.NegotiateRetry <= 0 {
		o.NegotiateRetry = constants.RetryCount
	}

	if o.Credentials == nil {
		o.Credentials = StaticCredentials{}
	}
}

// Bittrex signalr trade stream client
type Bittrex struct {
	options BittrexOptions
	now     func() time.Time

	// lifecycle serializes start, stop and reconnect
	lifecycle sync.Mutex
	ctx       context.Context
	tickers   []string
	handler   TradesHandler

	// mutex guards the fields below
	mutex          sync.Mutex
	running        bool
	connected      bool
	lastSeen       time.Time
	conn           *websocket.Conn
	listenCancel   context.CancelFunc
	listenDone     chan struct{}
	watchdogCancel context.CancelFunc
	watchdogDone   chan struct{}
}

// NewBittrex create streaming client
func NewBittrex(options BittrexOptions) *Bittrex {
	options.fill()
	return &Bittrex{
		options: options,
		now:     time.Now,
	}
}

// Start subscribe tickers and deliver fills to handler until Stop or ctx cancel
func (s *Bittrex) Start(ctx context.Context, tickers []string, handler TradesHandler) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mutex.Lock()
	if s.running {
		s.mutex.Unlock()
		return errors.New("stream already running")
	}
	s.running = true
	s.lastSeen = s.now()
	s.mutex.Unlock()

	s.ctx = ctx
	s.tickers = append([]string(nil), tickers...)
	s.handler = handler

	s.startListen()

	watchdogCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.mutex.Lock()
	s.watchdogCancel = cancel
	s.watchdogDone = done
	s.mutex.Unlock()

	go s.watchdog(watchdogCtx, done)

	zap.L().Info("stream started", zap.Strings("tickers", tickers), zap.String("url", s.options.SocketURL))

	return nil
}

// Stop close the stream and wait for listen and watchdog goroutines, safe to call more than once
func (s *Bittrex) Stop() error {
	s.lifecycle.Lock()

	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		s.lifecycle.Unlock()
		return nil
	}
	s.running = false
	watchdogCancel, watchdogDone := s.watchdogCancel, s.watchdogDone
	s.mutex.Unlock()

	s.stopListen()
	watchdogCancel()
	s.lifecycle.Unlock()

	// watchdog may be waiting on lifecycle, wait after release
	<-watchdogDone

	zap.L().Info("stream stopped", zap.Strings("tickers", s.tickers))

	return nil
}

// IsConnected subscribed and not torn down yet
func (s *Bittrex) IsConnected() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.connected
}

// IsRunning started and not stopped
func (s *Bittrex) IsRunning() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.running
}

// LastSeen time of the last frame, or of the last (re)connect
func (s *Bittrex) LastSeen() time.Time {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.lastSeen
}

// startListen must hold lifecycle
func (s *Bittrex) startListen() {
	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan struct{})

	s.mutex.Lock()
	s.listenCancel = cancel
	s.listenDone = done
	s.mutex.Unlock()

	go func() {
		defer close(done)
		s.listen(ctx)
	}()
}

// stopListen must hold lifecycle
func (s *Bittrex) stopListen() {
	s.mutex.Lock()
	cancel, done := s.listenCancel, s.listenDone
	s.mutex.Unlock()

	if cancel == nil {
		return
	}

	// cancel before taking conn, a dial finishing now sees the cancelled context
	cancel()

	s.mutex.Lock()
	conn := s.conn
	s.conn = nil
	s.connected = false
	s.listenCancel = nil
	s.listenDone = nil
	s.mutex.Unlock()

	if conn != nil {
		conn.Close()
	}

	<-done
}

func (s *Bittrex) watchdog(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.options.ReconnectTimeout / 10)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkSilence()
		}
	}
}

// checkSilence reconnect when no frame arrived within reconnect timeout, returns whether it reconnected
func (s *Bittrex) checkSilence() bool {
	s.mutex.Lock()
	running := s.running
	silence := s.now().Sub(s.lastSeen)
	s.mutex.Unlock()

	if !running || silence <= s.options.ReconnectTimeout {
		return false
	}

	return s.reconnect(silence)
}

func (s *Bittrex) reconnect(silence time.Duration) bool {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if !s.IsRunning() {
		return false
	}

	zap.L().Warn("stream silent, reconnect",
		zap.Duration("silence", silence),
		zap.Strings("tickers", s.tickers))
	metrics.ReconnectsTotal.Inc()

	s.stopListen()

	s.mutex.Lock()
	s.lastSeen = s.now()
	s.mutex.Unlock()

	s.startListen()

	return true
}

func (s *Bittrex) touch() {
	s.mutex.Lock()
	s.lastSeen = s.now()
	s.mutex.Unlock()
}

func (s *Bittrex) connectionData() string {
	return fmt.Sprintf(`[{"name":"%s"}]`, s.options.Hub)
}

type negotiateResponse struct {
	ConnectionToken string `json:"ConnectionToken"`
	ProtocolVersion string `json:"ProtocolVersion"`
}

func (s *Bittrex) negotiateURL() string {
	values := url.Values{}
	values.Set("clientProtocol", constants.ClientProtocol)
	values.Set("connectionData", s.connectionData())
	values.Set("_", strconv.FormatInt(utils.UnixMilli(s.now()), 10))
	return s.options.SocketURL + "negotiate?" + values.Encode()
}

func (s *Bittrex) connectURL(response *negotiateResponse) string {
	base := s.options.SocketURL
	switch {
	case strings.HasPrefix(base, "https"):
		base = "wss" + strings.TrimPrefix(base, "https")
	case strings.HasPrefix(base, "http"):
		base = "ws" + strings.TrimPrefix(base, "http")
	}

	values := url.Values{}
	values.Set("transport", "webSockets")
	values.Set("clientProtocol", response.ProtocolVersion)
	values.Set("connectionToken", response.ConnectionToken)
	values.Set("connectionData", s.connectionData())
	values.Set("tid", "3")
	return base + "connect?" + values.Encode()
}

func (s *Bittrex) negotiate(ctx context.Context, negotiateURL string, headers map[string]string) (*negotiateResponse, error) {
	response := new(negotiateResponse)
	err := utils.TryDownloadJSON(ctx, negotiateURL, headers, s.options.NegotiateRetry, constants.RetryInterval, response)
	if err != nil {
		return nil, err
	}

	if response.ConnectionToken == "" {
		return nil, fmt.Errorf("%w: negotiate response without connection token", constants.ErrMalformedFrame)
	}

	return response, nil
}

func (s *Bittrex) connect(ctx context.Context, session string) (*websocket.Conn, error) {
	negotiateURL := s.negotiateURL()
	cookie, userAgent, err := s.options.Credentials.Get(ctx, negotiateURL)
	if err != nil {
		zap.L().Warn("get credentials failed", zap.Error(err), zap.String("session", session))
		return nil, err
	}

	headers := map[string]string{}
	header := http.Header{}
	if cookie != "" {
		headers["Cookie"] = cookie
		header.Set("Cookie", cookie)
	}
	if userAgent != "" {
		headers["User-Agent"] = userAgent
		header.Set("User-Agent", userAgent)
	}

	response, err := s.negotiate(ctx, negotiateURL, headers)
	if err != nil {
		zap.L().Warn("negotiate failed", zap.Error(err), zap.String("session", session))
		return nil, err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 30 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.connectURL(response), header)
	if err != nil {
		zap.L().Warn("dial stream failed", zap.Error(err), zap.String("session", session))
		return nil, err
	}

	s.mutex.Lock()
	if ctx.Err() != nil {
		s.mutex.Unlock()
		conn.Close()
		return nil, ctx.Err()
	}
	s.conn = conn
	s.mutex.Unlock()

	return conn, nil
}

type subscribeMessage struct {
	H string   `json:"H"`
	M string   `json:"M"`
	A []string `json:"A"`
	I int      `json:"I"`
}

func (s *Bittrex) subscribe(conn *websocket.Conn) error {
	for index, ticker := range s.tickers {
		buffer, err := sonic.Marshal(subscribeMessage{
			H: s.options.Hub,
			M: subscribeMethod,
			A: []string{ticker},
			I: index + 1,
		})
		if err != nil {
			return err
		}

		err = conn.WriteMessage(websocket.TextMessage, buffer)
		if err != nil {
			return err
		}
	}

	return nil
}

// listen negotiate, connect, subscribe then read frames until the connection ends
func (s *Bittrex) listen(ctx context.Context) {
	session := uuid.NewString()

	conn, err := s.connect(ctx, session)
	if err != nil {
		return
	}

	defer func() {
		s.mutex.Lock()
		if s.conn == conn {
			s.conn = nil
			s.connected = false
		}
		s.mutex.Unlock()
		conn.Close()
	}()

	err = s.subscribe(conn)
	if err != nil {
		zap.L().Warn("subscribe failed", zap.Error(err), zap.String("session", session))
		return
	}

	s.mutex.Lock()
	if s.conn == conn {
		s.connected = true
	}
	s.mutex.Unlock()

	zap.L().Info("stream subscribed", zap.String("session", session), zap.Strings("tickers", s.tickers))

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				zap.L().Debug("stream closed", zap.String("session", session))
			} else {
				zap.L().Warn("read stream failed", zap.Error(err), zap.String("session", session))
			}
			return
		}

		s.touch()
		metrics.FramesTotal.Inc()

		if messageType != websocket.TextMessage {
			continue
		}

		deltas, err := parseFrame(message)
		if err != nil {
			zap.L().Error("parse frame failed", zap.Error(err), zap.String("session", session), zap.ByteString("frame", message))
			metrics.MalformedFramesTotal.Inc()
			continue
		}

		for _, delta := range deltas {
			err = s.handler(ctx, delta.Market, delta.Fills)
			if err != nil {
				zap.L().Error("handle fills failed",
					zap.Error(err),
					zap.String("market", delta.Market),
					zap.Int("fills", len(delta.Fills)))
			}
		}
	}
}

// MarketFills fills of one market in one frame
type MarketFills struct {
	Market string
	Fills  []trades.Fill
}

type frameEnvelope struct {
	M *[]frameBlock `json:"M"`
}

type frameBlock struct {
	M *string         `json:"M"`
	A json.RawMessage `json:"A"`
}

type exchangeState struct {
	MarketName *string      `json:"MarketName"`
	Fills      *[]fillFrame `json:"Fills"`
}

type fillFrame struct {
	OrderType *string  `json:"OrderType"`
	Rate      *float64 `json:"Rate"`
	Quantity  *float64 `json:"Quantity"`
	TimeStamp *string  `json:"TimeStamp"`
}

func (f fillFrame) fill() (trades.Fill, error) {
	switch {
	case f.OrderType == nil:
		return trades.Fill{}, fmt.Errorf("%w: fill without order type", constants.ErrMalformedFrame)
	case f.Rate == nil:
		return trades.Fill{}, fmt.Errorf("%w: fill without rate", constants.ErrMalformedFrame)
	case f.Quantity == nil:
		return trades.Fill{}, fmt.Errorf("%w: fill without quantity", constants.ErrMalformedFrame)
	case f.TimeStamp == nil:
		return trades.Fill{}, fmt.Errorf("%w: fill without timestamp", constants.ErrMalformedFrame)
	}

	return trades.Fill{
		OrderType: *f.OrderType,
		Rate:      *f.Rate,
		Quantity:  *f.Quantity,
		TimeStamp: *f.TimeStamp,
	}, nil
}

func isMissing(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// parseFrame extract exchange state fills, frames without a method list carry none
func parseFrame(message []byte) ([]MarketFills, error) {
	var envelope frameEnvelope
	err := sonic.Unmarshal(message, &envelope)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", constants.ErrMalformedFrame, err)
	}

	if envelope.M == nil {
		return nil, nil
	}

	var result []MarketFills
	for _, block := range *envelope.M {
		if block.M == nil {
			return nil, fmt.Errorf("%w: block without method", constants.ErrMalformedFrame)
		}

		if *block.M != exchangeDeltaName {
			continue
		}

		if isMissing(block.A) {
			return nil, fmt.Errorf("%w: block without arguments", constants.ErrMalformedFrame)
		}

		var states []exchangeState
		err = sonic.Unmarshal(block.A, &states)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", constants.ErrMalformedFrame, err)
		}

		for _, state := range states {
			if state.MarketName == nil {
				return nil, fmt.Errorf("%w: state without market name", constants.ErrMalformedFrame)
			}

			if state.Fills == nil {
				return nil, fmt.Errorf("%w: state without fills", constants.ErrMalformedFrame)
			}

			if len(*state.Fills) == 0 {
				continue
			}

			fills := make([]trades.Fill, 0, len(*state.Fills))
			for _, frame := range *state.Fills {
				fill, err := frame.fill()
				if err != nil {
					return nil, err
				}
				fills = append(fills, fill)
			}

			result = append(result, MarketFills{Market: *state.MarketName, Fills: fills})
		}
	}

	return result, nil
}
