package notifiers

import (
	"crypto/tls"

	"github.com/bytedance/sonic"
	"github.com/nsqio/go-nsq"
	"go.uber.org/zap"
)

// Nsq notify by nsq
type Nsq struct {
	topic    string
	producer *nsq.Producer
}

// NewNsq create new nsq notifier, tls is enabled when cert and key are set
func NewNsq(broker, tlsCert, tlsKey, topic string) (*Nsq, error) {
	config := nsq.NewConfig()

	if tlsCert != "" && tlsKey != "" {
		cert, err := tls.LoadX509KeyPair(tlsCert, tlsKey)
		if err != nil {
			zap.L().Error("init tls certificate failed",
				zap.Error(err),
				zap.String("tlsCert", tlsCert),
				zap.String("tlsKey", tlsKey))
			return nil, err
		}

		config.TlsV1 = true
		config.TlsConfig = &tls.Config{
			InsecureSkipVerify: true,
			Certificates:       []tls.Certificate{cert},
		}
	}

	producer, err := nsq.NewProducer(broker, config)
	if err != nil {
		zap.L().Error("init nsq producer failed",
			zap.Error(err),
			zap.String("broker", broker))
		return nil, err
	}

	return &Nsq{topic: topic, producer: producer}, nil
}

// Notify publish decision
func (s Nsq) Notify(event *DecisionEvent) error {
	buffer, err := sonic.Marshal(event)
	if err != nil {
		zap.L().Warn("marshal decision failed",
			zap.Error(err),
			zap.Any("event", event))
		return err
	}

	err = s.producer.Publish(s.topic, buffer)
	if err != nil {
		zap.L().Warn("publish decision failed",
			zap.Error(err),
			zap.String("topic", s.topic),
			zap.String("market", event.Market),
			zap.String("strategy", event.Strategy))
		return err
	}

	zap.L().Debug("publish decision success",
		zap.String("topic", s.topic),
		zap.String("market", event.Market),
		zap.String("strategy", event.Strategy),
		zap.String("action", event.Action))

	return nil
}

// Close close producer
func (s Nsq) Close() {
	if s.producer == nil {
		return
	}

	s.producer.Stop()
}
