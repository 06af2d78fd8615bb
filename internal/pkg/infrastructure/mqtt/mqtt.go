package mqtt

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/logging"
	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/metrics"
)

const (
	// SubscribeQoS gives at-least-once delivery from the broker.
	SubscribeQoS byte = 1

	DefaultQueueSize int = 100
)

var ErrConnectTimeout = errors.New("timed out connecting to broker")

type Config struct {
	Host     string
	Port     string
	Topic    string
	User     string
	Password string
	ClientID string
	TLS      bool
}

// Broker returns the broker url in the form paho expects.
func (cfg Config) Broker() string {
	scheme := "tcp"
	if cfg.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(cfg.Host, cfg.Port))
}

// Subscriber owns the broker client and feeds every message payload on the subscribed
// topic into a bounded channel, in delivery order.
type Subscriber struct {
	cfg      Config
	client   paho.Client
	messages chan []byte
	done     chan struct{}
	once     sync.Once
	log      zerolog.Logger
}

func NewSubscriber(ctx context.Context, cfg Config, queueSize int) *Subscriber {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	s := &Subscriber{
		cfg:      cfg,
		messages: make(chan []byte, queueSize),
		done:     make(chan struct{}),
		log:      logging.GetFromContext(ctx).With().Str("broker", cfg.Broker()).Str("topic", cfg.Topic).Logger(),
	}

	s.client = paho.NewClient(s.clientOptions())

	return s
}

func (s *Subscriber) clientOptions() *paho.ClientOptions {
	opts := paho.NewClientOptions()
	opts.AddBroker(s.cfg.Broker())
	opts.SetClientID(s.cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetOrderMatters(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(time.Minute)
	opts.SetKeepAlive(30 * time.Second)

	if s.cfg.User != "" {
		opts.SetUsername(s.cfg.User)
		opts.SetPassword(s.cfg.Password)
	}

	if s.cfg.TLS {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: s.cfg.Host,
		})
	}

	opts.SetOnConnectHandler(s.onConnect)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		metrics.BrokerConnected.Set(0)
		s.log.Warn().Err(err).Msg("lost connection to broker")
	})
	opts.SetReconnectingHandler(func(_ paho.Client, _ *paho.ClientOptions) {
		s.log.Info().Msg("reconnecting to broker")
	})

	return opts
}

// onConnect runs after every successful (re)connect. The session is clean, so the
// subscription has to be renewed each time.
func (s *Subscriber) onConnect(c paho.Client) {
	metrics.BrokerConnected.Set(1)
	s.log.Info().Msg("connected to broker")

	token := c.Subscribe(s.cfg.Topic, SubscribeQoS, s.handle)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			s.log.Error().Err(err).Msg("failed to subscribe")
			return
		}
		s.log.Info().Msg("subscribed")
	}()
}

// handle is called from the paho router goroutine. Blocking here applies backpressure
// on the broker connection until the pipeline catches up or the subscriber is closed.
func (s *Subscriber) handle(_ paho.Client, msg paho.Message) {
	payload := make([]byte, len(msg.Payload()))
	copy(payload, msg.Payload())

	select {
	case s.messages <- payload:
	case <-s.done:
	}
}

// Start connects to the broker. Connection attempts continue in the background when
// the first one fails. Cancelling ctx while connecting is a normal shutdown and
// returns nil.
func (s *Subscriber) Start(ctx context.Context) error {
	token := s.client.Connect()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("failed to connect to broker: %w", err)
		}
	case <-ctx.Done():
		s.log.Info().Msg("stopped before a broker connection was established")
	case <-time.After(10 * time.Second):
		s.log.Warn().Err(ErrConnectTimeout).Msg("broker not reachable yet, retrying in background")
	}

	return nil
}

// Messages returns the channel the ingestion pipeline consumes.
func (s *Subscriber) Messages() <-chan []byte {
	return s.messages
}

func (s *Subscriber) IsConnected() bool {
	return s.client.IsConnectionOpen()
}

func (s *Subscriber) Broker() string {
	return s.cfg.Broker()
}

func (s *Subscriber) Topic() string {
	return s.cfg.Topic
}

// Close releases a blocked delivery and disconnects from the broker. The message channel
// is left open, consumers stop on their own context.
func (s *Subscriber) Close() {
	s.once.Do(func() {
		close(s.done)
		if s.client.IsConnected() {
			s.client.Unsubscribe(s.cfg.Topic).WaitTimeout(time.Second)
		}
		s.client.Disconnect(250)
		metrics.BrokerConnected.Set(0)
	})
}
