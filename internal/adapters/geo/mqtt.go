package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/bezboss20/Dashboard-sub001/internal/domain/model"
	"github.com/bezboss20/Dashboard-sub001/pkg/logger"
)

const (
	defaultTimeout   = 10 * time.Second
	subscriptionSize = 8
	qosAtLeastOnce   = 1
)

// Client is the part of the paho client the provider uses.
type Client interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
}

// Connect dials an MQTT broker.
func Connect(broker, clientID, username, password string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	if username != "" {
		opts.SetUsername(username)
	}
	if password != "" {
		opts.SetPassword(password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker: %w", token.Error())
	}
	return c, nil
}

// MQTTOption configures an MQTTProvider.
type MQTTOption func(*MQTTProvider)

// WithTimeout bounds broker round trips and one-shot requests.
func WithTimeout(d time.Duration) MQTTOption {
	return func(p *MQTTProvider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) MQTTOption {
	return func(p *MQTTProvider) {
		if l != nil {
			p.log = l
		}
	}
}

// MQTTProvider reads fixes published by the operator's handheld on a topic.
// Payloads are {"lat", "lng", "ts"} or {"error": kind}.
//
// The client keeps one route per topic, so the provider holds a single
// broker subscription and fans each message out to every open
// Subscription. The topic is unsubscribed when the last one closes.
type MQTTProvider struct {
	client  Client
	topic   string
	timeout time.Duration
	log     logger.Logger

	// subMu serialises subscribe and unsubscribe round trips.
	subMu sync.Mutex
	refs  int

	mu        sync.Mutex
	nextID    int
	listeners map[int]chan Update
}

// NewMQTTProvider creates a provider on topic.
func NewMQTTProvider(client Client, topic string, opts ...MQTTOption) *MQTTProvider {
	p := &MQTTProvider{
		client:    client,
		topic:     topic,
		timeout:   defaultTimeout,
		log:       logger.NewNop(),
		listeners: make(map[int]chan Update),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Current waits for the next fix. On a fresh broker subscription that is
// the retained fix if the broker has one.
func (p *MQTTProvider) Current(ctx context.Context) (model.Position, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	sub, err := p.Watch(ctx)
	if err != nil {
		return model.Position{}, err
	}
	defer sub.Close()

	select {
	case u, ok := <-sub.C:
		if !ok {
			return model.Position{}, ErrPositionUnavailable
		}
		return u.Position, u.Err
	case <-ctx.Done():
		return model.Position{}, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
	}
}

// Watch streams fixes until the subscription is closed.
func (p *MQTTProvider) Watch(ctx context.Context) (*Subscription, error) {
	p.subMu.Lock()
	defer p.subMu.Unlock()

	if p.refs == 0 {
		token := p.client.Subscribe(p.topic, qosAtLeastOnce, func(_ mqtt.Client, msg mqtt.Message) {
			p.broadcast(decodeUpdate(msg.Payload()))
		})
		if err := p.wait(token); err != nil {
			return nil, fmt.Errorf("subscribe %s: %w", p.topic, err)
		}
		p.log.Debug(ctx, "geolocation subscribed", logger.String("topic", p.topic))
	}
	p.refs++

	ch := make(chan Update, subscriptionSize)
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = ch
	p.mu.Unlock()

	return NewSubscription(ch, func() { p.release(id) }), nil
}

func (p *MQTTProvider) release(id int) {
	p.subMu.Lock()
	defer p.subMu.Unlock()

	p.mu.Lock()
	if ch, ok := p.listeners[id]; ok {
		delete(p.listeners, id)
		close(ch)
	}
	p.mu.Unlock()

	p.refs--
	if p.refs > 0 {
		return
	}
	if err := p.wait(p.client.Unsubscribe(p.topic)); err != nil {
		p.log.Warn(context.Background(), "geolocation unsubscribe failed", logger.Error(err))
	}
}

func (p *MQTTProvider) broadcast(u Update) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.listeners {
		select {
		case ch <- u:
		default:
			// Slow reader: drop the oldest fix.
			select {
			case <-ch:
			default:
			}
			ch <- u
		}
	}
}

func (p *MQTTProvider) wait(t mqtt.Token) error {
	if !t.WaitTimeout(p.timeout) {
		return ErrTimeout
	}
	if err := t.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
	}
	return nil
}

type payload struct {
	Lat   *float64 `json:"lat"`
	Lng   *float64 `json:"lng"`
	TS    int64    `json:"ts"`
	Error string   `json:"error"`
}

func decodeUpdate(b []byte) Update {
	var pl payload
	if err := json.Unmarshal(b, &pl); err != nil {
		return Update{Err: fmt.Errorf("%w: bad payload: %v", ErrPositionUnavailable, err)}
	}
	if pl.Error != "" {
		return Update{Err: errorFromKind(pl.Error)}
	}
	if pl.Lat == nil || pl.Lng == nil {
		return Update{Err: fmt.Errorf("%w: missing coordinates", ErrPositionUnavailable)}
	}
	ts := time.Now().UTC()
	if pl.TS > 0 {
		ts = time.UnixMilli(pl.TS).UTC()
	}
	return Update{Position: model.Position{
		Coordinates: model.Coordinates{Lat: *pl.Lat, Lng: *pl.Lng},
		Timestamp:   ts,
	}}
}
