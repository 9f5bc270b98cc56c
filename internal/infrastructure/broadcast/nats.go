package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/islab/coordinates-registry/internal/core/domain"
	"github.com/islab/coordinates-registry/internal/core/ports"
)

// ConnectNATS opens a NATS connection that keeps reconnecting in the background.
func ConnectNATS(url, name string, log zerolog.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.Timeout(5 * time.Second),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error().Err(err).Msg("nats error")
		}),
		nats.DrainTimeout(10 * time.Second),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return nc, nil
}

// NATSPublisher publishes change events as JSON on a subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

func NewNATSPublisher(conn *nats.Conn, subject string) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: subject}
}

func (p *NATSPublisher) Broadcast(_ context.Context, event domain.ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", p.subject, err)
	}
	return nil
}

// NATSRelay subscribes to a subject and hands every decoded event to target,
// so each instance delivers changes made anywhere in the cluster.
type NATSRelay struct {
	conn    *nats.Conn
	subject string
	target  ports.Broadcaster
	log     zerolog.Logger
}

func NewNATSRelay(conn *nats.Conn, subject string, target ports.Broadcaster, log zerolog.Logger) *NATSRelay {
	return &NATSRelay{conn: conn, subject: subject, target: target, log: log}
}

// Run blocks until ctx is cancelled.
func (r *NATSRelay) Run(ctx context.Context) error {
	msgs := make(chan *nats.Msg, 64)
	sub, err := r.conn.ChanSubscribe(r.subject, msgs)
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", r.subject, err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-msgs:
			relay(ctx, msg.Data, r.target, r.log)
		}
	}
}

// relay decodes payload and forwards it. Undecodable payloads are skipped.
func relay(ctx context.Context, payload []byte, target ports.Broadcaster, log zerolog.Logger) {
	var event domain.ChangeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Warn().Err(err).Msg("skipping malformed change event")
		return
	}
	if err := target.Broadcast(ctx, event); err != nil {
		log.Warn().Err(err).Str("kind", string(event.Kind)).Msg("relay delivery failed")
	}
}
