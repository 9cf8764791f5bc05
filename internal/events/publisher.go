package events

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"zenbridge-backend/internal/config"
	"zenbridge-backend/internal/metrics"

	"github.com/nats-io/nats.go"
)

// Lifecycle event types published per state transition.
const (
	EventComputationQueued    = "ComputationQueued"
	EventComputationCompleted = "ComputationCompleted"
	EventComputationAborted   = "ComputationAborted"
	EventBurnSwap             = "BurnSwap"
	EventBurnToBTC            = "BurnToBTC"
)

// LifecycleEvent is the content-safe notification payload: computation ID,
// commitment digest, chain tags and timestamps only. Raw amounts, addresses
// and user identities never appear here.
type LifecycleEvent struct {
	EventType     string `json:"event_type"`
	ComputationID string `json:"computation_id"`
	TransformID   string `json:"transform_id"`
	Commitment    string `json:"commitment,omitempty"`
	SourceChain   string `json:"source_chain,omitempty"`
	DestChain     string `json:"dest_chain,omitempty"`
	RelayerLane   uint64 `json:"relayer_lane,omitempty"`
	Reason        string `json:"reason,omitempty"` // abort reason code, no values
	Timestamp     int64  `json:"timestamp"`
}

// BurnEvent notifies relayers of a burn. With privacy enabled the target
// address travels only as a commitment digest.
type BurnEvent struct {
	EventType     string `json:"event_type"`
	Amount        uint64 `json:"amount"`
	AddressDigest string `json:"address_digest,omitempty"`
	Encrypted     bool   `json:"encrypted"`
	Timestamp     int64  `json:"timestamp"`
}

// Publisher publishes bridge lifecycle events.
type Publisher interface {
	PublishLifecycle(event *LifecycleEvent) error
	PublishBurn(event *BurnEvent) error
	Close()
}

// NATSPublisher publishes to subjects of the form
// bridge.<chain>.Coordinator.<EventType>.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to the configured NATS server.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	connectTimeout := 10 * time.Second
	if config.AppConfig != nil && config.AppConfig.NATS.Timeout > 0 {
		connectTimeout = time.Duration(config.AppConfig.NATS.Timeout) * time.Second
	}

	conn, err := nats.Connect(url,
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("NATS disconnected: %v", err)
			metrics.NATSConnectionStatus.Set(0)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected")
			metrics.NATSConnectionStatus.Set(1)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	metrics.NATSConnectionStatus.Set(1)
	return &NATSPublisher{conn: conn}, nil
}

// PublishLifecycle publishes a state-transition event.
func (p *NATSPublisher) PublishLifecycle(event *LifecycleEvent) error {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}

	chain := event.SourceChain
	if chain == "" {
		chain = "any"
	}
	subject := fmt.Sprintf("bridge.%s.Coordinator.%s", chain, event.EventType)

	return p.publish(subject, event.EventType, event)
}

// PublishBurn publishes a burn notification for off-chain relayers.
func (p *NATSPublisher) PublishBurn(event *BurnEvent) error {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	subject := fmt.Sprintf("bridge.any.Ledger.%s", event.EventType)
	return p.publish(subject, event.EventType, event)
}

func (p *NATSPublisher) publish(subject, eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		metrics.EventsPublishFailed.WithLabelValues(eventType).Inc()
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.conn.Publish(subject, data); err != nil {
		metrics.EventsPublishFailed.WithLabelValues(eventType).Inc()
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}

	metrics.EventsPublished.WithLabelValues(eventType).Inc()
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
		metrics.NATSConnectionStatus.Set(0)
	}
}

// NoopPublisher drops all events. Used when NATS is not configured and in
// unit tests.
type NoopPublisher struct{}

func (NoopPublisher) PublishLifecycle(*LifecycleEvent) error { return nil }
func (NoopPublisher) PublishBurn(*BurnEvent) error           { return nil }
func (NoopPublisher) Close()                                 {}
