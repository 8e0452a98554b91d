package broker

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// ErrDisabled is returned by Connect when no server URL is configured.
var ErrDisabled = errors.New("broker disabled")

// natsConnectFunc allows test injection
var natsConnectFunc = nats.Connect

// Publisher is the subset of *nats.Conn the change relay needs.
type Publisher interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
}

// Conn is a closable Publisher.
type Conn interface {
	Publisher
	Close()
}

// Connect dials the configured NATS server.
func Connect(cfg Config) (Conn, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}

	name := cfg.Name
	if name == "" {
		name = "segment-sync"
	}

	nc, err := natsConnectFunc(cfg.URL,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return nc, nil
}
