package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lib/pq"

	"github.com/gravadigital/community-portal/internal/logger"
)

const pingInterval = 90 * time.Second

// Channel is the LISTEN/NOTIFY channel the row change triggers publish on
const Channel = "row_changes"

// Listener bridges Postgres LISTEN/NOTIFY into a Publisher
type Listener struct {
	dsn          string
	channel      string
	minReconnect time.Duration
	maxReconnect time.Duration
	publisher    Publisher
	log          *log.Logger
}

// NewListener creates a listener for Channel on the database at dsn
func NewListener(dsn string, minReconnect, maxReconnect time.Duration, publisher Publisher) *Listener {
	return &Listener{
		dsn:          dsn,
		channel:      Channel,
		minReconnect: minReconnect,
		maxReconnect: maxReconnect,
		publisher:    publisher,
		log:          logger.Realtime(),
	}
}

// Run listens until ctx is canceled. Reconnection is handled by pq.Listener.
func (l *Listener) Run(ctx context.Context) error {
	pl := pq.NewListener(l.dsn, l.minReconnect, l.maxReconnect, l.onEvent)
	defer pl.Close()

	if err := pl.Listen(l.channel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.channel, err)
	}
	l.log.Info("Listening for row changes", "channel", l.channel)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.log.Info("Row change listener stopped", "channel", l.channel)
			return nil
		case n := <-pl.Notify:
			// nil is sent after a reconnect; notifications in between are lost
			if n == nil {
				l.log.Warn("Listener reconnected, changes may have been missed", "channel", l.channel)
				continue
			}
			l.handle(n.Extra)
		case <-ticker.C:
			go func() {
				if err := pl.Ping(); err != nil {
					l.log.Warn("Listener ping failed", "error", err)
				}
			}()
		}
	}
}

func (l *Listener) handle(payload string) {
	c, err := Decode(payload)
	if err != nil {
		l.log.Warn("Discarding malformed notification", "error", err)
		return
	}
	l.publisher.Publish(c)
}

func (l *Listener) onEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnected:
		l.log.Debug("Listener connected")
	case pq.ListenerEventDisconnected:
		l.log.Warn("Listener disconnected", "error", err)
	case pq.ListenerEventReconnected:
		l.log.Info("Listener reconnected")
	case pq.ListenerEventConnectionAttemptFailed:
		l.log.Error("Listener connection attempt failed", "error", err)
	}
}
