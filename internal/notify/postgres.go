package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
)

const reconnectDelay = 2 * time.Second

// Postgres is a Broker backed by LISTEN/NOTIFY. Change events are raised by
// table triggers installed by the migrations, so writes from any client of
// the database are observed.
//
// One connection listens on every table's channel for the whole process and
// fans notifications out through a Hub, so the number of subscribers does
// not depend on connection limits.
type Postgres struct {
	hub      *Hub
	channels map[string]string // channel -> table

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPostgres connects, listens on the change channels of tables, and starts
// dispatching notifications.
func NewPostgres(ctx context.Context, dsn string, tables ...string) (*Postgres, error) {
	p := newPostgres(tables)

	conn, err := p.listen(ctx, dsn)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(runCtx, dsn, conn)
	return p, nil
}

func newPostgres(tables []string) *Postgres {
	channels := make(map[string]string, len(tables))
	for _, table := range tables {
		channels[ChannelName(table)] = table
	}
	return &Postgres{hub: NewHub(), channels: channels}
}

// listen opens a connection and subscribes it to every channel.
func (p *Postgres) listen(ctx context.Context, dsn string) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting listener: %w", err)
	}

	names := make([]string, 0, len(p.channels))
	for channel := range p.channels {
		names = append(names, channel)
	}
	sort.Strings(names)

	for _, channel := range names {
		if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
			conn.Close(context.Background())
			return nil, fmt.Errorf("listening on %s: %w", channel, err)
		}
	}
	return conn, nil
}

// run waits for notifications until ctx is cancelled, reconnecting after
// connection errors.
func (p *Postgres) run(ctx context.Context, dsn string, conn *pgx.Conn) {
	defer close(p.done)
	defer func() {
		if conn != nil {
			conn.Close(context.Background())
		}
	}()

	for {
		n, err := conn.WaitForNotification(ctx)
		if err == nil {
			p.dispatch(ctx, n.Channel)
			continue
		}
		if ctx.Err() != nil {
			return
		}

		slog.Error("waiting for notification", "error", err)
		conn.Close(context.Background())
		conn = nil

		for conn == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}
			if conn, err = p.listen(ctx, dsn); err != nil {
				slog.Error("reconnecting listener", "error", err)
			}
		}

		// Changes may have been missed while disconnected.
		for _, table := range p.channels {
			p.hub.Publish(ctx, table)
		}
	}
}

// dispatch signals the subscribers of the table behind channel.
func (p *Postgres) dispatch(ctx context.Context, channel string) {
	table, ok := p.channels[channel]
	if !ok {
		slog.Warn("notification on unknown channel", "channel", channel)
		return
	}
	p.hub.Publish(ctx, table)
}

// Publish is a no-op: the table triggers notify on every write.
func (p *Postgres) Publish(context.Context, string) error {
	return nil
}

// Subscribe registers a subscriber for table. It does not use a connection.
func (p *Postgres) Subscribe(ctx context.Context, table string) (Subscription, error) {
	if _, ok := p.channels[ChannelName(table)]; !ok {
		return nil, fmt.Errorf("table %q is not listened on", table)
	}
	return p.hub.Subscribe(ctx, table)
}

// Close stops the listener and ends every subscription.
func (p *Postgres) Close() error {
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}
	return p.hub.Close()
}
