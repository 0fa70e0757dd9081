package feed

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore backs the product feed with postgres: the snapshot is a
// filtered query against the products table and the change stream is a
// LISTEN connection receiving the inserted row as a JSON NOTIFY payload.
type PostgresStore struct {
	pool    *pgxpool.Pool
	dsn     string
	channel string
}

// NewPostgresStore connects a query pool and verifies the database is
// reachable. The channel names the NOTIFY channel the insert trigger
// publishes on.
func NewPostgresStore(ctx context.Context, dsn, channel string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &PostgresStore{pool: pool, dsn: dsn, channel: channel}, nil
}

func (s *PostgresStore) LoadSnapshot(ctx context.Context, runID string) ([]Product, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, description, price, image_url, COALESCE(url, ''), run_id
		 FROM products WHERE run_id = $1`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL, &p.URL, &p.RunID); err != nil {
			return nil, fmt.Errorf("scanning product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading product rows: %w", err)
	}
	return products, nil
}

// SubscribeInserts opens a dedicated LISTEN connection so the query pool is
// never left in listening state. Unsubscribe blocks until the receive loop
// has exited, so no handler call can land after it returns.
func (s *PostgresStore) SubscribeInserts(ctx context.Context, runID string, fn func(Product)) (Subscription, error) {
	conn, err := pgx.Connect(ctx, s.dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting listener: %w", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{s.channel}.Sanitize()); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("listening on %s: %w", s.channel, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &pgSubscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		defer conn.Close(context.Background())

		for {
			notification, err := conn.WaitForNotification(subCtx)
			if err != nil {
				if subCtx.Err() == nil {
					log.Printf("⚠️ product stream receive error: %v", err)
				}
				return
			}

			var p Product
			if err := sonic.Unmarshal([]byte(notification.Payload), &p); err != nil {
				log.Printf("⚠️ dropping malformed product notification: %v", err)
				continue
			}
			if p.RunID != runID {
				continue
			}
			fn(p)
		}
	}()

	return sub, nil
}

// Close releases the query pool. Live subscriptions hold their own
// connections and are released by their own Unsubscribe.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

type pgSubscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *pgSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}
