package mysql

import (
	"context"
	"database/sql"
	"time"

	"auction-node/internal/domain"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLAuditRepository keeps an append-only trail of applied mutations.
// The leveldb record store stays the source of truth; this table exists
// for inspection and reconciliation across nodes.
type MySQLAuditRepository struct {
	db *sql.DB
}

func NewMySQLAuditRepository(db *sql.DB) *MySQLAuditRepository {
	return &MySQLAuditRepository{db: db}
}

func (r *MySQLAuditRepository) RecordMutation(ctx context.Context, event *domain.MutationEvent) error {
	query := `
        INSERT INTO auction_events (auction_id, action, actor, amount, origin, event_time, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		event.AuctionID, string(event.Action), event.Actor,
		event.Amount, event.Origin, event.Timestamp, time.Now())
	return err
}

func (r *MySQLAuditRepository) History(ctx context.Context, auctionID string) ([]*domain.MutationEvent, error) {
	query := `
        SELECT auction_id, action, actor, amount, origin, event_time
        FROM auction_events
        WHERE auction_id = ?
        ORDER BY id ASC
    `

	rows, err := r.db.QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.MutationEvent
	for rows.Next() {
		var event domain.MutationEvent
		var action string

		err := rows.Scan(&event.AuctionID, &action, &event.Actor,
			&event.Amount, &event.Origin, &event.Timestamp)
		if err != nil {
			return nil, err
		}

		event.Action = domain.Action(action)
		events = append(events, &event)
	}

	return events, rows.Err()
}
