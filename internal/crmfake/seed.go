package crmfake

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// seedTimestamp is fixed so seeded rows are identical across resets.
const seedTimestamp = "2024-01-01T00:00:00.000Z"

type stageSeed struct {
	id       string
	label    string
	metadata map[string]string
}

// defaultDealStages mirrors HubSpot's stock "Sales Pipeline".
var defaultDealStages = []stageSeed{
	{"appointmentscheduled", "Appointment Scheduled", map[string]string{"probability": "0.2"}},
	{"qualifiedtobuy", "Qualified To Buy", map[string]string{"probability": "0.4"}},
	{"presentationscheduled", "Presentation Scheduled", map[string]string{"probability": "0.6"}},
	{"decisionmakerboughtin", "Decision Maker Bought-In", map[string]string{"probability": "0.8"}},
	{"contractsent", "Contract Sent", map[string]string{"probability": "0.9"}},
	{"closedwon", "Closed Won", map[string]string{"probability": "1.0", "isClosed": "true"}},
	{"closedlost", "Closed Lost", map[string]string{"probability": "0.0", "isClosed": "true"}},
}

// Seed inserts the default deal pipeline unless one already exists.
func Seed(ctx context.Context, db *sql.DB) error {
	var count int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pipelines WHERE id = 'default'`,
	).Scan(&count); err != nil {
		return fmt.Errorf("count pipelines: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO pipelines (id, object_type, label, display_order, created_at, updated_at)
		 VALUES ('default', 'deals', 'Sales Pipeline', 0, ?, ?)`,
		seedTimestamp, seedTimestamp,
	); err != nil {
		return fmt.Errorf("insert default pipeline: %w", err)
	}

	for i, s := range defaultDealStages {
		meta, err := json.Marshal(s.metadata)
		if err != nil {
			return fmt.Errorf("marshal stage metadata: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pipeline_stages (id, pipeline_id, label, display_order, metadata, created_at, updated_at)
			 VALUES (?, 'default', ?, ?, ?, ?, ?)`,
			s.id, s.label, i, string(meta), seedTimestamp, seedTimestamp,
		); err != nil {
			return fmt.Errorf("insert stage %q: %w", s.id, err)
		}
	}
	return tx.Commit()
}

// dataTables lists every data table in foreign-key-safe deletion order.
var dataTables = []string{
	"associations",
	"property_values",
	"objects",
	"pipeline_stages",
	"pipelines",
}

// Reset empties every data table and re-seeds.
func Reset(ctx context.Context, db *sql.DB) error {
	for _, table := range dataTables {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM sqlite_sequence WHERE name = 'objects'"); err != nil {
		return fmt.Errorf("reset id sequence: %w", err)
	}
	return Seed(ctx, db)
}
