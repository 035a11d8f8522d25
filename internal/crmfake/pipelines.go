package crmfake

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/johnwards/crmproxy/internal/domain"
)

// ListPipelines returns the live pipelines of an object type with their
// stages, both in display order.
func (s *Store) ListPipelines(ctx context.Context, typeName string) ([]domain.Pipeline, error) {
	t, err := resolveType(typeName)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, display_order, archived, created_at, updated_at
		 FROM pipelines WHERE object_type = ? AND archived = FALSE
		 ORDER BY display_order, created_at, id`,
		t.name,
	)
	if err != nil {
		return nil, fmt.Errorf("list pipelines: %w", err)
	}
	pipelines := []domain.Pipeline{}
	for rows.Next() {
		var p domain.Pipeline
		if err := rows.Scan(&p.ID, &p.Label, &p.DisplayOrder, &p.Archived, &p.CreatedAt, &p.UpdatedAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan pipeline: %w", err)
		}
		pipelines = append(pipelines, p)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Stages are loaded after the cursor is released (single connection).
	for i := range pipelines {
		if pipelines[i].Stages, err = s.stages(ctx, pipelines[i].ID); err != nil {
			return nil, err
		}
	}
	return pipelines, nil
}

func (s *Store) stages(ctx context.Context, pipelineID string) ([]domain.PipelineStage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, display_order, metadata, archived, created_at, updated_at
		 FROM pipeline_stages WHERE pipeline_id = ? AND archived = FALSE
		 ORDER BY display_order, id`,
		pipelineID,
	)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stages := []domain.PipelineStage{}
	for rows.Next() {
		var st domain.PipelineStage
		var meta *string
		if err := rows.Scan(&st.ID, &st.Label, &st.DisplayOrder, &meta, &st.Archived, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		if meta != nil && *meta != "" {
			if err := json.Unmarshal([]byte(*meta), &st.Metadata); err != nil {
				return nil, fmt.Errorf("decode stage metadata: %w", err)
			}
		}
		stages = append(stages, st)
	}
	return stages, rows.Err()
}

// CreatePipeline inserts a pipeline and its stages. Missing IDs are
// generated.
func (s *Store) CreatePipeline(ctx context.Context, typeName string, p domain.Pipeline) (*domain.Pipeline, error) {
	t, err := resolveType(typeName)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.Label) == "" {
		return nil, fmt.Errorf("%w: pipeline label is required", ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create pipeline: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ts := now()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt, p.UpdatedAt, p.Archived = ts, ts, false
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO pipelines (id, object_type, label, display_order, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, t.name, p.Label, p.DisplayOrder, ts, ts,
	); err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	for i := range p.Stages {
		st := &p.Stages[i]
		if st.ID == "" {
			st.ID = uuid.NewString()
		}
		st.CreatedAt, st.UpdatedAt, st.Archived = ts, ts, false
		meta, err := json.Marshal(st.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal stage metadata: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pipeline_stages (id, pipeline_id, label, display_order, metadata, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			st.ID, p.ID, st.Label, st.DisplayOrder, string(meta), ts, ts,
		); err != nil {
			return nil, fmt.Errorf("create stage %q: %w", st.Label, err)
		}
	}
	if p.Stages == nil {
		p.Stages = []domain.PipelineStage{}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit pipeline: %w", err)
	}
	return &p, nil
}

// DeletePipeline removes a pipeline and its stages.
func (s *Store) DeletePipeline(ctx context.Context, typeName, id string) error {
	t, err := resolveType(typeName)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM pipelines WHERE id = ? AND object_type = ?`, id, t.name)
	if err != nil {
		return fmt.Errorf("delete pipeline: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("pipeline %s: %w", id, ErrNotFound)
	}
	return nil
}
