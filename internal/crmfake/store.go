package crmfake

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/johnwards/crmproxy/internal/domain"
)

var (
	// ErrNotFound is returned when an object or pipeline does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnknownType is returned for object types the emulator does not model.
	ErrUnknownType = errors.New("unknown object type")
	// ErrInvalidAssociation is returned when an association target is missing.
	ErrInvalidAssociation = errors.New("invalid association")
	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation error")
)

// objectType is a CRM object type reachable by name or by HubSpot type ID.
type objectType struct {
	name     string
	id       string
	singular string
}

var objectTypes = []objectType{
	{name: "contacts", id: "0-1", singular: "contact"},
	{name: "companies", id: "0-2", singular: "company"},
	{name: "deals", id: "0-3", singular: "deal"},
	{name: "tickets", id: "0-5", singular: "ticket"},
}

func resolveType(s string) (objectType, error) {
	for _, t := range objectTypes {
		if s == t.name || s == t.id || s == t.singular {
			return t, nil
		}
	}
	return objectType{}, fmt.Errorf("%w: %s", ErrUnknownType, s)
}

// inverseAssociationType maps HubSpot-defined association types to the type
// of the reverse edge (deal->contact 3 <-> contact->deal 4, and so on).
var inverseAssociationType = map[int]int{1: 2, 2: 1, 3: 4, 4: 3, 5: 6, 6: 5, 15: 16, 16: 15}

// defaultProps are returned on every object regardless of the request.
var defaultProps = []string{"createdate", "hs_lastmodifieddate", "hs_object_id"}

// now returns the current UTC time as a HubSpot timestamp.
func now() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

// AssociationInput links a new object to an existing one.
type AssociationInput struct {
	To    ObjectRef         `json:"to"`
	Types []AssociationType `json:"types"`
}

// ObjectRef identifies an object by ID.
type ObjectRef struct {
	ID string `json:"id"`
}

// AssociationType is a labelled edge type.
type AssociationType struct {
	AssociationCategory string `json:"associationCategory"`
	AssociationTypeID   int    `json:"associationTypeId"`
}

// Page is one page of a listing.
type Page struct {
	Results []domain.Object
	After   string
}

// AssociatedObject is one edge as the associations endpoint reports it.
type AssociatedObject struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Store persists CRM objects, associations and pipelines in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store on db. The schema must already be migrated.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateObject inserts an object with its properties and associations in a
// single transaction.
func (s *Store) CreateObject(ctx context.Context, typeName string, props domain.Properties, assocs []AssociationInput) (*domain.Object, error) {
	t, err := resolveType(typeName)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ts := now()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO objects (object_type, created_at, updated_at) VALUES (?, ?, ?)`,
		t.name, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert object: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	idStr := strconv.FormatInt(id, 10)

	values := map[string]string{
		"hs_object_id":        idStr,
		"createdate":          ts,
		"hs_lastmodifieddate": ts,
	}
	for k := range props {
		values[k] = props.String(k)
	}
	for name, value := range values {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO property_values (object_id, property_name, value, updated_at) VALUES (?, ?, ?, ?)`,
			id, name, value, ts,
		); err != nil {
			return nil, fmt.Errorf("set property %s: %w", name, err)
		}
	}

	for _, a := range assocs {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM objects WHERE id = ? AND archived = FALSE`, a.To.ID,
		).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("check association target: %w", err)
		}
		if exists == 0 {
			return nil, fmt.Errorf("%w: object %s does not exist", ErrInvalidAssociation, a.To.ID)
		}
		for _, at := range a.Types {
			if err := associate(ctx, tx, id, a.To.ID, at.AssociationCategory, at.AssociationTypeID, ts); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create: %w", err)
	}

	obj := &domain.Object{ID: idStr, Properties: make(domain.Properties, len(values)), CreatedAt: ts, UpdatedAt: ts}
	for k, v := range values {
		obj.Properties[k] = v
	}
	return obj, nil
}

// associate records the edge and its reverse.
func associate(ctx context.Context, tx *sql.Tx, fromID int64, toID, category string, typeID int, ts string) error {
	reverse, ok := inverseAssociationType[typeID]
	if !ok {
		reverse = typeID
	}
	to, err := strconv.ParseInt(toID, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: id %q", ErrInvalidAssociation, toID)
	}
	for _, edge := range [][3]int64{{fromID, to, int64(typeID)}, {to, fromID, int64(reverse)}} {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO associations (from_object_id, to_object_id, association_category, association_type_id, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			edge[0], edge[1], category, edge[2], ts,
		); err != nil {
			return fmt.Errorf("insert association: %w", err)
		}
	}
	return nil
}

// ListObjects returns up to limit live objects with id greater than after,
// in id order. Page.After is set when more remain.
func (s *Store) ListObjects(ctx context.Context, typeName string, limit int, after string, props []string) (*Page, error) {
	t, err := resolveType(typeName)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, created_at, updated_at FROM objects WHERE object_type = ? AND archived = FALSE`
	args := []any{t.name}
	if after != "" {
		query += ` AND id > ?`
		args = append(args, after)
	}
	query += ` ORDER BY id ASC LIMIT ?`
	args = append(args, limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	var objs []domain.Object
	for rows.Next() {
		var o domain.Object
		if err := rows.Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan object: %w", err)
		}
		objs = append(objs, o)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	page := &Page{Results: []domain.Object{}}
	if len(objs) > limit {
		objs = objs[:limit]
		page.After = objs[limit-1].ID
	}
	for i := range objs {
		objs[i].Properties, err = s.properties(ctx, objs[i].ID, props)
		if err != nil {
			return nil, err
		}
	}
	page.Results = objs
	return page, nil
}

// GetObject returns one live object.
func (s *Store) GetObject(ctx context.Context, typeName, id string, props []string) (*domain.Object, error) {
	t, err := resolveType(typeName)
	if err != nil {
		return nil, err
	}
	o := domain.Object{ID: id}
	err = s.db.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM objects WHERE id = ? AND object_type = ? AND archived = FALSE`,
		id, t.name,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", t.singular, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	o.Properties, err = s.properties(ctx, id, props)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// BatchRead returns the found objects in input order and the IDs that were
// not found.
func (s *Store) BatchRead(ctx context.Context, typeName string, ids, props []string) ([]domain.Object, []string, error) {
	found := []domain.Object{}
	var missing []string
	for _, id := range ids {
		o, err := s.GetObject(ctx, typeName, id, props)
		if errors.Is(err, ErrNotFound) {
			missing = append(missing, id)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		found = append(found, *o)
	}
	return found, missing, nil
}

// properties loads the requested properties of an object plus the defaults.
// Requested properties without a value are reported as null.
func (s *Store) properties(ctx context.Context, id string, want []string) (domain.Properties, error) {
	names := append(append([]string{}, defaultProps...), want...)
	out := make(domain.Properties, len(names))
	for _, n := range names {
		out[n] = nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(names)), ",")
	args := make([]any, 0, len(names)+1)
	args = append(args, id)
	for _, n := range names {
		args = append(args, n)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT property_name, value FROM property_values WHERE object_id = ? AND property_name IN (`+placeholders+`)`, //nolint:gosec // placeholders only
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("load properties: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var name string
		var value sql.NullString
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		if value.Valid {
			out[name] = value.String
		}
	}
	return out, rows.Err()
}

// Associations lists objects of toType associated with the given object, in
// the order the edges were created.
func (s *Store) Associations(ctx context.Context, fromType, id, toType string) ([]AssociatedObject, error) {
	from, err := resolveType(fromType)
	if err != nil {
		return nil, err
	}
	to, err := resolveType(toType)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetObject(ctx, from.name, id, nil); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT a.to_object_id FROM associations a
		 JOIN objects o ON o.id = a.to_object_id
		 WHERE a.from_object_id = ? AND o.object_type = ? AND o.archived = FALSE
		 GROUP BY a.to_object_id
		 ORDER BY MIN(a.rowid)`,
		id, to.name,
	)
	if err != nil {
		return nil, fmt.Errorf("list associations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	label := from.singular + "_to_" + to.singular
	out := []AssociatedObject{}
	for rows.Next() {
		var toID string
		if err := rows.Scan(&toID); err != nil {
			return nil, fmt.Errorf("scan association: %w", err)
		}
		out = append(out, AssociatedObject{ID: toID, Type: label})
	}
	return out, rows.Err()
}
