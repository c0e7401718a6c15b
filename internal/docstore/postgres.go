package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresStore keeps every collection in one JSONB table:
//
//	documents(collection, id, data jsonb, created_at, updated_at)
//
// The schema lives in migrations/.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a PostgresStore over an open connection pool.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type documentRow struct {
	ID         string    `db:"id"`
	Collection string    `db:"collection"`
	Data       []byte    `db:"data"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r *documentRow) toDocument() (*Document, error) {
	data := map[string]any{}
	if len(r.Data) > 0 {
		if err := json.Unmarshal(r.Data, &data); err != nil {
			return nil, fmt.Errorf("decode document %s/%s: %w", r.Collection, r.ID, err)
		}
	}
	return &Document{
		ID:         r.ID,
		Collection: r.Collection,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
		Data:       data,
	}, nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, collection, id string, data map[string]any) (*Document, error) {
	if id == "" {
		id = uuid.New().String()
	}
	norm, err := normalize(data)
	if err != nil {
		return nil, fmt.Errorf("normalize document: %w", err)
	}
	payload, err := json.Marshal(norm)
	if err != nil {
		return nil, err
	}

	const q = `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, NOW(), NOW())
		RETURNING id, collection, data, created_at, updated_at`

	var row documentRow
	if err := s.db.QueryRowxContext(ctx, q, collection, id, string(payload)).StructScan(&row); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, fmt.Errorf("%w: %s/%s", ErrDuplicate, collection, id)
		}
		return nil, err
	}
	return row.toDocument()
}

func (s *PostgresStore) GetDocument(ctx context.Context, collection, id string) (*Document, error) {
	const q = `
		SELECT id, collection, data, created_at, updated_at
		FROM documents WHERE collection = $1 AND id = $2`

	var row documentRow
	if err := s.db.GetContext(ctx, &row, q, collection, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
		}
		return nil, err
	}
	return row.toDocument()
}

func (s *PostgresStore) ListDocuments(ctx context.Context, collection string, queries ...Query) (*DocumentList, error) {
	p, err := planQueries(queries)
	if err != nil {
		return nil, err
	}
	b := &sqlBuilder{args: []any{collection}}
	where, err := b.where(p.filters)
	if err != nil {
		return nil, err
	}

	countQuery := `SELECT COUNT(1) FROM documents WHERE collection = $1` + where
	var total int
	if err := s.db.GetContext(ctx, &total, countQuery, b.args...); err != nil {
		return nil, err
	}

	listQuery := `SELECT id, collection, data, created_at, updated_at FROM documents WHERE collection = $1` +
		where + b.orderBy(p.orders) +
		fmt.Sprintf(" LIMIT %s OFFSET %s", b.bind(p.limit), b.bind(p.offset))

	var rows []documentRow
	if err := s.db.SelectContext(ctx, &rows, listQuery, b.args...); err != nil {
		return nil, err
	}

	out := &DocumentList{Documents: make([]Document, 0, len(rows)), Total: total}
	for i := range rows {
		doc, err := rows[i].toDocument()
		if err != nil {
			return nil, err
		}
		out.Documents = append(out.Documents, *doc)
	}
	return out, nil
}

func (s *PostgresStore) UpdateDocument(ctx context.Context, collection, id string, data map[string]any) (*Document, error) {
	norm, err := normalize(data)
	if err != nil {
		return nil, fmt.Errorf("normalize document: %w", err)
	}
	payload, err := json.Marshal(norm)
	if err != nil {
		return nil, err
	}

	const q = `
		UPDATE documents SET data = data || $3::jsonb, updated_at = NOW()
		WHERE collection = $1 AND id = $2
		RETURNING id, collection, data, created_at, updated_at`

	var row documentRow
	if err := s.db.QueryRowxContext(ctx, q, collection, id, string(payload)).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
		}
		return nil, err
	}
	return row.toDocument()
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// sqlBuilder renders filters into a WHERE fragment with positional args.
type sqlBuilder struct {
	args []any
}

func (b *sqlBuilder) bind(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *sqlBuilder) where(filters []Query) (string, error) {
	if len(filters) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(filters))
	for _, q := range filters {
		frag, err := b.filter(q)
		if err != nil {
			return "", err
		}
		parts = append(parts, frag)
	}
	return " AND " + strings.Join(parts, " AND "), nil
}

func (b *sqlBuilder) filter(q Query) (string, error) {
	switch q.Method {
	case MethodAnd, MethodOr:
		if len(q.Queries) == 0 {
			if q.Method == MethodAnd {
				return "TRUE", nil
			}
			return "FALSE", nil
		}
		parts := make([]string, 0, len(q.Queries))
		for _, sub := range q.Queries {
			frag, err := b.filter(sub)
			if err != nil {
				return "", err
			}
			parts = append(parts, frag)
		}
		sep := " AND "
		if q.Method == MethodOr {
			sep = " OR "
		}
		return "(" + strings.Join(parts, sep) + ")", nil
	}

	if column, ok := systemColumn(q.Attribute); ok {
		return b.systemFilter(column, q)
	}

	field := b.bind(q.Attribute)
	switch q.Method {
	case MethodIsNull:
		return fmt.Sprintf("(data->%[1]s IS NULL OR data->%[1]s = 'null'::jsonb OR data->%[1]s = '[]'::jsonb)", field), nil
	case MethodEqual, MethodNotEqual:
		parts := make([]string, 0, len(q.Values))
		for _, v := range q.Values {
			val, err := b.bindJSON(v)
			if err != nil {
				return "", err
			}
			parts = append(parts, fmt.Sprintf(
				"data->%[1]s = %[2]s::jsonb OR (jsonb_typeof(data->%[1]s) = 'array' AND data->%[1]s @> jsonb_build_array(%[2]s::jsonb))",
				field, val))
		}
		expr := "COALESCE((" + strings.Join(parts, " OR ") + "), FALSE)"
		if q.Method == MethodNotEqual {
			return "NOT " + expr, nil
		}
		return expr, nil
	case MethodContains:
		parts := make([]string, 0, len(q.Values))
		for _, v := range q.Values {
			val, err := b.bindJSON(v)
			if err != nil {
				return "", err
			}
			like := b.bind("%" + escapeLike(fmt.Sprint(v)) + "%")
			parts = append(parts, fmt.Sprintf(
				"(CASE WHEN jsonb_typeof(data->%[1]s) = 'array' THEN data->%[1]s @> jsonb_build_array(%[2]s::jsonb) "+
					"ELSE COALESCE(data->>%[1]s ILIKE %[3]s, FALSE) END)",
				field, val, like))
		}
		return "(" + strings.Join(parts, " OR ") + ")", nil
	case MethodGreaterThan, MethodGreaterThanEqual, MethodLessThan, MethodLessThanEqual:
		op := comparisonOperator(q.Method)
		switch v := q.Values[0].(type) {
		case string:
			return fmt.Sprintf("(CASE WHEN jsonb_typeof(data->%[1]s) = 'string' THEN data->>%[1]s %[2]s %[3]s ELSE FALSE END)",
				field, op, b.bind(v)), nil
		default:
			num, err := toFloat(v)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("(CASE WHEN jsonb_typeof(data->%[1]s) = 'number' THEN (data->>%[1]s)::numeric %[2]s %[3]s ELSE FALSE END)",
				field, op, b.bind(num)), nil
		}
	case MethodSearch:
		return fmt.Sprintf("to_tsvector('simple', COALESCE(data->>%s, '')) @@ plainto_tsquery('simple', %s)",
			field, b.bind(fmt.Sprint(q.Values[0]))), nil
	}
	return "", fmt.Errorf("%w: unsupported method %q", ErrInvalidQuery, q.Method)
}

func (b *sqlBuilder) systemFilter(column string, q Query) (string, error) {
	switch q.Method {
	case MethodEqual, MethodNotEqual:
		values := make([]string, 0, len(q.Values))
		for _, v := range q.Values {
			values = append(values, fmt.Sprint(v))
		}
		expr := fmt.Sprintf("%s::text = ANY(%s)", column, b.bind(pq.Array(values)))
		if q.Method == MethodNotEqual {
			return "NOT (" + expr + ")", nil
		}
		return expr, nil
	case MethodGreaterThan, MethodGreaterThanEqual, MethodLessThan, MethodLessThanEqual:
		return fmt.Sprintf("%s %s %s", column, comparisonOperator(q.Method), b.bind(q.Values[0])), nil
	case MethodIsNull:
		return "FALSE", nil
	}
	return "", fmt.Errorf("%w: %s not supported on %s", ErrInvalidQuery, q.Method, q.Attribute)
}

func (b *sqlBuilder) bindJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	return b.bind(string(raw)), nil
}

func (b *sqlBuilder) orderBy(orders []Query) string {
	parts := make([]string, 0, len(orders)+2)
	for _, o := range orders {
		dir := "ASC NULLS FIRST"
		if o.Method == MethodOrderDesc {
			dir = "DESC NULLS LAST"
		}
		if column, ok := systemColumn(o.Attribute); ok {
			parts = append(parts, column+" "+dir)
			continue
		}
		parts = append(parts, fmt.Sprintf("data->%s %s", b.bind(o.Attribute), dir))
	}
	parts = append(parts, "created_at ASC", "id ASC")
	return " ORDER BY " + strings.Join(parts, ", ")
}

func systemColumn(attribute string) (string, bool) {
	switch attribute {
	case AttrID:
		return "id", true
	case AttrCreatedAt:
		return "created_at", true
	case AttrUpdatedAt:
		return "updated_at", true
	}
	return "", false
}

func comparisonOperator(m Method) string {
	switch m {
	case MethodGreaterThan:
		return ">"
	case MethodGreaterThanEqual:
		return ">="
	case MethodLessThan:
		return "<"
	default:
		return "<="
	}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	}
	return 0, fmt.Errorf("%w: %v is not a number", ErrInvalidQuery, v)
}
