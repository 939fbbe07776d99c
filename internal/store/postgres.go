package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores documents in a single jsonb table keyed by
// (collection, id), with a bigserial seq as the stable-sort tiebreaker.
// Queries compile to SQL over the doc column; transactions map to real
// database transactions.
type Postgres struct {
	pool *pgxpool.Pool
	q    pgQuerier
}

type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS records (
    collection text NOT NULL,
    id         uuid NOT NULL,
    seq        bigserial,
    doc        jsonb NOT NULL,
    PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS records_collection_seq_idx ON records (collection, seq);
`

// NewPostgres wraps a pool and ensures the records table exists.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		return nil, fmt.Errorf("ensure records table: %w", err)
	}
	return &Postgres{pool: pool, q: pool}, nil
}

func (p *Postgres) Insert(ctx context.Context, collection string, id uuid.UUID, doc map[string]any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = p.q.Exec(ctx, `INSERT INTO records (collection, id, doc) VALUES ($1, $2, $3)`, collection, id, b)
	if err != nil {
		slog.ErrorContext(ctx, "store insert failed", "collection", collection, "err", err)
		return mapPgError(err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, collection string, id uuid.UUID) (map[string]any, error) {
	sql := `SELECT doc FROM records WHERE collection = $1 AND id = $2`
	if p.pool == nil {
		// Inside a transaction the read feeds a read-modify-write; lock
		// the row so a concurrent writer waits instead of clobbering it.
		sql += ` FOR UPDATE`
	}
	var b []byte
	err := p.q.QueryRow(ctx, sql, collection, id).Scan(&b)
	if err != nil {
		return nil, mapPgError(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (p *Postgres) Replace(ctx context.Context, collection string, id uuid.UUID, doc map[string]any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	tag, err := p.q.Exec(ctx, `UPDATE records SET doc = $3 WHERE collection = $1 AND id = $2`, collection, id, b)
	if err != nil {
		slog.ErrorContext(ctx, "store replace failed", "collection", collection, "err", err)
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRecord
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, collection string, id uuid.UUID) error {
	tag, err := p.q.Exec(ctx, `DELETE FROM records WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		slog.ErrorContext(ctx, "store delete failed", "collection", collection, "err", err)
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRecord
	}
	return nil
}

func (p *Postgres) List(ctx context.Context, collection string, q Query) ([]map[string]any, error) {
	sql, args, err := compilePgQuery(collection, q)
	if err != nil {
		return nil, err
	}
	rows, err := p.q.Query(ctx, sql, args...)
	if err != nil {
		slog.ErrorContext(ctx, "store list failed", "collection", collection, "err", err)
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var b []byte
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}
		var doc map[string]any
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// Tx runs fn inside a database transaction. Inside a transaction the store
// has a nil pool, so nested Tx calls flatten into the same transaction.
func (p *Postgres) Tx(ctx context.Context, fn func(tx Store) error) error {
	if p.pool == nil {
		return fn(p)
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return mapPgError(err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Postgres{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapPgError(err)
	}
	return nil
}

// fieldRE guards jsonb path interpolation; field names are compile-time
// constants in the repositories, never user input.
var fieldRE = regexp.MustCompile(`^[a-z0-9_]+$`)

func compilePgQuery(collection string, q Query) (string, []any, error) {
	var (
		sb   strings.Builder
		args []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	sb.WriteString(`SELECT doc FROM records WHERE collection = `)
	sb.WriteString(arg(collection))

	for _, f := range q.Filters {
		switch f.Op {
		case OpEq, OpGte, OpLte:
			if !fieldRE.MatchString(f.Field) {
				return "", nil, fmt.Errorf("bad field name %q", f.Field)
			}
			op := map[Op]string{OpEq: "=", OpGte: ">=", OpLte: "<="}[f.Op]
			if _, isNum := asFloat(f.Value); isNum {
				fmt.Fprintf(&sb, " AND (doc->>'%s')::numeric %s %s", f.Field, op, arg(f.Value))
			} else {
				fmt.Fprintf(&sb, " AND doc->>'%s' %s %s", f.Field, op, arg(f.Value))
			}
		case OpMatchAny:
			needle := asString(f.Value)
			if needle == "" {
				continue
			}
			pattern := "%" + escapeLike(needle) + "%"
			parts := make([]string, 0, len(f.Fields))
			for _, field := range f.Fields {
				if !fieldRE.MatchString(field) {
					return "", nil, fmt.Errorf("bad field name %q", field)
				}
				parts = append(parts, fmt.Sprintf("doc->>'%s' ILIKE %s", field, arg(pattern)))
			}
			if len(parts) > 0 {
				sb.WriteString(" AND (" + strings.Join(parts, " OR ") + ")")
			}
		default:
			return "", nil, fmt.Errorf("unknown filter op %q", f.Op)
		}
	}

	sb.WriteString(" ORDER BY ")
	if q.Sort != nil {
		if !fieldRE.MatchString(q.Sort.Field) {
			return "", nil, fmt.Errorf("bad field name %q", q.Sort.Field)
		}
		expr := fmt.Sprintf("lower(doc->>'%s')", q.Sort.Field)
		if q.Sort.Numeric {
			expr = fmt.Sprintf("(doc->>'%s')::numeric", q.Sort.Field)
		}
		sb.WriteString(expr)
		if q.Sort.Desc {
			sb.WriteString(" DESC")
		} else {
			sb.WriteString(" ASC")
		}
		sb.WriteString(", ")
	}
	sb.WriteString("seq ASC")

	if q.Limit > 0 {
		sb.WriteString(" LIMIT " + arg(q.Limit))
	}
	return sb.String(), args, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// mapPgError folds driver errors into the store's error vocabulary without
// hiding the cause for unexpected failures.
func mapPgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNoRecord
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return ErrDuplicateRecord
		// Class 08: connection exception. 57P*: server shutdown states.
		case strings.HasPrefix(pgErr.Code, "08"), strings.HasPrefix(pgErr.Code, "57P"):
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return err
}
