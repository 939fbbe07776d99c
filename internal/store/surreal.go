package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
)

// Surreal backs the store with a SurrealDB instance via its websocket RPC
// client, the "local persistent object store" backend. Each document gains
// a seq field assigned at insert time; under the single-writer model an
// in-process counter is enough to keep insertion order stable.
type Surreal struct {
	db  *surrealdb.DB
	seq atomic.Int64
}

// NewSurreal connects, authenticates and selects the namespace/database.
func NewSurreal(url, ns, dbname, user, pass string) (*Surreal, error) {
	db, err := surrealdb.New(url)
	if err != nil {
		return nil, fmt.Errorf("surreal connect: %w", err)
	}
	if user != "" {
		if _, err := db.Signin(map[string]any{"user": user, "pass": pass}); err != nil {
			return nil, fmt.Errorf("surreal signin: %w", err)
		}
	}
	if _, err := db.Use(ns, dbname); err != nil {
		return nil, fmt.Errorf("surreal use: %w", err)
	}
	s := &Surreal{db: db}
	s.seq.Store(time.Now().UnixNano())
	return s, nil
}

// Close tears down the websocket connection.
func (s *Surreal) Close() { s.db.Close() }

// surrealDown marks a client transport failure. Statement-level errors come
// back inside the result set, so an error from Query means the connection
// itself is gone.
func surrealDown(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func (s *Surreal) Insert(ctx context.Context, collection string, id uuid.UUID, doc map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	content := cloneDoc(doc)
	content["seq"] = s.seq.Add(1)
	raw, err := s.db.Query(`CREATE type::thing($tb, $id) CONTENT $doc`, map[string]any{
		"tb": collection, "id": id.String(), "doc": content,
	})
	if err != nil {
		slog.ErrorContext(ctx, "store insert failed", "collection", collection, "err", err)
		return surrealDown(err)
	}
	_, err = surrealResults(raw, collection)
	return err
}

func (s *Surreal) Get(ctx context.Context, collection string, id uuid.UUID) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := s.db.Query(`SELECT * FROM type::thing($tb, $id)`, map[string]any{
		"tb": collection, "id": id.String(),
	})
	if err != nil {
		return nil, surrealDown(err)
	}
	docs, err := surrealResults(raw, collection)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNoRecord
	}
	return docs[0], nil
}

// Replace keeps the original seq so a rewritten record does not move in
// insertion order.
func (s *Surreal) Replace(ctx context.Context, collection string, id uuid.UUID, doc map[string]any) error {
	prev, err := s.Get(ctx, collection, id)
	if err != nil {
		return err
	}
	content := cloneDoc(doc)
	content["seq"] = prev["seq"]
	raw, err := s.db.Query(`UPDATE type::thing($tb, $id) CONTENT $doc`, map[string]any{
		"tb": collection, "id": id.String(), "doc": content,
	})
	if err != nil {
		slog.ErrorContext(ctx, "store replace failed", "collection", collection, "err", err)
		return surrealDown(err)
	}
	_, err = surrealResults(raw, collection)
	return err
}

func (s *Surreal) Delete(ctx context.Context, collection string, id uuid.UUID) error {
	if _, err := s.Get(ctx, collection, id); err != nil {
		return err
	}
	raw, err := s.db.Query(`DELETE type::thing($tb, $id)`, map[string]any{
		"tb": collection, "id": id.String(),
	})
	if err != nil {
		slog.ErrorContext(ctx, "store delete failed", "collection", collection, "err", err)
		return surrealDown(err)
	}
	_, err = surrealResults(raw, collection)
	return err
}

func (s *Surreal) List(ctx context.Context, collection string, q Query) ([]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sql, vars, err := compileSurrealQuery(q)
	if err != nil {
		return nil, err
	}
	vars["tb"] = collection
	raw, err := s.db.Query(sql, vars)
	if err != nil {
		slog.ErrorContext(ctx, "store list failed", "collection", collection, "err", err)
		return nil, surrealDown(err)
	}
	return surrealResults(raw, collection)
}

// Tx buffers mutations and commits them in a single BEGIN/COMMIT query, so
// either every statement applies or none does. Reads inside the callback
// observe the pre-transaction state.
func (s *Surreal) Tx(ctx context.Context, fn func(tx Store) error) error {
	tx := &surrealTx{base: s, vars: map[string]any{}}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(tx.stmts) == 0 {
		return nil
	}
	sql := "BEGIN TRANSACTION; " + strings.Join(tx.stmts, "; ") + "; COMMIT TRANSACTION;"
	raw, err := s.db.Query(sql, tx.vars)
	if err != nil {
		slog.ErrorContext(ctx, "store tx failed", "err", err)
		return surrealDown(err)
	}
	_, err = surrealResults(raw, "")
	return err
}

type surrealTx struct {
	base  *Surreal
	stmts []string
	vars  map[string]any
	n     int
}

func (t *surrealTx) bind(v any) string {
	t.n++
	name := fmt.Sprintf("v%d", t.n)
	t.vars[name] = v
	return "$" + name
}

func (t *surrealTx) Insert(ctx context.Context, collection string, id uuid.UUID, doc map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	content := cloneDoc(doc)
	content["seq"] = t.base.seq.Add(1)
	t.stmts = append(t.stmts, fmt.Sprintf("CREATE type::thing(%s, %s) CONTENT %s",
		t.bind(collection), t.bind(id.String()), t.bind(content)))
	return nil
}

func (t *surrealTx) Get(ctx context.Context, collection string, id uuid.UUID) (map[string]any, error) {
	return t.base.Get(ctx, collection, id)
}

func (t *surrealTx) Replace(ctx context.Context, collection string, id uuid.UUID, doc map[string]any) error {
	prev, err := t.base.Get(ctx, collection, id)
	if err != nil {
		return err
	}
	content := cloneDoc(doc)
	content["seq"] = prev["seq"]
	t.stmts = append(t.stmts, fmt.Sprintf("UPDATE type::thing(%s, %s) CONTENT %s",
		t.bind(collection), t.bind(id.String()), t.bind(content)))
	return nil
}

func (t *surrealTx) Delete(ctx context.Context, collection string, id uuid.UUID) error {
	if _, err := t.base.Get(ctx, collection, id); err != nil {
		return err
	}
	t.stmts = append(t.stmts, fmt.Sprintf("DELETE type::thing(%s, %s)",
		t.bind(collection), t.bind(id.String())))
	return nil
}

func (t *surrealTx) List(ctx context.Context, collection string, q Query) ([]map[string]any, error) {
	return t.base.List(ctx, collection, q)
}

func (t *surrealTx) Tx(_ context.Context, fn func(tx Store) error) error {
	return fn(t)
}

// compileSurrealQuery renders a Query as SurrealQL with bound variables.
func compileSurrealQuery(q Query) (string, map[string]any, error) {
	var (
		sb   strings.Builder
		vars = map[string]any{}
		n    int
	)
	bind := func(v any) string {
		n++
		name := fmt.Sprintf("f%d", n)
		vars[name] = v
		return "$" + name
	}

	sb.WriteString(`SELECT * FROM type::table($tb)`)

	var conds []string
	for _, f := range q.Filters {
		switch f.Op {
		case OpEq, OpGte, OpLte:
			if !fieldRE.MatchString(f.Field) {
				return "", nil, fmt.Errorf("bad field name %q", f.Field)
			}
			op := map[Op]string{OpEq: "=", OpGte: ">=", OpLte: "<="}[f.Op]
			conds = append(conds, fmt.Sprintf("%s %s %s", f.Field, op, bind(f.Value)))
		case OpMatchAny:
			needle := strings.ToLower(asString(f.Value))
			if needle == "" {
				continue
			}
			parts := make([]string, 0, len(f.Fields))
			for _, field := range f.Fields {
				if !fieldRE.MatchString(field) {
					return "", nil, fmt.Errorf("bad field name %q", field)
				}
				parts = append(parts, fmt.Sprintf("string::lowercase(%s) CONTAINS %s", field, bind(needle)))
			}
			if len(parts) > 0 {
				conds = append(conds, "("+strings.Join(parts, " OR ")+")")
			}
		default:
			return "", nil, fmt.Errorf("unknown filter op %q", f.Op)
		}
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}

	sb.WriteString(" ORDER BY ")
	if q.Sort != nil {
		if !fieldRE.MatchString(q.Sort.Field) {
			return "", nil, fmt.Errorf("bad field name %q", q.Sort.Field)
		}
		sb.WriteString(q.Sort.Field)
		if q.Sort.Desc {
			sb.WriteString(" DESC")
		} else {
			sb.WriteString(" ASC")
		}
		sb.WriteString(", ")
	}
	sb.WriteString("seq ASC")

	if q.Limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT %d", q.Limit))
	}
	return sb.String(), vars, nil
}

type surrealQueryResult struct {
	Status string           `json:"status"`
	Detail string           `json:"detail"`
	Result []map[string]any `json:"result"`
}

// surrealResults unwraps the RPC response of one or more statements,
// normalizing record ids back to bare UUID strings.
func surrealResults(raw any, collection string) ([]map[string]any, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var results []surrealQueryResult
	if err := json.Unmarshal(b, &results); err != nil {
		return nil, fmt.Errorf("unexpected surreal response: %w", err)
	}
	var docs []map[string]any
	for _, res := range results {
		if res.Status != "" && res.Status != "OK" {
			if strings.Contains(res.Detail, "already exists") {
				return nil, ErrDuplicateRecord
			}
			return nil, fmt.Errorf("surreal query failed: %s", res.Detail)
		}
		for _, doc := range res.Result {
			if id, ok := doc["id"].(string); ok {
				doc["id"] = trimThing(id, collection)
			}
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// trimThing strips the "table:" prefix and angle quoting from a record id.
func trimThing(id, collection string) string {
	id = strings.TrimPrefix(id, collection+":")
	id = strings.TrimPrefix(id, "⟨")
	return strings.TrimSuffix(id, "⟩")
}
