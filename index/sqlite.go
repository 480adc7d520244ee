package index

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id INTEGER PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS fields (
	doc_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	name   TEXT    NOT NULL,
	ord    INTEGER NOT NULL,
	kind   TEXT    NOT NULL,
	value  TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS fields_lookup ON fields(name, value);
CREATE INDEX IF NOT EXISTS fields_doc ON fields(doc_id);
`

// value kinds stored alongside text representation so documents come back
// with the same scalar types they were stored with
const (
	kindString = "s"
	kindInt    = "i"
	kindBool   = "b"
	kindFloat  = "f"
)

// SQLite keeps index documents in a SQLite database file. Every field value
// is a separate row, multi-valued fields keep their order.
type SQLite struct {
	// sqlite connections must not be used concurrently
	mu   sync.Mutex
	conn *sqlite.Conn
	path string
}

// OpenSQLite opens (creating if necessary) index database.
func OpenSQLite(path string) (*SQLite, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate, sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to open database '%s': %w", ErrUnreachable, path, err)
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return nil, multierr.Append(
			fmt.Errorf("%w: unable to prepare schema: %w", ErrUnreachable, err),
			conn.Close())
	}
	return &SQLite{conn: conn, path: path}, nil
}

func (s *SQLite) Path() string {
	return s.path
}

func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// lock acquires connection and arranges for ctx cancellation to interrupt
// running statements.
func (s *SQLite) lock(ctx context.Context) (func(), error) {
	s.mu.Lock()
	if s.conn == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: database is closed", ErrUnreachable)
	}
	if err := ctx.Err(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	old := s.conn.SetInterrupt(ctx.Done())
	return func() {
		s.conn.SetInterrupt(old)
		s.mu.Unlock()
	}, nil
}

// Add stores documents in a single transaction.
func (s *SQLite) Add(ctx context.Context, docs ...Document) (err error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	defer sqlitex.Save(s.conn)(&err)

	for _, d := range docs {
		if err := sqlitex.Execute(s.conn, `INSERT INTO documents DEFAULT VALUES`, nil); err != nil {
			return fmt.Errorf("%w: unable to insert document: %w", ErrUnreachable, err)
		}
		id := s.conn.LastInsertRowID()
		for name, v := range d {
			for ord, sv := range flatten(v) {
				kind, text := encodeValue(sv)
				if err := sqlitex.Execute(s.conn,
					`INSERT INTO fields (doc_id, name, ord, kind, value) VALUES (?, ?, ?, ?, ?)`,
					&sqlitex.ExecOptions{Args: []any{id, name, int64(ord), kind, text}}); err != nil {
					return fmt.Errorf("%w: unable to insert field %s: %w", ErrUnreachable, name, err)
				}
			}
		}
	}
	return nil
}

func (s *SQLite) Document(ctx context.Context, q Query, fields []string) (Document, error) {
	docs, err := s.Search(ctx, q, SearchOptions{Fields: fields, Limit: 1})
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docs[0], nil
}

// Search selects matching document ids with SQL, sorting and paging are done
// in memory to keep natural ordering identical to Memory.
func (s *SQLite) Search(ctx context.Context, q Query, opts SearchOptions) ([]Document, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	where, args := whereClause(q)

	var ids []int64
	err = sqlitex.Execute(s.conn, `SELECT d.id FROM documents d`+where+` ORDER BY d.id`,
		&sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				ids = append(ids, stmt.ColumnInt64(0))
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("%w: search [%s]: %w", ErrUnreachable, q, err)
	}

	docs := make([]Document, 0, len(ids))
	for _, id := range ids {
		d, err := s.load(id)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}

	sortDocuments(docs, opts.Sort)
	docs = page(docs, opts.Offset, opts.Limit)
	if len(opts.Fields) > 0 {
		for i := range docs {
			docs[i] = docs[i].Project(opts.Fields)
		}
	}
	return docs, nil
}

func (s *SQLite) Count(ctx context.Context, q Query) (int, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	where, args := whereClause(q)

	var n int
	err = sqlitex.Execute(s.conn, `SELECT count(*) FROM documents d`+where,
		&sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				n = int(stmt.ColumnInt64(0))
				return nil
			},
		})
	if err != nil {
		return 0, fmt.Errorf("%w: count [%s]: %w", ErrUnreachable, q, err)
	}
	return n, nil
}

func (s *SQLite) load(id int64) (Document, error) {
	d := make(Document)
	err := sqlitex.Execute(s.conn, `SELECT name, kind, value FROM fields WHERE doc_id = ? ORDER BY name, ord`,
		&sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				name := stmt.ColumnText(0)
				v := decodeValue(stmt.ColumnText(1), stmt.ColumnText(2))
				switch prev := d[name].(type) {
				case nil:
					d[name] = v
				case []any:
					d[name] = append(prev, v)
				default:
					d[name] = []any{prev, v}
				}
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("%w: load document %d: %w", ErrUnreachable, id, err)
	}
	return d, nil
}

func whereClause(q Query) (string, []any) {
	if len(q) == 0 {
		return "", nil
	}
	conds := make([]string, 0, len(q))
	args := make([]any, 0, 2*len(q))
	for _, t := range q {
		conds = append(conds, `EXISTS (SELECT 1 FROM fields f WHERE f.doc_id = d.id AND f.name = ? AND f.value = ?)`)
		args = append(args, t.Field, t.Value)
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func flatten(v any) []any {
	switch vv := v.(type) {
	case nil:
		return nil
	case []any:
		return vv
	case []string:
		out := make([]any, 0, len(vv))
		for _, s := range vv {
			out = append(out, s)
		}
		return out
	default:
		return []any{vv}
	}
}

func encodeValue(v any) (string, string) {
	switch vv := v.(type) {
	case bool:
		return kindBool, strconv.FormatBool(vv)
	case int, int64:
		return kindInt, scalarString(vv)
	case float64:
		return kindFloat, scalarString(vv)
	default:
		return kindString, scalarString(vv)
	}
}

func decodeValue(kind, text string) any {
	switch kind {
	case kindBool:
		if b, err := strconv.ParseBool(text); err == nil {
			return b
		}
	case kindInt:
		if n, err := strconv.Atoi(text); err == nil {
			return n
		}
	case kindFloat:
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f
		}
	}
	return text
}
