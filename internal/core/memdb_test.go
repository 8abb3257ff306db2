package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	db "github.com/JonMunkholm/csvusers/internal/database"
)

// memDB is an in-memory stand-in for the pool. It understands the
// statements in internal/database by their "-- name:" marker.
type memDB struct {
	mu     sync.Mutex
	users  []db.User
	nextID int32

	// failBatch makes the n-th multi-row insert (1-based) fail.
	failBatch int
	// err, when set, fails every statement.
	err error

	batches   int
	begins    int
	commits   int
	rollbacks int
}

func newMemDB() *memDB { return &memDB{} }

func (m *memDB) Begin(context.Context) (pgx.Tx, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.begins++
	return &memTx{db: m}, nil
}

func (m *memDB) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return pgconn.CommandTag{}, m.err
	}

	switch {
	case strings.Contains(sql, "name: DeleteUsers"):
		n := len(m.users)
		m.users = nil
		return pgconn.NewCommandTag(fmt.Sprintf("DELETE %d", n)), nil
	case strings.Contains(sql, "name: InsertUsers"):
		rows, err := m.insertRows(args)
		if err != nil {
			return pgconn.CommandTag{}, err
		}
		m.users = append(m.users, rows...)
		return pgconn.NewCommandTag(fmt.Sprintf("INSERT 0 %d", len(rows))), nil
	}
	return pgconn.CommandTag{}, fmt.Errorf("memDB: unexpected exec %q", sql)
}

// insertRows builds rows from the bind parameters. The caller holds mu.
func (m *memDB) insertRows(args []interface{}) ([]db.User, error) {
	m.batches++
	if m.failBatch > 0 && m.batches == m.failBatch {
		return nil, errors.New("ERROR: duplicate key value violates unique constraint")
	}
	if len(args)%4 != 0 {
		return nil, fmt.Errorf("memDB: %d args is not a multiple of 4", len(args))
	}

	rows := make([]db.User, 0, len(args)/4)
	for i := 0; i < len(args); i += 4 {
		m.nextID++
		rows = append(rows, db.User{
			ID:             m.nextID,
			Name:           args[i].(string),
			Age:            args[i+1].(int32),
			Address:        args[i+2].([]byte),
			AdditionalInfo: args[i+3].([]byte),
		})
	}
	return rows, nil
}

func (m *memDB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if !strings.Contains(sql, "name: ListUsers") {
		return nil, fmt.Errorf("memDB: unexpected query %q", sql)
	}

	limit, offset := int(args[0].(int32)), int(args[1].(int32))
	start := min(offset, len(m.users))
	end := min(start+limit, len(m.users))
	page := make([]db.User, end-start)
	copy(page, m.users[start:end])
	return &memRows{users: page, pos: -1}, nil
}

func (m *memDB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return errRow{m.err}
	}

	switch {
	case strings.Contains(sql, "name: CountUsers"):
		return scanRow{int64(len(m.users))}
	case strings.Contains(sql, "name: GetAgeCounts"):
		var c [4]int64
		for _, u := range m.users {
			c[BracketFor(int(u.Age))]++
		}
		return scanRow{c[0], c[1], c[2], c[3], int64(len(m.users))}
	case strings.Contains(sql, "name: InsertUser "):
		m.nextID++
		u := db.User{
			ID:             m.nextID,
			Name:           args[0].(string),
			Age:            args[1].(int32),
			Address:        args[2].([]byte),
			AdditionalInfo: args[3].([]byte),
		}
		m.users = append(m.users, u)
		return scanRow{u.ID, u.Name, u.Age, u.Address, u.AdditionalInfo}
	}
	return errRow{fmt.Errorf("memDB: unexpected query row %q", sql)}
}

func (m *memDB) snapshot() []db.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]db.User, len(m.users))
	copy(out, m.users)
	return out
}

// memTx buffers inserted rows until Commit.
type memTx struct {
	pgx.Tx
	db      *memDB
	pending []db.User
	done    bool
}

func (tx *memTx) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	if !strings.Contains(sql, "name: InsertUsers") {
		return tx.db.Exec(ctx, sql, args...)
	}
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	rows, err := tx.db.insertRows(args)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	tx.pending = append(tx.pending, rows...)
	return pgconn.NewCommandTag(fmt.Sprintf("INSERT 0 %d", len(rows))), nil
}

func (tx *memTx) Commit(context.Context) error {
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	tx.db.users = append(tx.db.users, tx.pending...)
	tx.db.commits++
	tx.done = true
	return nil
}

func (tx *memTx) Rollback(context.Context) error {
	if tx.done {
		return pgx.ErrTxClosed
	}
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	tx.db.rollbacks++
	tx.done = true
	return nil
}

type memRows struct {
	pgx.Rows
	users []db.User
	pos   int
}

func (r *memRows) Next() bool {
	r.pos++
	return r.pos < len(r.users)
}

func (r *memRows) Scan(dest ...interface{}) error {
	u := r.users[r.pos]
	return scanRow{u.ID, u.Name, u.Age, u.Address, u.AdditionalInfo}.Scan(dest...)
}

func (r *memRows) Close()     {}
func (r *memRows) Err() error { return nil }

type scanRow []interface{}

func (s scanRow) Scan(dest ...interface{}) error {
	if len(dest) != len(s) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(s))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = s[i].(int64)
		case *int32:
			*p = s[i].(int32)
		case *string:
			*p = s[i].(string)
		case *[]byte:
			*p = s[i].([]byte)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

type errRow struct{ err error }

func (r errRow) Scan(...interface{}) error { return r.err }

func dbUser(id int32, name string, age int32, address, info string) db.User {
	return db.User{ID: id, Name: name, Age: age, Address: []byte(address), AdditionalInfo: []byte(info)}
}
