package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	db "github.com/JonMunkholm/csvusers/internal/database"
	"github.com/JonMunkholm/csvusers/internal/metrics"
)

// maxStoreBatch keeps one multi-row INSERT under PostgreSQL's bind
// parameter limit (four columns per row).
const maxStoreBatch = 10000

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX = db.DBTX

// TxBeginner is a DBTX that can also open transactions.
// *pgxpool.Pool satisfies it.
type TxBeginner interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store persists users to PostgreSQL.
type Store struct {
	db        TxBeginner
	batchSize int
}

// NewStore wraps db. batchSize bounds the rows per transaction and falls
// back to DefaultBatchSize when out of range.
func NewStore(pool TxBeginner, batchSize int) *Store {
	if batchSize <= 0 || batchSize > maxStoreBatch {
		batchSize = DefaultBatchSize
	}
	return &Store{db: pool, batchSize: batchSize}
}

// BatchSize returns the number of users written per transaction.
func (s *Store) BatchSize() int { return s.batchSize }

// SaveUsers writes users in batches. Each batch is one transaction holding
// one multi-row INSERT; a failing batch is rolled back and SaveUsers stops.
// The count returned covers the batches committed before the failure.
func (s *Store) SaveUsers(ctx context.Context, users []User) (int, error) {
	saved := 0
	for start := 0; start < len(users); start += s.batchSize {
		end := min(start+s.batchSize, len(users))

		n, err := s.saveBatch(ctx, users[start:end])
		if err != nil {
			return saved, E("save users", KindDatabase, "",
				fmt.Errorf("batch starting at row %d: %w", start, err))
		}
		saved += n
	}
	return saved, nil
}

func (s *Store) saveBatch(ctx context.Context, users []User) (n int, err error) {
	start := time.Now()
	defer func() { metrics.RecordBatch(time.Since(start), err) }()

	params := make([]db.InsertUserParams, len(users))
	for i, u := range users {
		p, err := toParams(u)
		if err != nil {
			return 0, err
		}
		params[i] = p
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	inserted, err := db.New(tx).InsertUsers(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("insert users: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return int(inserted), nil
}

// InsertUser writes a single user and returns it with its assigned ID.
func (s *Store) InsertUser(ctx context.Context, u User) (User, error) {
	params, err := toParams(u)
	if err != nil {
		return User{}, E("insert user", KindDatabase, "", err)
	}

	row, err := db.New(s.db).InsertUser(ctx, params)
	if err != nil {
		return User{}, E("insert user", KindDatabase, "", err)
	}
	return fromRow(row)
}

// CountUsers returns the number of stored users.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	n, err := db.New(s.db).CountUsers(ctx)
	if err != nil {
		return 0, E("count users", KindDatabase, "", err)
	}
	return n, nil
}

// AgeCounts returns per-bracket counts and the total from one query.
func (s *Store) AgeCounts(ctx context.Context) (AgeCounts, error) {
	row, err := db.New(s.db).GetAgeCounts(ctx)
	if err != nil {
		return AgeCounts{}, E("count ages", KindDatabase, "", err)
	}
	return AgeCounts{
		Under20:    row.Under20,
		From20To40: row.Between20And40,
		From40To60: row.Between40And60,
		Over60:     row.Over60,
		Total:      row.Total,
	}, nil
}

// ListUsers returns one page of users ordered by ID.
func (s *Store) ListUsers(ctx context.Context, limit, offset int) ([]User, error) {
	rows, err := db.New(s.db).ListUsers(ctx, db.ListUsersParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, E("list users", KindDatabase, "", err)
	}

	users := make([]User, 0, len(rows))
	for _, row := range rows {
		u, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// DeleteUsers removes every user and returns how many were deleted.
func (s *Store) DeleteUsers(ctx context.Context) (int64, error) {
	n, err := db.New(s.db).DeleteUsers(ctx)
	if err != nil {
		return 0, E("delete users", KindDatabase, "", err)
	}
	return n, nil
}

func toParams(u User) (db.InsertUserParams, error) {
	address, err := json.Marshal(u.Address)
	if err != nil {
		return db.InsertUserParams{}, fmt.Errorf("encode address: %w", err)
	}
	info, err := json.Marshal(u.AdditionalInfo)
	if err != nil {
		return db.InsertUserParams{}, fmt.Errorf("encode additional info: %w", err)
	}
	return db.InsertUserParams{
		Name:           u.Name,
		Age:            int32(u.Age),
		Address:        address,
		AdditionalInfo: info,
	}, nil
}

func fromRow(row db.User) (User, error) {
	u := User{
		ID:      int64(row.ID),
		Name:    row.Name,
		Age:     int(row.Age),
		Address: Fields{},
	}
	if len(row.Address) > 0 {
		if err := json.Unmarshal(row.Address, &u.Address); err != nil {
			return User{}, E("decode user", KindDatabase, "", fmt.Errorf("address of user %d: %w", row.ID, err))
		}
	}
	if len(row.AdditionalInfo) > 0 {
		if err := json.Unmarshal(row.AdditionalInfo, &u.AdditionalInfo); err != nil {
			return User{}, E("decode user", KindDatabase, "", fmt.Errorf("additional info of user %d: %w", row.ID, err))
		}
	}
	return u, nil
}
