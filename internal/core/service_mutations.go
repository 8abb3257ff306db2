package core

import (
	"context"

	"github.com/JonMunkholm/csvusers/internal/logging"
	"github.com/JonMunkholm/csvusers/internal/metrics"
)

// CreateUser reshapes one flat record and inserts it on its own.
func (s *Service) CreateUser(ctx context.Context, rec RawRecord) (User, error) {
	if len(rec) == 0 {
		return User{}, Validationf("create user", "record has no fields")
	}

	u, err := s.store.InsertUser(ctx, Reshape(rec))
	if err != nil {
		metrics.RecordIngest(SourceAPI, 0, err)
		return User{}, err
	}
	metrics.RecordIngest(SourceAPI, 1, nil)

	logging.FromContext(ctx).Info("user created", "id", u.ID, "age_group", BracketFor(u.Age).Label())
	return u, nil
}

// ResetUsers deletes every stored user.
func (s *Service) ResetUsers(ctx context.Context) (int64, error) {
	resetCtx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	n, err := s.store.DeleteUsers(resetCtx)
	if err != nil {
		return 0, err
	}

	logging.FromContext(ctx).Warn("users reset", "rows_deleted", n)
	return n, nil
}
