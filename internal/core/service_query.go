package core

import (
	"context"

	"github.com/JonMunkholm/csvusers/internal/metrics"
)

// Page size bounds for ListUsers.
const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

// AgeDistribution computes the current distribution from one aggregate
// query and publishes it as a metric.
func (s *Service) AgeDistribution(ctx context.Context) (AgeDistribution, AgeCounts, error) {
	counts, err := s.store.AgeCounts(ctx)
	if err != nil {
		return AgeDistribution{}, AgeCounts{}, err
	}

	dist := Distribute(counts)
	metrics.SetAgeDistribution(dist.ByLabel())
	return dist, counts, nil
}

// UserPage is one page of stored users plus the overall count.
type UserPage struct {
	Total  int64  `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
	Users  []User `json:"users"`
}

// ListUsers returns users ordered by ID. A zero limit means DefaultPageSize.
func (s *Service) ListUsers(ctx context.Context, limit, offset int) (UserPage, error) {
	if limit == 0 {
		limit = DefaultPageSize
	}
	if limit < 0 || limit > MaxPageSize {
		return UserPage{}, Validationf("list users", "invalid parameter: limit must be 1-%d", MaxPageSize)
	}
	if offset < 0 {
		return UserPage{}, Validationf("list users", "invalid parameter: offset must be non-negative")
	}

	total, err := s.store.CountUsers(ctx)
	if err != nil {
		return UserPage{}, err
	}
	users, err := s.store.ListUsers(ctx, limit, offset)
	if err != nil {
		return UserPage{}, err
	}

	return UserPage{Total: total, Limit: limit, Offset: offset, Users: users}, nil
}
