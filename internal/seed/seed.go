// Package seed loads the default accounts and tests into an empty store.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

//go:embed defaults.json
var defaultsJSON []byte

type Defaults struct {
	Users []*models.User `json:"users"`
	Tests []*models.Test `json:"tests"`
}

// Load parses the embedded defaults. Every call returns fresh values.
func Load() (*Defaults, error) {
	var d Defaults
	if err := json.Unmarshal(defaultsJSON, &d); err != nil {
		return nil, fmt.Errorf("failed to parse seed data: %w", err)
	}
	return &d, nil
}

// Result reports how many records Apply wrote.
type Result struct {
	Users int
	Tests int
}

// Apply writes the defaults for each collection that is empty. Collections
// with existing records are left alone.
func Apply(ctx context.Context, repo repositories.Repository, logger *slog.Logger) (Result, error) {
	var res Result

	d, err := Load()
	if err != nil {
		return res, err
	}

	now := time.Now().UTC()

	userCount, err := repo.User().Count(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to count users: %w", err)
	}
	if userCount == 0 {
		for i, u := range d.Users {
			u.CreatedAt = now.Add(time.Duration(i) * time.Millisecond)
			if err := repo.User().Create(ctx, u); err != nil {
				if repositories.IsConflictError(err) {
					continue
				}
				return res, fmt.Errorf("failed to seed user %s: %w", u.ID, err)
			}
			res.Users++
		}
	}

	testCount, err := repo.Test().Count(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to count tests: %w", err)
	}
	if testCount == 0 {
		// Spread timestamps so created_at ordering keeps the seed order.
		for i, t := range d.Tests {
			t.CreatedAt = now.Add(time.Duration(i) * time.Millisecond)
			t.UpdatedAt = t.CreatedAt
			if err := repo.Test().Save(ctx, t); err != nil {
				return res, fmt.Errorf("failed to seed test %s: %w", t.ID, err)
			}
			res.Tests++
		}
	}

	if logger != nil && (res.Users > 0 || res.Tests > 0) {
		logger.Info("Seeded default data", "users", res.Users, "tests", res.Tests)
	}

	return res, nil
}
