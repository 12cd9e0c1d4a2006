package seed

import (
	"context"
	"testing"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/repositories/memory"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

func TestLoad(t *testing.T) {
	d, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(d.Users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(d.Users))
	}
	if d.Users[0].Role != models.RoleTeacher || d.Users[1].Role != models.RoleStudent {
		t.Errorf("unexpected roles %s, %s", d.Users[0].Role, d.Users[1].Role)
	}
	if d.Users[1].ClassGrade == nil || *d.Users[1].ClassGrade != "CS Dept" {
		t.Errorf("student class grade not loaded")
	}

	if len(d.Tests) != 10 {
		t.Fatalf("expected 10 tests, got %d", len(d.Tests))
	}

	v := validator.New()
	bv := validator.NewBusinessValidator(v)
	for _, test := range d.Tests {
		if !test.IsPublished {
			t.Errorf("test %s should be published", test.ID)
		}
		if errs := bv.ValidateTest(test); len(errs) > 0 {
			t.Errorf("test %s failed validation: %v", test.ID, errs)
		}
	}
}

func TestApply(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyStore", func(t *testing.T) {
		repo := memory.NewRepository()

		res, err := Apply(ctx, repo, nil)
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if res.Users != 2 || res.Tests != 10 {
			t.Errorf("Apply() = %+v, want 2 users and 10 tests", res)
		}

		tests, err := repo.Test().List(ctx, repositories.TestFilters{})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if tests[0].ID != "t1" || tests[9].ID != "t10" {
			t.Errorf("seed order not kept: first %s, last %s", tests[0].ID, tests[9].ID)
		}
	})

	t.Run("SecondRunIsNoop", func(t *testing.T) {
		repo := memory.NewRepository()
		if _, err := Apply(ctx, repo, nil); err != nil {
			t.Fatalf("first Apply() error = %v", err)
		}

		res, err := Apply(ctx, repo, nil)
		if err != nil {
			t.Fatalf("second Apply() error = %v", err)
		}
		if res.Users != 0 || res.Tests != 0 {
			t.Errorf("second Apply() = %+v, want nothing written", res)
		}
	})

	t.Run("KeepsExistingTests", func(t *testing.T) {
		repo := memory.NewRepository()
		own := &models.Test{ID: "mine", Title: "Mine", DurationMinutes: 5, CreatedBy: "u9"}
		if err := repo.Test().Save(ctx, own); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		res, err := Apply(ctx, repo, nil)
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if res.Tests != 0 {
			t.Errorf("expected no seeded tests, got %d", res.Tests)
		}
		if res.Users != 2 {
			t.Errorf("expected seeded users, got %d", res.Users)
		}
	})
}
