// Package repotest holds the behaviour every Repository implementation must
// share. Store packages call RunContract from their own tests.
package repotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

func sampleTest(id string, published bool) *models.Test {
	return &models.Test{
		ID:              id,
		Title:           "Title " + id,
		Subject:         "Computer Network",
		DurationMinutes: 20,
		CreatedBy:       "u1",
		CreatedAt:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		IsPublished:     published,
		Questions: []models.Question{{
			ID:              "q1",
			Text:            "Which layer routes?",
			Options:         []models.Option{{ID: "o1", Text: "Data Link"}, {ID: "o2", Text: "Network"}},
			CorrectOptionID: "o2",
		}},
	}
}

func sampleAttempt(id, testID, studentID string, score int) *models.Attempt {
	return &models.Attempt{
		ID:             id,
		TestID:         testID,
		StudentID:      studentID,
		StudentName:    "Bob Student",
		Responses:      models.Responses{"q1": "o2"},
		Score:          score,
		TotalQuestions: 1,
		CompletedAt:    time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		EndReason:      models.EndReasonSubmitted,
	}
}

// RunContract exercises repo against the shared Repository behaviour.
// newRepo must return an empty store for every call.
func RunContract(t *testing.T, newRepo func(t *testing.T) repositories.Repository) {
	t.Run("tests upsert keeps order", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for _, id := range []string{"t1", "t2", "t3"} {
			if err := repo.Test().Save(ctx, sampleTest(id, id != "t2")); err != nil {
				t.Fatalf("Save(%s) error = %v", id, err)
			}
		}

		updated := sampleTest("t2", true)
		updated.Title = "Renamed"
		if err := repo.Test().Save(ctx, updated); err != nil {
			t.Fatalf("Save() update error = %v", err)
		}

		all, err := repo.Test().List(ctx, repositories.TestFilters{})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(all) != 3 || all[0].ID != "t1" || all[1].ID != "t2" || all[2].ID != "t3" {
			t.Fatalf("List() order = %v", ids(all))
		}
		if all[1].Title != "Renamed" {
			t.Errorf("upsert did not replace: %s", all[1].Title)
		}

		got, err := repo.Test().GetByID(ctx, "t1")
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if len(got.Questions) != 1 || got.Questions[0].CorrectOptionID != "o2" {
			t.Errorf("questions not round-tripped: %+v", got.Questions)
		}

		count, err := repo.Test().Count(ctx)
		if err != nil || count != 3 {
			t.Errorf("Count() = %d, %v", count, err)
		}
	})

	t.Run("tests filter and delete", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_ = repo.Test().Save(ctx, sampleTest("t1", true))
		_ = repo.Test().Save(ctx, sampleTest("t2", false))

		published, err := repo.Test().List(ctx, repositories.TestFilters{PublishedOnly: true})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(published) != 1 || published[0].ID != "t1" {
			t.Errorf("published = %v", ids(published))
		}

		if err := repo.Test().Delete(ctx, "t1"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := repo.Test().GetByID(ctx, "t1"); !errors.Is(err, repositories.ErrNotFound) {
			t.Errorf("GetByID() after delete error = %v", err)
		}
		if err := repo.Test().Delete(ctx, "t1"); !errors.Is(err, repositories.ErrNotFound) {
			t.Errorf("second Delete() error = %v", err)
		}
	})

	t.Run("attempts append only", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		list, err := repo.Attempt().List(ctx, repositories.AttemptFilters{})
		if err != nil {
			t.Fatalf("List() on empty store error = %v", err)
		}
		if len(list) != 0 {
			t.Fatalf("empty store returned %d attempts", len(list))
		}

		// Same student, same test, twice: both are kept
		_ = repo.Attempt().Append(ctx, sampleAttempt("a1", "t1", "u2", 0))
		_ = repo.Attempt().Append(ctx, sampleAttempt("a2", "t1", "u2", 1))
		_ = repo.Attempt().Append(ctx, sampleAttempt("a3", "t2", "u3", 1))

		all, _ := repo.Attempt().List(ctx, repositories.AttemptFilters{})
		if len(all) != 3 || all[0].ID != "a1" || all[2].ID != "a3" {
			t.Fatalf("List() = %d attempts", len(all))
		}

		testID := "t1"
		byTest, _ := repo.Attempt().List(ctx, repositories.AttemptFilters{TestID: &testID})
		if len(byTest) != 2 {
			t.Errorf("filtered by test = %d", len(byTest))
		}

		student := "u3"
		byStudent, _ := repo.Attempt().List(ctx, repositories.AttemptFilters{StudentID: &student})
		if len(byStudent) != 1 || byStudent[0].ID != "a3" {
			t.Errorf("filtered by student = %d", len(byStudent))
		}

		paged, _ := repo.Attempt().List(ctx, repositories.AttemptFilters{Offset: 1, Limit: 1})
		if len(paged) != 1 || paged[0].ID != "a2" {
			t.Errorf("paged = %d", len(paged))
		}

		got, err := repo.Attempt().GetByID(ctx, "a2")
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.Score != 1 || got.Responses["q1"] != "o2" {
			t.Errorf("GetByID() = %+v", got)
		}
		if _, err := repo.Attempt().GetByID(ctx, "missing"); !errors.Is(err, repositories.ErrNotFound) {
			t.Errorf("GetByID(missing) error = %v", err)
		}
	})

	t.Run("users and current user", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		alice := &models.User{ID: "u1", Name: "Alice Teacher", Email: "teacher@jmc.com", Role: models.RoleTeacher, Password: "123"}
		if err := repo.User().Create(ctx, alice); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		dup := &models.User{ID: "u9", Name: "Other", Email: "TEACHER@jmc.com", Role: models.RoleStudent, Password: "x"}
		if err := repo.User().Create(ctx, dup); !errors.Is(err, repositories.ErrConflict) {
			t.Errorf("duplicate Create() error = %v", err)
		}

		byEmail, err := repo.User().GetByEmail(ctx, "teacher@jmc.com")
		if err != nil || byEmail.ID != "u1" {
			t.Fatalf("GetByEmail() = %v, %v", byEmail, err)
		}
		if n, _ := repo.User().Count(ctx); n != 1 {
			t.Errorf("Count() = %d", n)
		}

		if _, err := repo.CurrentUser().Get(ctx, "tok"); !errors.Is(err, repositories.ErrNotFound) {
			t.Errorf("Get() before login error = %v", err)
		}
		if err := repo.CurrentUser().Set(ctx, "tok", alice, time.Hour); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		current, err := repo.CurrentUser().Get(ctx, "tok")
		if err != nil || current.ID != "u1" {
			t.Fatalf("Get() = %v, %v", current, err)
		}
		if err := repo.CurrentUser().Clear(ctx, "tok"); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		if _, err := repo.CurrentUser().Get(ctx, "tok"); !errors.Is(err, repositories.ErrNotFound) {
			t.Errorf("Get() after logout error = %v", err)
		}
	})
}

func ids(tests []*models.Test) []string {
	out := make([]string, len(tests))
	for i, t := range tests {
		out[i] = t.ID
	}
	return out
}
