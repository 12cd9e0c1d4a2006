package models

import (
	"testing"
)

func TestAttempt_Percentage(t *testing.T) {
	tests := []struct {
		name       string
		score      int
		total      int
		want       int
		wantPassed bool
	}{
		{name: "empty test", score: 0, total: 0, want: 0, wantPassed: false},
		{name: "half", score: 1, total: 2, want: 50, wantPassed: true},
		{name: "rounded down", score: 1, total: 3, want: 33, wantPassed: false},
		{name: "rounded up", score: 2, total: 3, want: 67, wantPassed: true},
		{name: "perfect", score: 10, total: 10, want: 100, wantPassed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Attempt{Score: tt.score, TotalQuestions: tt.total}
			if got := a.Percentage(); got != tt.want {
				t.Errorf("Percentage() = %d, want %d", got, tt.want)
			}
			if got := a.Passed(); got != tt.wantPassed {
				t.Errorf("Passed() = %v, want %v", got, tt.wantPassed)
			}
		})
	}
}

func TestQuestion_HasOption(t *testing.T) {
	q := Question{
		ID:              "q1",
		Options:         []Option{{ID: "o1", Text: "a"}, {ID: "o2", Text: "b"}},
		CorrectOptionID: "o2",
	}
	if !q.HasOption("o1") || !q.HasOption("o2") {
		t.Error("expected own options to be found")
	}
	if q.HasOption("o3") {
		t.Error("foreign option reported as present")
	}
	if !q.IsCorrect("o2") || q.IsCorrect("o1") || q.IsCorrect("") {
		t.Error("IsCorrect mismatch")
	}
	pub := q.Public()
	if pub.ID != "q1" || len(pub.Options) != 2 {
		t.Errorf("Public() = %+v", pub)
	}
}

func TestResponses_Scan(t *testing.T) {
	var r Responses
	if err := r.Scan([]byte(`{"q1":"o2"}`)); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if r["q1"] != "o2" {
		t.Errorf("Scan() = %v", r)
	}
	if err := r.Scan(nil); err != nil || len(r) != 0 {
		t.Errorf("Scan(nil) = %v, %v", r, err)
	}
	if err := r.Scan(42); err == nil {
		t.Error("expected error for unsupported type")
	}

	v, err := Responses{"q2": "o1"}.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if v.(string) != `{"q2":"o1"}` {
		t.Errorf("Value() = %v", v)
	}
}

func TestUser_Sanitized(t *testing.T) {
	u := &User{ID: "u1", Password: "123"}
	s := u.Sanitized()
	if s.Password != "" {
		t.Error("password not stripped")
	}
	if u.Password != "123" {
		t.Error("original mutated")
	}
}
