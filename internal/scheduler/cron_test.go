package scheduler

import (
	"testing"
	"time"
)

func TestCalculateNextDue(t *testing.T) {
	from := time.Date(2024, 3, 15, 10, 30, 45, 0, time.UTC)

	tests := []struct {
		name string
		expr string
		want time.Time
	}{
		{
			name: "every five minutes",
			expr: "*/5 * * * *",
			want: time.Date(2024, 3, 15, 10, 35, 0, 0, time.UTC),
		},
		{
			name: "nightly at two",
			expr: "0 2 * * *",
			want: time.Date(2024, 3, 16, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "hourly on the hour",
			expr: "0 * * * *",
			want: time.Date(2024, 3, 15, 11, 0, 0, 0, time.UTC),
		},
		{
			name: "weekly on monday",
			expr: "0 9 * * 1",
			want: time.Date(2024, 3, 18, 9, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateNextDue(tt.expr, from)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
			if got.Location() != time.UTC {
				t.Errorf("next due should be UTC, got %v", got.Location())
			}
		})
	}
}

func TestCalculateNextDue_StrictlyAfter(t *testing.T) {
	// Момент ровно на границе: следующее срабатывание — строго позже
	from := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	got, err := CalculateNextDue("0 * * * *", from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.After(from) {
		t.Errorf("next due should be after %v, got %v", from, got)
	}
}

func TestCalculateNextDue_Invalid(t *testing.T) {
	if _, err := CalculateNextDue("not a cron", time.Now()); err == nil {
		t.Fatal("expected error")
	}
}

func TestValidateCronExpr(t *testing.T) {
	if err := ValidateCronExpr("*/10 * * * *"); err != nil {
		t.Errorf("valid expression should pass: %v", err)
	}

	for _, expr := range []string{"", "* * *", "61 * * * *", "@every"} {
		if err := ValidateCronExpr(expr); err == nil {
			t.Errorf("expression %q should be rejected", expr)
		}
	}
}
