package foodlog

import (
	"errors"
	"testing"
	"time"

	"foodmatch/database"
	"foodmatch/fingerprint"
	"foodmatch/types"
)

func storeAt(t *testing.T, svc *Service, userID int64, calories *int, created time.Time) {
	t.Helper()
	_, err := database.StoreFoodItem(svc.db, types.FoodItem{
		UserID:   userID,
		Calories: calories,
		Features: fingerprint.Encoded{
			PerceptualHash: "0000000000000000",
			AverageHash:    "0000000000000000",
			DifferenceHash: "0000000000000000",
			Histogram:      "[]",
		},
		Created: created,
	})
	if err != nil {
		t.Fatalf("StoreFoodItem: %v", err)
	}
}

func TestDayBounds(t *testing.T) {
	day := time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		offset    int
		wantStart time.Time
	}{
		{0, time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC)},
		{120, time.Date(2026, 5, 10, 22, 0, 0, 0, time.UTC)},
		{-300, time.Date(2026, 5, 11, 5, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		start, end := dayBounds(day, tt.offset)
		if !start.Equal(tt.wantStart) {
			t.Errorf("offset %d: start = %v, want %v", tt.offset, start, tt.wantStart)
		}
		if end.Sub(start) != 24*time.Hour {
			t.Errorf("offset %d: day length = %v", tt.offset, end.Sub(start))
		}
	}
}

func TestDailySummaryUsesLocalDay(t *testing.T) {
	svc := newTestService(t)

	// UTC+2: 21:30Z is still May 10 locally, 22:30Z is already May 11
	storeAt(t, svc, 1, intPtr(300), time.Date(2026, 5, 10, 21, 30, 0, 0, time.UTC))
	storeAt(t, svc, 1, intPtr(500), time.Date(2026, 5, 10, 22, 30, 0, 0, time.UTC))
	storeAt(t, svc, 1, nil, time.Date(2026, 5, 11, 8, 0, 0, 0, time.UTC))
	storeAt(t, svc, 2, intPtr(700), time.Date(2026, 5, 11, 8, 0, 0, 0, time.UTC))

	may10, err := svc.DailySummary(1, time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC), 120)
	if err != nil {
		t.Fatalf("DailySummary: %v", err)
	}
	if may10.Date != "2026-05-10" || may10.TotalCalories != 300 || may10.ItemsCount != 1 {
		t.Errorf("May 10 = %+v", may10)
	}

	may11, err := svc.DailySummary(1, time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC), 120)
	if err != nil {
		t.Fatalf("DailySummary: %v", err)
	}
	// items without calories count as entries but add nothing
	if may11.TotalCalories != 500 || may11.ItemsCount != 2 {
		t.Errorf("May 11 = %+v", may11)
	}
}

func TestDailySummaryDefaultsToToday(t *testing.T) {
	svc := newTestService(t)
	svc.now = func() time.Time { return time.Date(2026, 5, 10, 23, 15, 0, 0, time.UTC) }

	storeAt(t, svc, 1, intPtr(250), time.Date(2026, 5, 10, 23, 0, 0, 0, time.UTC))

	got, err := svc.DailySummary(1, time.Time{}, 60)
	if err != nil {
		t.Fatalf("DailySummary: %v", err)
	}
	if got.Date != "2026-05-11" || got.TotalCalories != 250 {
		t.Errorf("today = %+v, want 2026-05-11 with 250", got)
	}
}

func TestWeeklySummary(t *testing.T) {
	svc := newTestService(t)

	storeAt(t, svc, 1, intPtr(700), time.Date(2026, 5, 5, 12, 0, 0, 0, time.UTC))
	storeAt(t, svc, 1, intPtr(300), time.Date(2026, 5, 8, 12, 0, 0, 0, time.UTC))
	storeAt(t, svc, 1, intPtr(400), time.Date(2026, 5, 11, 12, 0, 0, 0, time.UTC))
	// outside the week on both sides
	storeAt(t, svc, 1, intPtr(9999), time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC))
	storeAt(t, svc, 1, intPtr(9999), time.Date(2026, 5, 12, 12, 0, 0, 0, time.UTC))

	week, err := svc.WeeklySummary(1, time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC), 0)
	if err != nil {
		t.Fatalf("WeeklySummary: %v", err)
	}
	if week.Start != "2026-05-05" || week.End != "2026-05-11" {
		t.Errorf("range = %s..%s", week.Start, week.End)
	}
	if len(week.Days) != 7 {
		t.Fatalf("len(Days) = %d, want 7", len(week.Days))
	}
	if week.TotalCalories != 1400 {
		t.Errorf("TotalCalories = %d, want 1400", week.TotalCalories)
	}
	if week.AvgPerDay != 200 {
		t.Errorf("AvgPerDay = %v, want 200", week.AvgPerDay)
	}
	if week.Days[0].Date != "2026-05-05" || week.Days[0].TotalCalories != 700 {
		t.Errorf("first day = %+v", week.Days[0])
	}
	if week.Days[1].ItemsCount != 0 {
		t.Errorf("empty day = %+v", week.Days[1])
	}
}

func TestSummaryRejectsOffset(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.DailySummary(1, time.Time{}, 24*60+1); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("DailySummary error = %v, want ErrInvalidRequest", err)
	}
	if _, err := svc.WeeklySummary(1, time.Time{}, -24*60-1); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("WeeklySummary error = %v, want ErrInvalidRequest", err)
	}
}
