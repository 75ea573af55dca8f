package foodlog

import (
	"time"

	"foodmatch/database"
	"foodmatch/types"
)

const (
	dateLayout = "2006-01-02"
	weekDays   = 7
)

// dayBounds returns the UTC instants of local midnight of day and of the
// following midnight, for a zone tzOffsetMinutes east of UTC
func dayBounds(day time.Time, tzOffsetMinutes int) (time.Time, time.Time) {
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Add(-time.Duration(tzOffsetMinutes) * time.Minute)
	return start, start.Add(24 * time.Hour)
}

// localToday is the current calendar day in the given zone
func (s *Service) localToday(tzOffsetMinutes int) time.Time {
	local := s.now().UTC().Add(time.Duration(tzOffsetMinutes) * time.Minute)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DailySummary totals the calories logged on one local day. A zero day
// means today in the given zone.
func (s *Service) DailySummary(userID int64, day time.Time, tzOffsetMinutes int) (types.DailySummary, error) {
	if err := validateRequest(summaryRequest{UserID: userID, TzOffsetMinutes: tzOffsetMinutes}); err != nil {
		return types.DailySummary{}, err
	}
	if day.IsZero() {
		day = s.localToday(tzOffsetMinutes)
	}
	return s.daily(userID, day, tzOffsetMinutes)
}

func (s *Service) daily(userID int64, day time.Time, tzOffsetMinutes int) (types.DailySummary, error) {
	from, to := dayBounds(day, tzOffsetMinutes)
	total, count, err := database.SumCalories(s.db, userID, from, to)
	if err != nil {
		return types.DailySummary{}, err
	}
	return types.DailySummary{
		Date:          day.Format(dateLayout),
		TotalCalories: total,
		ItemsCount:    count,
	}, nil
}

// WeeklySummary covers the seven local days ending with end. The average
// is taken over all seven days, including days without entries.
func (s *Service) WeeklySummary(userID int64, end time.Time, tzOffsetMinutes int) (types.WeeklySummary, error) {
	if err := validateRequest(summaryRequest{UserID: userID, TzOffsetMinutes: tzOffsetMinutes}); err != nil {
		return types.WeeklySummary{}, err
	}
	if end.IsZero() {
		end = s.localToday(tzOffsetMinutes)
	}
	y, m, d := end.Date()
	end = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, 0, -(weekDays - 1))

	week := types.WeeklySummary{
		Start: start.Format(dateLayout),
		End:   end.Format(dateLayout),
		Days:  make([]types.DailySummary, 0, weekDays),
	}
	for i := 0; i < weekDays; i++ {
		day, err := s.daily(userID, start.AddDate(0, 0, i), tzOffsetMinutes)
		if err != nil {
			return types.WeeklySummary{}, err
		}
		week.TotalCalories += day.TotalCalories
		week.Days = append(week.Days, day)
	}
	week.AvgPerDay = float64(week.TotalCalories) / weekDays
	return week, nil
}
