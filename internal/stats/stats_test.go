package stats

import (
	"testing"
	"time"

	"focusboard/internal/auth"
	"focusboard/internal/models"
	"focusboard/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func task(id int64, title string, createdAt time.Time) models.Task {
	return models.Task{ID: id, UserID: 1, Title: title, Status: models.StatusDone, CreatedAt: createdAt}
}

func TestWindowStartUTC(t *testing.T) {
	// Midday UTC on Mar 10: the IST day also Mar 10, started 18:30 UTC Mar 9.
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	start := windowStartUTC(now, 7)
	assert.True(t, start.Equal(time.Date(2024, 3, 3, 18, 30, 0, 0, time.UTC)))

	// Late UTC on Mar 10 is already Mar 11 in IST, shifting the window.
	lateNow := time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC)
	start = windowStartUTC(lateNow, 7)
	assert.True(t, start.Equal(time.Date(2024, 3, 4, 18, 30, 0, 0, time.UTC)))

	// days=1 means just today.
	start = windowStartUTC(now, 1)
	assert.True(t, start.Equal(time.Date(2024, 3, 9, 18, 30, 0, 0, time.UTC)))
}

func TestBuildDayStatsLabels(t *testing.T) {
	dayStats := buildDayStats([]storage.PomodoroDayTotal{
		{DateKey: "2024-03-05", Sessions: 2, TotalDuration: 2400},
		{DateKey: "2024-03-06", Sessions: 1, TotalDuration: 600},
	})

	require.Len(t, dayStats, 2)
	// The label is the date key's midnight-UTC instant seen in IST, which
	// lands on the same calendar date (+05:30).
	assert.Equal(t, DayStat{Date: "05 Mar", Sessions: 2, TotalDuration: 2400}, dayStats[0])
	assert.Equal(t, DayStat{Date: "06 Mar", Sessions: 1, TotalDuration: 600}, dayStats[1])
}

func TestBuildDayStatsMalformedKeyFallsBack(t *testing.T) {
	dayStats := buildDayStats([]storage.PomodoroDayTotal{
		{DateKey: "not-a-date", Sessions: 1, TotalDuration: 60},
	})
	require.Len(t, dayStats, 1)
	assert.Equal(t, "not-a-date", dayStats[0].Date)
}

func TestBuildDayStatsEmpty(t *testing.T) {
	dayStats := buildDayStats(nil)
	assert.NotNil(t, dayStats, "empty window must serialize as [], not null")
	assert.Len(t, dayStats, 0)
}

func TestGroupCompletedSameISTDay(t *testing.T) {
	// Both tasks fall on 05 Mar in IST (14:30 and 23:30); newest first.
	grouped := groupCompleted([]models.Task{
		task(2, "Evening", time.Date(2024, 3, 5, 18, 0, 0, 0, time.UTC)),
		task(1, "Morning", time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)),
	})

	assert.Equal(t, 2, grouped.TotalCompleted)
	require.Len(t, grouped.Months, 1)

	month := grouped.Months[0]
	assert.Equal(t, "March 2024", month.MonthLabel)
	assert.Equal(t, 2, month.TotalTasks)
	require.Len(t, month.Days, 1)

	day := month.Days[0]
	assert.Equal(t, "05 Mar 2024 (Tuesday)", day.DateLabel)
	assert.Equal(t, 2, day.TasksCount)
	require.Len(t, day.Tasks, 2)

	assert.Equal(t, "Evening", day.Tasks[0].Title)
	assert.Equal(t, "11:30 PM", day.Tasks[0].TimeLabel)
	assert.Equal(t, "2024-03-05T18:00:00Z", day.Tasks[0].CreatedAt)
	assert.Equal(t, "05 Mar 2024, 11:30 PM IST", day.Tasks[0].CreatedAtIST)

	assert.Equal(t, "Morning", day.Tasks[1].Title)
	assert.Equal(t, "02:30 PM", day.Tasks[1].TimeLabel)
}

func TestGroupCompletedBucketsByISTNotUTC(t *testing.T) {
	// 19:30 UTC on Feb 29 is 01:00 IST on Mar 1, so the task belongs to
	// March in the display timezone.
	grouped := groupCompleted([]models.Task{
		task(1, "Night owl", time.Date(2024, 2, 29, 19, 30, 0, 0, time.UTC)),
	})

	require.Len(t, grouped.Months, 1)
	assert.Equal(t, "March 2024", grouped.Months[0].MonthLabel)
	assert.Equal(t, "01 Mar 2024 (Friday)", grouped.Months[0].Days[0].DateLabel)
}

func TestGroupCompletedFirstSeenOrder(t *testing.T) {
	grouped := groupCompleted([]models.Task{
		task(4, "Apr late", time.Date(2024, 4, 20, 10, 0, 0, 0, time.UTC)),
		task(3, "Apr early", time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)),
		task(2, "Mar", time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)),
		task(1, "Jan", time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)),
	})

	require.Len(t, grouped.Months, 3)
	assert.Equal(t, "April 2024", grouped.Months[0].MonthLabel)
	assert.Equal(t, "March 2024", grouped.Months[1].MonthLabel)
	assert.Equal(t, "January 2024", grouped.Months[2].MonthLabel)

	require.Len(t, grouped.Months[0].Days, 2)
	assert.Equal(t, "20 Apr 2024 (Saturday)", grouped.Months[0].Days[0].DateLabel)
	assert.Equal(t, "02 Apr 2024 (Tuesday)", grouped.Months[0].Days[1].DateLabel)
}

func TestGroupCompletedInvariants(t *testing.T) {
	tasks := []models.Task{
		task(5, "e", time.Date(2024, 4, 20, 10, 0, 0, 0, time.UTC)),
		task(4, "d", time.Date(2024, 4, 20, 9, 0, 0, 0, time.UTC)),
		task(3, "c", time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)),
		task(2, "b", time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)),
		task(1, "a", time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)),
	}
	grouped := groupCompleted(tasks)

	monthSum := 0
	for _, month := range grouped.Months {
		daySum := 0
		for _, day := range month.Days {
			assert.Equal(t, len(day.Tasks), day.TasksCount)
			daySum += day.TasksCount
		}
		assert.Equal(t, month.TotalTasks, daySum, "month total must equal sum of day counts")
		monthSum += month.TotalTasks
	}
	assert.Equal(t, grouped.TotalCompleted, monthSum)
	assert.Equal(t, len(tasks), grouped.TotalCompleted)
}

func TestGroupCompletedSkipsZeroTimestamps(t *testing.T) {
	grouped := groupCompleted([]models.Task{
		task(1, "valid", time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)),
		{ID: 2, UserID: 1, Title: "broken", Status: models.StatusDone},
	})
	assert.Equal(t, 1, grouped.TotalCompleted)
}

func TestGroupCompletedEmpty(t *testing.T) {
	grouped := groupCompleted(nil)
	assert.Equal(t, 0, grouped.TotalCompleted)
	assert.NotNil(t, grouped.Months)
	assert.Len(t, grouped.Months, 0)
}

func newStatsDB(t *testing.T) (*storage.DB, *models.User) {
	t.Helper()
	db, err := storage.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	hash, err := auth.HashPassword("testpass")
	require.NoError(t, err)
	user, err := db.CreateUser("statsuser", nil, hash, false)
	require.NoError(t, err)
	return db, user
}

func TestRecentStatsEmptyForNewUser(t *testing.T) {
	db, user := newStatsDB(t)

	dayStats, err := RecentStats(db, &user.ID, 7)
	require.NoError(t, err)
	assert.NotNil(t, dayStats)
	assert.Len(t, dayStats, 0, "no sessions means an empty sequence, not an error")
}

func TestRecentStatsCountsTodaysSession(t *testing.T) {
	db, user := newStatsDB(t)

	session, err := db.StartPomodoro(user.ID, nil)
	require.NoError(t, err)
	explicit := int64(1530)
	_, err = db.EndPomodoro(session.ID, user.ID, &explicit)
	require.NoError(t, err)

	// A second session that was never finished must not count.
	_, err = db.StartPomodoro(user.ID, nil)
	require.NoError(t, err)

	dayStats, err := RecentStats(db, &user.ID, 7)
	require.NoError(t, err)
	require.Len(t, dayStats, 1)
	assert.Equal(t, 1, dayStats[0].Sessions)
	assert.Equal(t, int64(1530), dayStats[0].TotalDuration)
	assert.LessOrEqual(t, len(dayStats), 7)
}

func TestUserCountsAndAdminSummary(t *testing.T) {
	db, user := newStatsDB(t)

	taskRow, err := db.CreateTask(user.ID, "Done task", models.StatusDone)
	require.NoError(t, err)
	_, err = db.CreateTask(user.ID, "Open task", "pending")
	require.NoError(t, err)

	session, err := db.StartPomodoro(user.ID, &taskRow.ID)
	require.NoError(t, err)
	explicit := int64(150)
	_, err = db.EndPomodoro(session.ID, user.ID, &explicit)
	require.NoError(t, err)
	require.NoError(t, db.RecordActivity(user.ID, "pomodoro_completed", nil, nil))

	counts, err := UserCounts(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.TotalTasks)
	assert.Equal(t, 1, counts.CompletedTasks)
	assert.Equal(t, 1, counts.TotalSessions)
	assert.Equal(t, int64(2), counts.TotalFocusMinutes, "150s floors to 2 minutes")

	// An admin account must not appear in the summary.
	hash, err := auth.HashPassword("adminpass")
	require.NoError(t, err)
	_, err = db.CreateUser("summaryadmin", nil, hash, true)
	require.NoError(t, err)

	summary, err := AdminSummary(db)
	require.NoError(t, err)
	require.Len(t, summary, 1)

	row := summary[0]
	assert.Equal(t, user.ID, row.ID)
	assert.Equal(t, "statsuser", row.Username)
	assert.False(t, row.IsAdmin)
	assert.Equal(t, 2, row.TotalTasks)
	assert.Equal(t, 1, row.CompletedTasks)
	assert.Equal(t, 1, row.TotalSessions)
	assert.Equal(t, int64(2), row.TotalFocusMinutes)
	assert.Nil(t, row.LastLoginAt, "never logged in")
	assert.NotNil(t, row.LastActiveAt, "activity recording touches liveness")
	assert.NotEmpty(t, row.CreatedAtIST)
}
