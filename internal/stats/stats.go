// Package stats computes the aggregate views served to dashboards and the
// admin panel: trailing-window Pomodoro totals, month/day grouping of
// completed tasks, and per-user summary rows.
package stats

import (
	"time"

	"focusboard/internal/models"
	"focusboard/internal/storage"
	"focusboard/internal/timeutil"
)

// DayStat is one calendar day of Pomodoro totals.
type DayStat struct {
	Date          string `json:"date"`
	Sessions      int    `json:"sessions"`
	TotalDuration int64  `json:"total_duration"`
}

// windowStartUTC returns the UTC instant of midnight (display timezone) of
// the day (days-1) days before the day containing now.
func windowStartUTC(now time.Time, days int) time.Time {
	return timeutil.StartOfISTDay(now).AddDate(0, 0, -(days - 1)).UTC()
}

// RecentStats returns per-day session counts and focused seconds for the
// trailing window of days ending today (display timezone). userID nil means
// all users. A user with no finished sessions gets an empty slice.
func RecentStats(db *storage.DB, userID *int64, days int) ([]DayStat, error) {
	totals, err := db.PomodoroDayTotals(userID, windowStartUTC(time.Now(), days))
	if err != nil {
		return nil, err
	}
	return buildDayStats(totals), nil
}

// buildDayStats labels raw per-date aggregate rows. The grouping key is the
// stored UTC calendar date; the label converts that date's midnight-UTC
// instant to the display timezone. For sessions started after 18:30 UTC the
// label therefore names the UTC day, not the (already next) IST day. That
// mismatch is long-standing observed behavior and is kept as is.
func buildDayStats(totals []storage.PomodoroDayTotal) []DayStat {
	dayStats := make([]DayStat, 0, len(totals))
	for _, t := range totals {
		label := t.DateKey
		if parsed, err := time.Parse("2006-01-02", t.DateKey); err == nil {
			label = timeutil.ShortDayLabel(parsed)
		}
		dayStats = append(dayStats, DayStat{
			Date:          label,
			Sessions:      t.Sessions,
			TotalDuration: t.TotalDuration,
		})
	}
	return dayStats
}

// TaskEntry is one completed task inside a day bucket.
type TaskEntry struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	CreatedAt    string `json:"created_at"`
	CreatedAtIST string `json:"created_at_ist"`
	TimeLabel    string `json:"time_label"`
}

// DayGroup is one display-timezone calendar day of completed tasks.
type DayGroup struct {
	DateLabel  string      `json:"date_label"`
	TasksCount int         `json:"tasks_count"`
	Tasks      []TaskEntry `json:"tasks"`
}

// MonthGroup is one display-timezone month of completed tasks.
type MonthGroup struct {
	MonthLabel string     `json:"month_label"`
	TotalTasks int        `json:"total_tasks"`
	Days       []DayGroup `json:"days"`
}

// CompletedGroups is the two-level month/day grouping of a user's completed
// tasks, served identically by the page view and the JSON API.
type CompletedGroups struct {
	TotalCompleted int          `json:"total_completed"`
	Months         []MonthGroup `json:"months"`
}

// CompletedTasksGrouped fetches a user's done tasks and groups them by
// display-timezone month and day, newest first.
func CompletedTasksGrouped(db *storage.DB, userID int64) (*CompletedGroups, error) {
	tasks, err := db.ListCompletedTasks(userID)
	if err != nil {
		return nil, err
	}
	return groupCompleted(tasks), nil
}

// groupCompleted buckets tasks (expected newest-first) by month then day.
// Buckets appear in first-seen order, so ordered slices with index maps are
// used rather than plain Go maps, whose iteration order is unspecified.
func groupCompleted(tasks []models.Task) *CompletedGroups {
	type monthAcc struct {
		group  MonthGroup
		dayIdx map[string]int
	}

	var months []*monthAcc
	monthIdx := make(map[string]int)
	total := 0

	for _, task := range tasks {
		if task.CreatedAt.IsZero() {
			// Defensive: a task without a creation instant cannot be bucketed.
			continue
		}
		ist := timeutil.ToIST(task.CreatedAt)
		monthLabel := timeutil.MonthLabel(task.CreatedAt)

		mi, ok := monthIdx[monthLabel]
		if !ok {
			mi = len(months)
			monthIdx[monthLabel] = mi
			months = append(months, &monthAcc{
				group:  MonthGroup{MonthLabel: monthLabel},
				dayIdx: make(map[string]int),
			})
		}
		month := months[mi]

		dayKey := ist.Format("2006-01-02")
		di, ok := month.dayIdx[dayKey]
		if !ok {
			di = len(month.group.Days)
			month.dayIdx[dayKey] = di
			month.group.Days = append(month.group.Days, DayGroup{
				DateLabel: timeutil.DayLabel(task.CreatedAt),
			})
		}

		month.group.Days[di].Tasks = append(month.group.Days[di].Tasks, TaskEntry{
			ID:           task.ID,
			Title:        task.Title,
			CreatedAt:    timeutil.UTCString(task.CreatedAt),
			CreatedAtIST: timeutil.ISTString(task.CreatedAt),
			TimeLabel:    timeutil.ClockLabel(task.CreatedAt),
		})
		month.group.TotalTasks++
		total++
	}

	grouped := &CompletedGroups{TotalCompleted: total, Months: make([]MonthGroup, 0, len(months))}
	for _, m := range months {
		for i := range m.group.Days {
			m.group.Days[i].TasksCount = len(m.group.Days[i].Tasks)
		}
		grouped.Months = append(grouped.Months, m.group)
	}
	return grouped
}

// Counts holds per-user productivity totals shared by the profile page and
// the admin summary.
type Counts struct {
	TotalTasks        int
	CompletedTasks    int
	TotalSessions     int
	TotalFocusMinutes int64
}

// UserCounts aggregates one user's task and focus totals.
func UserCounts(db *storage.DB, userID int64) (*Counts, error) {
	totalTasks, err := db.CountTasks(userID)
	if err != nil {
		return nil, err
	}
	completed, err := db.CountCompletedTasks(userID)
	if err != nil {
		return nil, err
	}
	totalSessions, err := db.CountPomodoros(userID)
	if err != nil {
		return nil, err
	}
	focusSeconds, err := db.SumFocusSeconds(userID)
	if err != nil {
		return nil, err
	}
	return &Counts{
		TotalTasks:        totalTasks,
		CompletedTasks:    completed,
		TotalSessions:     totalSessions,
		TotalFocusMinutes: focusSeconds / 60,
	}, nil
}

// UserSummary is one admin-summary row for a non-admin account.
type UserSummary struct {
	ID                int64   `json:"id"`
	Username          string  `json:"username"`
	Email             *string `json:"email"`
	IsAdmin           bool    `json:"is_admin"`
	CreatedAt         string  `json:"created_at"`
	CreatedAtIST      string  `json:"created_at_ist"`
	LastLoginAt       *string `json:"last_login_at"`
	LastLoginAtIST    *string `json:"last_login_at_ist"`
	LastActiveAt      *string `json:"last_active_at"`
	LastActiveAtIST   *string `json:"last_active_at_ist"`
	TotalTasks        int     `json:"total_tasks"`
	CompletedTasks    int     `json:"completed_tasks"`
	TotalSessions     int     `json:"total_sessions"`
	TotalFocusMinutes int64   `json:"total_focus_minutes"`
}

// AdminSummary builds one row per non-admin user, oldest account first.
// Read-only.
func AdminSummary(db *storage.DB) ([]UserSummary, error) {
	users, err := db.ListNonAdminUsers()
	if err != nil {
		return nil, err
	}

	summary := make([]UserSummary, 0, len(users))
	for _, u := range users {
		counts, err := UserCounts(db, u.ID)
		if err != nil {
			return nil, err
		}
		summary = append(summary, UserSummary{
			ID:                u.ID,
			Username:          u.Username,
			Email:             u.Email,
			IsAdmin:           u.IsAdmin,
			CreatedAt:         timeutil.UTCString(u.CreatedAt),
			CreatedAtIST:      timeutil.ISTString(u.CreatedAt),
			LastLoginAt:       timeutil.UTCStringOrNil(u.LastLoginAt),
			LastLoginAtIST:    timeutil.ISTStringOrNil(u.LastLoginAt),
			LastActiveAt:      timeutil.UTCStringOrNil(u.LastActiveAt),
			LastActiveAtIST:   timeutil.ISTStringOrNil(u.LastActiveAt),
			TotalTasks:        counts.TotalTasks,
			CompletedTasks:    counts.CompletedTasks,
			TotalSessions:     counts.TotalSessions,
			TotalFocusMinutes: counts.TotalFocusMinutes,
		})
	}
	return summary, nil
}
