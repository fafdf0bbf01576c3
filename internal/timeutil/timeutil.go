package timeutil

import "time"

// IST is the fixed display timezone (UTC+5:30). All storage is UTC; this
// zone is only used for user-facing labels.
var IST = time.FixedZone("IST", 5*3600+30*60)

const (
	istLayout   = "02 Jan 2006, 03:04 PM IST"
	utcLayout   = time.RFC3339
	monthLayout = "January 2006"
	dayLayout   = "02 Jan 2006 (Monday)"
	clockLayout = "03:04 PM"
	shortLayout = "02 Jan"
)

// ToIST converts an instant to the display timezone.
func ToIST(t time.Time) time.Time {
	return t.In(IST)
}

// ISTString formats an instant as "02 Jan 2006, 03:04 PM IST".
func ISTString(t time.Time) string {
	return ToIST(t).Format(istLayout)
}

// UTCString formats an instant as canonical RFC3339 in UTC.
func UTCString(t time.Time) string {
	return t.UTC().Format(utcLayout)
}

// MonthLabel formats an IST instant's month bucket, e.g. "March 2024".
func MonthLabel(t time.Time) string {
	return ToIST(t).Format(monthLayout)
}

// DayLabel formats an IST instant's day bucket, e.g. "05 Mar 2024 (Tuesday)".
func DayLabel(t time.Time) string {
	return ToIST(t).Format(dayLayout)
}

// ClockLabel formats an IST instant's wall time, e.g. "09:05 PM".
func ClockLabel(t time.Time) string {
	return ToIST(t).Format(clockLayout)
}

// ShortDayLabel formats an IST instant as "05 Mar".
func ShortDayLabel(t time.Time) string {
	return ToIST(t).Format(shortLayout)
}

// ISTStringOrNil is the nil-propagating form of ISTString, for optional
// timestamps serialized to JSON.
func ISTStringOrNil(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := ISTString(*t)
	return &s
}

// UTCStringOrNil is the nil-propagating form of UTCString.
func UTCStringOrNil(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := UTCString(*t)
	return &s
}

// StartOfISTDay returns midnight (display timezone) of the day containing t.
func StartOfISTDay(t time.Time) time.Time {
	ist := ToIST(t)
	return time.Date(ist.Year(), ist.Month(), ist.Day(), 0, 0, 0, 0, IST)
}
