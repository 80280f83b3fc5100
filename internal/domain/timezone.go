package domain

import (
	"errors"
	"time"
)

// ErrInvalidTimezone marks a timezone name that is not a recognized IANA
// identifier.
var ErrInvalidTimezone = errors.New("invalid timezone")

// LoadTimezone resolves a named IANA zone. The empty string means UTC.
func LoadTimezone(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, ErrInvalidTimezone
	}
	return loc, nil
}

// ToUTCInstant interprets the date and clock fields of naive as wall-clock
// time in the named zone and returns the equivalent absolute instant.
// Times that fall in a DST gap or overlap resolve the way time.Date does.
func ToUTCInstant(naive time.Time, tz string) (time.Time, error) {
	loc, err := LoadTimezone(tz)
	if err != nil {
		return time.Time{}, err
	}
	local := time.Date(
		naive.Year(), naive.Month(), naive.Day(),
		naive.Hour(), naive.Minute(), naive.Second(), naive.Nanosecond(),
		loc,
	)
	return local.UTC(), nil
}

// FormatInTimezone renders a UTC instant as local wall-clock time in the
// named zone, for display.
func FormatInTimezone(utc time.Time, tz, layout string) (string, error) {
	loc, err := LoadTimezone(tz)
	if err != nil {
		return "", err
	}
	return utc.In(loc).Format(layout), nil
}

// AtTimeOfDay places a local wall-clock time of day on the given calendar
// day in loc and returns the UTC instant.
func AtTimeOfDay(year int, month time.Month, day int, tod TimeOfDay, loc *time.Location) time.Time {
	return time.Date(year, month, day, int(tod)/60, int(tod)%60, 0, 0, loc).UTC()
}
