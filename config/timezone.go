package config

import (
	"time"
)

const DefaultTimezone = "Asia/Tokyo"

// AppLocation is the timezone used for calendar dates (loan dates, purchase
// dates). Set by InitializeTimezone.
var AppLocation = time.UTC

// InitializeTimezone sets up the application timezone, falling back to
// DefaultTimezone when name is empty or unknown.
func InitializeTimezone(name string) error {
	if name == "" {
		name = DefaultTimezone
	}
	location, err := time.LoadLocation(name)
	if err != nil {
		location, err = time.LoadLocation(DefaultTimezone)
		if err != nil {
			return err
		}
	}
	AppLocation = location
	return nil
}

// GetCurrentTime returns the current time in the application timezone
func GetCurrentTime() time.Time {
	return time.Now().In(AppLocation)
}

// Today returns the current calendar date as YYYY-MM-DD.
func Today() string {
	return GetCurrentTime().Format("2006-01-02")
}

// ParseDate parses a YYYY-MM-DD date in the application timezone
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, AppLocation)
}
