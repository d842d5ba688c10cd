package repository

import "time"

// Event is one calendar appointment. Date and times are stored as plain
// strings (YYYY-MM-DD and HH:MM) because the demo tools exchange them
// that way.
type Event struct {
	ID        string
	Title     string
	Date      string
	StartTime string
	EndTime   string
	CreatedAt time.Time
}
