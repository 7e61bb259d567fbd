package model

import "time"

// Pegue is one logged practice session on the line.
//
// Equipment is free text describing the setup used that day; it is not a
// reference into the equipment catalog. Duration is in minutes.
type Pegue struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Equipment string    `json:"equipment"`
	Date      time.Time `json:"date"`
	Duration  int       `json:"duration"`
	Notes     string    `json:"notes"`
	Tricks    []Trick   `json:"tricks"`
}
