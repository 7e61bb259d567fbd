package model

import "time"

// Trick is a catalog entry. Names are unique; Level grows with difficulty.
type Trick struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// Equipment is a piece of gear (a line, a webbing, a leash) that accounts can
// add to their kit.
type Equipment struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
