package history

import "time"

// Entry is one location reading.
type Entry struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Altitude  float64   `json:"altitude"`
	Accuracy  float64   `json:"accuracy"`
	Time      time.Time `json:"time"`
}
