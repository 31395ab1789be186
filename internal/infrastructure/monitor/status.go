package monitor

import "time"

type Status struct {
	Database     bool      `json:"database"`
	Driver       string    `json:"driver"`
	Redis        bool      `json:"redis"`
	RedisEnabled bool      `json:"redisEnabled"`
	Journal      bool      `json:"journal"`
	JournalSize  int       `json:"journalSize"`
	LastCheck    time.Time `json:"lastCheck"`
}

// Healthy reports whether every configured dependency answered. The journal
// is best-effort and never makes the service unhealthy.
func (s Status) Healthy() bool {
	if !s.Database {
		return false
	}
	return !s.RedisEnabled || s.Redis
}
