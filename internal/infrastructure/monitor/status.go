package monitor

import "time"

// Status is the last dependency report. Orphans counts ledger entries that
// still wait for cleanup.
type Status struct {
	PostgreSQL bool      `json:"postgresql"`
	Redis      bool      `json:"redis"`
	Ledger     bool      `json:"ledger"`
	Orphans    int       `json:"orphans"`
	Channels   int       `json:"live_channels"`
	Mounts     int       `json:"live_views"`
	Workers    []string  `json:"workers"`
	LastCheck  time.Time `json:"last_check"`
}

// Online reports whether the remote store and its cache are reachable.
func (s Status) Online() bool {
	return s.PostgreSQL && s.Redis
}
