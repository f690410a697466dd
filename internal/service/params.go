package service

import "time"

// LogFilter supports journal filtering by time range, type and chamber.
type LogFilter struct {
	From    time.Time // inclusive; zero means no lower bound
	To      time.Time // inclusive; zero means no upper bound
	Type    string    // "", "STARTED", "STOPPED", "TEMP_REACHED", "COMPLETE", "TARGETS_SET"
	Chamber int       // 0 means all chambers; 1..3 restricts to one
}
