package domain

import "time"

// SourceActivity counts submissions received from one client address.
type SourceActivity struct {
	SourceIP string
	Since    time.Time
	Count    int64
}
