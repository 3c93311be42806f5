package domain

import "time"

// User represents an account in the system. A user may additionally be
// flagged as a driver; driver profile details live on Driver.
type User struct {
	ID        string
	Name      string
	Phone     string
	IsDriver  bool
	CreatedAt time.Time
}
