package entities

import "time"

// Patient is a monitored patient, keyed by mobile number.
type Patient struct {
	MobileNumber string    `json:"mobile_number" db:"mobile_number"`
	Name         string    `json:"name" db:"name"`
	Age          int       `json:"age" db:"age"`
	Gender       string    `json:"gender" db:"gender"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
