package models

import "time"

// InstancePrice is the on-demand training price of one instance type in a region
type InstancePrice struct {
	InstanceType string // "ml.p4d.24xlarge"
	Region       string
	PricePerHour float64 // USD
	LastUpdated  time.Time
}
