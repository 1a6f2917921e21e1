package models

import (
	"errors"
	"time"
)

// Run is one launcher invocation as recorded in run history
type Run struct {
	ID              string
	JobName         string
	DatasetID       string
	ModelName       string
	Status          JobStatus
	CheckpointURI   string
	FailureReason   string
	PricePerHourUSD *float64
	InstanceType    string
	InstanceCount   int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// JobEvent represents a state transition event for a run
type JobEvent struct {
	ID         int64
	RunID      string
	At         time.Time
	FromStatus *JobStatus
	ToStatus   JobStatus
	Reason     string
	MetaJSON   map[string]interface{} // Additional metadata
}

// Locator is a named string value persisted for downstream workflows
type Locator struct {
	Name      string
	Value     string
	JobName   string
	UpdatedAt time.Time
}

// DefaultLocatorName is the name under which the checkpoint address is stored
const DefaultLocatorName = "checkpoint_s3_uri"

// ErrLocatorNotFound is returned by locator stores for unknown names
var ErrLocatorNotFound = errors.New("locator not found")

// ErrRunNotFound is returned by run history for unknown run ids or job names
var ErrRunNotFound = errors.New("run not found")
