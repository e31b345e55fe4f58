package domain

import "errors"

var (
	// ErrSquareAPIFailure is returned when a Square API request fails
	ErrSquareAPIFailure = errors.New("square API request failed")

	// ErrAirtableAPIFailure is returned when an Airtable API request fails
	ErrAirtableAPIFailure = errors.New("airtable API request failed")

	// ErrEmptyListing is returned when a source listing failed before yielding anything
	ErrEmptyListing = errors.New("source listing failed with no results")

	// ErrRecordNotFound is returned when a destination row no longer exists
	ErrRecordNotFound = errors.New("destination record not found")

	// ErrRunInProgress is returned when a sync is requested while another one is active
	ErrRunInProgress = errors.New("sync run already in progress")

	// ErrNoActiveRun is returned when stop/pause/resume is requested with no active run
	ErrNoActiveRun = errors.New("no sync run in progress")

	// ErrRunPaused is returned when pausing a run that is already paused
	ErrRunPaused = errors.New("sync run already paused")

	// ErrRunNotPaused is returned when resuming a run that is not paused
	ErrRunNotPaused = errors.New("sync run is not paused")

	// ErrInvalidConfig is returned when configuration values are missing or unknown
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ErrCacheMiss is returned when data is not found in cache
var ErrCacheMiss = errors.New("cache miss")
