package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrInvalidPrice is returned when price text cannot be converted to a number
	ErrInvalidPrice = errors.New("invalid price text")

	// ErrProviderFailure is returned when the result page for a query cannot be fetched
	ErrProviderFailure = errors.New("fragment provider failed")

	// ErrSinkFailure is returned when a product row cannot be persisted
	ErrSinkFailure = errors.New("row sink write failed")

	// ErrSourceFailure is returned when the product list cannot be read
	ErrSourceFailure = errors.New("product source read failed")

	// ErrSheetsAPIFailure is returned when a Google Sheets API request fails
	ErrSheetsAPIFailure = errors.New("sheets API request failed")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrRefreshInProgress is returned when a sheet refresh is already running
	ErrRefreshInProgress = errors.New("refresh already in progress")

	// ErrHistoryUnavailable is returned when the history store cannot be reached
	ErrHistoryUnavailable = errors.New("history store unavailable")

	// ErrSnapshotNotFound is returned when no history exists for a product
	ErrSnapshotNotFound = errors.New("snapshot not found")
)
