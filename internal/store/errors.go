package store

import "errors"

// Sentinel errors returned by the history store. Callers should use
// [errors.Is] to match against these values.
var (
	// ErrUnexpectedChangesets is returned when ApplyIncoming gets anything
	// but the single changeset the history store asks for.
	ErrUnexpectedChangesets = errors.New("history store expects exactly one incoming changeset")

	// ErrInvalidURL is returned for URLs that cannot be parsed as absolute
	// URLs.
	ErrInvalidURL = errors.New("invalid url")

	// ErrInvalidGUID is returned for incoming records whose id is not a valid
	// places guid.
	ErrInvalidGUID = errors.New("invalid places guid")

	// ErrURLNotStorable is returned by the local API for URLs the history
	// store never keeps, e.g. "about:" or "javascript:" pages.
	ErrURLNotStorable = errors.New("url cannot be stored in history")

	// ErrInvalidVisit is returned by the local API for visits with an
	// unknown transition or a date before 1993-01-23.
	ErrInvalidVisit = errors.New("invalid visit")
)

// Low-level database operation errors. These are returned (or wrapped) by
// store methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a SQL query with the
	// query builder fails.
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrBeginningTransaction is returned when the database driver cannot
	// start a new transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommitingTransaction is returned when committing an open transaction
	// fails. The transaction is considered rolled back at this point.
	ErrCommitingTransaction = errors.New("failed to commit transaction")

	// ErrExecutingStatement is returned when an INSERT, UPDATE or DELETE
	// fails.
	ErrExecutingStatement = errors.New("failed to executing statement")

	// ErrScanningRows is returned when scanning column values fails.
	ErrScanningRows = errors.New("failed to scan rows")
)
