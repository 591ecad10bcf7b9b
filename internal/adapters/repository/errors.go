package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrInsertFailed = errors.New("record insert failed")
	ErrQueryFailed  = errors.New("record query failed")
)
