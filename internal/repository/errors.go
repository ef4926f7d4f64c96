package repository

import "errors"

// ErrConditionNotMet is returned by conditional updates when the row exists
// but its current state does not satisfy the update's guard. Absent rows are
// reported as pgx.ErrNoRows.
var ErrConditionNotMet = errors.New("repository: update condition not met")
