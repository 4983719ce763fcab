package scoreboard

import "errors"

var (
	ErrStoreUnavailable     = errors.New("store unavailable")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrInvalidPlayer        = errors.New("invalid player: must be 1 or 2")
	ErrNotFound             = errors.New("not found")
	ErrWriteFailed          = errors.New("write failed")
	ErrBlocked              = errors.New("store blocked")
	ErrMigrationAmbiguous   = errors.New("migration ambiguous")
	ErrBroadcastUnavailable = errors.New("broadcast unavailable")
	ErrUploadRejected       = errors.New("upload rejected")
)
