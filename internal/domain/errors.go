package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrRateLimited       = errors.New("rate limited")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidPair       = errors.New("invalid market pair")
	ErrInvalidAction     = errors.New("invalid bulk action")
	ErrInvalidParameters = errors.New("invalid system parameters")
	ErrBusy              = errors.New("request already in flight")
	ErrStale             = errors.New("result superseded")
	ErrDialogClosed      = errors.New("dialog is not open")
	ErrNotEditing        = errors.New("not in edit mode")
	ErrLockHeld          = errors.New("lock already held")
)
