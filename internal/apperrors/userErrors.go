package apperrors

import "errors"

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUserIDRequired = errors.New("user id is required")
	ErrNotAdmin       = errors.New("caller is not an admin")
)
