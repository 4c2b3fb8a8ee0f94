package models

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserExists           = errors.New("user already exists")
	ErrFlaggedEmailNotFound = errors.New("flagged email not found")
)
