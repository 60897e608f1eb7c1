package repository

import "errors"

// ErrAlreadyMember is returned when joining a league twice.
var ErrAlreadyMember = errors.New("already a member")
