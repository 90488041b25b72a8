package services

import "errors"

var (
	// ErrForbidden is returned when a caller touches a row outside its scope.
	ErrForbidden = errors.New("forbidden")

	// ErrNotAdmin is returned when a non-admin attempts a family admin action.
	ErrNotAdmin = errors.New("only family admins may perform this action")

	// ErrProfileNotFound is returned when no registered profile matches the
	// given email.
	ErrProfileNotFound = errors.New("no profile with that email")

	// ErrMemberIsAdmin is returned when trying to remove an admin member.
	ErrMemberIsAdmin = errors.New("family admins cannot be removed")

	// ErrNoFamily is returned when the caller does not belong to any family.
	ErrNoFamily = errors.New("user does not belong to a family")
)
