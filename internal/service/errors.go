package service

import "errors"

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmailTaken          = errors.New("email is already registered")
	ErrProfileInactive     = errors.New("profile is deactivated")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInvalidInput        = errors.New("invalid input")
	ErrVendorExists        = errors.New("vendor already registered for this profile")
	ErrVendorNotApproved   = errors.New("vendor is not approved")
	ErrInsufficientBalance = errors.New("requested amount exceeds available balance")
	ErrIdentityNotFound    = errors.New("identity not found")
)
