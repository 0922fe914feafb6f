package app

import "errors"

var (
	// ErrInvalidCredentials is returned when the supplied credentials do not match.
	// The message is shown to end users and must not enable account enumeration.
	ErrInvalidCredentials = errors.New("incorrect email address or password")

	ErrEmailAndPasswordRequired = errors.New("email and password required")
	ErrEmailAlreadyExists       = errors.New("email already exists")

	// ErrUnauthorized is returned when no valid session accompanies the call.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the session lacks rights over the target.
	ErrForbidden = errors.New("forbidden")
	ErrNotFound  = errors.New("not found")

	// ErrValidation covers missing required fields or images.
	ErrValidation = errors.New("validation failed")

	// KYC guard errors. A submit against a pending or approved record fails
	// without mutating anything.
	ErrKYCAlreadyPending  = errors.New("kyc verification already in progress")
	ErrKYCAlreadyApproved = errors.New("kyc already approved")
	// ErrKYCInvalidTransition is returned when a decision targets a record
	// that is not pending at write time.
	ErrKYCInvalidTransition = errors.New("kyc record is not pending")

	// ErrSelfContact is returned when a user tries to open a conversation
	// about their own listing.
	ErrSelfContact = errors.New("cannot contact yourself")
)
