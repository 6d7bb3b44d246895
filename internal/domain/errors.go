package domain

import "errors"

var (
	ErrPhoneNumberRequired = errors.New("phone number required")
	ErrInvalidPhoneNumber  = errors.New("phone number must have between 10 and 15 digits")
	ErrInvalidSessionID    = errors.New("invalid session id")
	ErrAtCapacity          = errors.New("too many live sessions")
	ErrSessionClosed       = errors.New("session closed before completion")
	ErrLoggedOut           = errors.New("session logged out")
	ErrLinkTimeout         = errors.New("linking window expired")
)

// Failure categories the HTTP layer maps onto status codes. They are wrapped
// together with the underlying cause.
var (
	ErrProvisioning = errors.New("session provisioning failed")
	ErrProtocol     = errors.New("whatsapp client failed")
)
