// Package domain defines the core domain types and interfaces.
//
// This package contains concept-oriented files (session.go, phone.go, client.go, errors.go)
// with shared types and the contract of the external WhatsApp client. Apart from the small
// pure helpers for session IDs and phone numbers there is no implementation code here.
package domain
