// Package app provides the application service layer.
//
// Orchestrates the two linking flows (pairing code and QR), owns the registry of live
// WhatsApp clients with its TTL eviction and capacity bound, and sends the session ID
// to the user once a device is linked. Depends on domain interfaces, not on whatsmeow.
package app
