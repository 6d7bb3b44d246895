// Package whatsapp adapts go.mau.fi/whatsmeow to the domain.ProtocolClient contract.
//
// Every session gets its own SQLite credential store (<session dir>/creds.db) opened
// through modernc.org/sqlite, so a client never shares keys with another session.
// whatsmeow events and the QR channel are folded into one ConnectionUpdate stream.
package whatsapp
