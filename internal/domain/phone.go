package domain

import "strings"

const (
	MinPhoneDigits = 10
	MaxPhoneDigits = 15

	// UserServer is the JID server for regular WhatsApp accounts.
	UserServer = "s.whatsapp.net"
)

// CleanPhoneNumber drops every character that is not an ASCII digit.
func CleanPhoneNumber(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParsePhoneNumber cleans raw and enforces the accepted length range.
func ParsePhoneNumber(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrPhoneNumberRequired
	}
	clean := CleanPhoneNumber(raw)
	if len(clean) < MinPhoneDigits || len(clean) > MaxPhoneDigits {
		return "", ErrInvalidPhoneNumber
	}
	return clean, nil
}

// UserJID is the chat address of the account registered to a cleaned phone number.
func UserJID(cleanNumber string) string {
	return cleanNumber + "@" + UserServer
}
