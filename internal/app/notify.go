package app

import "fmt"

// SessionMessage is the direct message sent to the user once their device is linked.
// The session ID sits in a monospace block so it can be copied in one tap.
func SessionMessage(brand, sessionID string) string {
	return fmt.Sprintf("✅ *%s Session*\n\n*Session ID:*\n```%s```\n\n📺 *YouTube:* Tunzy Shop", brand, sessionID)
}
