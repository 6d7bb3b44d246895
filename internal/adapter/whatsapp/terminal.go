package whatsapp

import (
	qrcodeTerminal "github.com/Baozisoftware/qrcode-terminal-go"
)

// PrintQR renders a QR payload on stdout for operators watching the server console.
func PrintQR(payload string) {
	qrcodeTerminal.New().Get(payload).Print()
}
