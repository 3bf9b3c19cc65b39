// Package lineutil builds LINE messages that stay within API limits.
package lineutil

import (
	"strings"
	"unicode/utf8"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// NewTextMessage creates a text message, truncating text to the LINE limit.
// sender may be nil.
func NewTextMessage(text string, sender *messaging_api.Sender) *messaging_api.TextMessage {
	return &messaging_api.TextMessage{
		Text:   TruncateRunes(text, MaxTextMessageLength),
		Sender: sender,
	}
}

// NewSender returns a sender override, or nil when name is blank.
func NewSender(name string) *messaging_api.Sender {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	return &messaging_api.Sender{Name: TruncateRunes(name, MaxSenderNameLength)}
}

// TruncateRunes shortens text to at most maxRunes runes, ending with "..."
// when something was cut.
func TruncateRunes(text string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// IsUserID reports whether ref looks like a LINE user id: "U" followed by 32
// lowercase hex digits.
func IsUserID(ref string) bool {
	if len(ref) != 33 || ref[0] != 'U' {
		return false
	}
	for _, c := range ref[1:] {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
