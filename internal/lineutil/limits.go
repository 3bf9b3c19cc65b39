package lineutil

// LINE Messaging API limits, in runes.
// See https://developers.line.biz/en/reference/messaging-api/
const (
	MaxTextMessageLength = 5000 // text message body
	MaxSenderNameLength  = 20   // sender.name
	MaxMessagesPerPush   = 5    // messages in one push request
)
