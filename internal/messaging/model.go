package messaging

// Collection is the document-store collection holding message records.
const Collection = "messages"

type Type string

const (
	TypeText  Type = "text"
	TypeEmoji Type = "emoji"
)

// Message is one immutable chat message. Content is stored obfuscated; the
// channel reveals it before handing messages to subscribers.
type Message struct {
	ID              string `json:"id"`
	SenderID        string `json:"senderId"`
	ReceiverID      string `json:"receiverId"`
	Content         string `json:"content"`
	Type            Type   `json:"type"`
	CreatedAt       int64  `json:"createdAt"`
	ConversationKey string `json:"conversationKey"`
}
