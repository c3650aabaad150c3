package social

import "github.com/cloudchat-app/cloudchat/internal/messaging"

// Collection is the document-store collection holding friend requests.
const Collection = "friendRequests"

type RequestStatus string

const (
	StatusPending  RequestStatus = "PENDING"
	StatusAccepted RequestStatus = "ACCEPTED"
	StatusRejected RequestStatus = "REJECTED"
)

// FriendRequest is one request record. ActivePairKey carries the canonical
// sorted-pair key while the request is PENDING or ACCEPTED; it is cleared
// on rejection. That makes "at most one live request per pair" a
// single-field condition the store can enforce atomically.
type FriendRequest struct {
	ID            string        `json:"id"`
	FromID        string        `json:"fromId"`
	ToID          string        `json:"toId"`
	Status        RequestStatus `json:"status"`
	CreatedAt     int64         `json:"createdAt"`
	ActivePairKey string        `json:"activePairKey,omitempty"`
}

// PairKey is the canonical key for the unordered account pair, shared with
// the conversation-key derivation.
func PairKey(a, b string) string {
	return messaging.ConversationKey(a, b)
}
