package messaging

import "strings"

// keySeparator joins the two participant ids. Account ids are uuids or the
// fixed root id, so ':' can never occur inside one.
const keySeparator = ":"

// ConversationKey derives the canonical key for the unordered participant
// pair: the two ids sorted lexicographically and joined. Symmetric by
// construction, so both directions of a conversation share one key and a
// single-field equality match scopes the whole stream.
func ConversationKey(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return a + keySeparator + b
}
