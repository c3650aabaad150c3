package accounts

// Collection is the document-store collection holding account records.
const Collection = "accounts"

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusPaused Status = "PAUSED"
)

// Account is the persisted account record. Secret holds the encoded
// credential hash, never the plaintext secret.
type Account struct {
	ID        string `json:"id"`
	Username  string `json:"displayName"`
	Secret    string `json:"credentialSecret"`
	Role      Role   `json:"role"`
	Status    Status `json:"status"`
	Avatar    string `json:"avatar,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}
