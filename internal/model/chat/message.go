package chat

// Role identifies the author of a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat turn. The whole list lives on the client and is
// replayed with every request.
type Message struct {
	ID            string `json:"id,omitempty"`
	Role          Role   `json:"role"`
	Content       string `json:"content"`
	Timestamp     string `json:"timestamp,omitempty"`
	IsCodeRequest bool   `json:"isCodeRequest,omitempty"`
}
