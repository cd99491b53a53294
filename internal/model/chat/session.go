package chat

// Request is the body of POST /api/chat. The server keeps no session; the
// flags below are recomputed by the client for every submission.
type Request struct {
	Messages    []Message `json:"messages"`
	LeetcodeURL string    `json:"leetcodeUrl"`
	IsNewChat   bool      `json:"isNewChat"`
	PreviousURL string    `json:"previousUrl"`
}

// URLChanged reports whether the problem URL differs from the one used by
// the previous request of the same conversation.
func (r Request) URLChanged() bool {
	return r.PreviousURL != "" && r.PreviousURL != r.LeetcodeURL
}

// HeaderCodeRequest carries the code-request flag of the last message back
// to the client so it can be replayed on later requests.
const HeaderCodeRequest = "X-Code-Request"
