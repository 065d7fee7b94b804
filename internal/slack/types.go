package slack

// Channel is a Slack conversation the bot can read.
type Channel struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsMember bool   `json:"is_member"`
}

// Message is one entry of a channel's history. ThreadTS is set when the
// message belongs to a thread; on the thread root it equals Ts.
type Message struct {
	Type       string `json:"type"`
	User       string `json:"user"`
	Text       string `json:"text"`
	Ts         string `json:"ts"`
	ThreadTS   string `json:"thread_ts,omitempty"`
	ReplyCount int    `json:"reply_count,omitempty"`
	Subtype    string `json:"subtype,omitempty"`
}

// IsThreadRoot reports whether the message starts a thread with replies.
func (m Message) IsThreadRoot() bool {
	return m.ThreadTS == m.Ts && m.ReplyCount > 0
}

// IsThreadReply reports whether the message is a reply inside a thread.
func (m Message) IsThreadReply() bool {
	return m.ThreadTS != "" && m.ThreadTS != m.Ts
}

// apiEnvelope is the common Slack Web API response wrapper. Slack
// reports failures with ok=false plus an error code, not HTTP status.
type apiEnvelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type conversationsListResponse struct {
	apiEnvelope
	Channels         []Channel `json:"channels"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

type historyResponse struct {
	apiEnvelope
	Messages         []Message `json:"messages"`
	HasMore          bool      `json:"has_more"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

type userInfoResponse struct {
	apiEnvelope
	User struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Profile struct {
			DisplayName string `json:"display_name"`
			RealName    string `json:"real_name"`
		} `json:"profile"`
	} `json:"user"`
}
