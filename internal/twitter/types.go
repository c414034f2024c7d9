package twitter

// User is the authenticated account as reported by the identity endpoint.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// TweetRequest is the POST /2/tweets payload. Key names are fixed by the
// platform's v2 schema; optional blocks are omitted entirely when unused.
type TweetRequest struct {
	Text  string      `json:"text"`
	Poll  *TweetPoll  `json:"poll,omitempty"`
	Reply *TweetReply `json:"reply,omitempty"`
	Media *TweetMedia `json:"media,omitempty"`
}

// TweetPoll attaches a multiple-choice vote with a fixed window. The
// window is always expressed in minutes.
type TweetPoll struct {
	Options         []string `json:"options"`
	DurationMinutes int      `json:"duration_minutes"`
}

type TweetReply struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

type TweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}
