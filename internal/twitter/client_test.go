package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"pollbot/internal/config"
	"pollbot/pkg/logx"

	"golang.org/x/time/rate"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	creds := config.Credentials{APIKey: "k", APISecret: "ks", AccessToken: "t", AccessSecret: "ts"}
	return NewClient(creds, logx.Nop(),
		WithBaseURLs(srv.URL, srv.URL),
		WithRateLimiter(rate.NewLimiter(rate.Inf, 1)))
}

func TestVerifyCredentials(t *testing.T) {
	t.Parallel()
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/users/me" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "OAuth ") {
			t.Errorf("request not OAuth1-signed: %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":{"id":"42","name":"Poll Bot","username":"pollbot"}}`)
	}))

	u, err := c.VerifyCredentials(context.Background())
	if err != nil {
		t.Fatalf("VerifyCredentials: %v", err)
	}
	if u.ID != "42" || u.Username != "pollbot" {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestVerifyCredentialsStatusMapping(t *testing.T) {
	t.Parallel()
	tests := []struct {
		status int
		want   error
	}{
		{status: http.StatusUnauthorized, want: ErrInvalidCredentials},
		{status: http.StatusForbidden, want: ErrInsufficientPermissions},
	}
	for _, tt := range tests {
		c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			io.WriteString(w, `{"title":"nope"}`)
		}))
		_, err := c.VerifyCredentials(context.Background())
		if !errors.Is(err, tt.want) {
			t.Fatalf("status %d: got %v, want %v", tt.status, err, tt.want)
		}
	}

	// Other statuses pass through as RemoteError.
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"title":"Service Unavailable","detail":"try later"}`)
	}))
	_, err := c.VerifyCredentials(context.Background())
	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("got %v, want RemoteError", err)
	}
	if re.StatusCode != http.StatusServiceUnavailable || re.Title != "Service Unavailable" {
		t.Fatalf("unexpected RemoteError: %+v", re)
	}
}

func TestCreateTweetPayload(t *testing.T) {
	t.Parallel()
	var got map[string]json.RawMessage
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/tweets" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"data":{"id":"777","text":"T"}}`)
	}))

	id, err := c.CreateTweet(context.Background(), TweetRequest{
		Text: "T",
		Poll: &TweetPoll{Options: []string{"A", "B"}, DurationMinutes: 60},
	})
	if err != nil {
		t.Fatalf("CreateTweet: %v", err)
	}
	if id != "777" {
		t.Fatalf("id = %q, want 777", id)
	}

	var text string
	if err := json.Unmarshal(got["text"], &text); err != nil || text != "T" {
		t.Fatalf("text = %s (%v)", got["text"], err)
	}
	var p struct {
		Options         []string `json:"options"`
		DurationMinutes int      `json:"duration_minutes"`
	}
	if err := json.Unmarshal(got["poll"], &p); err != nil {
		t.Fatalf("poll block: %v", err)
	}
	if p.DurationMinutes != 60 || len(p.Options) != 2 {
		t.Fatalf("poll block = %+v", p)
	}
	if _, ok := got["reply"]; ok {
		t.Fatal("reply block present on a non-reply tweet")
	}
	if _, ok := got["media"]; ok {
		t.Fatal("media block present without media")
	}
}

func TestCreateTweetReplyAndMediaBlocks(t *testing.T) {
	t.Parallel()
	var got map[string]json.RawMessage
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"data":{"id":"778"}}`)
	}))

	_, err := c.CreateTweet(context.Background(), TweetRequest{
		Text:  "please vote",
		Reply: &TweetReply{InReplyToTweetID: "777"},
		Media: &TweetMedia{MediaIDs: []string{"m1"}},
	})
	if err != nil {
		t.Fatalf("CreateTweet: %v", err)
	}

	var reply struct {
		InReplyToTweetID string `json:"in_reply_to_tweet_id"`
	}
	if err := json.Unmarshal(got["reply"], &reply); err != nil || reply.InReplyToTweetID != "777" {
		t.Fatalf("reply block = %s (%v)", got["reply"], err)
	}
	var media struct {
		MediaIDs []string `json:"media_ids"`
	}
	if err := json.Unmarshal(got["media"], &media); err != nil || len(media.MediaIDs) != 1 || media.MediaIDs[0] != "m1" {
		t.Fatalf("media block = %s (%v)", got["media"], err)
	}
}

func TestCreateTweetRateLimited(t *testing.T) {
	t.Parallel()
	reset := time.Now().Add(10 * time.Minute).Unix()
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-rate-limit-limit", "200")
		w.Header().Set("x-rate-limit-remaining", "0")
		w.Header().Set("x-rate-limit-reset", strconv.FormatInt(reset, 10))
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := c.CreateTweet(context.Background(), TweetRequest{Text: "T"})
	var rle *RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("got %v, want RateLimitError", err)
	}
	if rle.RateLimit.Limit != 200 || !rle.RateLimit.Reset.Equal(time.Unix(reset, 0)) {
		t.Fatalf("unexpected rate limit metadata: %+v", rle.RateLimit)
	}
}

func TestCreateTweetForbidden(t *testing.T) {
	t.Parallel()
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	_, err := c.CreateTweet(context.Background(), TweetRequest{Text: "T"})
	if !errors.Is(err, ErrInsufficientPermissions) {
		t.Fatalf("got %v, want ErrInsufficientPermissions", err)
	}
}

func TestUploadMedia(t *testing.T) {
	t.Parallel()
	payload := []byte{0x89, 'P', 'N', 'G'}
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/1.1/media/upload.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		f, hdr, err := r.FormFile("media")
		if err != nil {
			t.Errorf("form file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		if string(b) != string(payload) {
			t.Errorf("unexpected media bytes: %v", b)
		}
		if ct := hdr.Header.Get("Content-Type"); ct != "image/png" {
			t.Errorf("part content type = %q", ct)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"media_id_string":"m-1"}`)
	}))

	id, err := c.UploadMedia(context.Background(), payload, "image/png")
	if err != nil {
		t.Fatalf("UploadMedia: %v", err)
	}
	if id != "m-1" {
		t.Fatalf("media id = %q, want m-1", id)
	}
}

func TestRemoteErrorV11Shape(t *testing.T) {
	t.Parallel()
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"errors":[{"code":38,"message":"media parameter is missing"}]}`)
	}))
	_, err := c.UploadMedia(context.Background(), []byte{1}, "image/gif")
	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("got %v, want RemoteError", err)
	}
	if re.Code != 38 || !strings.Contains(re.Detail, "media parameter") {
		t.Fatalf("unexpected RemoteError: %+v", re)
	}
}
