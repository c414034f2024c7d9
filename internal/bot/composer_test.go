package bot

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"pollbot/internal/poll"
	"pollbot/internal/twitter"
	"pollbot/pkg/logx"
)

type stubAPI struct {
	verifyCalls int
	verifyErr   error

	createCalls []twitter.TweetRequest
	createErrs  []error
	nextID      int
}

func (s *stubAPI) VerifyCredentials(ctx context.Context) (*twitter.User, error) {
	s.verifyCalls++
	if s.verifyErr != nil {
		return nil, s.verifyErr
	}
	return &twitter.User{ID: "42", Username: "pollbot"}, nil
}

func (s *stubAPI) CreateTweet(ctx context.Context, req twitter.TweetRequest) (string, error) {
	idx := len(s.createCalls)
	s.createCalls = append(s.createCalls, req)
	if idx < len(s.createErrs) && s.createErrs[idx] != nil {
		return "", s.createErrs[idx]
	}
	s.nextID++
	return fmt.Sprintf("tweet-%d", s.nextID), nil
}

type stubUploader struct {
	calls int
	paths []string
	id    string
	err   error
}

func (s *stubUploader) Upload(ctx context.Context, path string) (string, error) {
	s.calls++
	s.paths = append(s.paths, path)
	return s.id, s.err
}

func newComposer(api *stubAPI, up *stubUploader) *Composer {
	return New(api, up, Config{DefaultDurationHours: 24}, logx.Nop())
}

func TestCreatePollWithoutImage(t *testing.T) {
	t.Parallel()
	api := &stubAPI{}
	up := &stubUploader{}
	c := newComposer(api, up)

	def := poll.Definition{Title: "T", Options: []string{"A", "B"}, DurationHours: 1}
	id, err := c.CreatePoll(context.Background(), def)
	if err != nil {
		t.Fatalf("CreatePoll: %v", err)
	}
	if id != "tweet-1" {
		t.Fatalf("id = %q", id)
	}
	if api.verifyCalls != 1 {
		t.Fatalf("verify calls = %d, want 1", api.verifyCalls)
	}
	if up.calls != 0 {
		t.Fatalf("upload calls = %d, want 0", up.calls)
	}
	if len(api.createCalls) != 1 {
		t.Fatalf("create calls = %d, want 1", len(api.createCalls))
	}

	req := api.createCalls[0]
	if req.Text != "T" {
		t.Fatalf("text = %q, want title", req.Text)
	}
	if req.Poll == nil || req.Poll.DurationMinutes != 60 {
		t.Fatalf("poll block = %+v, want duration 60", req.Poll)
	}
	if req.Reply != nil || req.Media != nil {
		t.Fatalf("reply/media present on plain poll: %+v", req)
	}
}

func TestCreatePollWithImageBuildsReplyThread(t *testing.T) {
	t.Parallel()
	api := &stubAPI{}
	up := &stubUploader{id: "m-9"}
	c := newComposer(api, up)

	def := poll.Definition{
		Title:     "T",
		Options:   []string{"A", "B"},
		ImagePath: "./gopher.png",
		Hashtags:  []string{"polls"},
	}
	id, err := c.CreatePoll(context.Background(), def)
	if err != nil {
		t.Fatalf("CreatePoll: %v", err)
	}
	if id != "tweet-2" {
		t.Fatalf("id = %q, want the second tweet", id)
	}
	if up.calls != 1 || up.paths[0] != "./gopher.png" {
		t.Fatalf("upload calls = %d (%v)", up.calls, up.paths)
	}
	if len(api.createCalls) != 2 {
		t.Fatalf("create calls = %d, want 2", len(api.createCalls))
	}

	img := api.createCalls[0]
	if img.Text != "T #polls" {
		t.Fatalf("image tweet text = %q, want formatted title", img.Text)
	}
	if img.Media == nil || len(img.Media.MediaIDs) != 1 || img.Media.MediaIDs[0] != "m-9" {
		t.Fatalf("image tweet media = %+v", img.Media)
	}
	if img.Poll != nil {
		t.Fatal("image tweet carries a poll block")
	}

	pollReq := api.createCalls[1]
	if pollReq.Text != "please vote" {
		t.Fatalf("poll tweet text = %q, want fixed reply text", pollReq.Text)
	}
	if pollReq.Reply == nil || pollReq.Reply.InReplyToTweetID != "tweet-1" {
		t.Fatalf("poll tweet reply = %+v, want reply to image tweet", pollReq.Reply)
	}
	if pollReq.Poll == nil || len(pollReq.Poll.Options) != 2 {
		t.Fatalf("poll block = %+v", pollReq.Poll)
	}
}

func TestCreatePollValidationBeforeNetwork(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		def  poll.Definition
	}{
		{name: "no options", def: poll.Definition{Title: "T"}},
		{name: "too many options", def: poll.Definition{Title: "T", Options: []string{"A", "B", "C", "D", "E"}}},
		{name: "empty title", def: poll.Definition{Options: []string{"A", "B"}}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			api := &stubAPI{}
			c := newComposer(api, &stubUploader{})

			_, err := c.CreatePoll(context.Background(), tt.def)
			if !errors.Is(err, poll.ErrInvalidPollData) {
				t.Fatalf("got %v, want ErrInvalidPollData", err)
			}
			if len(api.createCalls) != 0 {
				t.Fatalf("create calls = %d, want 0", len(api.createCalls))
			}
		})
	}
}

func TestCreatePollPropagatesVerifyFailure(t *testing.T) {
	t.Parallel()
	api := &stubAPI{verifyErr: twitter.ErrInvalidCredentials}
	c := newComposer(api, &stubUploader{})

	_, err := c.CreatePoll(context.Background(), poll.Definition{Title: "T", Options: []string{"A", "B"}})
	if !errors.Is(err, twitter.ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials unchanged", err)
	}
	if len(api.createCalls) != 0 {
		t.Fatalf("create calls = %d, want 0", len(api.createCalls))
	}
}

func TestCreatePollStopsAfterUploadFailure(t *testing.T) {
	t.Parallel()
	api := &stubAPI{}
	up := &stubUploader{err: errors.New("disk gone")}
	c := newComposer(api, up)

	_, err := c.CreatePoll(context.Background(), poll.Definition{
		Title: "T", Options: []string{"A", "B"}, ImagePath: "x.png",
	})
	if err == nil {
		t.Fatal("expected upload error")
	}
	if len(api.createCalls) != 0 {
		t.Fatalf("create calls = %d, want 0", len(api.createCalls))
	}
}

func TestCreatePollPropagatesSubmitFailure(t *testing.T) {
	t.Parallel()
	rle := &twitter.RateLimitError{}
	api := &stubAPI{createErrs: []error{rle}}
	c := newComposer(api, &stubUploader{})

	_, err := c.CreatePoll(context.Background(), poll.Definition{Title: "T", Options: []string{"A", "B"}})
	var got *twitter.RateLimitError
	if !errors.As(err, &got) {
		t.Fatalf("got %v, want RateLimitError unchanged", err)
	}
}
