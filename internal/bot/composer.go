// Package bot holds the posting orchestration: validate credentials,
// optionally upload an image, and publish the poll, as a reply thread
// when an image is involved.
package bot

import (
	"context"

	"pollbot/internal/history"
	"pollbot/internal/poll"
	"pollbot/internal/twitter"
	"pollbot/pkg/logx"
)

// replyText is the fixed body of a poll tweet that answers an image
// tweet. The title lives on the image tweet and is not repeated.
const replyText = "please vote"

// API is the slice of the platform client the composer needs.
type API interface {
	VerifyCredentials(ctx context.Context) (*twitter.User, error)
	CreateTweet(ctx context.Context, req twitter.TweetRequest) (string, error)
}

// Uploader turns an image path into a media handle.
type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
}

type Config struct {
	// DefaultDurationHours applies to definitions without a duration of
	// their own.
	DefaultDurationHours float64

	// History, when non-nil, receives a record per posted poll. Failures
	// there are logged and never fail the post.
	History *history.Store
}

type Composer struct {
	api      API
	uploader Uploader
	cfg      Config
	log      logx.Logger
}

func New(api API, uploader Uploader, cfg Config, log logx.Logger) *Composer {
	return &Composer{api: api, uploader: uploader, cfg: cfg, log: log}
}

// CreatePoll runs the full sequence and returns the poll tweet's id.
//
// Order matters: credentials are verified first (their failures propagate
// unchanged), validation happens before any posting side effect, and the
// image tweet is created before the poll tweet that replies to it.
func (c *Composer) CreatePoll(ctx context.Context, def poll.Definition) (string, error) {
	if _, err := c.api.VerifyCredentials(ctx); err != nil {
		return "", err
	}

	if err := def.Validate(); err != nil {
		c.logFailure(def, err)
		return "", err
	}

	durationMinutes := def.DurationMinutes(c.cfg.DefaultDurationHours)
	title := def.FormattedTitle()

	// Optional image leg: upload, then a plain tweet carrying the title
	// and the media. Its id becomes the poll tweet's reply target.
	var replyTo string
	if def.ImagePath != "" {
		mediaID, err := c.uploader.Upload(ctx, def.ImagePath)
		if err != nil {
			c.logFailure(def, err)
			return "", err
		}
		imageID, err := c.api.CreateTweet(ctx, twitter.TweetRequest{
			Text:  title,
			Media: &twitter.TweetMedia{MediaIDs: []string{mediaID}},
		})
		if err != nil {
			c.logFailure(def, err)
			return "", err
		}
		c.log.Info("image tweet created", logx.String("tweet_id", imageID))
		replyTo = imageID
	}

	req := twitter.TweetRequest{
		Text: title,
		Poll: &twitter.TweetPoll{
			Options:         def.Options,
			DurationMinutes: durationMinutes,
		},
	}
	if replyTo != "" {
		req.Text = replyText
		req.Reply = &twitter.TweetReply{InReplyToTweetID: replyTo}
	}

	tweetID, err := c.api.CreateTweet(ctx, req)
	if err != nil {
		c.logFailure(def, err)
		return "", err
	}

	c.log.Info("poll posted",
		logx.String("tweet_id", tweetID),
		logx.String("title", def.Title),
		logx.Int("options", len(def.Options)),
		logx.Int("duration_minutes", durationMinutes),
		logx.Bool("reply_thread", replyTo != ""))

	if err := c.cfg.History.Append(ctx, history.Record{
		TweetID:         tweetID,
		Title:           def.Title,
		OptionCount:     len(def.Options),
		DurationMinutes: durationMinutes,
		ReplyThread:     replyTo != "",
	}); err != nil {
		c.log.Warn("history append failed", logx.String("tweet_id", tweetID), logx.Err(err))
	}

	return tweetID, nil
}

func (c *Composer) logFailure(def poll.Definition, err error) {
	c.log.Error("poll creation failed",
		logx.String("title", def.Title),
		logx.Strings("options", def.Options),
		logx.Err(err))
}
