// Package twitter is a thin client for the platform's REST API: identity
// lookup (v2), tweet creation (v2) and media upload (v1.1), all signed
// with OAuth 1.0a user context.
package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"pollbot/internal/config"
	"pollbot/pkg/logx"

	"github.com/dghubble/oauth1"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	defaultAPIBaseURL    = "https://api.twitter.com"
	defaultUploadBaseURL = "https://upload.twitter.com"
)

type Client struct {
	api    *resty.Client
	upload *resty.Client

	// limiter paces outgoing calls so bursts of scheduled polls don't
	// trip the per-endpoint quotas immediately.
	limiter *rate.Limiter
	log     logx.Logger
}

type Option func(*Client)

// WithBaseURLs overrides the API and upload hosts (tests).
func WithBaseURLs(api, upload string) Option {
	return func(c *Client) {
		c.api.SetBaseURL(api)
		c.upload.SetBaseURL(upload)
	}
}

// WithRateLimiter replaces the client-side pacing limiter.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

func NewClient(creds config.Credentials, log logx.Logger, opts ...Option) *Client {
	oc := oauth1.NewConfig(creds.APIKey, creds.APISecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)
	hc := oc.Client(oauth1.NoContext, token)

	c := &Client{
		api:     resty.NewWithClient(hc).SetBaseURL(defaultAPIBaseURL),
		upload:  resty.NewWithClient(hc).SetBaseURL(defaultUploadBaseURL),
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// VerifyCredentials calls the "who am I" endpoint. 401 and 403 map to the
// sentinel auth errors; anything else unexpected surfaces as RemoteError.
func (c *Client) VerifyCredentials(ctx context.Context) (*User, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var out struct {
		Data User `json:"data"`
	}
	resp, err := c.api.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/2/users/me")
	if err != nil {
		return nil, fmt.Errorf("verify credentials: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusUnauthorized:
		return nil, ErrInvalidCredentials
	case resp.StatusCode() == http.StatusForbidden:
		return nil, ErrInsufficientPermissions
	case resp.IsError():
		return nil, c.remoteError(resp)
	}

	c.log.Info("credentials verified",
		logx.String("user_id", out.Data.ID),
		logx.String("username", out.Data.Username))
	return &out.Data, nil
}

// CreateTweet posts a tweet and returns its id. 429 becomes
// RateLimitError, 403 the permissions sentinel, everything else
// RemoteError with the upstream code/message/rate-limit metadata.
func (c *Client) CreateTweet(ctx context.Context, req TweetRequest) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	var out struct {
		Data struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"data"`
	}
	resp, err := c.api.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&out).
		Post("/2/tweets")
	if err != nil {
		return "", fmt.Errorf("create tweet: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusTooManyRequests:
		return "", &RateLimitError{RateLimit: rateLimitFrom(resp)}
	case http.StatusForbidden:
		return "", ErrInsufficientPermissions
	}
	if resp.IsError() {
		return "", c.remoteError(resp)
	}
	if out.Data.ID == "" {
		return "", fmt.Errorf("create tweet: response carries no tweet id")
	}
	return out.Data.ID, nil
}

// UploadMedia sends raw image bytes and returns the media handle the
// service assigns. Size limits are the remote side's business.
func (c *Client) UploadMedia(ctx context.Context, data []byte, contentType string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	var out struct {
		MediaIDString string `json:"media_id_string"`
	}
	resp, err := c.upload.R().
		SetContext(ctx).
		SetMultipartField("media", "media", contentType, bytes.NewReader(data)).
		SetResult(&out).
		Post("/1.1/media/upload.json")
	if err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusUnauthorized:
		return "", ErrInvalidCredentials
	case http.StatusForbidden:
		return "", ErrInsufficientPermissions
	case http.StatusTooManyRequests:
		return "", &RateLimitError{RateLimit: rateLimitFrom(resp)}
	}
	if resp.IsError() {
		return "", c.remoteError(resp)
	}
	if out.MediaIDString == "" {
		return "", fmt.Errorf("upload media: response carries no media id")
	}
	return out.MediaIDString, nil
}

// remoteError builds a RemoteError from a non-2xx response, best-effort
// decoding both the v2 ({title,detail}) and v1.1 ({errors:[{code,message}]})
// error shapes.
func (c *Client) remoteError(resp *resty.Response) error {
	re := &RemoteError{
		StatusCode: resp.StatusCode(),
		RateLimit:  rateLimitFrom(resp),
	}

	var body struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Errors []struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		re.Title = body.Title
		re.Detail = body.Detail
		if len(body.Errors) > 0 {
			re.Code = body.Errors[0].Code
			if re.Detail == "" {
				re.Detail = body.Errors[0].Message
			}
		}
	}
	return re
}

func rateLimitFrom(resp *resty.Response) RateLimit {
	rl := RateLimit{}
	rl.Limit, _ = strconv.Atoi(resp.Header().Get("x-rate-limit-limit"))
	rl.Remaining, _ = strconv.Atoi(resp.Header().Get("x-rate-limit-remaining"))
	if sec, err := strconv.ParseInt(resp.Header().Get("x-rate-limit-reset"), 10, 64); err == nil && sec > 0 {
		rl.Reset = time.Unix(sec, 0)
	}
	return rl
}
