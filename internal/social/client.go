package social

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dghubble/oauth1"
	"go.uber.org/zap"

	"trade-alert-relay/internal/config"
	"trade-alert-relay/internal/restclient"
)

// Post is a published status.
type Post struct {
	ID   string
	Text string
}

type status struct {
	IDStr    string `json:"id_str"`
	Text     string `json:"text"`
	FullText string `json:"full_text"`
}

func (s status) post() Post {
	text := s.FullText
	if text == "" {
		text = s.Text
	}
	return Post{ID: s.IDStr, Text: text}
}

// ClientInterface defines the social API operations used by the Poster.
type ClientInterface interface {
	// Publish posts text, as a reply to inReplyTo when it is not empty.
	Publish(ctx context.Context, text, inReplyTo string) (Post, error)
	// Timeline returns one page of the account's posts, newest first, older
	// than or equal to maxID when maxID is not empty.
	Timeline(ctx context.Context, maxID string, count int) ([]Post, error)
}

// Client talks to the v1.1 statuses API.
type Client struct {
	rest       *restclient.Client
	screenName string
	logger     *zap.Logger
}

// ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a Client whose requests are signed with the configured
// OAuth1 consumer and access credentials.
func NewClient(cfg *config.Social, httpCfg *config.HTTP, logger *zap.Logger) *Client {
	oauthCfg := oauth1.NewConfig(cfg.ConsumerKey, cfg.ConsumerSecret)
	token := oauth1.NewToken(cfg.AccessToken, cfg.AccessSecret)
	httpClient := oauthCfg.Client(oauth1.NoContext, token)

	l := logger.Named("social")
	return NewClientWithRest(restclient.New(cfg.BaseURL, httpCfg, httpClient, l), cfg.ScreenName, l)
}

// NewClientWithRest creates a Client on top of an existing rest client.
func NewClientWithRest(rest *restclient.Client, screenName string, logger *zap.Logger) *Client {
	return &Client{rest: rest, screenName: screenName, logger: logger}
}

// Publish posts a status.
func (c *Client) Publish(ctx context.Context, text, inReplyTo string) (Post, error) {
	form := map[string]string{"status": text}
	if inReplyTo != "" {
		form["in_reply_to_status_id"] = inReplyTo
	}
	req := c.rest.R(ctx).
		SetFormData(form).
		SetResult(&status{})

	const path = "/statuses/update.json"
	resp, err := c.rest.Do(ctx, http.MethodPost, path, req)
	if err != nil {
		return Post{}, fmt.Errorf("failed to publish post: %w", err)
	}

	s := resp.Result().(*status)
	if s.IDStr == "" {
		err := errors.New("no id_str in response")
		return Post{}, fmt.Errorf("failed to publish post: %w", restclient.Malformed(http.MethodPost, path, resp, err))
	}
	p := s.post()
	if p.Text == "" {
		p.Text = text
	}
	return p, nil
}

// Timeline reads one page of the account's own timeline in full-text mode.
func (c *Client) Timeline(ctx context.Context, maxID string, count int) ([]Post, error) {
	params := map[string]string{
		"count":       strconv.Itoa(count),
		"tweet_mode":  "extended",
		"include_rts": "false",
	}
	if c.screenName != "" {
		params["screen_name"] = c.screenName
	}
	if maxID != "" {
		params["max_id"] = maxID
	}
	req := c.rest.R(ctx).
		SetQueryParams(params).
		SetResult(&[]status{})

	const path = "/statuses/user_timeline.json"
	resp, err := c.rest.Do(ctx, http.MethodGet, path, req)
	if err != nil {
		return nil, fmt.Errorf("failed to read timeline: %w", err)
	}

	statuses := *resp.Result().(*[]status)
	posts := make([]Post, 0, len(statuses))
	for _, s := range statuses {
		posts = append(posts, s.post())
	}
	return posts, nil
}
