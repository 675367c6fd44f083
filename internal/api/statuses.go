// ABOUTME: Direct-message timeline fetching and status posting/deletion
// ABOUTME: Paginates newest-first with max_id cursors and Link headers

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
)

// FetchDirectMessages returns one page of the direct-message timeline,
// newest first. maxID and sinceID are optional cursors; limit is capped
// server-side at DefaultPageLimit. The returned PageLinks come from the
// Link response header when the server sends one.
func (c *Client) FetchDirectMessages(ctx context.Context, maxID, sinceID string, limit int) ([]Status, *PageLinks, error) {
	q := url.Values{}
	if maxID != "" {
		q.Set("max_id", maxID)
	}
	if sinceID != "" {
		q.Set("since_id", sinceID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var statuses []Status
	header, err := c.get(ctx, "/api/v1/timelines/direct", q, &statuses)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching direct messages: %w", err)
	}

	links := ParseLinkHeader(header.Get("Link"))
	return statuses, links, nil
}

// PostStatusParams are the inputs for sending a status. Visibility
// defaults to direct; recipients are addressed by @-mentions inside the
// status text, as the protocol has no native DM addressing.
type PostStatusParams struct {
	Status      string
	InReplyToID string
	Visibility  string
	ContentType string

	// IdempotencyKey guards against double submission on retries. A
	// random key is generated when empty.
	IdempotencyKey string
}

// PostStatus publishes a status and returns the server's copy of it.
func (c *Client) PostStatus(ctx context.Context, params PostStatusParams) (*Status, error) {
	if params.Visibility == "" {
		params.Visibility = VisibilityDirect
	}
	if params.IdempotencyKey == "" {
		params.IdempotencyKey = uuid.New().String()
	}

	req := struct {
		Status      string `json:"status"`
		InReplyToID string `json:"in_reply_to_id,omitempty"`
		Visibility  string `json:"visibility"`
		ContentType string `json:"content_type,omitempty"`
	}{
		Status:      params.Status,
		InReplyToID: params.InReplyToID,
		Visibility:  params.Visibility,
		ContentType: params.ContentType,
	}

	extra := http.Header{}
	extra.Set("Idempotency-Key", params.IdempotencyKey)

	var status Status
	if _, err := c.do(ctx, http.MethodPost, "/api/v1/statuses", nil, extra, req, &status); err != nil {
		return nil, fmt.Errorf("posting status: %w", err)
	}

	c.logger.Debug("posted status", "id", status.ID, "visibility", status.Visibility)
	return &status, nil
}

// DeleteStatus deletes one of the authenticated account's own statuses.
func (c *Client) DeleteStatus(ctx context.Context, statusID string) error {
	if _, err := c.do(ctx, http.MethodDelete, "/api/v1/statuses/"+url.PathEscape(statusID), nil, nil, nil, nil); err != nil {
		return fmt.Errorf("deleting status %s: %w", statusID, err)
	}
	return nil
}
