package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/fanspace/fanspace-go/internal/models"
)

func (c *Client) Conversations(ctx context.Context) ([]models.Conversation, error) {
	var resp struct {
		Conversations []models.Conversation `json:"conversations"`
	}
	if err := c.do(ctx, http.MethodGet, "/conversations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

func (c *Client) ConversationUnreadCount(ctx context.Context) (int, error) {
	var resp countResponse
	if err := c.do(ctx, http.MethodGet, "/conversations/unread-count", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// Messages fetches one page of a conversation's history, newest-first, and
// the opaque cursor of the next (older) page. An empty cursor asks for the
// newest page; an empty returned cursor means the history is exhausted.
func (c *Client) Messages(ctx context.Context, conversationID, cursor string, limit int) ([]models.Message, string, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/conversations/" + conversationID + "/messages"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}

	var resp struct {
		Messages   []models.Message `json:"messages"`
		Pagination struct {
			Cursor string `json:"cursor"`
		} `json:"pagination"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, "", err
	}
	return resp.Messages, resp.Pagination.Cursor, nil
}

// StartConversation creates (or returns the existing) conversation with a
// recipient.
func (c *Client) StartConversation(ctx context.Context, recipientID string) (models.Conversation, error) {
	var resp struct {
		Conversation models.Conversation `json:"conversation"`
	}
	req := models.StartConversationRequest{RecipientID: recipientID}
	if err := c.do(ctx, http.MethodPost, "/conversations", req, &resp); err != nil {
		return models.Conversation{}, err
	}
	return resp.Conversation, nil
}

func (c *Client) SendMessage(ctx context.Context, conversationID string, req models.SendMessageRequest) (models.Message, error) {
	var resp struct {
		Message models.Message `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/conversations/"+conversationID+"/messages", req, &resp); err != nil {
		return models.Message{}, err
	}
	return resp.Message, nil
}

// MarkConversationRead marks the other side's messages read and lets the
// server fan out the receipts.
func (c *Client) MarkConversationRead(ctx context.Context, conversationID string) error {
	return c.do(ctx, http.MethodPost, "/conversations/"+conversationID+"/read", nil, nil)
}
