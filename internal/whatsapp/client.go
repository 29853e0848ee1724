package whatsapp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

const apiURL = "https://graph.facebook.com/v21.0"

type Client struct {
	baseURL       string
	phoneNumberID string
	accessToken   string
	http          *http.Client
}

type ClientOption func(*Client)

// WithBaseURL points the client at another Graph API host (tests, proxies).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

func NewClient(phoneNumberID, accessToken string, timeout time.Duration, opts ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		baseURL:       apiURL,
		phoneNumberID: phoneNumberID,
		accessToken:   accessToken,
		http:          &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SendText(ctx context.Context, to, body string) error {
	msg := SendMessageRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             &SendText{Body: body},
	}
	return c.send(ctx, msg)
}

// SendButtons sends a reply-button message. The API accepts at most 3 buttons.
// Reference: https://developers.facebook.com/docs/whatsapp/cloud-api/messages/interactive-reply-buttons-messages
func (c *Client) SendButtons(ctx context.Context, to, body string, buttons []Button) error {
	msg := SendMessageRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "interactive",
		Interactive: &Interactive{
			Type:   "button",
			Body:   InteractiveBody{Text: body},
			Action: InteractiveAction{Buttons: buttons},
		},
	}
	return c.send(ctx, msg)
}

func (c *Client) SendList(ctx context.Context, to, body, buttonText string, sections []Section) error {
	msg := SendMessageRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "interactive",
		Interactive: &Interactive{
			Type: "list",
			Body: InteractiveBody{Text: body},
			Action: InteractiveAction{
				Button:   buttonText,
				Sections: sections,
			},
		},
	}
	return c.send(ctx, msg)
}

func (c *Client) send(ctx context.Context, msg SendMessageRequest) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("whatsapp API status %d: %s", resp.StatusCode, respBody)
	}
	return nil
}
