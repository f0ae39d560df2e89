// Package newsletter forwards subscription requests to a third-party inbox
// service that accepts embedded signup forms.
package newsletter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrInvalidEmail is returned for addresses that do not parse.
	ErrInvalidEmail = errors.New("newsletter: invalid email address")
	// ErrRejected is returned when the inbox service refuses the request.
	ErrRejected = errors.New("newsletter: subscription rejected")
)

// Client posts signup forms to Action.
type Client struct {
	Action string
	HTTP   *http.Client
}

// New creates a Client for the embed-subscribe endpoint action.
func New(action string) *Client {
	return &Client{
		Action: action,
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
			// The embed endpoint redirects to a confirmation page meant for
			// browsers; the redirect itself means success.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// ValidateEmail normalises and checks a bare email address.
func ValidateEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > 254 {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(addr.Address[strings.LastIndexByte(addr.Address, '@')+1:], ".") {
		return "", ErrInvalidEmail
	}
	return addr.Address, nil
}

// Subscribe submits email to the inbox service.
func (c *Client) Subscribe(ctx context.Context, email string) error {
	email, err := ValidateEmail(email)
	if err != nil {
		return err
	}
	form := url.Values{
		"email": {email},
		"embed": {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Action, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("newsletter: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("newsletter: post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}
	return nil
}
