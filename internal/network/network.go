// Package network speaks the Audioscrobbler 1.2 wire protocol: the
// handshake that opens a session and the now-playing and submission posts
// against the URLs the handshake returns.
package network

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jlieth/legacy-scrobbler-go/internal/listen"
)

const (
	// ClientID is the client identifier sent with the handshake.
	ClientID = "legacy"

	// ClientVersion is the client version sent with the handshake.
	ClientVersion = "0.1"

	// protocolVersion is the submission protocol version.
	protocolVersion = "1.2"
)

// Client holds the credentials for one scrobble network and the session
// state of the current connection.
type Client struct {
	// Name identifies the network in logs (e.g. "last.fm").
	Name string

	username     string
	passwordHash string
	handshakeURL string

	session       string
	nowPlayingURL string
	submissionURL string

	http *http.Client
	now  func() time.Time
}

// NewClient creates a protocol client. passwordHash is the lowercase hex
// md5 of the account password, never the password itself.
func NewClient(name, username, passwordHash, handshakeURL string) *Client {
	return &Client{
		Name:         name,
		username:     username,
		passwordHash: passwordHash,
		handshakeURL: handshakeURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		now: time.Now,
	}
}

// SetHTTPClient replaces the HTTP client. Intended for tests.
func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.http = client
	}
}

// SetClock replaces the time source used for the auth token. Intended
// for tests.
func (c *Client) SetClock(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}

// Session returns the current session id, empty when no session exists.
func (c *Client) Session() string {
	return c.session
}

// HasSession reports whether a handshake has succeeded.
func (c *Client) HasSession() bool {
	return c.session != ""
}

// ResetSession drops the current session so the next Handshake starts
// fresh. Called when the server answers BADSESSION.
func (c *Client) ResetSession() {
	c.session = ""
}

// Handshake opens a session. On success the session id and the request
// URLs for now-playing and submission are stored on the client.
//
// BANNED, BADAUTH and BADTIME answers surface as the matching fatal
// sentinel errors. Non-200 responses and anything outside the protocol
// surface as ErrHardFailure.
func (c *Client) Handshake(ctx context.Context) error {
	timestamp := fmt.Sprintf("%d", c.now().Unix())
	token := md5.Sum([]byte(c.passwordHash + timestamp))

	params := url.Values{
		"hs": {"true"},
		"p":  {protocolVersion},
		"c":  {ClientID},
		"v":  {ClientVersion},
		"u":  {c.username},
		"t":  {timestamp},
		"a":  {fmt.Sprintf("%x", token)},
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.handshakeURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create handshake request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return err
	}

	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
	switch {
	case len(lines) >= 4 && lines[0] == "OK":
		c.session = lines[1]
		c.nowPlayingURL = lines[2]
		c.submissionURL = lines[3]
		return nil
	case lines[0] == "BANNED":
		return ErrBanned
	case strings.HasPrefix(lines[0], "BADAUTH"):
		return ErrBadAuth
	case strings.HasPrefix(lines[0], "BADTIME"):
		return ErrBadTime
	default:
		return hardFailure("unexpected handshake response: %q", body)
	}
}

// NowPlaying notifies the server about the currently playing track.
func (c *Client) NowPlaying(ctx context.Context, l listen.Listen) error {
	if !c.HasSession() {
		return ErrNoSession
	}

	params := l.NowPlayingParams()
	params.Set("s", c.session)

	return c.post(ctx, c.nowPlayingURL, params)
}

// Submit scrobbles a batch of listens. The protocol allows at most 50
// listens per request; callers are expected to slice accordingly.
func (c *Client) Submit(ctx context.Context, listens ...listen.Listen) error {
	if !c.HasSession() {
		return ErrNoSession
	}
	if len(listens) == 0 {
		return ErrNoListens
	}

	params := url.Values{"s": {c.session}}
	for i, l := range listens {
		for key, vals := range l.SubmitParams(i) {
			params[key] = vals
		}
	}

	return c.post(ctx, c.submissionURL, params)
}

// post sends a form-encoded request and interprets the protocol answer:
// OK is success, BADSESSION invalidates the session, everything else is
// a hard failure.
func (c *Client) post(ctx context.Context, target string, params url.Values) error {
	req, err := http.NewRequestWithContext(ctx, "POST", target, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(req)
	if err != nil {
		return err
	}

	switch {
	case strings.HasPrefix(body, "OK"):
		return nil
	case strings.HasPrefix(body, "BADSESSION"):
		return ErrBadSession
	default:
		return hardFailure("unexpected response: %q", body)
	}
}

// do executes the request and returns the response body. Transport errors
// map to ErrRequestFailed, non-200 statuses to ErrHardFailure.
func (c *Client) do(req *http.Request) (string, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", ErrRequestFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", hardFailure("status %d", resp.StatusCode)
	}
	return string(body), nil
}
