// Package client is a Go client for the Meetly HTTP API. A Client attaches
// the bearer token held by its Session to every call and decodes error
// bodies into *APIError.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client calls the Meetly API.
type Client struct {
	baseURL string
	http    *http.Client
	session *Session
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSession shares a session between clients.
func WithSession(s *Session) Option {
	return func(c *Client) { c.session = s }
}

// New creates a Client for the API rooted at baseURL, e.g.
// "https://api.meetly.example".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		session: NewSession(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *Session {
	return c.session
}

// Register creates an account and signs the session in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var res AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", false, req, &res); err != nil {
		return nil, err
	}
	c.session.set(&res)
	return &res, nil
}

// Login signs the session in.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	body := map[string]string{"email": email, "password": password}

	var res AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", false, body, &res); err != nil {
		return nil, err
	}
	c.session.set(&res)
	return &res, nil
}

// Logout drops the token. Tokens are stateless, so the server is not called.
func (c *Client) Logout() {
	c.session.Clear()
}

// ListMeetings returns every meeting.
func (c *Client) ListMeetings(ctx context.Context) ([]Meeting, error) {
	var res []Meeting
	err := c.do(ctx, http.MethodGet, "/api/meeting", true, nil, &res)
	return res, err
}

// MyMeetings returns the meetings the signed-in user created.
func (c *Client) MyMeetings(ctx context.Context) ([]Meeting, error) {
	var res []Meeting
	err := c.do(ctx, http.MethodGet, "/api/meeting/my-meetings", true, nil, &res)
	return res, err
}

// GetMeeting fetches one meeting by id.
func (c *Client) GetMeeting(ctx context.Context, id string) (*Meeting, error) {
	var res Meeting
	if err := c.do(ctx, http.MethodGet, "/api/meeting/"+url.PathEscape(id), true, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// JoinMeeting resolves a public join link. No session is needed.
func (c *Client) JoinMeeting(ctx context.Context, linkID string) (*Meeting, error) {
	var res Meeting
	if err := c.do(ctx, http.MethodGet, "/api/meeting/join/"+url.PathEscape(linkID), false, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CreateMeeting schedules a meeting owned by the signed-in user.
func (c *Client) CreateMeeting(ctx context.Context, req MeetingRequest) (*Meeting, error) {
	var res Meeting
	if err := c.do(ctx, http.MethodPost, "/api/meeting", true, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UpdateMeeting replaces the editable fields of a meeting.
func (c *Client) UpdateMeeting(ctx context.Context, id string, req MeetingRequest) error {
	return c.do(ctx, http.MethodPut, "/api/meeting", true, updateMeetingRequest{ID: id, MeetingRequest: req}, nil)
}

// CancelMeeting marks a meeting canceled. The server purges canceled
// meetings in its nightly sweep.
func (c *Client) CancelMeeting(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/meeting/"+url.PathEscape(id), true, nil, nil)
}

// HardDeleteMeeting removes a meeting outright. Admin only.
func (c *Client) HardDeleteMeeting(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/meeting/hard/"+url.PathEscape(id), true, nil, nil)
}

// Invite emails the join link to each address.
func (c *Client) Invite(ctx context.Context, meetingID string, emails []string) (*InviteResult, error) {
	var res InviteResult
	body := inviteRequest{MeetingID: meetingID, EmailList: emails}
	if err := c.do(ctx, http.MethodPost, "/api/meeting/invite", true, body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Invitations lists the invite batches of a meeting the caller owns,
// newest first.
func (c *Client) Invitations(ctx context.Context, meetingID string) ([]InvitationRecord, error) {
	var res []InvitationRecord
	if err := c.do(ctx, http.MethodGet, "/api/meeting/"+url.PathEscape(meetingID)+"/invitations", true, nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// UploadPhoto stores a profile photo before registration and returns its
// path for RegisterRequest.PhotoPath.
func (c *Client) UploadPhoto(ctx context.Context, filename string, r io.Reader) (string, error) {
	return c.upload(ctx, "/api/filestorage/photo-upload", false, filename, r)
}

// UploadDocument stores a meeting attachment and returns its path for
// MeetingRequest.FilePath.
func (c *Client) UploadDocument(ctx context.Context, filename string, r io.Reader) (string, error) {
	return c.upload(ctx, "/api/filestorage/document-upload", true, filename, r)
}

// GetFile downloads a stored file. The caller closes the reader.
func (c *Client) GetFile(ctx context.Context, path string) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/filestorage/get-file?path="+url.QueryEscape(path), true, nil, "")
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()
		return nil, decodeAPIError(resp)
	}
	return resp.Body, nil
}

func (c *Client) upload(ctx context.Context, path string, authed bool, filename string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, authed, &buf, mw.FormDataContentType())
	if err != nil {
		return "", err
	}

	var res fileUploadResponse
	if err := c.send(req, &res); err != nil {
		return "", err
	}
	return res.Path, nil
}

// do sends a JSON request. out may be nil for bodiless answers.
func (c *Client) do(ctx context.Context, method, path string, authed bool, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := c.newRequest(ctx, method, path, authed, body, contentType)
	if err != nil {
		return err
	}
	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, authed bool, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if authed {
		token := c.session.Token()
		if token == "" {
			return nil, ErrNoSession
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var body errorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		apiErr.Code = body.Code
		apiErr.Message = body.Error
	}
	return apiErr
}
