// Package backend provides a client for the tunemap REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/osa030/tunemap/internal/domain/track"
	"github.com/osa030/tunemap/internal/domain/user"
)

// Config represents backend client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Token   string // Bearer token; empty for anonymous calls
}

// Client is a tunemap REST API client.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	authorized bool
}

// TrackInput describes a track to publish without a file.
type TrackInput struct {
	Title     string `validate:"required,max=200"`
	Artist    string `validate:"required,max=200"`
	Genre     string `validate:"required,max=100"`
	SpotifyID string `validate:"omitempty,alphanum,len=22"`
	Locator   string
}

// UploadInput describes an audio file to publish.
type UploadInput struct {
	FileName    string
	ContentType string
	Content     io.Reader
	Title       string // optional; backend defaults to the file stem
	Artist      string // optional
	Genre       string // optional
}

// New creates a new backend client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("backend base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, errors.Wrap(err, "invalid backend base URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
	}
	c.httpClient = c.newHTTPClient(cfg.Token)
	c.authorized = cfg.Token != ""
	return c, nil
}

// WithToken returns a copy of the client that sends the given bearer token.
func (c *Client) WithToken(token string) *Client {
	return &Client{
		baseURL:    c.baseURL,
		timeout:    c.timeout,
		httpClient: c.newHTTPClient(token),
		authorized: token != "",
	}
}

// Authorized reports whether the client carries a token.
func (c *Client) Authorized() bool {
	return c.authorized
}

// newHTTPClient returns an HTTP client that injects the bearer token.
func (c *Client) newHTTPClient(token string) *http.Client {
	if token == "" {
		return &http.Client{Timeout: c.timeout}
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: c.timeout})
	hc := oauth2.NewClient(ctx, ts)
	hc.Timeout = c.timeout
	return hc
}

// Login exchanges credentials for an access token using the password grant
// on /token.
func (c *Client) Login(ctx context.Context, username, password string) (*oauth2.Token, error) {
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}

	conf := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.baseURL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: c.timeout})

	token, err := conf.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return nil, newAPIError(re.Response.StatusCode, re.Body)
		}
		return nil, errors.Wrap(err, "failed to obtain token")
	}
	return token, nil
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, username, password string) (*user.User, error) {
	body, err := json.Marshal(registerRequest{Username: username, Password: password})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode request")
	}
	var resp userResponse
	if err := c.do(ctx, http.MethodPost, "/users/", nil, bytes.NewReader(body), "application/json", &resp); err != nil {
		return nil, err
	}
	return resp.toUser(), nil
}

// CurrentUser returns the authenticated user.
func (c *Client) CurrentUser(ctx context.Context) (*user.User, error) {
	var resp userResponse
	if err := c.do(ctx, http.MethodGet, "/users/me/", nil, nil, "", &resp); err != nil {
		return nil, err
	}
	return resp.toUser(), nil
}

// NearbyUsers lists users within radiusKm of the coordinate.
func (c *Client) NearbyUsers(ctx context.Context, loc user.Location, radiusKm float64) ([]*user.User, error) {
	params := coordinates(loc)
	if radiusKm > 0 {
		params.Set("radius_km", strconv.FormatFloat(radiusKm, 'f', -1, 64))
	}

	var resp []userResponse
	if err := c.do(ctx, http.MethodGet, "/users/nearby/", params, nil, "", &resp); err != nil {
		return nil, err
	}

	users := make([]*user.User, 0, len(resp))
	for _, u := range resp {
		users = append(users, u.toUser())
	}
	return users, nil
}

// UpdateLocation stores the authenticated user's position.
func (c *Client) UpdateLocation(ctx context.Context, loc user.Location) (*user.User, error) {
	var resp userResponse
	if err := c.do(ctx, http.MethodPut, "/users/location/", coordinates(loc), nil, "", &resp); err != nil {
		return nil, err
	}
	return resp.toUser(), nil
}

// ListTracks returns the authenticated user's tracks.
func (c *Client) ListTracks(ctx context.Context) ([]track.Track, error) {
	var resp []trackResponse
	if err := c.do(ctx, http.MethodGet, "/users/music/", nil, nil, "", &resp); err != nil {
		return nil, err
	}
	return toTracks(resp), nil
}

// CreateTrack publishes a track described by metadata only.
func (c *Client) CreateTrack(ctx context.Context, in TrackInput) (track.Track, error) {
	body, err := json.Marshal(trackRequest{
		TrackName:  in.Title,
		ArtistName: in.Artist,
		Genre:      in.Genre,
		SpotifyID:  optional(in.SpotifyID),
		FilePath:   optional(in.Locator),
	})
	if err != nil {
		return track.Track{}, errors.Wrap(err, "failed to encode request")
	}

	var resp trackResponse
	if err := c.do(ctx, http.MethodPost, "/users/music/", nil, bytes.NewReader(body), "application/json", &resp); err != nil {
		return track.Track{}, err
	}
	return resp.toTrack(), nil
}

// UploadTrack publishes an audio file as a multipart form.
func (c *Client) UploadTrack(ctx context.Context, in UploadInput) (track.Track, error) {
	if in.Content == nil || in.FileName == "" {
		return track.Track{}, errors.New("file name and content are required")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, in.FileName))
	header.Set("Content-Type", in.ContentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return track.Track{}, errors.Wrap(err, "failed to create file part")
	}
	if _, err := io.Copy(part, in.Content); err != nil {
		return track.Track{}, errors.Wrap(err, "failed to write file part")
	}

	fields := []struct{ name, value string }{
		{"track_name", in.Title},
		{"artist_name", in.Artist},
		{"genre", in.Genre},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := w.WriteField(f.name, f.value); err != nil {
			return track.Track{}, errors.Wrapf(err, "failed to write field %s", f.name)
		}
	}
	if err := w.Close(); err != nil {
		return track.Track{}, errors.Wrap(err, "failed to close multipart writer")
	}

	var resp trackResponse
	if err := c.do(ctx, http.MethodPost, "/users/music/upload/", nil, &buf, w.FormDataContentType(), &resp); err != nil {
		return track.Track{}, err
	}
	return resp.toTrack(), nil
}

// DeleteTrack removes one of the authenticated user's tracks.
func (c *Client) DeleteTrack(ctx context.Context, id string) (track.Track, error) {
	if id == "" {
		return track.Track{}, errors.New("track id is required")
	}

	var resp trackResponse
	if err := c.do(ctx, http.MethodDelete, "/users/music/"+url.PathEscape(id), nil, nil, "", &resp); err != nil {
		return track.Track{}, err
	}
	return resp.toTrack(), nil
}

// do sends a request and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body io.Reader, contentType string, out any) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	zlog.Debug().Msgf("backend: %s %s -> %d", method, path, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, respBody)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	return nil
}

func coordinates(loc user.Location) url.Values {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	return params
}
