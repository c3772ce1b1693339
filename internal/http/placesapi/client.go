package placesapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/bwise1/forest_places/internal/metrics"
	"github.com/bwise1/forest_places/internal/model"
	"github.com/bwise1/forest_places/util/tracing"
	"github.com/bwise1/forest_places/util/values"
	json "github.com/goccy/go-json"
	"github.com/lucsky/cuid"
	"github.com/pkg/errors"
)

const (
	defaultBaseURL = "http://localhost:8080"
	maxErrorBody   = 64 << 10
)

// Client talks to the remote places service. It never retries.
type Client struct {
	BaseURL    *url.URL
	HTTPClient *http.Client

	// Token returns the bearer token to attach, or "" for anonymous calls.
	Token func() string
}

// NewClient creates a places API client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	return &Client{
		BaseURL: u,
		HTTPClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
	}, nil
}

func (c *Client) ListPlaces(ctx context.Context) ([]model.Place, error) {
	var places []model.Place
	if err := c.call(ctx, "list_places", http.MethodGet, "api/places", nil, "", &places); err != nil {
		return nil, err
	}
	return places, nil
}

// GetPlace returns ErrNotFound (via errors.Is) when the place does not exist.
func (c *Client) GetPlace(ctx context.Context, id int64) (*model.Place, error) {
	var place model.Place
	if err := c.call(ctx, "get_place", http.MethodGet, fmt.Sprintf("api/places/%d", id), nil, "", &place); err != nil {
		return nil, err
	}
	return &place, nil
}

func (c *Client) CreatePlace(ctx context.Context, req model.CreatePlaceRequest) (*model.Place, error) {
	req.Normalize()
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "encode place")
	}
	var place model.Place
	if err := c.call(ctx, "create_place", http.MethodPost, "api/places", bytes.NewReader(body), "application/json", &place); err != nil {
		return nil, err
	}
	return &place, nil
}

// UploadImage sends one file as the multipart field "file".
func (c *Client) UploadImage(ctx context.Context, placeID int64, file model.PendingUpload) (*model.PlaceImage, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.FileName))
	h.Set("Content-Type", file.ContentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, errors.Wrap(err, "create multipart part")
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, errors.Wrap(err, "write multipart part")
	}
	if err := mw.Close(); err != nil {
		return nil, errors.Wrap(err, "close multipart writer")
	}

	var image model.PlaceImage
	path := fmt.Sprintf("api/places/%d/images", placeID)
	if err := c.call(ctx, "upload_image", http.MethodPost, path, &buf, mw.FormDataContentType(), &image); err != nil {
		return nil, err
	}
	return &image, nil
}

func (c *Client) ListMushroomTypes(ctx context.Context) ([]model.MushroomType, error) {
	var types []model.MushroomType
	if err := c.call(ctx, "list_mushroom_types", http.MethodGet, "api/mushroom-types", nil, "", &types); err != nil {
		return nil, err
	}
	return types, nil
}

func (c *Client) Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error) {
	return c.auth(ctx, "login", req)
}

func (c *Client) Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResponse, error) {
	return c.auth(ctx, "register", req)
}

func (c *Client) auth(ctx context.Context, action string, payload interface{}) (*model.AuthResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s request", action)
	}
	var resp model.AuthResponse
	if err := c.call(ctx, action, http.MethodPost, "api/auth/"+action, bytes.NewReader(body), "application/json", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchImage downloads image bytes. Relative URLs resolve against BaseURL.
func (c *Client) FetchImage(ctx context.Context, rawURL string) ([]byte, string, error) {
	ref, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", errors.Wrap(err, "parse image url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL.ResolveReference(ref).String(), nil)
	if err != nil {
		return nil, "", errors.Wrap(err, "create request")
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		metrics.RecordAPICall("fetch_image", time.Since(start), err)
		return nil, "", errors.Wrap(err, "execute HTTP request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newAPIError(req, resp)
		metrics.RecordAPICall("fetch_image", time.Since(start), apiErr)
		return nil, "", apiErr
	}
	data, err := io.ReadAll(resp.Body)
	metrics.RecordAPICall("fetch_image", time.Since(start), err)
	if err != nil {
		return nil, "", errors.Wrap(err, "read image body")
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) call(ctx context.Context, op, method, path string, body io.Reader, contentType string, v interface{}) error {
	rel, err := url.Parse(path)
	if err != nil {
		return errors.Wrap(err, "parse endpoint")
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL.ResolveReference(rel).String(), body)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	err = c.do(req, v)
	metrics.RecordAPICall(op, time.Since(start), err)
	return err
}

func (c *Client) do(req *http.Request, v interface{}) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set(values.HeaderRequestID, requestID(req.Context()))
	if c.Token != nil {
		if token := c.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "execute HTTP request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(req, resp)
	}

	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil && err != io.EOF {
			return errors.Wrap(err, "decode response")
		}
	}
	return nil
}

// requestID forwards the tracing id of the bridge request when there is one.
func requestID(ctx context.Context) string {
	if tc, ok := ctx.Value(values.ContextTracingKey).(tracing.Context); ok && tc.RequestID != "" {
		return tc.RequestID
	}
	return cuid.New()
}
