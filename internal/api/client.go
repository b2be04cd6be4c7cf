package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"github.com/jameshendricken/iot-dashboard/internal/obs"
)

// Client is a typed HTTP client for the remote dispensing backend. Every
// call is a single request with an explicit timeout, no retries, no
// batching. The backend authenticates via cookies, so the client keeps a
// cookie jar for the lifetime of the process.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the backend at baseURL. A trailing slash on
// baseURL is tolerated.
func New(baseURL string, timeout time.Duration) *Client {
	jar, _ := cookiejar.New(nil)
	for len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
	}
}

// Ping performs a lightweight reachability check against the backend by
// listing devices and discarding the result.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Devices(ctx)
	return err
}

// ── Auth ────────────────────────────────────────────────────────────────

// Login submits credentials and returns the identity the backend vouches
// for. A non-success status comes back as *APIError with the backend's
// detail message.
func (c *Client) Login(ctx context.Context, email, password string) (*Identity, error) {
	var id Identity
	body := map[string]string{"email": email, "password": password}
	if err := c.send(ctx, http.MethodPost, "/login", nil, body, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

// Register creates an account and logs it in; the success shape matches Login.
func (c *Client) Register(ctx context.Context, name, email, password string) (*Identity, error) {
	var id Identity
	body := map[string]string{"name": name, "email": email, "password": password}
	if err := c.send(ctx, http.MethodPost, "/register", nil, body, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

// ResetPassword asks the backend to mail a reset link.
func (c *Client) ResetPassword(ctx context.Context, email string) error {
	return c.send(ctx, http.MethodPost, "/reset-password", nil, map[string]string{"email": email}, nil)
}

// ── Catalogs ────────────────────────────────────────────────────────────

// Devices lists the devices visible to the current session.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	var out []Device
	if err := c.send(ctx, http.MethodGet, "/devices", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AdminDevices lists every device across organisations (admin only).
func (c *Client) AdminDevices(ctx context.Context) ([]Device, error) {
	var out []Device
	if err := c.send(ctx, http.MethodGet, "/admindevices", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Units lists the dispensing units visible to the current session.
func (c *Client) Units(ctx context.Context) ([]Unit, error) {
	var out []Unit
	if err := c.send(ctx, http.MethodGet, "/units", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ── Telemetry ───────────────────────────────────────────────────────────

// Readings fetches raw readings for one device within [start, end].
func (c *Client) Readings(ctx context.Context, deviceID string, start, end time.Time) ([]Reading, error) {
	q := url.Values{}
	q.Set("start", start.UTC().Format(time.RFC3339))
	q.Set("end", end.UTC().Format(time.RFC3339))
	var out []Reading
	if err := c.send(ctx, http.MethodGet, "/data/"+url.PathEscape(deviceID), q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Summary fetches the server-computed total volume for one device.
func (c *Client) Summary(ctx context.Context, deviceID string, start, end time.Time) (float64, error) {
	q := url.Values{}
	q.Set("start", start.UTC().Format(time.RFC3339))
	q.Set("end", end.UTC().Format(time.RFC3339))
	var out struct {
		TotalVolume float64 `json:"total_volume"`
	}
	if err := c.send(ctx, http.MethodGet, "/data/"+url.PathEscape(deviceID)+"/summary", q, nil, &out); err != nil {
		return 0, err
	}
	return out.TotalVolume, nil
}

// Histogram fetches the server-computed daily histogram for one device.
func (c *Client) Histogram(ctx context.Context, deviceID string, start, end time.Time) ([]HistogramPoint, error) {
	q := url.Values{}
	q.Set("start", start.UTC().Format(time.RFC3339))
	q.Set("end", end.UTC().Format(time.RFC3339))
	q.Set("interval", "day")
	var out []HistogramPoint
	if err := c.send(ctx, http.MethodGet, "/data/"+url.PathEscape(deviceID)+"/histogram", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UnitReadings fetches raw readings for one unit. The endpoint wraps the
// list in a {data: [...]} envelope.
func (c *Client) UnitReadings(ctx context.Context, unitID int64, from, to time.Time, limit int) ([]Reading, error) {
	q := url.Values{}
	q.Set("unitId", strconv.FormatInt(unitID, 10))
	q.Set("from", from.UTC().Format(time.RFC3339))
	q.Set("to", to.UTC().Format(time.RFC3339))
	q.Set("limit", strconv.Itoa(limit))
	var out struct {
		Data []Reading `json:"data"`
	}
	if err := c.send(ctx, http.MethodGet, "/unit/data/raw", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ── CRUD ────────────────────────────────────────────────────────────────

// Organisations lists all organisations.
func (c *Client) Organisations(ctx context.Context) ([]Organisation, error) {
	var out []Organisation
	if err := c.send(ctx, http.MethodGet, "/organisations", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Organisation fetches a single organisation's detail record.
func (c *Client) Organisation(ctx context.Context, id int64) (*Organisation, error) {
	var out Organisation
	if err := c.send(ctx, http.MethodGet, "/organisations/"+strconv.FormatInt(id, 10), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrganisation creates an organisation; the returned record carries
// the server-assigned ID.
func (c *Client) CreateOrganisation(ctx context.Context, name string, notes *string) (*Organisation, error) {
	var out Organisation
	body := map[string]any{"name": name, "notes": notes}
	if err := c.send(ctx, http.MethodPost, "/organisations", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateOrganisation saves an edited organisation and returns the canonical
// record.
func (c *Client) UpdateOrganisation(ctx context.Context, id int64, name string, notes *string) (*Organisation, error) {
	var out Organisation
	body := map[string]any{"name": name, "notes": notes}
	if err := c.send(ctx, http.MethodPut, "/organisations/"+strconv.FormatInt(id, 10), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Users lists all user accounts (admin only).
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var out []User
	if err := c.send(ctx, http.MethodGet, "/users", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateUser saves an edited user and returns the canonical record.
func (c *Client) UpdateUser(ctx context.Context, u User) (*User, error) {
	var out User
	if err := c.send(ctx, http.MethodPut, "/users/"+strconv.FormatInt(u.ID, 10), nil, u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Roles lists the assignable roles.
func (c *Client) Roles(ctx context.Context) ([]Role, error) {
	var out []Role
	if err := c.send(ctx, http.MethodGet, "/roles", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateDevice saves an edited device and returns the canonical record.
func (c *Client) UpdateDevice(ctx context.Context, d Device) (*Device, error) {
	var out Device
	if err := c.send(ctx, http.MethodPut, "/devices/"+url.PathEscape(d.DeviceID), nil, d, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ── Transport ───────────────────────────────────────────────────────────

// send issues one request and decodes the response into out (which may be
// nil when the caller only cares about success). Non-2xx statuses become
// *APIError, carrying the backend's {detail} message when present; a body
// that does not fit out's shape becomes ErrUnexpectedShape.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s %s: encode body: %w", method, path, err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	obs.ObserveBackendRequest(path, err)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Detail: detailMessage(body)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, ErrUnexpectedShape)
	}
	return nil
}

// detailMessage pulls the {detail} field out of an error body, falling back
// to a truncated copy of the raw body.
func detailMessage(body []byte) string {
	var e struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Detail != "" {
		return e.Detail
	}
	s := string(body)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
