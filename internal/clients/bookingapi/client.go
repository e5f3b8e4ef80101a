// Package bookingapi is the HTTP client for the backend scheduling system
// that owns video-link bookings, room availability and reference data.
package bookingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/justiceops/videolink-booking/pkg/logging"
)

const defaultTimeout = 20 * time.Second

// Client calls the scheduling backend. Retries belong to the caller's
// policy, not here; a timeout surfaces as a plain error.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewClient creates a scheduling backend client. A non-positive timeout
// falls back to the default.
func NewClient(baseURL, token string, timeout time.Duration, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// CreateBooking creates a confirmed booking and returns its id.
func (c *Client) CreateBooking(ctx context.Context, req CreateBookingRequest) (int64, error) {
	var out struct {
		VideoLinkBookingID int64 `json:"videoLinkBookingId"`
	}
	if err := c.do(ctx, http.MethodPost, "/video-link-booking", req, &out); err != nil {
		return 0, err
	}
	if out.VideoLinkBookingID == 0 {
		return 0, fmt.Errorf("bookingapi: create returned empty booking id")
	}
	return out.VideoLinkBookingID, nil
}

// AmendBooking replaces an existing booking's details.
func (c *Client) AmendBooking(ctx context.Context, bookingID int64, req AmendBookingRequest) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/video-link-booking/id/%d", bookingID), req, nil)
}

// RequestBooking submits a booking for staff approval.
func (c *Client) RequestBooking(ctx context.Context, req RequestBookingRequest) error {
	return c.do(ctx, http.MethodPost, "/video-link-booking/request", req, nil)
}

// CancelBooking cancels an existing booking.
func (c *Client) CancelBooking(ctx context.Context, bookingID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/video-link-booking/id/%d/cancel", bookingID), nil, nil)
}

// GetBooking fetches an existing booking by id.
func (c *Client) GetBooking(ctx context.Context, bookingID int64) (*Booking, error) {
	var out Booking
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/video-link-booking/id/%d", bookingID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckAvailability returns the rooms free for one segment's interval.
func (c *Client) CheckAvailability(ctx context.Context, query AvailabilityQuery) ([]Room, error) {
	var out struct {
		Locations []Room `json:"locations"`
	}
	if err := c.do(ctx, http.MethodPost, "/availability", query, &out); err != nil {
		return nil, err
	}
	return out.Locations, nil
}

// FindAlternatives returns candidate slots near a rejected request.
func (c *Client) FindAlternatives(ctx context.Context, query AlternativesQuery) ([]CandidateSlot, error) {
	var out struct {
		Slots []CandidateSlot `json:"slots"`
	}
	if err := c.do(ctx, http.MethodPost, "/availability/alternatives", query, &out); err != nil {
		return nil, err
	}
	return out.Slots, nil
}

// HearingTypes returns the court hearing type reference list.
func (c *Client) HearingTypes(ctx context.Context) ([]RefCode, error) {
	var out []RefCode
	if err := c.do(ctx, http.MethodGet, "/reference/hearing-types", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MeetingTypes returns the probation meeting type reference list.
func (c *Client) MeetingTypes(ctx context.Context) ([]RefCode, error) {
	var out []RefCode
	if err := c.do(ctx, http.MethodGet, "/reference/meeting-types", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Rooms returns the video-link rooms at a prison.
func (c *Client) Rooms(ctx context.Context, prisonCode string) ([]Room, error) {
	var out []Room
	if err := c.do(ctx, http.MethodGet, "/reference/prisons/"+prisonCode+"/rooms", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.baseURL == "" {
		return fmt.Errorf("bookingapi: missing base url")
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("bookingapi: marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("bookingapi: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bookingapi: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("bookingapi: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(respBody)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return fmt.Errorf("bookingapi: %s %s: status %d: %s", method, path, resp.StatusCode, msg)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("bookingapi: unmarshal response: %w", err)
		}
	}
	return nil
}
