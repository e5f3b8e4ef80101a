// Package prisonerapi is the HTTP client for the prisoner search service,
// used once per journey to snapshot the subject's identity.
package prisonerapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/justiceops/videolink-booking/pkg/logging"
)

const defaultTimeout = 10 * time.Second

// Prisoner is the identity snapshot returned by the search service.
type Prisoner struct {
	PrisonerNumber string `json:"prisonerNumber"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	DateOfBirth    string `json:"dateOfBirth,omitempty"`
	PrisonCode     string `json:"prisonId"`
	PrisonName     string `json:"prisonName,omitempty"`
}

// Client calls the prisoner search service.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewClient creates a prisoner search client. A non-positive timeout
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

// GetByPrisonerNumber looks up one prisoner by their unique number.
func (c *Client) GetByPrisonerNumber(ctx context.Context, prisonerNumber string) (*Prisoner, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("prisonerapi: missing base url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/prisoner/"+prisonerNumber, nil)
	if err != nil {
		return nil, fmt.Errorf("prisonerapi: create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prisonerapi: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("prisonerapi: read response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("prisonerapi: prisoner %s not found", prisonerNumber)
	}
	if resp.StatusCode != http.StatusOK {
		msg := string(body)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return nil, fmt.Errorf("prisonerapi: status %d: %s", resp.StatusCode, msg)
	}

	var p Prisoner
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("prisonerapi: unmarshal response: %w", err)
	}
	return &p, nil
}
