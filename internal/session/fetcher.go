package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/windy-civi/toolkit/internal/model"
)

// HTTPFetcher retrieves session lists from the upstream jurisdictions
// API.
type HTTPFetcher struct {
	// BaseURL overrides the upstream API root. Used in tests.
	BaseURL string

	// Client overrides the HTTP client. Defaults to a client with a
	// 10-second timeout.
	Client *http.Client
}

const defaultBaseURL = "https://v3.openstates.org"

// FetchSessions implements Fetcher against the upstream HTTP API.
func (f *HTTPFetcher) FetchSessions(ctx context.Context, jurisdiction string) (map[string]model.SessionInfo, error) {
	base := f.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	url := fmt.Sprintf("%s/jurisdictions/%s/sessions", base, jurisdiction)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build sessions request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sessions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch sessions: unexpected status %d", resp.StatusCode)
	}

	var sessions []struct {
		Identifier string `json:"identifier"`
		Name       string `json:"name"`
		StartDate  string `json:"start_date"`
		EndDate    string `json:"end_date"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&sessions); err != nil {
		return nil, fmt.Errorf("decode sessions response: %w", err)
	}

	mapping := map[string]model.SessionInfo{}
	for _, s := range sessions {
		if s.Identifier == "" || s.Name == "" || len(s.StartDate) < 4 || len(s.EndDate) < 4 {
			continue
		}
		mapping[s.Identifier] = model.SessionInfo{
			Name:       s.Name,
			DateFolder: s.StartDate[:4] + "-" + s.EndDate[:4],
		}
	}
	return mapping, nil
}
