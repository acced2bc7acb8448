package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNoDistrict is returned when an address cannot be resolved to a
// congressional district, whether because the service had no match or
// because the lookup failed outright. Callers that need the distinction
// can unwrap the cause.
var ErrNoDistrict = errors.New("no district found")

// District is a resolved congressional district.
type District struct {
	Code string // STATE-NUMBER, e.g. "NY-14"
	Rep  string // current representative, or "Vacant"
}

type Client struct {
	apiKey     string
	userAgent  string
	searchURL  string
	geocodeURL string
	client     *http.Client
}

func NewClient(apiKey, userAgent string) *Client {
	return &Client{
		apiKey:     apiKey,
		userAgent:  userAgent,
		searchURL:  "https://nominatim.openstreetmap.org/search",
		geocodeURL: "https://api.geocod.io/v1.7/geocode",
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type searchResult struct {
	DisplayName string `json:"display_name"`
}

// SearchAddresses resolves free text to candidate addresses. An empty
// query returns no candidates without making a request. Failures are
// returned to the caller; the workflow treats them like an empty result.
func (c *Client) SearchAddresses(ctx context.Context, query string) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "5")
	params.Set("countrycodes", "us")
	params.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	// Nominatim usage policy requires an identifying User-Agent.
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("address search: status %d", resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(results))
	for _, r := range results {
		if r.DisplayName != "" {
			out = append(out, r.DisplayName)
		}
	}
	return out, nil
}

type geocodeResponse struct {
	Results []struct {
		AddressComponents struct {
			State string `json:"state"`
		} `json:"address_components"`
		Fields struct {
			CongressionalDistricts []struct {
				DistrictNumber     int `json:"district_number"`
				CurrentLegislators []struct {
					Type string `json:"type"`
					Bio  struct {
						FirstName string `json:"first_name"`
						LastName  string `json:"last_name"`
					} `json:"bio"`
				} `json:"current_legislators"`
			} `json:"congressional_districts"`
		} `json:"fields"`
	} `json:"results"`
}

// ResolveDistrict maps a confirmed address to its congressional district
// and sitting representative. Idempotent and side-effect-free; safe to
// retry. Any failure or missing district field yields ErrNoDistrict.
func (c *Client) ResolveDistrict(ctx context.Context, address string) (District, error) {
	if strings.TrimSpace(address) == "" {
		return District{}, ErrNoDistrict
	}

	params := url.Values{}
	params.Set("q", address)
	params.Set("fields", "cd")
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.geocodeURL+"?"+params.Encode(), nil)
	if err != nil {
		return District{}, fmt.Errorf("%w: %v", ErrNoDistrict, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return District{}, fmt.Errorf("%w: %v", ErrNoDistrict, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return District{}, fmt.Errorf("%w: status %d", ErrNoDistrict, resp.StatusCode)
	}

	var payload geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return District{}, fmt.Errorf("%w: %v", ErrNoDistrict, err)
	}

	if len(payload.Results) == 0 {
		return District{}, ErrNoDistrict
	}
	result := payload.Results[0]
	if len(result.Fields.CongressionalDistricts) == 0 {
		return District{}, ErrNoDistrict
	}

	cd := result.Fields.CongressionalDistricts[0]
	rep := "Vacant"
	for _, leg := range cd.CurrentLegislators {
		if leg.Type == "representative" {
			rep = leg.Bio.FirstName + " " + leg.Bio.LastName
			break
		}
	}

	return District{
		Code: fmt.Sprintf("%s-%d", result.AddressComponents.State, cd.DistrictNumber),
		Rep:  rep,
	}, nil
}
