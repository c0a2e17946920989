package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

// usaSpendingMaxPageSize is the upstream's documented per-page maximum.
const usaSpendingMaxPageSize = 100

// USASpendingClient queries the USAspending award search API. Second
// fallback tier; like FPDS it carries no rate limiting or caching.
type USASpendingClient struct {
	Client  *http.Client
	BaseURL string
}

func NewUSASpendingClient(baseURL string) *USASpendingClient {
	return &USASpendingClient{
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
		BaseURL: baseURL,
	}
}

// usaSpendingRequest is the structured filter payload the upstream expects.
// It rejects arbitrary filter shapes, so the client validates and defaults
// everything before sending.
type usaSpendingRequest struct {
	Filters usaSpendingFilters `json:"filters"`
	Fields  []string           `json:"fields"`
	Page    int                `json:"page"`
	Limit   int                `json:"limit"`
	Sort    string             `json:"sort"`
	Order   string             `json:"order"`
}

type usaSpendingFilters struct {
	TimePeriod                  []usaSpendingTimePeriod `json:"time_period"`
	AwardTypeCodes              []string                `json:"award_type_codes"`
	PlaceOfPerformanceLocations []usaSpendingLocation   `json:"place_of_performance_locations,omitempty"`
	NAICSCodes                  []string                `json:"naics_codes,omitempty"`
}

type usaSpendingTimePeriod struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type usaSpendingLocation struct {
	Country string `json:"country"`
	State   string `json:"state"`
}

// USASpendingResponse is the paged response envelope.
type USASpendingResponse struct {
	Results      []USASpendingAward `json:"results"`
	PageMetadata struct {
		Page    int  `json:"page"`
		HasNext bool `json:"hasNext"`
	} `json:"page_metadata"`
}

// USASpendingAward is one raw award with nested recipient/agency/place
// structures flattened into the field names the search endpoint returns.
type USASpendingAward struct {
	InternalID        int     `json:"internal_id"`
	AwardID           string  `json:"Award ID"`
	RecipientName     string  `json:"Recipient Name"`
	AwardAmount       float64 `json:"Award Amount"`
	AwardingAgency    string  `json:"Awarding Agency"`
	AwardingSubAgency string  `json:"Awarding Sub Agency"`
	StartDate         string  `json:"Start Date"`
	Description       string  `json:"Description"`
	NAICSCode         string  `json:"naics_code"`
	NAICSDescription  string  `json:"naics_description"`
	POPStateCode      string  `json:"Place of Performance State Code"`
	POPCityName       string  `json:"Place of Performance City Name"`
}

var usaSpendingFields = []string{
	"Award ID", "Recipient Name", "Award Amount", "Awarding Agency",
	"Awarding Sub Agency", "Start Date", "Description",
	"naics_code", "naics_description",
	"Place of Performance State Code", "Place of Performance City Name",
}

// Search fetches one page of prime awards matching the query. The endpoint
// reports no grand total, so the returned count is always 0.
func (c *USASpendingClient) Search(ctx context.Context, q Query) ([]USASpendingAward, int, error) {
	q = q.WithDefaults(time.Now())

	limit := q.Limit
	if limit > usaSpendingMaxPageSize {
		limit = usaSpendingMaxPageSize
	}
	page := 1
	if limit > 0 {
		page = q.Offset/limit + 1
	}

	reqBody := usaSpendingRequest{
		Filters: usaSpendingFilters{
			TimePeriod: []usaSpendingTimePeriod{{
				StartDate: q.PostedFrom.Format("2006-01-02"),
				EndDate:   q.PostedTo.Format("2006-01-02"),
			}},
			// Contract award types only (A-D); grants and loans are out of scope.
			AwardTypeCodes: []string{"A", "B", "C", "D"},
		},
		Fields: usaSpendingFields,
		Page:   page,
		Limit:  limit,
		Sort:   "Start Date",
		Order:  "desc",
	}
	if s := strings.ToUpper(strings.TrimSpace(q.State)); s != "" {
		reqBody.Filters.PlaceOfPerformanceLocations = []usaSpendingLocation{{Country: "USA", State: s}}
	}
	if n := strings.TrimSpace(q.NAICSCode); n != "" {
		reqBody.Filters.NAICSCodes = []string{n}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.Printf("[USASpending] Fetching page=%d limit=%d state=%q", page, limit, q.State)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// A filter shape this client cannot express for the given query is
		// the upstream's way of saying "nothing useful here"; the
		// orchestrator moves on to the next tier on empty results.
		if resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusBadRequest {
			log.Printf("[USASpending] Query rejected with %d, returning empty", resp.StatusCode)
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("upstream returned %d: %w", resp.StatusCode, ErrUnreachable)
	}

	var apiResp USASpendingResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, 0, fmt.Errorf("decoding response: %w", ErrMalformed)
	}

	log.Printf("[USASpending] Got %d awards", len(apiResp.Results))
	return apiResp.Results, 0, nil
}
