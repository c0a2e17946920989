package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/david/contract-radar/internal/cache"
	"github.com/david/contract-radar/internal/ratelimit"
)

// SamGovClient fetches contract opportunities from the SAM.gov Get
// Opportunities API. Every call goes through the shared rate limiter and
// response cache; a quota signal from the upstream puts the client into a
// cooling state during which it fails fast without touching the network.
type SamGovClient struct {
	Client  *http.Client
	BaseURL string
	APIKey  string

	limiter  *ratelimit.Limiter
	cache    *cache.Cache
	cacheTTL time.Duration
	cooldown time.Duration

	mu           sync.Mutex
	coolingUntil time.Time
	now          func() time.Time
}

// NewSamGovClient wires the client to its limiter and cache. Both are owned
// by the caller so multiple sessions and tests can run in isolation.
func NewSamGovClient(baseURL, apiKey string, limiter *ratelimit.Limiter, c *cache.Cache, cacheTTL, cooldown time.Duration) *SamGovClient {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if cooldown <= 0 {
		cooldown = time.Hour
	}
	return &SamGovClient{
		Client: &http.Client{
			Timeout: 60 * time.Second,
		},
		BaseURL:  baseURL,
		APIKey:   apiKey,
		limiter:  limiter,
		cache:    c,
		cacheTTL: cacheTTL,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// SamGovSearchRequest matches the opportunities search schema.
type SamGovSearchRequest struct {
	Limit            int    `json:"limit"`
	Offset           int    `json:"offset"`
	PostedFrom       string `json:"postedFrom"`
	PostedTo         string `json:"postedTo"`
	State            string `json:"state,omitempty"`
	NaicsCode        string `json:"ncode,omitempty"`
	OrganizationName string `json:"organizationName,omitempty"`
}

// SamGovResponse is the search response envelope.
type SamGovResponse struct {
	TotalRecords      int            `json:"totalRecords"`
	Limit             int            `json:"limit"`
	Offset            int            `json:"offset"`
	OpportunitiesData []SamGovRecord `json:"opportunitiesData"`
}

// SamGovRecord is a single raw opportunity as the feed returns it, nested
// award and location objects included. It never leaves the transform layer.
type SamGovRecord struct {
	NoticeID           string        `json:"noticeId"`
	Title              string        `json:"title"`
	SolicitationNumber string        `json:"solicitationNumber"`
	FullParentPathName string        `json:"fullParentPathName"`
	PostedDate         string        `json:"postedDate"`
	PublishDate        string        `json:"publishDate"`
	Type               string        `json:"type"`
	NaicsCode          string        `json:"naicsCode"`
	ClassificationCode string        `json:"classificationCode"`
	Description        string        `json:"description"`
	SetAsideDesc       string        `json:"typeOfSetAsideDescription"`
	Award              *SamGovAward  `json:"award"`
	PlaceOfPerformance *SamGovPlace  `json:"placeOfPerformance"`
	OfficeAddress      *SamGovOffice `json:"officeAddress"`
}

type SamGovAward struct {
	Date    string `json:"date"`
	Number  string `json:"number"`
	Amount  string `json:"amount"`
	Awardee struct {
		Name     string       `json:"name"`
		Location *SamGovPlace `json:"location"`
	} `json:"awardee"`
}

type SamGovPlace struct {
	City struct {
		Name string `json:"name"`
	} `json:"city"`
	State struct {
		Code string `json:"code"`
	} `json:"state"`
}

type SamGovOffice struct {
	City  string `json:"city"`
	State string `json:"state"`
}

// Cooling reports whether the client is still inside the quota cooldown.
// Safe to call concurrently with Search.
func (c *SamGovClient) Cooling() bool {
	return c.now().Before(c.coolingDeadline())
}

func (c *SamGovClient) coolingDeadline() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.coolingUntil
}

func (c *SamGovClient) startCooling() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.coolingUntil = c.now().Add(c.cooldown)
	return c.coolingUntil
}

// Search issues one paginated query and returns raw records plus the
// upstream's total-count estimate. Failure classification: ErrQuotaExceeded
// on the upstream's rate-limit status (or while cooling), ErrUnreachable on
// transport faults and 5xx, ErrMalformed when the body cannot be decoded.
func (c *SamGovClient) Search(ctx context.Context, q Query) ([]SamGovRecord, int, error) {
	q = q.WithDefaults(c.now())

	if until := c.coolingDeadline(); c.now().Before(until) {
		log.Printf("[SamGov] Cooling for another %s, failing fast", until.Sub(c.now()).Round(time.Second))
		return nil, 0, fmt.Errorf("cooling until %s: %w", until.Format(time.RFC3339), ErrQuotaExceeded)
	}

	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, 0, fmt.Errorf("rate limiter: %w", err)
	}

	key := cache.Key("samgov/search", q)
	if v, ok := c.cache.Get(key); ok {
		if resp, ok := v.(*SamGovResponse); ok {
			log.Printf("[SamGov] Cache hit for offset=%d limit=%d", q.Offset, q.Limit)
			return resp.OpportunitiesData, resp.TotalRecords, nil
		}
	}

	resp, err := c.search(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	c.cache.Put(key, resp, c.cacheTTL)
	return resp.OpportunitiesData, resp.TotalRecords, nil
}

func (c *SamGovClient) search(ctx context.Context, q Query) (*SamGovResponse, error) {
	searchReq := SamGovSearchRequest{
		Limit:            q.Limit,
		Offset:           q.Offset,
		PostedFrom:       q.PostedFrom.Format("01/02/2006"),
		PostedTo:         q.PostedTo.Format("01/02/2006"),
		State:            q.State,
		NaicsCode:        q.NAICSCode,
		OrganizationName: q.Department,
	}

	jsonBody, err := json.Marshal(searchReq)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Key", c.APIKey)

	log.Printf("[SamGov] Fetching page offset=%d limit=%d postedFrom=%s", q.Offset, q.Limit, searchReq.PostedFrom)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		until := c.startCooling()
		log.Printf("[SamGov] Quota exhausted, cooling until %s", until.Format(time.RFC3339))
		return nil, fmt.Errorf("upstream returned 429: %w", ErrQuotaExceeded)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("upstream returned %d: %w", resp.StatusCode, ErrUnreachable)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("upstream returned %d (%s): %w", resp.StatusCode, bytes.TrimSpace(body), ErrMalformed)
	}

	var apiResp SamGovResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", ErrMalformed)
	}

	log.Printf("[SamGov] Got %d opportunities (total: %d)", len(apiResp.OpportunitiesData), apiResp.TotalRecords)
	return &apiResp, nil
}
