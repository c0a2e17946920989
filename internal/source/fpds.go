package source

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"
)

// fpdsMaxPageSize caps how many entries we ask the feed for in one page.
// The feed serves fixed-size pages anyway; asking for more just slows it down.
const fpdsMaxPageSize = 10

// FPDSClient reads the FPDS ATOM feed of contract awards. It is the first
// fallback tier: no rate limiting or caching, it is only consulted when the
// primary feed is exhausted or unreachable.
type FPDSClient struct {
	Client  *http.Client
	BaseURL string
}

func NewFPDSClient(baseURL string) *FPDSClient {
	return &FPDSClient{
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
		BaseURL: baseURL,
	}
}

// FPDSRecord holds the named sub-elements scanned out of one feed entry.
type FPDSRecord struct {
	ID                string
	Title             string
	Modified          string // last-updated timestamp as the feed gives it
	SignedDate        string
	ContractingOffice string
	VendorName        string
	ObligatedAmount   string
	NAICSCode         string
	NAICSDescription  string
	POPCity           string
	POPState          string
	Description       string
}

// Search fetches one page of award entries matching the query. The feed
// cannot estimate totals, so the returned count is always 0. A feed that
// cannot answer the query at all yields an empty slice, not an error;
// individually unparsable entries are skipped.
func (c *FPDSClient) Search(ctx context.Context, q Query) ([]FPDSRecord, int, error) {
	q = q.WithDefaults(time.Now())
	limit := q.Limit
	if limit > fpdsMaxPageSize {
		limit = fpdsMaxPageSize
	}

	params := url.Values{}
	params.Set("FEEDNAME", "PUBLIC")
	params.Set("start", fmt.Sprintf("%d", q.Offset))

	terms := []string{fmt.Sprintf("SIGNED_DATE:[%s,%s]",
		q.PostedFrom.Format("2006/01/02"), q.PostedTo.Format("2006/01/02"))}
	if q.State != "" {
		terms = append(terms, "POP_STATE_CODE:"+strings.ToUpper(q.State))
	}
	if q.NAICSCode != "" {
		terms = append(terms, "PRINCIPAL_NAICS_CODE:"+q.NAICSCode)
	}
	if q.Department != "" {
		terms = append(terms, fmt.Sprintf("CONTRACTING_AGENCY_NAME:%q", q.Department))
	}
	params.Set("q", strings.Join(terms, " "))

	reqURL := c.BaseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/atom+xml")

	log.Printf("[FPDS] Fetching feed start=%d q=%q", q.Offset, params.Get("q"))

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("feed returned %d: %w", resp.StatusCode, ErrUnreachable)
	}

	doc, err := xmlquery.Parse(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("parsing feed: %w", ErrMalformed)
	}

	records := parseEntries(doc, limit)
	log.Printf("[FPDS] Got %d usable entries", len(records))
	return records, 0, nil
}

// parseEntries walks the feed's entry elements. Entries that cannot be read
// or that lack an identifier or title are dropped individually so one bad
// entry never poisons the batch.
func parseEntries(doc *xmlquery.Node, limit int) []FPDSRecord {
	var records []FPDSRecord
	for _, entry := range xmlquery.Find(doc, "//*[local-name()='entry']") {
		if len(records) >= limit {
			break
		}
		rec := parseEntry(entry)
		if rec.ID == "" || rec.Title == "" {
			log.Printf("[FPDS] Skipping entry missing id or title")
			continue
		}
		records = append(records, rec)
	}
	return records
}

func parseEntry(entry *xmlquery.Node) FPDSRecord {
	field := func(name string) string {
		n := xmlquery.FindOne(entry, ".//*[local-name()='"+name+"']")
		if n == nil {
			return ""
		}
		return strings.TrimSpace(n.InnerText())
	}

	rec := FPDSRecord{
		ID:                field("PIID"),
		Title:             field("title"),
		Modified:          field("modified"),
		SignedDate:        field("signedDate"),
		ContractingOffice: field("contractingOfficeName"),
		VendorName:        field("vendorName"),
		ObligatedAmount:   field("obligatedAmount"),
		NAICSCode:         field("principalNAICSCode"),
		NAICSDescription:  field("principalNAICSCodeDescription"),
		POPCity:           field("placeOfPerformanceCity"),
		POPState:          field("placeOfPerformanceState"),
		Description:       field("descriptionOfContractRequirement"),
	}
	if rec.ID == "" {
		// Some feed variants put the identifier in the entry's atom id.
		rec.ID = field("id")
	}
	return rec
}
