package transform

import (
	"strings"

	"github.com/david/contract-radar/internal/source"
)

// FromFPDS converts scanned feed entries to canonical records. Entries
// reaching this layer already carry an identifier and a title; everything
// else is best-effort with sentinel defaults.
func FromFPDS(recs []source.FPDSRecord) []Opportunity {
	opps := make([]Opportunity, 0, len(recs))
	for _, rec := range recs {
		opp := Opportunity{
			ID:               "fpds-" + rec.ID,
			Title:            TruncateText(cleanText(rec.Title), 200),
			Date:             ResolveDate(rec.SignedDate, rec.Modified),
			Agency:           cleanText(rec.ContractingOffice),
			Vendor:           VendorNotAwarded,
			Description:      CleanDescription(rec.Description),
			Amount:           ParseAmount(rec.ObligatedAmount),
			NAICSCode:        rec.NAICSCode,
			NAICSDescription: cleanText(rec.NAICSDescription),
			State:            UnknownPlace,
			City:             UnknownPlace,
		}
		if name := cleanText(rec.VendorName); name != "" {
			opp.Vendor = name
		}
		if s := strings.ToUpper(cleanText(rec.POPState)); s != "" {
			opp.State = s
		}
		if city := cleanText(rec.POPCity); city != "" {
			opp.City = city
		}
		opps = append(opps, opp)
	}

	SortByDateDesc(opps)
	return opps
}
