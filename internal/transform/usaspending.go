package transform

import (
	"strings"

	"github.com/david/contract-radar/internal/source"
)

// FromUSASpending converts award-search results to canonical records.
func FromUSASpending(recs []source.USASpendingAward) []Opportunity {
	opps := make([]Opportunity, 0, len(recs))
	for _, rec := range recs {
		opp := Opportunity{
			ID:               "usaspending-" + rec.AwardID,
			Date:             ResolveDate(rec.StartDate),
			Agency:           cleanText(rec.AwardingAgency),
			Vendor:           VendorNotAwarded,
			Description:      CleanDescription(rec.Description),
			NAICSCode:        rec.NAICSCode,
			NAICSDescription: cleanText(rec.NAICSDescription),
			State:            UnknownPlace,
			City:             UnknownPlace,
		}
		if rec.AwardAmount > 0 {
			opp.Amount = rec.AwardAmount
		}
		if name := cleanText(rec.RecipientName); name != "" {
			opp.Vendor = name
		}
		if s := strings.ToUpper(cleanText(rec.POPStateCode)); s != "" {
			opp.State = s
		}
		if city := cleanText(rec.POPCityName); city != "" {
			opp.City = city
		}

		// The award search has no title field; derive one for display.
		if desc := opp.Description; desc != "" {
			opp.Title = TruncateText(desc, 120)
		} else {
			opp.Title = "Award " + rec.AwardID
		}

		opps = append(opps, opp)
	}

	SortByDateDesc(opps)
	return opps
}
