package transform

import (
	"strings"

	"github.com/david/contract-radar/internal/source"
)

// FromSamGov converts raw SAM.gov notices to canonical records. Pure
// function: same input, same output, no I/O.
func FromSamGov(recs []source.SamGovRecord) []Opportunity {
	opps := make([]Opportunity, 0, len(recs))
	for _, rec := range recs {
		opp := Opportunity{
			ID:          "samgov-" + rec.NoticeID,
			Title:       TruncateText(cleanText(rec.Title), 200),
			Agency:      samGovAgency(rec.FullParentPathName),
			Vendor:      VendorNotAwarded,
			Description: CleanDescription(rec.Description),
			NAICSCode:   rec.NaicsCode,
			SetAside:    ClassifySetAside(rec.SetAsideDesc),
			State:       UnknownPlace,
			City:        UnknownPlace,
		}

		var awardDate, awardAmount string
		if rec.Award != nil {
			awardDate = rec.Award.Date
			awardAmount = rec.Award.Amount
			if name := cleanText(rec.Award.Awardee.Name); name != "" {
				opp.Vendor = name
			}
		}
		opp.Date = ResolveDate(awardDate, rec.PostedDate, rec.PublishDate)
		opp.Amount = ParseAmount(awardAmount)

		// Location preference: place of performance, then the awardee's own
		// location, then the contracting office address.
		if !applyPlace(&opp, rec.PlaceOfPerformance) && rec.Award != nil {
			applyPlace(&opp, rec.Award.Awardee.Location)
		}
		if opp.State == UnknownPlace && rec.OfficeAddress != nil {
			if s := strings.ToUpper(cleanText(rec.OfficeAddress.State)); s != "" {
				opp.State = s
			}
			if city := cleanText(rec.OfficeAddress.City); city != "" {
				opp.City = city
			}
		}

		opps = append(opps, opp)
	}

	SortByDateDesc(opps)
	return opps
}

// applyPlace copies a nested city/state pair onto the record, reporting
// whether it supplied a state.
func applyPlace(opp *Opportunity, place *source.SamGovPlace) bool {
	if place == nil {
		return false
	}
	if city := cleanText(place.City.Name); city != "" {
		opp.City = city
	}
	if s := strings.ToUpper(cleanText(place.State.Code)); s != "" {
		opp.State = s
		return true
	}
	return false
}

// samGovAgency extracts the issuing department from the dotted parent path
// ("DEPT OF DEFENSE.DEPT OF THE NAVY.NAVSEA" -> "DEPT OF DEFENSE").
func samGovAgency(path string) string {
	path = cleanText(path)
	if path == "" {
		return ""
	}
	if idx := strings.Index(path, "."); idx > 0 {
		return path[:idx]
	}
	return path
}
