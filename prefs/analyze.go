package prefs

import (
	"errors"
	"sort"
	"strings"

	"tablematch/models"
)

var ErrInsufficientData = errors.New("a match needs at least one participant")

// Normalize lowercases and trims a cuisine tag so "Italian " and "italian"
// tally as one.
func Normalize(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// Analyze reduces a snapshot of participants into the group view the
// matching engine searches with. Pure function: no I/O, no mutation of the
// input.
//
// Cuisines are ordered by descending count; equal counts keep first-seen
// order across the participant slice. Dominant price is the mode over
// non-"any" tiers, ties broken by first-seen order, defaulting to "$$" when
// nobody states a tier.
func Analyze(participants []*models.Participant) (*models.PreferenceAnalysis, error) {
	if len(participants) == 0 {
		return nil, ErrInsufficientData
	}

	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	var order []string

	priceCounts := make(map[models.PriceTier]int)
	priceFirstSeen := make(map[models.PriceTier]int)
	openNow := 0

	for _, p := range participants {
		for _, raw := range p.Preferences.Cuisines {
			tag := Normalize(raw)
			if tag == "" {
				continue
			}
			if _, seen := counts[tag]; !seen {
				firstSeen[tag] = len(order)
				order = append(order, tag)
			}
			counts[tag]++
		}
		if tier := p.Preferences.Price; tier != "" && tier != models.PriceAny {
			if _, seen := priceCounts[tier]; !seen {
				priceFirstSeen[tier] = len(priceFirstSeen)
			}
			priceCounts[tier]++
		}
		if p.Preferences.OpenNow {
			openNow++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		ci, cj := counts[order[i]], counts[order[j]]
		if ci != cj {
			return ci > cj
		}
		return firstSeen[order[i]] < firstSeen[order[j]]
	})

	total := len(participants)
	analysis := &models.PreferenceAnalysis{
		DominantPrice:     dominantPrice(priceCounts, priceFirstSeen),
		OpenNowPercentage: float64(openNow) / float64(total) * 100,
	}
	analysis.FilterOpenNow = analysis.OpenNowPercentage > 50

	for _, tag := range order {
		c := counts[tag]
		analysis.Cuisines = append(analysis.Cuisines, models.CuisineCount{
			Tag:        tag,
			Count:      c,
			Percentage: float64(c) / float64(total) * 100,
		})
		if c > 1 {
			analysis.Priority = append(analysis.Priority, tag)
		} else {
			analysis.Fallback = append(analysis.Fallback, tag)
		}
	}
	return analysis, nil
}

func dominantPrice(counts map[models.PriceTier]int, firstSeen map[models.PriceTier]int) models.PriceTier {
	if len(counts) == 0 {
		return models.PriceModerate
	}
	best := models.PriceTier("")
	for tier, c := range counts {
		if best == "" || c > counts[best] || (c == counts[best] && firstSeen[tier] < firstSeen[best]) {
			best = tier
		}
	}
	return best
}

// QueryTerm picks the single search term for a group: first priority
// cuisine, else first fallback, else plain "restaurant".
func QueryTerm(a *models.PreferenceAnalysis) string {
	if len(a.Priority) > 0 {
		return a.Priority[0]
	}
	if len(a.Fallback) > 0 {
		return a.Fallback[0]
	}
	return "restaurant"
}
