package dashboard

import (
	"sort"
	"strings"

	"guestfy/pkg/domain"
)

// StatusAll disables status filtering.
const StatusAll = "all"

// FilterReservations keeps reservations matching status, then term against
// guest name, listing name and reservation id.
func FilterReservations(reservations []domain.Reservation, status, term string) []domain.Reservation {
	status = normalizeStatus(status)
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]domain.Reservation, 0, len(reservations))
	for _, r := range reservations {
		if status != StatusAll && string(r.Status) != status {
			continue
		}
		if term != "" && !containsAny(term, r.Client.FirstName, r.Client.LastName, r.Listing.Name, r.ID) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// FilterProperties keeps properties matching status, then term against
// title, internal name, region, city and id.
func FilterProperties(properties []domain.Property, status, term string) []domain.Property {
	status = normalizeStatus(status)
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]domain.Property, 0, len(properties))
	for _, p := range properties {
		if status != StatusAll && strings.ToLower(p.Status) != status {
			continue
		}
		if term != "" && !containsAny(term, p.Title, p.InternalName, p.Address.Region, p.Address.City, p.ID) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// InfoGroup is every company-info section sharing a category.
type InfoGroup struct {
	Category string                      `json:"category"`
	Sections []domain.CompanyInfoSection `json:"sections"`
}

// GroupCompanyInfo groups sections by category in first-seen order,
// each group sorted by Order.
func GroupCompanyInfo(sections []domain.CompanyInfoSection) []InfoGroup {
	var groups []InfoGroup
	index := make(map[string]int)
	for _, s := range sections {
		i, ok := index[s.Category]
		if !ok {
			i = len(groups)
			index[s.Category] = i
			groups = append(groups, InfoGroup{Category: s.Category})
		}
		groups[i].Sections = append(groups[i].Sections, s)
	}
	for _, g := range groups {
		sort.SliceStable(g.Sections, func(a, b int) bool {
			return g.Sections[a].Order < g.Sections[b].Order
		})
	}
	return groups
}

func normalizeStatus(status string) string {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		return StatusAll
	}
	return status
}

func containsAny(term string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}
