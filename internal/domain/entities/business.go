package entities

import "strings"

// BusinessContext is the ground-truth snapshot a caller supplies for scoring.
// The core never mutates it.
type BusinessContext struct {
	Name       string          `json:"name"`
	City       string          `json:"city"`
	State      string          `json:"state"`
	Categories []string        `json:"categories"`
	Amenities  map[string]bool `json:"amenities,omitempty"`
	Website    string          `json:"website,omitempty"`
}

// HasAmenity reports whether the amenity flag is set.
func (b BusinessContext) HasAmenity(key string) bool {
	return b.Amenities[key]
}

// PrimaryCategory returns the first non-empty category tag.
func (b BusinessContext) PrimaryCategory() string {
	for _, c := range b.Categories {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return ""
}

// Location renders "City, ST" or whichever half is known.
func (b BusinessContext) Location() string {
	city, state := strings.TrimSpace(b.City), strings.TrimSpace(b.State)
	switch {
	case city != "" && state != "":
		return city + ", " + state
	case city != "":
		return city
	default:
		return state
	}
}
