package provider

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"

	"guestfy/pkg/domain"
)

// DefaultLanguage is preferred when resolving localized Stays fields.
const DefaultLanguage = "pt_BR"

//go:embed seed/properties.json
var seedPropertiesJSON []byte

// staysProperty mirrors the listing payload returned by the Stays API.
type staysProperty struct {
	ID           string                 `json:"id"`
	InternalName string                 `json:"internalName"`
	Title        map[string]string      `json:"_mstitle"`
	Description  map[string]string      `json:"_msdesc"`
	HouseRules   map[string]string      `json:"_mshouserules"`
	Summary      map[string]string      `json:"_mssummary"`
	Status       string                 `json:"status"`
	MaxGuests    int                    `json:"_i_maxGuests"`
	Rooms        int                    `json:"_i_rooms"`
	Beds         int                    `json:"_i_beds"`
	Bathrooms    float64                `json:"_f_bathrooms"`
	Address      domain.PropertyAddress `json:"address"`
	LatLng       struct {
		Lat float64 `json:"_f_lat"`
		Lng float64 `json:"_f_lng"`
	} `json:"latLng"`
	Amenities []struct {
		ID string `json:"_id"`
	} `json:"amenities"`
	Currency  string  `json:"deff_curr"`
	Square    float64 `json:"_f_square"`
	MainImage struct {
		URL string `json:"url"`
	} `json:"_t_mainImageMeta"`
	Images []struct {
		ID   string            `json:"_id"`
		URL  string            `json:"url"`
		Name map[string]string `json:"_msname"`
		Area string            `json:"area"`
	} `json:"_t_imagesMeta"`
	InstantBooking bool `json:"instantBooking"`
	Owner          struct {
		Name   string `json:"name"`
		Phones []struct {
			ISO string `json:"iso"`
		} `json:"phones"`
	} `json:"owner"`
}

// DecodeStaysProperties maps a raw Stays listing array to canonical properties.
func DecodeStaysProperties(raw []byte, lang string) ([]domain.Property, error) {
	var records []staysProperty
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode stays properties: %w", err)
	}
	out := make([]domain.Property, 0, len(records))
	for _, r := range records {
		p := domain.Property{
			ID:             r.ID,
			InternalName:   r.InternalName,
			Title:          localized(r.Title, lang),
			Description:    htmlToText(localized(r.Description, lang)),
			Summary:        htmlToText(localized(r.Summary, lang)),
			HouseRules:     htmlToText(localized(r.HouseRules, lang)),
			Status:         r.Status,
			MaxGuests:      r.MaxGuests,
			Rooms:          r.Rooms,
			Beds:           r.Beds,
			Bathrooms:      r.Bathrooms,
			Address:        r.Address,
			Latitude:       r.LatLng.Lat,
			Longitude:      r.LatLng.Lng,
			AmenityIDs:     make([]string, 0, len(r.Amenities)),
			Currency:       r.Currency,
			SquareMeters:   r.Square,
			MainImageURL:   r.MainImage.URL,
			Images:         make([]domain.PropertyImage, 0, len(r.Images)),
			InstantBooking: r.InstantBooking,
			Owner:          domain.PropertyOwner{Name: r.Owner.Name, Phones: make([]string, 0, len(r.Owner.Phones))},
		}
		for _, a := range r.Amenities {
			p.AmenityIDs = append(p.AmenityIDs, a.ID)
		}
		for _, img := range r.Images {
			p.Images = append(p.Images, domain.PropertyImage{ID: img.ID, URL: img.URL, Name: localized(img.Name, lang), Area: img.Area})
		}
		for _, ph := range r.Owner.Phones {
			p.Owner.Phones = append(p.Owner.Phones, ph.ISO)
		}
		out = append(out, p)
	}
	return out, nil
}

// localized picks lang, then en_US, then the first language in key order.
func localized(values map[string]string, lang string) string {
	if v, ok := values[lang]; ok {
		return v
	}
	if v, ok := values["en_US"]; ok {
		return v
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if values[k] != "" {
			return values[k]
		}
	}
	return ""
}

// htmlToText flattens markup to text, one line per block or <br>.
func htmlToText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			buf.WriteString(node.Data)
		case html.ElementNode:
			if node.Data == "script" || node.Data == "style" {
				return
			}
			if node.Data == "br" {
				buf.WriteString("\n")
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if node.Type == html.ElementNode && (node.Data == "p" || node.Data == "div" || node.Data == "li") {
			buf.WriteString("\n")
		}
	}
	walk(doc)

	lines := strings.Split(buf.String(), "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// MemoryProperties serves a fixed property catalogue.
type MemoryProperties struct {
	latency time.Duration

	mu         sync.RWMutex
	properties []domain.Property
}

// NewMemoryProperties loads the embedded Stays catalogue in opts.Language.
func NewMemoryProperties(opts Options) (*MemoryProperties, error) {
	lang := opts.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	props, err := DecodeStaysProperties(seedPropertiesJSON, lang)
	if err != nil {
		return nil, err
	}
	return &MemoryProperties{latency: opts.Latency, properties: props}, nil
}

func (p *MemoryProperties) ListProperties(ctx context.Context) ([]domain.Property, error) {
	if err := pause(ctx, p.latency); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]domain.Property(nil), p.properties...), nil
}

func (p *MemoryProperties) GetProperty(ctx context.Context, id string) (domain.Property, bool, error) {
	if err := pause(ctx, p.latency); err != nil {
		return domain.Property{}, false, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, prop := range p.properties {
		if prop.ID == id {
			return prop, true, nil
		}
	}
	return domain.Property{}, false, nil
}
