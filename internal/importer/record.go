// Package importer pushes a local list of places into the admin API, one
// create call per place, and reports what happened to each.
package importer

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Place is one loosely typed entry from an import file.
type Place map[string]any

// Record is the body sent to the create endpoint.
type Record struct {
	ID              string   `json:"id" validate:"required"`
	DestinationSlug string   `json:"destinationSlug" validate:"required"`
	Name            string   `json:"name" validate:"required"`
	Slug            string   `json:"slug" validate:"required"`
	Status          string   `json:"status"`
	Categories      []string `json:"categories"`
	Emoji           []string `json:"emoji"`
	Stars           *float64 `json:"stars"`
	Reviews         any      `json:"reviews"`
	Discount        *float64 `json:"discount"`
	Excerpt         *string  `json:"excerpt"`
	Description     *string  `json:"description"`
	BestFor         []string `json:"bestFor"`
	Tags            []string `json:"tags"`
	CardPerk        *string  `json:"cardPerk"`
	Offers          []any    `json:"offers"`
	HowToClaim      *string  `json:"howToClaim"`
	Restrictions    *string  `json:"restrictions"`
	Area            *string  `json:"area"`
	Lat             *float64 `json:"lat"`
	Lng             *float64 `json:"lng"`
	Logo            *string  `json:"logo"`
	Image           *string  `json:"image"`
	OGImage         *string  `json:"ogImage"`
	MapURL          *string  `json:"mapUrl"`
	InstagramURL    *string  `json:"instagramUrl"`
	WhatsApp        *string  `json:"whatsapp"`
}

// LoadPlaces decodes a JSON array of places.
func LoadPlaces(r io.Reader) ([]Place, error) {
	var places []Place
	if err := json.NewDecoder(r).Decode(&places); err != nil {
		return nil, fmt.Errorf("decode places: %w", err)
	}
	return places, nil
}

// Normalize maps a place onto the create payload. Identifiers are trimmed and
// lower-cased, singular category/offer keys are accepted, and numeric fields
// that do not parse become null.
func Normalize(p Place) Record {
	id := p["id"]
	if !truthy(id) {
		id = p["slug"]
	}
	status := p["status"]
	if !truthy(status) {
		status = "active"
	}

	var categories []string
	if list, ok := p["categories"].([]any); ok {
		categories = stringList(list)
	} else if truthy(p["category"]) {
		categories = stringList([]any{p["category"]})
	} else {
		categories = []string{}
	}

	offers := []any{}
	if list, ok := p["offers"].([]any); ok {
		offers = list
	} else if list, ok := p["offer"].([]any); ok {
		offers = list
	}

	return Record{
		ID:              lowerTrim(id),
		DestinationSlug: lowerTrim(p["destinationSlug"]),
		Name:            strings.TrimSpace(text(p["name"])),
		Slug:            lowerTrim(p["slug"]),
		Status:          strings.ToLower(text(status)),
		Categories:      categories,
		Emoji:           asStringList(p["emoji"]),
		Stars:           numberOrNil(p["stars"]),
		Reviews:         p["reviews"],
		Discount:        numberOrNil(p["discount"]),
		Excerpt:         textOrNil(p["excerpt"]),
		Description:     textOrNil(p["description"]),
		BestFor:         asStringList(p["bestFor"]),
		Tags:            asStringList(p["tags"]),
		CardPerk:        textOrNil(p["cardPerk"]),
		Offers:          offers,
		HowToClaim:      textOrNil(p["howToClaim"]),
		Restrictions:    textOrNil(p["restrictions"]),
		Area:            textOrNil(p["area"]),
		Lat:             numberOrNil(p["lat"]),
		Lng:             numberOrNil(p["lng"]),
		Logo:            textOrNil(p["logo"]),
		Image:           textOrNil(p["image"]),
		OGImage:         textOrNil(p["ogImage"]),
		MapURL:          textOrNil(p["mapUrl"]),
		InstagramURL:    textOrNil(p["instagramUrl"]),
		WhatsApp:        textOrNil(p["whatsapp"]),
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	default:
		return true
	}
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func lowerTrim(v any) string {
	return strings.ToLower(strings.TrimSpace(text(v)))
}

func textOrNil(v any) *string {
	if v == nil {
		return nil
	}
	s := text(v)
	return &s
}

func stringList(list []any) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s := text(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func asStringList(v any) []string {
	if list, ok := v.([]any); ok {
		return stringList(list)
	}
	return []string{}
}

func numberOrNil(v any) *float64 {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case bool:
		if t {
			n = 1
		}
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		n = f
	default:
		return nil
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	return &n
}
