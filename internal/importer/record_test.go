package importer

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	places, err := LoadPlaces(strings.NewReader(`[{
		"slug": " Sea-Salt ",
		"destinationSlug": "Ahangama ",
		"name": "  Sea Salt Cafe ",
		"category": "cafe",
		"offer": [{"title": "10% off"}],
		"stars": "4.6",
		"discount": "",
		"lat": "not a number",
		"lng": 80.37,
		"reviews": 120,
		"emoji": ["☕", ""],
		"excerpt": null
	}]`))
	if err != nil {
		t.Fatalf("LoadPlaces: %v", err)
	}

	rec := Normalize(places[0])
	if rec.ID != "sea-salt" || rec.Slug != "sea-salt" || rec.DestinationSlug != "ahangama" {
		t.Fatalf("identifiers = %q %q %q", rec.ID, rec.Slug, rec.DestinationSlug)
	}
	if rec.Name != "Sea Salt Cafe" || rec.Status != "active" {
		t.Fatalf("name/status = %q %q", rec.Name, rec.Status)
	}
	if len(rec.Categories) != 1 || rec.Categories[0] != "cafe" {
		t.Fatalf("categories = %v", rec.Categories)
	}
	if len(rec.Offers) != 1 {
		t.Fatalf("offers = %v", rec.Offers)
	}
	if rec.Stars == nil || *rec.Stars != 4.6 {
		t.Fatalf("stars = %v", rec.Stars)
	}
	if rec.Discount != nil || rec.Lat != nil {
		t.Fatalf("unparseable numbers should be nil: %v %v", rec.Discount, rec.Lat)
	}
	if rec.Lng == nil || *rec.Lng != 80.37 {
		t.Fatalf("lng = %v", rec.Lng)
	}
	if len(rec.Emoji) != 1 {
		t.Fatalf("emoji = %v", rec.Emoji)
	}
	if rec.Excerpt != nil || rec.Tags == nil || len(rec.Tags) != 0 {
		t.Fatalf("excerpt/tags = %v %v", rec.Excerpt, rec.Tags)
	}
}

func TestNormalizePrefersExplicitValues(t *testing.T) {
	rec := Normalize(Place{
		"id":         "Venue-1",
		"slug":       "other",
		"status":     "HIDDEN",
		"categories": []any{"bar", "food"},
		"category":   "ignored",
		"offers":     []any{},
		"offer":      []any{"ignored"},
	})
	if rec.ID != "venue-1" || rec.Status != "hidden" {
		t.Fatalf("id/status = %q %q", rec.ID, rec.Status)
	}
	if strings.Join(rec.Categories, ",") != "bar,food" {
		t.Fatalf("categories = %v", rec.Categories)
	}
	if len(rec.Offers) != 0 {
		t.Fatalf("offers = %v", rec.Offers)
	}
}

func TestLoadPlacesRejectsObject(t *testing.T) {
	if _, err := LoadPlaces(strings.NewReader(`{"id":"x"}`)); err == nil {
		t.Fatalf("expected error for non-array input")
	}
}
