package models

import (
	"time"

	"github.com/goccy/go-json"
)

// PowerBackup describes what keeps a venue running during outages.
type PowerBackup string

const (
	PowerBackupGenerator PowerBackup = "generator"
	PowerBackupInverter  PowerBackup = "inverter"
	PowerBackupNone      PowerBackup = "none"
	PowerBackupUnknown   PowerBackup = "unknown"
)

// PowerBackupValues lists the accepted power backup values in display order.
var PowerBackupValues = []PowerBackup{
	PowerBackupGenerator,
	PowerBackupInverter,
	PowerBackupNone,
	PowerBackupUnknown,
}

// Valid reports whether p is one of the enumerated values.
func (p PowerBackup) Valid() bool {
	for _, v := range PowerBackupValues {
		if p == v {
			return true
		}
	}
	return false
}

// Venue is a directory listing (café, stay, experience) within a destination.
// Nullable columns are pointers; string sets are never nil once loaded.
type Venue struct {
	ID              string `json:"id"`
	DestinationSlug string `json:"destinationSlug"`
	Name            string `json:"name"`
	Slug            string `json:"slug"`
	Status          string `json:"status"`
	Live            bool   `json:"live"`

	// Curation
	EditorialTags  []string    `json:"editorialTags"`
	IsPassVenue    bool        `json:"isPassVenue"`
	StaffPick      bool        `json:"staffPick"`
	PriorityScore  float64     `json:"priorityScore"`
	LaptopFriendly bool        `json:"laptopFriendly"`
	PowerBackup    PowerBackup `json:"powerBackup"`

	// Taxonomy and content
	Categories   []string        `json:"categories"`
	Emoji        []string        `json:"emoji"`
	Stars        *float64        `json:"stars"`
	Reviews      *int64          `json:"reviews"`
	Discount     *float64        `json:"discount"` // fraction in [0,1]
	Excerpt      *string         `json:"excerpt"`
	Description  *string         `json:"description"`
	BestFor      []string        `json:"bestFor"`
	Tags         []string        `json:"tags"`
	CardPerk     *string         `json:"cardPerk"`
	Offers       json.RawMessage `json:"offers"`
	HowToClaim   *string         `json:"howToClaim"`
	Restrictions *string         `json:"restrictions"`

	// Location and media
	Area         *string  `json:"area"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
	Logo         *string  `json:"logo"`
	Image        *string  `json:"image"`
	OGImage      *string  `json:"ogImage"`
	MapURL       *string  `json:"mapUrl"`
	InstagramURL *string  `json:"instagramUrl"`
	WhatsApp     *string  `json:"whatsapp"`

	UpdatedAt time.Time `json:"updatedAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// VenueFilter narrows a venue listing.
type VenueFilter struct {
	DestinationSlug string
	Query           string // substring of name, excerpt, card perk or any tag
	Category        string
}
