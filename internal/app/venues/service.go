package venues

import (
	"context"
	"strings"

	"venueadmin/internal/store"
	"venueadmin/shared/go/models"
)

// Store defines persistence operations for venues.
type Store interface {
	UpsertVenue(ctx context.Context, v models.Venue) (models.Venue, bool, error)
	UpdateVenue(ctx context.Context, id string, changes []store.Assignment) (models.Venue, error)
	DeleteVenue(ctx context.Context, id string) (string, error)
	ListVenues(ctx context.Context, filter models.VenueFilter) ([]models.Venue, error)
}

// Service coordinates venue workflows.
type Service interface {
	// Create validates a full venue and upserts it by id. On an existing id
	// every mutable column is overwritten with the supplied values or their
	// defaults; nothing is merged. Use Update to change individual fields.
	Create(ctx context.Context, fields Fields) (models.Venue, bool, error)
	// Update changes only the keys present in fields on the venue named by
	// fields["id"].
	Update(ctx context.Context, fields Fields) (models.Venue, error)
	Delete(ctx context.Context, id string) (string, error)
	List(ctx context.Context, filter models.VenueFilter) ([]models.Venue, error)
}

// Options carries the product-level settings the venue rules depend on.
type Options struct {
	DefaultDestinationSlug string
	DiscountPolicy         DiscountPolicy
}

type service struct {
	store Store
	opts  Options
}

// New constructs a venue Service backed by the provided Store.
func New(store Store, opts Options) Service {
	if opts.DiscountPolicy == "" {
		opts.DiscountPolicy = DiscountLegacyPercent
	}
	return &service{store: store, opts: opts}
}

func (s *service) Create(ctx context.Context, fields Fields) (models.Venue, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Venue{}, false, err
	}

	v, err := s.venueFromFields(fields)
	if err != nil {
		return models.Venue{}, false, err
	}
	return s.store.UpsertVenue(ctx, v)
}

func (s *service) Update(ctx context.Context, fields Fields) (models.Venue, error) {
	if err := ctx.Err(); err != nil {
		return models.Venue{}, err
	}

	rawID, err := fields.Text("id")
	if err != nil {
		return models.Venue{}, err
	}
	id := lower(rawID)
	if id == "" {
		return models.Venue{}, invalidf("id is required")
	}

	changes := make([]store.Assignment, 0, len(fields))
	for _, col := range patchFields {
		if !fields.Has(col.key) {
			continue
		}
		value, err := s.patchValue(fields, col)
		if err != nil {
			return models.Venue{}, err
		}
		changes = append(changes, store.Assignment{Column: col.column, Value: value})
	}

	return s.store.UpdateVenue(ctx, id, changes)
}

func (s *service) Delete(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id = lower(id)
	if id == "" {
		return "", invalidf("id is required")
	}
	return s.store.DeleteVenue(ctx, id)
}

func (s *service) List(ctx context.Context, filter models.VenueFilter) ([]models.Venue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filter.DestinationSlug = lower(filter.DestinationSlug)
	if filter.DestinationSlug == "" {
		filter.DestinationSlug = lower(s.opts.DefaultDestinationSlug)
	}
	if filter.DestinationSlug == "" {
		return nil, invalidf("destinationSlug is required")
	}
	filter.Query = lower(filter.Query)
	filter.Category = lower(filter.Category)

	return s.store.ListVenues(ctx, filter)
}

func (s *service) venueFromFields(f Fields) (models.Venue, error) {
	d := &decoder{fields: f, discount: s.opts.DiscountPolicy}

	v := models.Venue{
		DestinationSlug: lower(d.text("destinationSlug")),
		Name:            strings.TrimSpace(d.text("name")),
		Slug:            lower(d.text("slug")),
		ID:              lower(d.text("id")),
		Status:          lower(d.text("status")),
		Live:            d.boolean("live", true),

		EditorialTags:  f.StringSet("editorialTags"),
		IsPassVenue:    d.boolean("isPassVenue", false),
		StaffPick:      d.boolean("staffPick", false),
		LaptopFriendly: d.boolean("laptopFriendly", false),
		PowerBackup:    models.PowerBackup(lower(d.text("powerBackup"))),

		Categories:   f.StringSet("categories"),
		Emoji:        f.StringSet("emoji"),
		Stars:        d.number("stars"),
		Reviews:      d.integer("reviews"),
		Discount:     d.discountValue("discount"),
		Excerpt:      d.nullableText("excerpt"),
		Description:  d.nullableText("description"),
		BestFor:      f.StringSet("bestFor"),
		Tags:         f.StringSet("tags"),
		CardPerk:     d.nullableText("cardPerk"),
		Offers:       f.Offers("offers"),
		HowToClaim:   d.nullableText("howToClaim"),
		Restrictions: d.nullableText("restrictions"),

		Area:         d.nullableText("area"),
		Lat:          d.number("lat"),
		Lng:          d.number("lng"),
		Logo:         d.nullableText("logo"),
		Image:        d.nullableText("image"),
		OGImage:      d.nullableText("ogImage"),
		MapURL:       d.nullableText("mapUrl"),
		InstagramURL: d.nullableText("instagramUrl"),
		WhatsApp:     d.nullableText("whatsapp"),
	}
	if score := d.number("priorityScore"); score != nil {
		v.PriorityScore = *score
	}
	if d.err != nil {
		return models.Venue{}, d.err
	}

	if v.ID == "" {
		v.ID = v.Slug
	}
	if v.Status == "" {
		v.Status = "active"
	}
	if v.PowerBackup == "" {
		v.PowerBackup = models.PowerBackupUnknown
	}

	if err := checkRules(createRules{
		DestinationSlug: v.DestinationSlug,
		Name:            v.Name,
		Slug:            v.Slug,
		PriorityScore:   v.PriorityScore,
		PowerBackup:     string(v.PowerBackup),
	}); err != nil {
		return models.Venue{}, err
	}
	return v, nil
}

// decoder reads typed values from Fields and keeps the first error.
type decoder struct {
	fields   Fields
	discount DiscountPolicy
	err      error
}

func (d *decoder) text(key string) string {
	if d.err != nil {
		return ""
	}
	s, err := d.fields.Text(key)
	d.err = err
	return s
}

func (d *decoder) nullableText(key string) *string {
	if d.err != nil {
		return nil
	}
	s, err := d.fields.NullableText(key)
	d.err = err
	return s
}

func (d *decoder) boolean(key string, fallback bool) bool {
	if d.err != nil {
		return fallback
	}
	b, err := d.fields.Bool(key, fallback)
	d.err = err
	return b
}

func (d *decoder) number(key string) *float64 {
	if d.err != nil {
		return nil
	}
	n, err := d.fields.Number(key)
	d.err = err
	return n
}

func (d *decoder) integer(key string) *int64 {
	if d.err != nil {
		return nil
	}
	n, err := d.fields.Integer(key)
	d.err = err
	return n
}

func (d *decoder) discountValue(key string) *float64 {
	n := d.number(key)
	if n == nil || d.err != nil {
		return nil
	}
	fraction, err := d.discount.Normalize(*n)
	if err != nil {
		d.err = err
		return nil
	}
	return &fraction
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
