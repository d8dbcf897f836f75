package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/lib/pq"

	"venueadmin/shared/go/models"
)

// MaxVenueListSize caps the number of rows a listing returns.
const MaxVenueListSize = 500

const venueColumns = `id, destination_slug, name, slug, status, live,
		editorial_tags, is_pass_venue, staff_pick, priority_score, laptop_friendly, power_backup,
		categories, emoji, stars, reviews, discount, excerpt, description,
		best_for, tags, card_perk, offers, how_to_claim, restrictions,
		area, lat, lng, logo, image, og_image, map_url, instagram_url, whatsapp,
		updated_at, created_at`

// patchableColumns maps every column a partial update may touch to the cast
// applied to its placeholder.
var patchableColumns = map[string]string{
	"destination_slug": "",
	"name":             "",
	"slug":             "",
	"status":           "",
	"live":             "::boolean",
	"editorial_tags":   "::text[]",
	"is_pass_venue":    "::boolean",
	"staff_pick":       "::boolean",
	"priority_score":   "::numeric",
	"laptop_friendly":  "::boolean",
	"power_backup":     "::varchar",
	"categories":       "::text[]",
	"emoji":            "::text[]",
	"stars":            "::numeric",
	"reviews":          "::int",
	"discount":         "::numeric",
	"excerpt":          "",
	"description":      "",
	"best_for":         "::text[]",
	"tags":             "::text[]",
	"card_perk":        "",
	"offers":           "::jsonb",
	"how_to_claim":     "",
	"restrictions":     "",
	"area":             "",
	"lat":              "::double precision",
	"lng":              "::double precision",
	"logo":             "",
	"image":            "",
	"og_image":         "",
	"map_url":          "",
	"instagram_url":    "",
	"whatsapp":         "",
}

// Assignment sets a single column during a partial update.
type Assignment struct {
	Column string
	Value  any
}

// IsPatchableColumn reports whether UpdateVenue accepts the column.
func IsPatchableColumn(column string) bool {
	_, ok := patchableColumns[column]
	return ok
}

// UpsertVenue inserts the venue or, when the id already exists, overwrites every
// mutable column with the supplied values. The boolean reports a fresh insert.
func (s *Store) UpsertVenue(ctx context.Context, v models.Venue) (models.Venue, bool, error) {
	query := `
		INSERT INTO venues (
			id, destination_slug, name, slug, status, live,
			editorial_tags, is_pass_venue, staff_pick, priority_score, laptop_friendly, power_backup,
			categories, emoji, stars, reviews, discount, excerpt, description,
			best_for, tags, card_perk, offers, how_to_claim, restrictions,
			area, lat, lng, logo, image, og_image, map_url, instagram_url, whatsapp
		)
		VALUES (
			$1, $2, $3, $4, $5, $6,
			$7::text[], $8, $9, $10, $11, $12,
			$13::text[], $14::text[], $15, $16, $17, $18, $19,
			$20::text[], $21::text[], $22, $23::jsonb, $24, $25,
			$26, $27, $28, $29, $30, $31, $32, $33, $34
		)
		ON CONFLICT (id) DO UPDATE SET
			destination_slug = EXCLUDED.destination_slug,
			name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			status = EXCLUDED.status,
			live = EXCLUDED.live,
			editorial_tags = EXCLUDED.editorial_tags,
			is_pass_venue = EXCLUDED.is_pass_venue,
			staff_pick = EXCLUDED.staff_pick,
			priority_score = EXCLUDED.priority_score,
			laptop_friendly = EXCLUDED.laptop_friendly,
			power_backup = EXCLUDED.power_backup,
			categories = EXCLUDED.categories,
			emoji = EXCLUDED.emoji,
			stars = EXCLUDED.stars,
			reviews = EXCLUDED.reviews,
			discount = EXCLUDED.discount,
			excerpt = EXCLUDED.excerpt,
			description = EXCLUDED.description,
			best_for = EXCLUDED.best_for,
			tags = EXCLUDED.tags,
			card_perk = EXCLUDED.card_perk,
			offers = EXCLUDED.offers,
			how_to_claim = EXCLUDED.how_to_claim,
			restrictions = EXCLUDED.restrictions,
			area = EXCLUDED.area,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			logo = EXCLUDED.logo,
			image = EXCLUDED.image,
			og_image = EXCLUDED.og_image,
			map_url = EXCLUDED.map_url,
			instagram_url = EXCLUDED.instagram_url,
			whatsapp = EXCLUDED.whatsapp,
			updated_at = NOW()
		RETURNING ` + venueColumns + `, (xmax = 0) AS inserted
	`

	offers := string(v.Offers)
	if offers == "" {
		offers = "[]"
	}

	var inserted bool
	row := s.db.QueryRowContext(ctx, query,
		v.ID, v.DestinationSlug, v.Name, v.Slug, v.Status, v.Live,
		pq.StringArray(stringSet(v.EditorialTags)), v.IsPassVenue, v.StaffPick, v.PriorityScore, v.LaptopFriendly, string(v.PowerBackup),
		pq.StringArray(stringSet(v.Categories)), pq.StringArray(stringSet(v.Emoji)),
		nullableFloat(v.Stars), nullableInt(v.Reviews), nullableFloat(v.Discount),
		nullableString(v.Excerpt), nullableString(v.Description),
		pq.StringArray(stringSet(v.BestFor)), pq.StringArray(stringSet(v.Tags)),
		nullableString(v.CardPerk), offers,
		nullableString(v.HowToClaim), nullableString(v.Restrictions),
		nullableString(v.Area), nullableFloat(v.Lat), nullableFloat(v.Lng),
		nullableString(v.Logo), nullableString(v.Image), nullableString(v.OGImage),
		nullableString(v.MapURL), nullableString(v.InstagramURL), nullableString(v.WhatsApp),
	)

	saved, err := scanVenue(row, &inserted)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Venue{}, false, ErrVenueConflict
		}
		return models.Venue{}, false, fmt.Errorf("upsert venue: %w", err)
	}
	return saved, inserted, nil
}

// UpdateVenue applies the given assignments to the venue and refreshes
// updated_at. Columns absent from changes keep their stored value.
func (s *Store) UpdateVenue(ctx context.Context, id string, changes []Assignment) (models.Venue, error) {
	sets := make([]string, 0, len(changes)+1)
	args := []any{id}
	for _, c := range changes {
		cast, ok := patchableColumns[c.Column]
		if !ok {
			return models.Venue{}, fmt.Errorf("column %q cannot be updated", c.Column)
		}
		args = append(args, columnValue(c.Value))
		sets = append(sets, fmt.Sprintf("%s = $%d%s", c.Column, len(args), cast))
	}
	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf(`
		UPDATE venues
		SET %s
		WHERE id = $1
		RETURNING %s
	`, strings.Join(sets, ", "), venueColumns)

	v, err := scanVenue(s.db.QueryRowContext(ctx, query, args...))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return models.Venue{}, ErrVenueNotFound
	case isUniqueViolation(err):
		return models.Venue{}, ErrVenueConflict
	case err != nil:
		return models.Venue{}, fmt.Errorf("update venue: %w", err)
	}
	return v, nil
}

// DeleteVenue physically removes a venue and returns the deleted id.
func (s *Store) DeleteVenue(ctx context.Context, id string) (string, error) {
	var deleted string
	err := s.db.QueryRowContext(ctx, `
		DELETE FROM venues
		WHERE id = $1
		RETURNING id
	`, id).Scan(&deleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrVenueNotFound
		}
		return "", fmt.Errorf("delete venue: %w", err)
	}
	return deleted, nil
}

// ListVenues returns venues of one destination, most recently updated first.
// Query and Category are expected to be lower-cased by the caller.
func (s *Store) ListVenues(ctx context.Context, filter models.VenueFilter) ([]models.Venue, error) {
	where := []string{"destination_slug = $1"}
	args := []any{filter.DestinationSlug}

	if filter.Query != "" {
		args = append(args, "%"+escapeLike(filter.Query)+"%")
		where = append(where, fmt.Sprintf(`(lower(name) LIKE $%[1]d
			OR lower(coalesce(excerpt, '')) LIKE $%[1]d
			OR lower(coalesce(card_perk, '')) LIKE $%[1]d
			OR EXISTS (SELECT 1 FROM unnest(tags) t WHERE lower(t) LIKE $%[1]d))`, len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf(`EXISTS (SELECT 1 FROM unnest(categories) c WHERE lower(c) = $%d)`, len(args)))
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM venues
		WHERE %s
		ORDER BY updated_at DESC
		LIMIT %d
	`, venueColumns, strings.Join(where, " AND "), MaxVenueListSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select venues: %w", err)
	}
	defer rows.Close()

	venues := make([]models.Venue, 0)
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan venue: %w", err)
		}
		venues = append(venues, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate venues: %w", err)
	}
	return venues, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanVenue reads venueColumns in order, followed by any extra destinations.
func scanVenue(row rowScanner, extra ...any) (models.Venue, error) {
	var (
		v                                               models.Venue
		powerBackup                                     string
		editorialTags, categories, emoji, bestFor, tags pq.StringArray
		stars, discount, lat, lng                       sql.NullFloat64
		reviews                                         sql.NullInt64
		excerpt, description, cardPerk                  sql.NullString
		howToClaim, restrictions, area                  sql.NullString
		logo, image, ogImage                            sql.NullString
		mapURL, instagramURL, whatsapp                  sql.NullString
		offers                                          []byte
	)

	dest := []any{
		&v.ID, &v.DestinationSlug, &v.Name, &v.Slug, &v.Status, &v.Live,
		&editorialTags, &v.IsPassVenue, &v.StaffPick, &v.PriorityScore, &v.LaptopFriendly, &powerBackup,
		&categories, &emoji, &stars, &reviews, &discount, &excerpt, &description,
		&bestFor, &tags, &cardPerk, &offers, &howToClaim, &restrictions,
		&area, &lat, &lng, &logo, &image, &ogImage, &mapURL, &instagramURL, &whatsapp,
		&v.UpdatedAt, &v.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return models.Venue{}, err
	}

	v.PowerBackup = models.PowerBackup(powerBackup)
	v.EditorialTags = stringSet(editorialTags)
	v.Categories = stringSet(categories)
	v.Emoji = stringSet(emoji)
	v.BestFor = stringSet(bestFor)
	v.Tags = stringSet(tags)
	v.Stars = floatPtr(stars)
	v.Discount = floatPtr(discount)
	v.Lat = floatPtr(lat)
	v.Lng = floatPtr(lng)
	if reviews.Valid {
		n := reviews.Int64
		v.Reviews = &n
	}
	v.Excerpt = stringPtr(excerpt)
	v.Description = stringPtr(description)
	v.CardPerk = stringPtr(cardPerk)
	v.HowToClaim = stringPtr(howToClaim)
	v.Restrictions = stringPtr(restrictions)
	v.Area = stringPtr(area)
	v.Logo = stringPtr(logo)
	v.Image = stringPtr(image)
	v.OGImage = stringPtr(ogImage)
	v.MapURL = stringPtr(mapURL)
	v.InstagramURL = stringPtr(instagramURL)
	v.WhatsApp = stringPtr(whatsapp)

	if len(offers) == 0 {
		offers = []byte("[]")
	}
	v.Offers = offers

	return v, nil
}

// columnValue adapts Go values to what the driver expects for array and jsonb columns.
func columnValue(v any) any {
	switch val := v.(type) {
	case []string:
		return pq.StringArray(stringSet(val))
	case json.RawMessage:
		return string(val)
	default:
		return v
	}
}

func stringSet(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}

func nullableString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullableFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullableInt(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
