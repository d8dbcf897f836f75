package importer

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"venueadmin/internal/validation"
)

// Creator upserts one venue record.
type Creator interface {
	CreateVenue(ctx context.Context, rec Record) (inserted bool, err error)
}

// Skipped is a place dropped for missing required fields.
type Skipped struct {
	ID              string
	DestinationSlug string
	Slug            string
	Name            string
	Reason          string
}

// Failure is a place the API rejected or could not be reached for.
type Failure struct {
	ID     string
	Status int // 0 when the request never got a reply
	Error  string
}

// Summary tallies one import run.
type Summary struct {
	Total            int
	Inserted         []string
	Updated          []string
	SkippedMissing   []Skipped
	SkippedDuplicate []string
	Failed           []Failure
}

// Run sends each place to creator in order. A positive limit caps how many
// places are considered. Places repeating a destinationSlug:id pair already
// seen in this run are skipped. Run stops early only when ctx is done.
func Run(ctx context.Context, creator Creator, places []Place, limit int) (Summary, error) {
	if limit > 0 && limit < len(places) {
		places = places[:limit]
	}
	sum := Summary{Total: len(places)}
	seen := make(map[string]struct{}, len(places))

	for _, place := range places {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		rec := Normalize(place)
		if err := validation.Struct(rec); err != nil {
			vid := rec.ID
			if vid == "" {
				vid = rec.Slug
			}
			if vid == "" {
				vid = "(unknown)"
			}
			sum.SkippedMissing = append(sum.SkippedMissing, Skipped{
				ID:              vid,
				DestinationSlug: rec.DestinationSlug,
				Slug:            rec.Slug,
				Name:            rec.Name,
				Reason:          "missing required fields",
			})
			log.Info().Str("id", vid).Err(err).Msg("Skipped (missing fields)")
			continue
		}

		key := rec.DestinationSlug + ":" + rec.ID
		if _, dup := seen[key]; dup {
			sum.SkippedDuplicate = append(sum.SkippedDuplicate, rec.ID)
			log.Info().Str("id", rec.ID).Msg("Skipped (duplicate in file)")
			continue
		}
		seen[key] = struct{}{}

		inserted, err := creator.CreateVenue(ctx, rec)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return sum, ctxErr
			}
			f := Failure{ID: rec.ID, Error: err.Error()}
			var se *StatusError
			if errors.As(err, &se) {
				f.Status = se.Status
				f.Error = se.Message
			}
			sum.Failed = append(sum.Failed, f)
			log.Warn().Str("id", rec.ID).Int("status", f.Status).Str("error", f.Error).Msg("Failed")
			continue
		}

		if inserted {
			sum.Inserted = append(sum.Inserted, rec.ID)
			log.Info().Str("id", rec.ID).Msg("Inserted")
		} else {
			sum.Updated = append(sum.Updated, rec.ID)
			log.Info().Str("id", rec.ID).Msg("Updated")
		}
	}
	return sum, nil
}
