package venues

import "strings"

type fieldKind int

const (
	slugField        fieldKind = iota // trimmed, lower-cased, non-empty
	nameField                         // trimmed, non-empty
	statusField                       // trimmed, lower-cased, non-empty
	boolField                         // not null
	setField                          // null clears the set
	offersField                       // null clears the list
	textField                         // nullable
	numberField                       // nullable
	integerField                      // nullable
	discountField                     // nullable, converted by the discount policy
	priorityField                     // not null, >= 0
	powerBackupField                  // not null, enumerated
)

type fieldSpec struct {
	key    string
	column string
	kind   fieldKind
}

// patchFields lists every field a partial update may change, in the order the
// SET clause is built. id is the lookup key and is never changed.
var patchFields = []fieldSpec{
	{"destinationSlug", "destination_slug", slugField},
	{"name", "name", nameField},
	{"slug", "slug", slugField},
	{"status", "status", statusField},
	{"live", "live", boolField},
	{"editorialTags", "editorial_tags", setField},
	{"isPassVenue", "is_pass_venue", boolField},
	{"staffPick", "staff_pick", boolField},
	{"priorityScore", "priority_score", priorityField},
	{"laptopFriendly", "laptop_friendly", boolField},
	{"powerBackup", "power_backup", powerBackupField},
	{"categories", "categories", setField},
	{"emoji", "emoji", setField},
	{"stars", "stars", numberField},
	{"reviews", "reviews", integerField},
	{"discount", "discount", discountField},
	{"excerpt", "excerpt", textField},
	{"description", "description", textField},
	{"bestFor", "best_for", setField},
	{"tags", "tags", setField},
	{"cardPerk", "card_perk", textField},
	{"offers", "offers", offersField},
	{"howToClaim", "how_to_claim", textField},
	{"restrictions", "restrictions", textField},
	{"area", "area", textField},
	{"lat", "lat", numberField},
	{"lng", "lng", numberField},
	{"logo", "logo", textField},
	{"image", "image", textField},
	{"ogImage", "og_image", textField},
	{"mapUrl", "map_url", textField},
	{"instagramUrl", "instagram_url", textField},
	{"whatsapp", "whatsapp", textField},
}

// patchValue converts the value sent for col.key into the column value. Only
// called for keys present in f.
func (s *service) patchValue(f Fields, col fieldSpec) (any, error) {
	key := col.key
	null := f.IsNull(key)

	switch col.kind {
	case slugField, nameField, statusField:
		if null {
			return nil, invalidf("%s cannot be null", key)
		}
		v, err := f.Text(key)
		if err != nil {
			return nil, err
		}
		v = strings.TrimSpace(v)
		if col.kind != nameField {
			v = strings.ToLower(v)
		}
		if v == "" {
			return nil, invalidf("%s cannot be empty", key)
		}
		return v, nil

	case boolField:
		if null {
			return nil, invalidf("%s cannot be null", key)
		}
		return f.Bool(key, false)

	case setField:
		return f.StringSet(key), nil

	case offersField:
		return f.Offers(key), nil

	case textField:
		if null {
			return nil, nil
		}
		return f.Text(key)

	case numberField:
		n, err := f.Number(key)
		if err != nil || n == nil {
			return nil, err
		}
		return *n, nil

	case integerField:
		n, err := f.Integer(key)
		if err != nil || n == nil {
			return nil, err
		}
		return *n, nil

	case discountField:
		n, err := f.Number(key)
		if err != nil || n == nil {
			return nil, err
		}
		return s.opts.DiscountPolicy.Normalize(*n)

	case priorityField:
		if null {
			return nil, invalidf("priorityScore cannot be null")
		}
		n, err := f.Number(key)
		if err != nil {
			return nil, err
		}
		if n == nil {
			return nil, invalidf("priorityScore must be a number")
		}
		if err := checkPriorityScore(*n); err != nil {
			return nil, err
		}
		return *n, nil

	case powerBackupField:
		if null {
			return nil, invalidf("powerBackup cannot be null")
		}
		v, err := f.Text(key)
		if err != nil {
			return nil, err
		}
		v = strings.ToLower(strings.TrimSpace(v))
		if err := checkPowerBackup(v); err != nil {
			return nil, err
		}
		return v, nil
	}

	return nil, invalidf("%s cannot be updated", key)
}
