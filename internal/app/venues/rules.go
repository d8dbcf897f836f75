package venues

import (
	"errors"

	"venueadmin/internal/validation"
)

const powerBackupRule = "oneof=generator inverter none unknown"

// createRules holds the normalized values every new venue must satisfy.
type createRules struct {
	DestinationSlug string  `json:"destinationSlug" validate:"required"`
	Name            string  `json:"name" validate:"required"`
	Slug            string  `json:"slug" validate:"required"`
	PriorityScore   float64 `json:"priorityScore" validate:"gte=0"`
	PowerBackup     string  `json:"powerBackup" validate:"oneof=generator inverter none unknown"`
}

func checkRules(rules createRules) error {
	return describe(validation.Struct(rules))
}

func checkPriorityScore(score float64) error {
	return describe(validation.Var("priorityScore", score, "gte=0"))
}

func checkPowerBackup(value string) error {
	return describe(validation.Var("powerBackup", value, powerBackupRule))
}

// describe turns a validation failure into the client-facing message.
func describe(err error) error {
	var fe *validation.FieldError
	if !errors.As(err, &fe) {
		return err
	}
	switch fe.Tag {
	case "required":
		return invalidf("%s is required", fe.Field)
	case "oneof":
		return invalidf("%s must be one of %s", fe.Field, validation.OneOfList(fe.Param))
	case "gte":
		return invalidf("%s must be >= %s", fe.Field, fe.Param)
	default:
		return invalidf("%s is invalid", fe.Field)
	}
}
