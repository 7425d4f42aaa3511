package httpapi

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"evdealer/backend/internal/apperr"
)

// depositDraftSchema mirrors domain.DepositDraft. Unknown fields are rejected
// before the draft reaches the workflow.
const depositDraftSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["type", "customer_id", "customer_name", "customer_phone", "vehicle_model", "vehicle_color", "vehicle_price", "deposit_percentage"],
  "properties": {
    "type": {"type": "string", "enum": ["available", "pre_order"]},
    "dealer_id": {"type": "string"},
    "customer_id": {"type": "string", "minLength": 1},
    "customer_name": {"type": "string", "minLength": 1},
    "customer_phone": {"type": "string", "minLength": 1},
    "customer_email": {"type": "string"},
    "vehicle_id": {"type": "string"},
    "vehicle_model": {"type": "string", "minLength": 1},
    "vehicle_color": {"type": "string", "minLength": 1},
    "vehicle_price": {"type": "integer", "minimum": 1},
    "deposit_percentage": {"type": "integer", "minimum": 1, "maximum": 100},
    "deposit_date": {"type": "string", "format": "date-time"},
    "expected_delivery_date": {"type": "string", "format": "date-time"},
    "final_payment_due_date": {"type": "string", "format": "date-time"}
  }
}`

var depositDraftLoader = gojsonschema.NewStringLoader(depositDraftSchema)

func validateDepositDraft(body []byte) error {
	result, err := gojsonschema.Validate(depositDraftLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return apperr.InvalidArgument("request body is not valid JSON: %v", err)
	}
	if result.Valid() {
		return nil
	}
	errs := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		errs[i] = desc.String()
	}
	return apperr.InvalidArgument("%s", fmt.Sprintf("deposit validation failed: %s", strings.Join(errs, "; ")))
}
