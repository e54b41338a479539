package generation

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Schema names used in errors and logs
const (
	SchemaNarrative = "ReportItemResult"
	SchemaMarket    = "MarketForecastAndCompetitors"
	SchemaIPC       = "IPCAnalysisResult"
)

// NewValidator returns the validator used for all model output schemas
func NewValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// ParseOutput repairs raw model text and decodes it into T, validating the
// result against T's validate tags. Decode and validation failures are
// returned as *SchemaValidationError; text without an object as ErrMalformedOutput.
func ParseOutput[T any](raw, freeTextField, schema string, validate *validator.Validate) (T, error) {
	var out T

	repaired, err := RepairJSON(raw, freeTextField)
	if err != nil {
		return out, err
	}

	decoder := json.NewDecoder(bytes.NewReader([]byte(repaired)))
	if err := decoder.Decode(&out); err != nil {
		return out, &SchemaValidationError{Schema: schema, Err: fmt.Errorf("decode: %w", err)}
	}

	if err := validate.Struct(&out); err != nil {
		return out, &SchemaValidationError{Schema: schema, Err: err}
	}

	return out, nil
}
