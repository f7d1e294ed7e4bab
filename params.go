package aistudio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultMaxTokens is the completion budget assumed when max_tokens is unset.
const DefaultMaxTokens = 4096

// Response format constants.
const (
	ResponseFormatText = "text"
	ResponseFormatJSON = "json_object"
)

// RequestParams represents the sampling and configuration parameters of one
// request. All fields are optional pointers (or nil-able slices/maps) to
// distinguish "not set" from "set to zero value": unset fields are never
// emitted on the wire, because some backend variants reject unknown or null
// fields.
type RequestParams struct {
	// Temperature controls randomness
	Temperature *float64 `json:"temperature,omitempty"`

	// TopP (nucleus sampling) - cumulative probability cutoff
	TopP *float64 `json:"top_p,omitempty"`

	// N is the number of completions to generate (1-128)
	N *int `json:"n,omitempty" validate:"omitempty,min=1,max=128"`

	// User is an identifier for the end user making the request
	User *string `json:"user,omitempty"`

	// MaxTokens sets the maximum number of tokens to generate
	MaxTokens *int `json:"max_tokens,omitempty"`

	// Stream requests a chunked streaming response
	Stream *bool `json:"stream,omitempty"`

	// PresencePenalty reduces repetition of topics
	PresencePenalty *float64 `json:"presence_penalty,omitempty"`

	// FrequencyPenalty reduces repetition of token sequences
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`

	// Stop sequences - generation stops if any of these are generated (max 4)
	Stop []string `json:"stop,omitempty" validate:"omitempty,max=4"`

	// LogitBias adjusts likelihood of specific tokens
	LogitBias map[string]float64 `json:"logit_bias,omitempty"`

	// ResponseFormat is "text" or "json_object"
	ResponseFormat *string `json:"response_format,omitempty" validate:"omitempty,oneof=text json_object"`

	// DataSources lists external data-source descriptors.
	// The service must have data sources enabled for these to take effect.
	DataSources []DataSource `json:"dataSources,omitempty"`

	// Seed for deterministic sampling (if supported by the service)
	Seed *int `json:"seed,omitempty"`
}

// DataSource describes an external data source attached to a request.
// It is carried verbatim; the library does not inspect it.
type DataSource struct {
	Type       string         `json:"type"`
	Parameters map[string]any `json:"parameters"`
}

var paramsValidator = newParamsValidator()

// newParamsValidator builds a validator that reports fields by their JSON
// names, so errors name the wire field the caller actually set.
func newParamsValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the RequestParams invariants: len(stop) <= 4, n in [1,128],
// response_format in its closed set. On violation it returns a
// *ValidationError naming the violated field. This is the fail-fast boundary:
// it runs before any network call and its errors are never retried.
func (rp *RequestParams) Validate() error {
	if rp == nil {
		return nil
	}

	err := paramsValidator.Struct(rp)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Field: "params", Reason: err.Error(), Err: ErrInvalidRequest}
	}

	fe := fieldErrs[0]
	return &ValidationError{
		Field:  fe.Field(),
		Value:  fe.Value(),
		Reason: fmt.Sprintf("failed '%s' constraint", fe.Tag()),
		Err:    ErrInvalidRequest,
	}
}

// ParamsFromMap converts a loosely-typed parameter map into a typed
// RequestParams via a JSON round-trip. Unknown keys fail so that typos
// surface at the fail-fast boundary instead of being dropped silently.
func ParamsFromMap(params map[string]any) (*RequestParams, error) {
	if params == nil {
		return &RequestParams{}, nil
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, &ValidationError{Field: "params", Reason: "parameters are not serializable", Err: err}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var rp RequestParams
	if err := dec.Decode(&rp); err != nil {
		return nil, &ValidationError{Field: "params", Reason: "parameters do not match the request schema", Err: err}
	}

	return &rp, nil
}

// GetMaxTokens returns max_tokens, or DefaultMaxTokens when unset.
func (rp *RequestParams) GetMaxTokens() int {
	if rp == nil || rp.MaxTokens == nil {
		return DefaultMaxTokens
	}
	return *rp.MaxTokens
}

// GetResponseFormat returns response_format, or "text" when unset.
func (rp *RequestParams) GetResponseFormat() string {
	if rp == nil || rp.ResponseFormat == nil {
		return ResponseFormatText
	}
	return *rp.ResponseFormat
}

// IsStreaming reports whether the stream flag is set.
func (rp *RequestParams) IsStreaming() bool {
	return rp != nil && rp.Stream != nil && *rp.Stream
}
