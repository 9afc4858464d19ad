package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const selectionSchema = `{
  "type": "object",
  "required": ["work"],
  "properties": {
    "color": { "type": "string" },
    "work": { "type": "string", "minLength": 1 },
    "options": { "type": "object", "additionalProperties": { "type": "boolean" } }
  },
  "additionalProperties": false
}`

var schemaPay = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["selection"],
  "properties": {
    "selection": ` + selectionSchema + `,
    "buyer": {
      "type": "object",
      "properties": {
        "email": { "type": "string", "maxLength": 254 },
        "postal_code": { "type": "string", "maxLength": 16 }
      },
      "additionalProperties": false
    }
  },
  "additionalProperties": false
}`

var schemaQuoteRequest = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["company", "email", "selection"],
  "properties": {
    "company": { "type": "string", "minLength": 1, "maxLength": 200 },
    "email": { "type": "string", "format": "email" },
    "phone": { "type": "string", "maxLength": 32 },
    "postal_code": { "type": "string", "maxLength": 16 },
    "message": { "type": "string", "maxLength": 4000 },
    "selection": ` + selectionSchema + `
  },
  "additionalProperties": false
}`

var (
	payLoader          = gojsonschema.NewStringLoader(schemaPay)
	quoteRequestLoader = gojsonschema.NewStringLoader(schemaQuoteRequest)
)

var errBodyTooLarge = errors.New("request body too large")

// readBody reads at most limit bytes; anything longer is rejected rather than truncated.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, errBodyTooLarge
		}
		return nil, err
	}
	return body, nil
}

func validateJSONSchema(schemaLoader gojsonschema.JSONLoader, body []byte) error {
	loader := gojsonschema.NewBytesLoader(body)
	result, err := gojsonschema.Validate(schemaLoader, loader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("request does not conform to schema: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// decodeValidated reads the body, checks it against the schema and writes the error
// response itself when it returns false.
func decodeValidated(w http.ResponseWriter, r *http.Request, limit int64, schema gojsonschema.JSONLoader, decode func([]byte) error) bool {
	body, err := readBody(w, r, limit)
	if errors.Is(err, errBodyTooLarge) {
		respondError(w, http.StatusRequestEntityTooLarge, "body_too_large", err.Error())
		return false
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "could not read body")
		return false
	}
	if err := validateJSONSchema(schema, body); err != nil {
		respondErrorDetails(w, http.StatusBadRequest, "invalid_request", "invalid JSON body", err.Error())
		return false
	}
	if err := decode(body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}
