package domain

import "encoding/json"

// ChargeRequest is the body posted to the charge endpoint. It is created once per submit
// attempt. VerificationToken is serialized as null when verification was skipped.
type ChargeRequest struct {
	SourceID          string  `json:"sourceId"`
	Amount            int64   `json:"amount"`
	VerificationToken *string `json:"verificationToken"`
}

// ChargeResult carries the charge endpoint's success payload untouched.
type ChargeResult struct {
	Payload json.RawMessage
}
