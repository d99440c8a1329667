package message

import (
	"encoding/json"
	"fmt"
)

// Response kind tags used by the persisted envelope format.
const (
	kindText        = "text"
	kindMultiChoice = "multi_choice"
	kindURLImage    = "url_image"
)

// envelope is the stored form of a Response: a kind tag plus the kind's
// own JSON body. Pending records embed responses in this shape so they
// survive the context store round-trip.
type envelope struct {
	Kind string          `json:"kind"`
	Body json.RawMessage `json:"body"`
}

// Encode serializes a response into its tagged envelope form.
func Encode(r Response) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("encode response: nil response")
	}

	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode response body: %w", err)
	}

	return json.Marshal(envelope{Kind: r.kind(), Body: body})
}

// Decode parses a tagged envelope back into a concrete response value.
func Decode(data []byte) (Response, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode response envelope: %w", err)
	}

	switch env.Kind {
	case kindText:
		var r TextualResponse
		if err := json.Unmarshal(env.Body, &r); err != nil {
			return nil, fmt.Errorf("decode textual response: %w", err)
		}
		return r, nil
	case kindMultiChoice:
		var r MultiChoiceResponse
		if err := json.Unmarshal(env.Body, &r); err != nil {
			return nil, fmt.Errorf("decode multi-choice response: %w", err)
		}
		return r, nil
	case kindURLImage:
		var r UrlImageResponse
		if err := json.Unmarshal(env.Body, &r); err != nil {
			return nil, fmt.Errorf("decode url image response: %w", err)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("decode response: unknown kind %q", env.Kind)
	}
}

// Responses is a slice of responses that round-trips through JSON using the
// tagged envelope format.
type Responses []Response

// MarshalJSON implements json.Marshaler.
func (rs Responses) MarshalJSON() ([]byte, error) {
	encoded := make([]json.RawMessage, 0, len(rs))
	for _, r := range rs {
		data, err := Encode(r)
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, data)
	}
	return json.Marshal(encoded)
}

// UnmarshalJSON implements json.Unmarshaler.
func (rs *Responses) UnmarshalJSON(data []byte) error {
	var encoded []json.RawMessage
	if err := json.Unmarshal(data, &encoded); err != nil {
		return fmt.Errorf("decode responses: %w", err)
	}

	out := make(Responses, 0, len(encoded))
	for _, raw := range encoded {
		r, err := Decode(raw)
		if err != nil {
			return err
		}
		out = append(out, r)
	}

	*rs = out
	return nil
}
