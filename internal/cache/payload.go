package cache

// PayloadKeyRelatedButtons is the conventional payload key listing sibling
// button cache keys that must be invalidated together: clicking any button
// of the group consumes the whole group.
const PayloadKeyRelatedButtons = "related_buttons"

// ButtonPayload describes what clicking one inline button means: the intent
// to route plus arbitrary structured data for the handler.
type ButtonPayload struct {
	Payload map[string]any `json:"payload"`
	Intent  string         `json:"intent"`
}

// NewButtonPayload creates a payload for the given intent. A nil data map
// is replaced with an empty one so payload fields can always be set.
func NewButtonPayload(intent string, data map[string]any) ButtonPayload {
	if data == nil {
		data = make(map[string]any)
	}
	return ButtonPayload{Payload: data, Intent: intent}
}

// RelatedButtons returns the sibling button keys of this payload's group,
// including the clicked button itself when present.
func (p ButtonPayload) RelatedButtons() []string {
	raw, ok := p.Payload[PayloadKeyRelatedButtons]
	if !ok {
		return nil
	}

	// Values round-trip through JSON, so the list arrives as []any.
	switch vs := raw.(type) {
	case []string:
		return vs
	case []any:
		keys := make([]string, 0, len(vs))
		for _, v := range vs {
			if s, ok := v.(string); ok {
				keys = append(keys, s)
			}
		}
		return keys
	default:
		return nil
	}
}

// String reads a string field from the payload data.
func (p ButtonPayload) String(key string) (string, bool) {
	v, ok := p.Payload[key].(string)
	return v, ok
}

// Bool reads a boolean field from the payload data.
func (p ButtonPayload) Bool(key string) bool {
	v, _ := p.Payload[key].(bool)
	return v
}
