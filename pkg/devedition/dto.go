package devedition

// Span locates one discovered value inside the submitted text.
type Span struct {
	StartIndex int `json:"start_index"`
	EndIndex   int `json:"end_index"`
}

// Candidate is one discovery hit for an entity label.
type Candidate struct {
	Location Span    `json:"location"`
	Score    float64 `json:"score,omitempty"`
}

// Entities maps an entity label (PERSON, EMAIL_ADDRESS, ...) to its
// discovery hits, as returned by the data-discovery classify API.
// Composite labels such as "PERSON|COMPANY_NAME" are service-defined and
// passed through untouched; callers fold them as needed.
type Entities map[string][]Candidate

// Count returns the total number of discovered spans across all labels.
func (e Entities) Count() int {
	n := 0
	for _, candidates := range e {
		n += len(candidates)
	}
	return n
}

// classifyRequest is the wire request for the classify operation.
type classifyRequest struct {
	Text string `json:"text"`
}

// transformRequest is the wire request shared by the protect, unprotect
// and redact operations.
type transformRequest struct {
	Text           string            `json:"text"`
	NamedEntityMap map[string]string `json:"named_entity_map,omitempty"`
}

// transformResponse is the wire response shared by the transform
// operations.
type transformResponse struct {
	Text string `json:"text"`
}
