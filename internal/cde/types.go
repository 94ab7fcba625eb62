// Package cde consumes the FBI Crime Data Explorer API.
package cde

// Record is one flat JSON object returned by the CDE API. Offense categories
// arrive as dynamic column names, so records stay schemaless; values are
// limited to the JSON domain (string, float64, bool, nil).
type Record map[string]any

// AgencyKey is the record key carrying the requesting agency's ORI. The
// arrest endpoint omits it, so the client injects it.
const AgencyKey = "Agency"

// ORIKey is the directory record key holding the agency identifier.
const ORIKey = "ori"

// dataEnvelope matches the {"data": [...]} wrapper on the arrest endpoints.
type dataEnvelope struct {
	Data []Record `json:"data"`
}

// ORIs extracts agency identifiers from directory records, skipping records
// without a usable ori value.
func ORIs(records []Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		if v, ok := r[ORIKey].(string); ok && v != "" {
			out = append(out, v)
		}
	}
	return out
}
