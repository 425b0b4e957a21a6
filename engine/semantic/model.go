package semantic

// VectorRecord is a single vector plus metadata to store in Qdrant.
type VectorRecord struct {
	ID      string
	Vector  []float32
	Payload map[string]any // string, int, int64, float64, bool, or []string values
}

// SearchResult is a single nearest-neighbor hit with its raw payload.
type SearchResult struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// Str returns the payload value for key as a string, or "".
func (r SearchResult) Str(key string) string {
	s, _ := r.Payload[key].(string)
	return s
}

// Strs returns the payload value for key as a string slice, or nil.
func (r SearchResult) Strs(key string) []string {
	ss, _ := r.Payload[key].([]string)
	return ss
}
