// Package domain holds the core types and validation rules shared by the
// indexers and the search service.
package domain

// Modality selects which embedding provider and collection apply.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
)

// CarRecord is one row of source catalog data. Identity is positional: Row
// is the 1-based data row number in the source CSV.
type CarRecord struct {
	Label     string
	CarType   string
	FuelType  string
	Info      string
	ImageURLs []string
	Row       int
}

// SearchHit is one nearest-neighbor result: a stored record's metadata plus
// its similarity score and rank. Produced per query, never persisted.
type SearchHit struct {
	Label     string   `json:"label"`
	CarType   string   `json:"car_type,omitempty"`
	FuelType  string   `json:"fuel_type,omitempty"`
	Info      string   `json:"info"`
	ImageURLs []string `json:"image_urls,omitempty"`
	Score     float32  `json:"score"`
	Rank      int      `json:"rank"`
}
