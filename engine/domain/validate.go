package domain

import (
	"errors"
	"strings"
)

var (
	errBlankInfo  = errors.New("car_info is blank")
	errBlankLabel = errors.New("car_label is blank")
	errNoImages   = errors.New("no image locators")
)

// ValidateTextRecord checks that a record carries enough text to embed.
func ValidateTextRecord(r CarRecord) error {
	if strings.TrimSpace(r.Label) == "" {
		return NewRowError(r.Row, "car_label", errBlankLabel)
	}
	if strings.TrimSpace(r.Info) == "" {
		return NewRowError(r.Row, "car_info", errBlankInfo)
	}
	return nil
}

// ValidateImageRecord checks that a record carries at least one image locator.
func ValidateImageRecord(r CarRecord) error {
	if strings.TrimSpace(r.Label) == "" {
		return NewRowError(r.Row, "car_label", errBlankLabel)
	}
	if len(r.ImageURLs) == 0 {
		return NewRowError(r.Row, "image_url", errNoImages)
	}
	return nil
}

// EmbeddingText builds the string handed to the text embedding provider:
// the free-text description plus label/type/fuel for context.
func EmbeddingText(r CarRecord) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{r.Label, r.CarType, r.FuelType, r.Info} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ". ")
}
