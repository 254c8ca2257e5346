// Package types defines the image model shared by the fetcher and resolver.
package types

import "time"

// Image is a machine image owned by the account. Immutable for the
// duration of one run; the provider is the only writer.
type Image struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ImageCatalog maps image ID to Image. Built once per run from the
// owned-images listing; never mutated after construction.
type ImageCatalog map[string]Image

// IDs returns the set of image IDs in the catalog.
func (c ImageCatalog) IDs() ImageSet {
	ids := make(ImageSet, len(c))
	for id := range c {
		ids.Add(id)
	}
	return ids
}
