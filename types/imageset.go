package types

import "sort"

// ImageSet is an unordered set of image IDs.
type ImageSet map[string]struct{}

// NewImageSet builds a set from the given IDs, skipping empty strings.
func NewImageSet(ids ...string) ImageSet {
	s := make(ImageSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts an ID. Empty IDs are dropped silently - a record without an
// image reference is a non-reference, not an error.
func (s ImageSet) Add(id string) {
	if id == "" {
		return
	}
	s[id] = struct{}{}
}

// Contains reports whether id is in the set.
func (s ImageSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Union returns a new set containing every ID from s and all others.
func (s ImageSet) Union(others ...ImageSet) ImageSet {
	result := make(ImageSet, len(s))
	for id := range s {
		result[id] = struct{}{}
	}
	for _, other := range others {
		for id := range other {
			result[id] = struct{}{}
		}
	}
	return result
}

// Difference returns the IDs in s that are not in other.
func (s ImageSet) Difference(other ImageSet) ImageSet {
	result := make(ImageSet)
	for id := range s {
		if !other.Contains(id) {
			result[id] = struct{}{}
		}
	}
	return result
}

// Intersect returns the IDs present in both s and other.
func (s ImageSet) Intersect(other ImageSet) ImageSet {
	result := make(ImageSet)
	for id := range s {
		if other.Contains(id) {
			result[id] = struct{}{}
		}
	}
	return result
}

// Values returns the IDs sorted for stable output. Set semantics carry no
// ordering guarantee; sorting is a display convenience only.
func (s ImageSet) Values() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
