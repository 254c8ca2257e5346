// Package resolver combines the fetched reference sources into the final
// referenced/candidate partition of the image catalog.
package resolver

import (
	"time"

	"github.com/yairfalse/amireaper/types"
)

// Sources holds the per-source image ID sets produced by the fetcher.
// Each set is independent; the resolver only does set algebra over them.
type Sources struct {
	ActiveInstances       types.ImageSet
	AttachedConfigs       types.ImageSet
	AttachedTemplates     types.ImageSet
	ZeroCapacityConfigs   types.ImageSet
	ZeroCapacityTemplates types.ImageSet
	UnattachedConfigs     types.ImageSet
	UnattachedTemplates   types.ImageSet
}

// UnattachedAction decides which side of the accounting the unattached
// launch-configuration and launch-template images land on. The fetch alone
// does not imply a side; callers must choose.
type UnattachedAction string

const (
	// UnattachedPreserve treats images referenced by unattached configs and
	// templates as still in use: the configuration names them, so deleting
	// the image would break a relaunch.
	UnattachedPreserve UnattachedAction = "preserve"

	// UnattachedCollect leaves those images out of the referenced set so
	// they fall through to the candidate side.
	UnattachedCollect UnattachedAction = "collect"
)

// Valid reports whether a is a known action.
func (a UnattachedAction) Valid() bool {
	return a == UnattachedPreserve || a == UnattachedCollect
}

// Referenced unions the must-keep sources into a single set of image IDs
// currently referenced by the account.
func Referenced(src Sources, action UnattachedAction) types.ImageSet {
	referenced := src.ActiveInstances.Union(
		src.AttachedConfigs,
		src.AttachedTemplates,
		src.ZeroCapacityConfigs,
		src.ZeroCapacityTemplates,
	)
	if action == UnattachedPreserve {
		referenced = referenced.Union(src.UnattachedConfigs, src.UnattachedTemplates)
	}
	return referenced
}

// Candidates returns the catalog images not in the referenced set. These
// are the deletion candidates; final confirmation and the deregister call
// belong to the caller.
func Candidates(catalog types.ImageCatalog, referenced types.ImageSet) types.ImageSet {
	return catalog.IDs().Difference(referenced)
}

// OlderThan narrows candidates to images created at least minAge before
// now. Images with an unknown creation time are excluded: age cannot be
// established, so they are never old enough.
func OlderThan(catalog types.ImageCatalog, candidates types.ImageSet, minAge time.Duration, now time.Time) types.ImageSet {
	cutoff := now.Add(-minAge)
	result := make(types.ImageSet)
	for id := range candidates {
		image, ok := catalog[id]
		if !ok || image.CreatedAt.IsZero() {
			continue
		}
		if !image.CreatedAt.After(cutoff) {
			result.Add(id)
		}
	}
	return result
}
