package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yairfalse/amireaper/types"
)

func TestReferenced_UnattachedAction(t *testing.T) {
	src := Sources{
		ActiveInstances:     types.NewImageSet("ami-active"),
		ZeroCapacityConfigs: types.NewImageSet("ami-parked"),
		UnattachedConfigs:   types.NewImageSet("ami-idle-lc"),
		UnattachedTemplates: types.NewImageSet("ami-idle-lt"),
	}

	preserved := Referenced(src, UnattachedPreserve)
	assert.Equal(t, types.NewImageSet("ami-active", "ami-parked", "ami-idle-lc", "ami-idle-lt"), preserved)

	collected := Referenced(src, UnattachedCollect)
	assert.Equal(t, types.NewImageSet("ami-active", "ami-parked"), collected)
}

func TestCandidates_EndToEnd(t *testing.T) {
	// Catalog {A, B, C}; instances reference A; one scaled-up group's
	// launch configuration references B; nothing references C.
	catalog := types.ImageCatalog{
		"ami-a": {ID: "ami-a"},
		"ami-b": {ID: "ami-b"},
		"ami-c": {ID: "ami-c"},
	}
	src := Sources{
		ActiveInstances: types.NewImageSet("ami-a"),
		AttachedConfigs: types.NewImageSet("ami-b"),
	}

	referenced := Referenced(src, UnattachedPreserve)
	candidates := Candidates(catalog, referenced)

	assert.Equal(t, types.NewImageSet("ami-c"), candidates)
}

func TestCandidates_ReferencedOutsideCatalog(t *testing.T) {
	// References to images the account no longer owns do not widen the
	// candidate set.
	catalog := types.ImageCatalog{"ami-owned": {ID: "ami-owned"}}
	src := Sources{ActiveInstances: types.NewImageSet("ami-foreign")}

	candidates := Candidates(catalog, Referenced(src, UnattachedPreserve))

	assert.Equal(t, types.NewImageSet("ami-owned"), candidates)
}

func TestOlderThan(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	catalog := types.ImageCatalog{
		"ami-old":     {ID: "ami-old", CreatedAt: now.AddDate(0, -3, 0)},
		"ami-fresh":   {ID: "ami-fresh", CreatedAt: now.Add(-24 * time.Hour)},
		"ami-unknown": {ID: "ami-unknown"},
	}
	candidates := types.NewImageSet("ami-old", "ami-fresh", "ami-unknown")

	old := OlderThan(catalog, candidates, 30*24*time.Hour, now)

	// Unknown creation time is never old enough to delete.
	assert.Equal(t, types.NewImageSet("ami-old"), old)
}

func TestUnattachedAction_Valid(t *testing.T) {
	assert.True(t, UnattachedPreserve.Valid())
	assert.True(t, UnattachedCollect.Valid())
	assert.False(t, UnattachedAction("delete-everything").Valid())
	assert.False(t, UnattachedAction("").Valid())
}
