package service

import (
	"fmt"

	"github.com/noah-isme/ucd-roster-api/internal/models"
	appErrors "github.com/noah-isme/ucd-roster-api/pkg/errors"
)

// PartitionRoster splits roster rows into sectionCount sections of groupCount
// groups each. Rows are balanced level by level: section sizes differ by at
// most one, and so do group sizes within a section. Sections too small to fill
// every group leave empty trailing groups. Ordering is preserved end to end,
// so reruns over the same roster always produce identical output.
func PartitionRoster(rows []models.RosterRow, groupCount, sectionCount int) ([]models.Section, error) {
	if groupCount <= 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidPartition, "group count must be positive")
	}
	if sectionCount <= 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidPartition, "section count must be positive")
	}
	if groupCount > len(rows) {
		return nil, appErrors.Clone(appErrors.ErrInvalidPartition,
			fmt.Sprintf("cannot split %d rows into %d groups", len(rows), groupCount))
	}

	base := len(rows) / sectionCount
	extra := len(rows) % sectionCount

	sections := make([]models.Section, sectionCount)
	offset := 0
	for s := 0; s < sectionCount; s++ {
		size := base
		if s < extra {
			size++
		}
		sections[s] = partitionGroups(rows[offset:offset+size], groupCount)
		offset += size
	}
	return sections, nil
}

func partitionGroups(rows []models.RosterRow, groupCount int) models.Section {
	base := len(rows) / groupCount
	extra := len(rows) % groupCount

	section := make(models.Section, groupCount)
	offset := 0
	for g := 0; g < groupCount; g++ {
		size := base
		if g < extra {
			size++
		}
		section[g] = models.Group(rows[offset : offset+size])
		offset += size
	}
	return section
}
