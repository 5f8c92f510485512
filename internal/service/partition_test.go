package service

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ucd-roster-api/internal/models"
	appErrors "github.com/noah-isme/ucd-roster-api/pkg/errors"
)

func makeRows(n int) []models.RosterRow {
	rows := make([]models.RosterRow, n)
	for i := range rows {
		rows[i] = models.RosterRow{
			models.RosterColOrdinal:  strconv.Itoa(i + 1),
			models.RosterColLastName: "Student" + strconv.Itoa(i+1),
		}
	}
	return rows
}

func TestPartitionRosterSplitsFiveRowsIntoTwoGroups(t *testing.T) {
	sections, err := PartitionRoster(makeRows(5), 2, 1)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	require.Len(t, sections[0], 2)

	assert.Len(t, sections[0][0], 3)
	assert.Len(t, sections[0][1], 2)
	assert.Equal(t, "1", sections[0][0][0][models.RosterColOrdinal])
	assert.Equal(t, "4", sections[0][1][0][models.RosterColOrdinal])
}

func TestPartitionRosterPreservesOrderAndConservesRows(t *testing.T) {
	rows := makeRows(17)
	sections, err := PartitionRoster(rows, 3, 2)
	require.NoError(t, err)
	require.Len(t, sections, 2)

	var flattened []models.RosterRow
	for _, section := range sections {
		require.Len(t, section, 3)
		for _, group := range section {
			flattened = append(flattened, group...)
		}
	}
	require.Len(t, flattened, len(rows))
	for i, row := range flattened {
		assert.Equal(t, rows[i][models.RosterColOrdinal], row[models.RosterColOrdinal])
	}
}

func TestPartitionRosterBalancesGroupSizes(t *testing.T) {
	sections, err := PartitionRoster(makeRows(7), 3, 1)
	require.NoError(t, err)

	smallest, largest := len(sections[0][0]), len(sections[0][0])
	for _, group := range sections[0] {
		if len(group) < smallest {
			smallest = len(group)
		}
		if len(group) > largest {
			largest = len(group)
		}
	}
	assert.LessOrEqual(t, largest-smallest, 1)
	assert.Equal(t, 3, len(sections[0][0]))
	assert.Equal(t, 2, len(sections[0][1]))
	assert.Equal(t, 2, len(sections[0][2]))
}

func TestPartitionRosterBalancesSectionSizes(t *testing.T) {
	sections, err := PartitionRoster(makeRows(10), 3, 2)
	require.NoError(t, err)
	require.Len(t, sections, 2)

	sizes := make([]int, len(sections))
	for s, section := range sections {
		for _, group := range section {
			sizes[s] += len(group)
		}
	}
	assert.Equal(t, []int{5, 5}, sizes)
	assert.LessOrEqual(t, sizes[0]-sizes[1], 1)
}

func TestPartitionRosterLeavesEmptyTrailingGroupsInSmallSections(t *testing.T) {
	sections, err := PartitionRoster(makeRows(5), 2, 3)
	require.NoError(t, err)
	require.Len(t, sections, 3)

	var total int
	for _, section := range sections {
		require.Len(t, section, 2)
		for _, group := range section {
			total += len(group)
		}
	}
	assert.Equal(t, 5, total)

	// 5 rows over 3 sections: 2, 2, 1; the last section holds one row and
	// an empty second group.
	assert.Len(t, sections[2][0], 1)
	assert.Empty(t, sections[2][1])
}

func TestPartitionRosterIsDeterministic(t *testing.T) {
	rows := makeRows(11)
	first, err := PartitionRoster(rows, 2, 2)
	require.NoError(t, err)
	second, err := PartitionRoster(rows, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPartitionRosterRejectsInvalidCounts(t *testing.T) {
	cases := []struct {
		name     string
		rows     int
		groups   int
		sections int
	}{
		{"zero groups", 5, 0, 1},
		{"zero sections", 5, 2, 0},
		{"more groups than rows", 3, 4, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := PartitionRoster(makeRows(tc.rows), tc.groups, tc.sections)
			require.Error(t, err)
			appErr := appErrors.FromError(err)
			assert.Equal(t, appErrors.ErrInvalidPartition.Code, appErr.Code)
		})
	}
}
