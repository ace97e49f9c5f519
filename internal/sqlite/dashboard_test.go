package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)

	empty, err := b.Dashboard(ctx)
	require.NoError(t, err)
	assert.Zero(t, empty.Totals.Minis)
	assert.Empty(t, empty.Recent)
	assert.NotEmpty(t, empty.ByBaseSize, "reference buckets are listed even when empty")

	populate(t, b)
	qty := 4
	_, err = b.Minis().Create(ctx, types.MiniInput{Name: "Horde", Quantity: &qty, PaintedByID: 1, BaseSizeID: 1})
	require.NoError(t, err)

	d, err := b.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Totals.Minis)
	assert.Equal(t, 6, d.Totals.Figures)
	assert.Equal(t, 2, d.Totals.Unassigned)
	assert.Equal(t, 1, d.Totals.Companies)
	assert.Equal(t, 1, d.Totals.Tags)
	assert.Len(t, d.Recent, 3)

	require.NotEmpty(t, d.ByCompany)
	assert.Equal(t, types.CountRow{Name: "Unassigned", Count: 2, Figures: 5}, d.ByCompany[0])
	assert.Equal(t, types.CountRow{Name: "Acme", Count: 1, Figures: 1}, d.ByCompany[1])

	assert.Empty(t, d.ByType, "proxy types are not counted as primary types")
	assert.Equal(t, []types.CountRow{{Name: "heroes", Count: 1, Figures: 1}}, d.TopTags)
	assert.Equal(t, []types.CountRow{{Name: "Unknown", Count: 2, Figures: 5}, {Name: "Shelf A", Count: 1, Figures: 1}}, d.ByLocation)
}
