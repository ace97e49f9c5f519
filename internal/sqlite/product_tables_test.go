// Tests for the company, product line and product set accessors, including
// the parent-child delete guards.
package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

// seedHierarchy creates one company, line and set and returns their IDs.
func seedHierarchy(t *testing.T, b *Backend) (companyID, lineID, setID int64) {
	t.Helper()
	ctx := context.Background()
	c, err := b.Companies().Create(ctx, types.NameInput{Name: "Acme"})
	require.NoError(t, err)
	l, err := b.ProductLines().Create(ctx, types.ProductLine{Name: "Acme Minis", CompanyID: c.ID})
	require.NoError(t, err)
	s, err := b.ProductSets().Create(ctx, types.ProductSet{Name: "Starter Box", ProductLineID: l.ID})
	require.NoError(t, err)
	return c.ID, l.ID, s.ID
}

func TestCompaniesTable(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		check func(t *testing.T, b *Backend)
	}{
		{
			name: "create assigns ids starting at one",
			check: func(t *testing.T, b *Backend) {
				c, err := b.Companies().Create(ctx, types.NameInput{Name: "Acme"})
				require.NoError(t, err)
				assert.Equal(t, types.Company{ID: 1, Name: "Acme"}, *c)
			},
		},
		{
			name: "create trims the name and rejects blanks",
			check: func(t *testing.T, b *Backend) {
				c, err := b.Companies().Create(ctx, types.NameInput{Name: "  Reaper  "})
				require.NoError(t, err)
				assert.Equal(t, "Reaper", c.Name)

				_, err = b.Companies().Create(ctx, types.NameInput{Name: "   "})
				assert.ErrorIs(t, err, types.ErrInvalidName)
			},
		},
		{
			name: "duplicate names are rejected case-insensitively",
			check: func(t *testing.T, b *Backend) {
				_, err := b.Companies().Create(ctx, types.NameInput{Name: "Acme"})
				require.NoError(t, err)
				_, err = b.Companies().Create(ctx, types.NameInput{Name: "ACME"})
				assert.ErrorIs(t, err, types.ErrDuplicateName)
				assert.NotErrorIs(t, err, types.ErrDuplicate)
			},
		},
		{
			name: "list reports line counts",
			check: func(t *testing.T, b *Backend) {
				seedHierarchy(t, b)
				_, err := b.Companies().Create(ctx, types.NameInput{Name: "Bones"})
				require.NoError(t, err)

				list, err := b.Companies().List(ctx)
				require.NoError(t, err)
				require.Len(t, list, 2)
				assert.Equal(t, "Acme", list[0].Name)
				assert.Equal(t, 1, list[0].LineCount)
				assert.Equal(t, "Bones", list[1].Name)
				assert.Equal(t, 0, list[1].LineCount)
			},
		},
		{
			name: "update renames and reports missing rows",
			check: func(t *testing.T, b *Backend) {
				c, err := b.Companies().Create(ctx, types.NameInput{Name: "Acme"})
				require.NoError(t, err)
				got, err := b.Companies().Update(ctx, c.ID, types.NameInput{Name: "Acme Corp"})
				require.NoError(t, err)
				assert.Equal(t, "Acme Corp", got.Name)

				_, err = b.Companies().Update(ctx, 999, types.NameInput{Name: "Ghost"})
				assert.ErrorIs(t, err, types.ErrNotFound)
			},
		},
		{
			name: "delete of a missing company is not found and changes nothing",
			check: func(t *testing.T, b *Backend) {
				_, err := b.Companies().Create(ctx, types.NameInput{Name: "Acme"})
				require.NoError(t, err)
				assert.ErrorIs(t, b.Companies().Delete(ctx, 42), types.ErrNotFound)

				list, err := b.Companies().List(ctx)
				require.NoError(t, err)
				assert.Len(t, list, 1)
			},
		},
		{
			name: "delete of a company owning lines is rejected",
			check: func(t *testing.T, b *Backend) {
				companyID, _, _ := seedHierarchy(t, b)
				assert.ErrorIs(t, b.Companies().Delete(ctx, companyID), types.ErrHasChildren)

				_, err := b.Companies().Get(ctx, companyID)
				assert.NoError(t, err, "company must remain")
			},
		},
		{
			name: "delete of an empty company succeeds",
			check: func(t *testing.T, b *Backend) {
				c, err := b.Companies().Create(ctx, types.NameInput{Name: "Acme"})
				require.NoError(t, err)
				require.NoError(t, b.Companies().Delete(ctx, c.ID))
				_, err = b.Companies().Get(ctx, c.ID)
				assert.ErrorIs(t, err, types.ErrNotFound)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := setupBackend(t)
			tt.check(t, b)
		})
	}
}

func TestProductLinesTable(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		check func(t *testing.T, b *Backend)
	}{
		{
			name: "line created under a company is listed for that company",
			check: func(t *testing.T, b *Backend) {
				c, err := b.Companies().Create(ctx, types.NameInput{Name: "Acme"})
				require.NoError(t, err)
				l, err := b.ProductLines().Create(ctx, types.ProductLine{Name: "Acme Minis", CompanyID: c.ID})
				require.NoError(t, err)
				assert.Equal(t, types.ProductLine{ID: 1, Name: "Acme Minis", CompanyID: 1}, *l)

				lines, err := b.ProductLines().ListByCompany(ctx, c.ID)
				require.NoError(t, err)
				assert.Equal(t, []types.ProductLine{{ID: 1, Name: "Acme Minis", CompanyID: 1}}, lines)
			},
		},
		{
			name: "listing lines of a missing company is not found",
			check: func(t *testing.T, b *Backend) {
				_, err := b.ProductLines().ListByCompany(ctx, 7)
				assert.ErrorIs(t, err, types.ErrNotFound)
			},
		},
		{
			name: "create under a missing company is an invalid reference",
			check: func(t *testing.T, b *Backend) {
				_, err := b.ProductLines().Create(ctx, types.ProductLine{Name: "Orphan", CompanyID: 9})
				assert.ErrorIs(t, err, types.ErrInvalidReference)
			},
		},
		{
			name: "list includes company name and set count",
			check: func(t *testing.T, b *Backend) {
				seedHierarchy(t, b)
				lines, err := b.ProductLines().List(ctx)
				require.NoError(t, err)
				require.Len(t, lines, 1)
				assert.Equal(t, "Acme", lines[0].CompanyName)
				assert.Equal(t, 1, lines[0].SetCount)
			},
		},
		{
			name: "partial update keeps absent fields",
			check: func(t *testing.T, b *Backend) {
				companyID, lineID, _ := seedHierarchy(t, b)
				other, err := b.Companies().Create(ctx, types.NameInput{Name: "Bones"})
				require.NoError(t, err)

				name := "Renamed"
				got, err := b.ProductLines().Update(ctx, lineID, types.ProductLineUpdate{Name: &name})
				require.NoError(t, err)
				assert.Equal(t, companyID, got.CompanyID)

				got, err = b.ProductLines().Update(ctx, lineID, types.ProductLineUpdate{CompanyID: &other.ID})
				require.NoError(t, err)
				assert.Equal(t, "Renamed", got.Name)
				assert.Equal(t, other.ID, got.CompanyID)

				missing := int64(404)
				_, err = b.ProductLines().Update(ctx, lineID, types.ProductLineUpdate{CompanyID: &missing})
				assert.ErrorIs(t, err, types.ErrInvalidReference)
			},
		},
		{
			name: "delete of a line owning sets is rejected",
			check: func(t *testing.T, b *Backend) {
				_, lineID, _ := seedHierarchy(t, b)
				assert.ErrorIs(t, b.ProductLines().Delete(ctx, lineID), types.ErrHasChildren)
			},
		},
		{
			name: "delete of a missing line is not found",
			check: func(t *testing.T, b *Backend) {
				assert.ErrorIs(t, b.ProductLines().Delete(ctx, 3), types.ErrNotFound)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := setupBackend(t)
			tt.check(t, b)
		})
	}
}

func TestProductSetsTable(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		check func(t *testing.T, b *Backend)
	}{
		{
			name: "list carries ancestry and mini count",
			check: func(t *testing.T, b *Backend) {
				companyID, lineID, setID := seedHierarchy(t, b)
				createMini(t, b, "Knight", &setID)

				sets, err := b.ProductSets().List(ctx)
				require.NoError(t, err)
				require.Len(t, sets, 1)
				s := sets[0]
				assert.Equal(t, "Starter Box", s.Name)
				assert.Equal(t, lineID, s.ProductLineID)
				assert.Equal(t, "Acme Minis", s.ProductLineName)
				assert.Equal(t, companyID, s.CompanyID)
				assert.Equal(t, "Acme", s.CompanyName)
				assert.Equal(t, 1, s.MiniCount)
			},
		},
		{
			name: "list by line scopes to the line",
			check: func(t *testing.T, b *Backend) {
				companyID, lineID, _ := seedHierarchy(t, b)
				other, err := b.ProductLines().Create(ctx, types.ProductLine{Name: "Other", CompanyID: companyID})
				require.NoError(t, err)
				_, err = b.ProductSets().Create(ctx, types.ProductSet{Name: "Elsewhere", ProductLineID: other.ID})
				require.NoError(t, err)

				sets, err := b.ProductSets().ListByLine(ctx, lineID)
				require.NoError(t, err)
				require.Len(t, sets, 1)
				assert.Equal(t, "Starter Box", sets[0].Name)

				_, err = b.ProductSets().ListByLine(ctx, 99)
				assert.ErrorIs(t, err, types.ErrNotFound)
			},
		},
		{
			name: "delete of a set referenced by minis is rejected",
			check: func(t *testing.T, b *Backend) {
				_, _, setID := seedHierarchy(t, b)
				createMini(t, b, "Knight", &setID)
				assert.ErrorIs(t, b.ProductSets().Delete(ctx, setID), types.ErrHasChildren)
			},
		},
		{
			name: "delete of an unused set succeeds and frees the line",
			check: func(t *testing.T, b *Backend) {
				_, lineID, setID := seedHierarchy(t, b)
				require.NoError(t, b.ProductSets().Delete(ctx, setID))
				require.NoError(t, b.ProductLines().Delete(ctx, lineID))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := setupBackend(t)
			tt.check(t, b)
		})
	}
}
