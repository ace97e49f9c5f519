package view

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type row struct {
	name, place string
}

func rowFields(r row) []string { return []string{r.name, r.place} }

func TestFilter(t *testing.T) {
	rows := []row{
		{"Knight Captain", "Shelf A"},
		{"Orc Warboss", "Box 3"},
		{"Dark Knight", "shelf b"},
	}
	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"Knight Captain", "Orc Warboss", "Dark Knight"}},
		{"knight", []string{"Knight Captain", "Dark Knight"}},
		{"  SHELF ", []string{"Knight Captain", "Dark Knight"}},
		{"box", []string{"Orc Warboss"}},
		{"dragon", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var got []string
			for _, r := range Filter(rows, tt.query, rowFields) {
				got = append(got, r.name)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPaginate(t *testing.T) {
	items := make([]int, 23)
	for i := range items {
		items[i] = i + 1
	}
	tests := []struct {
		page, size int
		wantPage   int
		wantFirst  int
		wantLen    int
		wantPages  int
		next, prev bool
	}{
		{1, 10, 1, 1, 10, 3, true, false},
		{2, 10, 2, 11, 10, 3, true, true},
		{3, 10, 3, 21, 3, 3, false, true},
		{9, 10, 3, 21, 3, 3, false, true},
		{0, 10, 1, 1, 10, 3, true, false},
		{1, 0, 1, 1, 23, 1, false, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d size %d", tt.page, tt.size), func(t *testing.T) {
			p := Paginate(items, tt.page, tt.size)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantPages, p.TotalPages)
			assert.Equal(t, 23, p.TotalItems)
			assert.Len(t, p.Items, tt.wantLen)
			assert.Equal(t, tt.wantFirst, p.Items[0])
			assert.Equal(t, tt.next, p.HasNext())
			assert.Equal(t, tt.prev, p.HasPrev())
		})
	}
}

func TestPaginateEmpty(t *testing.T) {
	p := Paginate([]string{}, 4, 10)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 1, p.TotalPages)
	assert.Empty(t, p.Items)
}
