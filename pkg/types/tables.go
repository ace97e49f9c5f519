package types

// Catalog table names, used for export file names and client cache keys.
const (
	TableCompanies      = "companies"
	TableProductLines   = "product_lines"
	TableProductSets    = "product_sets"
	TableTypes          = "miniature_types"
	TableCategories     = "miniature_categories"
	TableTypeCategories = "type_categories"
	TableTags           = "tags"
	TableMinis          = "minis"
	TableMiniTypes      = "mini_types"
	TableMiniTags       = "mini_tags"
	TableBaseSizes      = "base_sizes"
	TablePaintedBy      = "painted_by"
)

// CatalogTableNames lists the catalog tables in dependency order: parents
// precede the tables that reference them.
var CatalogTableNames = []string{
	TableCompanies,
	TableProductLines,
	TableProductSets,
	TableTypes,
	TableCategories,
	TableTypeCategories,
	TableTags,
	TableBaseSizes,
	TablePaintedBy,
	TableMinis,
	TableMiniTypes,
	TableMiniTags,
}
