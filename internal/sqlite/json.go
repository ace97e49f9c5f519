// This file defines the export manifest written next to the JSONL files.
package sqlite

import "time"

// ManifestFile is the name of the manifest inside an export directory.
const ManifestFile = "manifest.json"

// Manifest describes one catalog export. Import returns a manifest with the
// counts it actually loaded.
type Manifest struct {
	BatchID    string         `json:"batch_id"`
	ExportedAt time.Time      `json:"exported_at"`
	Tables     map[string]int `json:"tables"`
	Skipped    int            `json:"skipped,omitempty"`
}

// catalogTable is one exported table and the columns written per record.
type catalogTable struct {
	table   string
	columns []string
	orderBy string
}

func (c catalogTable) file() string { return c.table + ".jsonl" }

// catalogTables lists the catalog tables in dependency order. Import inserts
// in this order and clears in reverse.
var catalogTables = []catalogTable{
	{"companies", []string{"id", "name"}, "id"},
	{"product_lines", []string{"id", "name", "company_id"}, "id"},
	{"product_sets", []string{"id", "name", "product_line_id"}, "id"},
	{"miniature_types", []string{"id", "name"}, "id"},
	{"miniature_categories", []string{"id", "name"}, "id"},
	{"type_categories", []string{"type_id", "category_id"}, "type_id, category_id"},
	{"tags", []string{"id", "name"}, "id"},
	{"base_sizes", []string{"id", "name", "sort_order"}, "id"},
	{"painted_by", []string{"id", "name"}, "id"},
	{"minis", []string{
		"id", "name", "description", "location", "quantity",
		"painted_by_id", "base_size_id", "product_set_id", "created_at", "updated_at",
	}, "id"},
	{"mini_types", []string{"mini_id", "type_id", "proxy_type"}, "mini_id, type_id"},
	{"mini_tags", []string{"mini_id", "tag_id"}, "mini_id, tag_id"},
}
