package types

import "strings"

// Company is a miniature manufacturer. Companies own product lines.
type Company struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CompanySummary is a company row as listed, with the number of product
// lines it owns.
type CompanySummary struct {
	Company
	LineCount int `json:"line_count"`
}

// ProductLine is a range of products from one company.
type ProductLine struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CompanyID int64  `json:"company_id"`
}

// ProductLineSummary is a product line as listed across all companies.
type ProductLineSummary struct {
	ProductLine
	CompanyName string `json:"company_name"`
	SetCount    int    `json:"set_count"`
}

// ProductSet is a boxed set or release within a product line. Minis
// optionally reference a set.
type ProductSet struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	ProductLineID int64  `json:"product_line_id"`
}

// ProductSetSummary is a product set with its ancestry and mini count.
type ProductSetSummary struct {
	ProductSet
	ProductLineName string `json:"product_line_name"`
	CompanyID       int64  `json:"company_id"`
	CompanyName     string `json:"company_name"`
	MiniCount       int    `json:"mini_count"`
}

// NormalizeName trims surrounding whitespace from a display name and
// returns ErrInvalidName when nothing is left.
func NormalizeName(name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return "", ErrInvalidName
	}
	return n, nil
}

// NameInput is the create and update payload of the single-column tables:
// companies, types, categories, tags and painted-by.
type NameInput struct {
	Name string `json:"name"`
}

// ProductLineUpdate is the partial update payload of a product line.
type ProductLineUpdate struct {
	Name      *string `json:"name,omitempty"`
	CompanyID *int64  `json:"company_id,omitempty"`
}

// ProductSetUpdate is the partial update payload of a product set.
type ProductSetUpdate struct {
	Name          *string `json:"name,omitempty"`
	ProductLineID *int64  `json:"product_line_id,omitempty"`
}
