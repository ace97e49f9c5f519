package types

// Dashboard aggregates catalog statistics for the overview page.
type Dashboard struct {
	Totals      DashboardTotals `json:"totals"`
	ByCompany   []CountRow      `json:"by_company"`
	ByType      []CountRow      `json:"by_type"`
	ByPaintedBy []CountRow      `json:"by_painted_by"`
	ByBaseSize  []CountRow      `json:"by_base_size"`
	ByLocation  []CountRow      `json:"by_location"`
	TopTags     []CountRow      `json:"top_tags"`
	Recent      []Mini          `json:"recent"`
}

// DashboardTotals are whole-catalog counts. Figures is the sum of mini
// quantities; Minis counts records.
type DashboardTotals struct {
	Minis        int `json:"minis"`
	Figures      int `json:"figures"`
	Unassigned   int `json:"unassigned"`
	Companies    int `json:"companies"`
	ProductLines int `json:"product_lines"`
	ProductSets  int `json:"product_sets"`
	Types        int `json:"types"`
	Categories   int `json:"categories"`
	Tags         int `json:"tags"`
}

// CountRow is one bucket of a grouped count. Figures sums quantities.
type CountRow struct {
	Name    string `json:"name"`
	Count   int    `json:"count"`
	Figures int    `json:"figures"`
}
