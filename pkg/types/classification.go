package types

// MiniType is the first level of the classification hierarchy, e.g.
// "Humanoid" or "Beast". Types own categories through a join table.
type MiniType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MiniTypeSummary is a type row as listed, with its category count.
type MiniTypeSummary struct {
	MiniType
	CategoryCount int `json:"category_count"`
}

// MiniCategory is the second level of the classification hierarchy. A
// category may be assigned to several types.
type MiniCategory struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CategorySummary is a category with the types it is assigned to.
type CategorySummary struct {
	MiniCategory
	TypeIDs []int64 `json:"type_ids"`
}

// CategoryInput is the create payload for a category. When TypeID is set
// the new category is linked to that type in the same transaction.
type CategoryInput struct {
	Name   string `json:"name"`
	TypeID *int64 `json:"type_id,omitempty"`
}

// MiniTypeLink assigns a type to a mini. ProxyType marks a secondary type
// the mini stands in for, as opposed to its primary type.
type MiniTypeLink struct {
	TypeID    int64  `json:"type_id"`
	Name      string `json:"name,omitempty"`
	ProxyType bool   `json:"proxy_type"`
}
