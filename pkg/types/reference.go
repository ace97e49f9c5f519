package types

// BaseSize is a lookup row for the physical base a miniature stands on.
type BaseSize struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

// PaintedBy is a lookup row naming who painted a miniature.
type PaintedBy struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
