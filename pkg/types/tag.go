package types

// Tag is a free-form label attached to minis.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TagSummary is a tag with the number of minis carrying it.
type TagSummary struct {
	Tag
	MiniCount int `json:"mini_count"`
}
