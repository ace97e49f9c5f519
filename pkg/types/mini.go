package types

import (
	"bytes"
	"encoding/json"
	"time"
)

// Mini is a single miniature record, the central catalog entity.
type Mini struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description"`
	Location     string    `json:"location"`
	Quantity     int       `json:"quantity"`
	PaintedByID  int64     `json:"painted_by_id"`
	BaseSizeID   int64     `json:"base_size_id"`
	ProductSetID *int64    `json:"product_set_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MiniDetail is a mini with the names derived through joins, its type and
// tag assignments, and the categories reachable through its types.
type MiniDetail struct {
	Mini
	PaintedByName   string         `json:"painted_by_name"`
	BaseSizeName    string         `json:"base_size_name"`
	ProductSetName  *string        `json:"product_set_name"`
	ProductLineID   *int64         `json:"product_line_id"`
	ProductLineName *string        `json:"product_line_name"`
	CompanyID       *int64         `json:"company_id"`
	CompanyName     *string        `json:"company_name"`
	Types           []MiniTypeLink `json:"types"`
	Categories      []MiniCategory `json:"categories"`
	Tags            []Tag          `json:"tags"`
	ImagePath       string         `json:"image_path,omitempty"`
	ThumbPath       string         `json:"thumb_path,omitempty"`
}

// MiniInput is the create payload for a mini. Quantity defaults to 1 when
// omitted. Types and TagIDs, when present, are assigned in the same
// transaction as the insert.
type MiniInput struct {
	Name         string         `json:"name"`
	Description  *string        `json:"description,omitempty"`
	Location     string         `json:"location"`
	Quantity     *int           `json:"quantity,omitempty"`
	PaintedByID  int64          `json:"painted_by_id"`
	BaseSizeID   int64          `json:"base_size_id"`
	ProductSetID *int64         `json:"product_set_id,omitempty"`
	Types        []MiniTypeLink `json:"types,omitempty"`
	TagIDs       []int64        `json:"tag_ids,omitempty"`
}

// MiniUpdate is the update payload for a mini. Absent fields keep their
// stored value. Description and ProductSetID distinguish an absent field
// from an explicit null, which clears the column.
type MiniUpdate struct {
	Name         *string        `json:"name,omitempty"`
	Description  NullableString `json:"description,omitzero"`
	Location     *string        `json:"location,omitempty"`
	Quantity     *int           `json:"quantity,omitempty"`
	PaintedByID  *int64         `json:"painted_by_id,omitempty"`
	BaseSizeID   *int64         `json:"base_size_id,omitempty"`
	ProductSetID NullableID     `json:"product_set_id,omitzero"`
}

// Validate checks the fields of a create payload.
func (in *MiniInput) Validate() error {
	name, err := NormalizeName(in.Name)
	if err != nil {
		return err
	}
	in.Name = name
	if in.Quantity == nil {
		one := 1
		in.Quantity = &one
	}
	if *in.Quantity < 0 {
		return ErrInvalidQuantity
	}
	if in.PaintedByID <= 0 || in.BaseSizeID <= 0 {
		return ErrInvalidReference
	}
	return nil
}

// Apply merges the update into m and validates the result.
func (u MiniUpdate) Apply(m *Mini) error {
	if u.Name != nil {
		name, err := NormalizeName(*u.Name)
		if err != nil {
			return err
		}
		m.Name = name
	}
	if u.Description.Set {
		if u.Description.Valid {
			v := u.Description.Value
			m.Description = &v
		} else {
			m.Description = nil
		}
	}
	if u.Location != nil {
		m.Location = *u.Location
	}
	if u.Quantity != nil {
		if *u.Quantity < 0 {
			return ErrInvalidQuantity
		}
		m.Quantity = *u.Quantity
	}
	if u.PaintedByID != nil {
		m.PaintedByID = *u.PaintedByID
	}
	if u.BaseSizeID != nil {
		m.BaseSizeID = *u.BaseSizeID
	}
	if u.ProductSetID.Set {
		if u.ProductSetID.Valid {
			v := u.ProductSetID.Value
			m.ProductSetID = &v
		} else {
			m.ProductSetID = nil
		}
	}
	return nil
}

// NullableID is an optional, nullable integer field. Set reports whether
// the field was present in the JSON document; Valid reports whether it was
// non-null.
type NullableID struct {
	Set   bool
	Valid bool
	Value int64
}

// UnmarshalJSON implements json.Unmarshaler. It is only invoked when the
// field is present.
func (n *NullableID) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(data, []byte("null")) {
		n.Valid = false
		n.Value = 0
		return nil
	}
	if err := json.Unmarshal(data, &n.Value); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n NullableID) MarshalJSON() ([]byte, error) {
	if !n.Set || !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// NewNullableID returns a present, non-null NullableID.
func NewNullableID(v int64) NullableID {
	return NullableID{Set: true, Valid: true, Value: v}
}

// NullableString is the string counterpart of NullableID.
type NullableString struct {
	Set   bool
	Valid bool
	Value string
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(data, []byte("null")) {
		n.Valid = false
		n.Value = ""
		return nil
	}
	if err := json.Unmarshal(data, &n.Value); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n NullableString) MarshalJSON() ([]byte, error) {
	if !n.Set || !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// NewNullableString returns a present, non-null NullableString.
func NewNullableString(v string) NullableString {
	return NullableString{Set: true, Valid: true, Value: v}
}
