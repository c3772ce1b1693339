package model

import (
	"bytes"
	"strings"

	json "github.com/goccy/go-json"
)

type EdibilityCategory string

const (
	Edible              EdibilityCategory = "EDIBLE"
	ConditionallyEdible EdibilityCategory = "CONDITIONALLY_EDIBLE"
	Poisonous           EdibilityCategory = "POISONOUS"
)

func (c EdibilityCategory) Valid() bool {
	switch c {
	case Edible, ConditionallyEdible, Poisonous:
		return true
	}
	return false
}

// ParseEdibilityCategory accepts the category in any letter case.
func ParseEdibilityCategory(s string) (EdibilityCategory, bool) {
	c := EdibilityCategory(strings.ToUpper(strings.TrimSpace(s)))
	return c, c.Valid()
}

// MushroomType is immutable reference data fetched once per session.
type MushroomType struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	LatinName   string            `json:"latinName,omitempty"`
	Category    EdibilityCategory `json:"category,omitempty"`
	ImageURL    string            `json:"imageUrl,omitempty"`
	IconURL     string            `json:"iconUrl,omitempty"`
	Description string            `json:"description,omitempty"`
}

// UnmarshalJSON also accepts a bare string, which some place responses carry
// in place of the full object.
func (m *MushroomType) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*m = MushroomType{Name: name}
		return nil
	}
	type plain MushroomType
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = MushroomType(v)
	return nil
}

// NewTag is a mushroom type requested inline as part of place creation.
type NewTag struct {
	Name     string            `json:"name" validate:"notblank,max=100"`
	Category EdibilityCategory `json:"category"`
}
