package model

import (
	"time"

	json "github.com/goccy/go-json"
)

// Place is a point of interest on the map. A Place with a zero ID is a
// draft and never belongs to the rendered list.
type Place struct {
	ID            int64          `json:"id,omitempty"`
	Title         string         `json:"title"`
	Description   string         `json:"description,omitempty"`
	Latitude      float64        `json:"latitude"`
	Longitude     float64        `json:"longitude"`
	Address       string         `json:"address,omitempty"`
	MushroomType  *MushroomType  `json:"mushroomType,omitempty"`
	MushroomTypes []MushroomType `json:"mushroomTypes,omitempty"`
	ImageURL      string         `json:"imageUrl,omitempty"`
	Images        []PlaceImage   `json:"images,omitempty"`
	CreatedAt     *time.Time     `json:"createdAt,omitempty"`
	OwnerID       int64          `json:"ownerId,omitempty"`
	OwnerUsername string         `json:"ownerUsername,omitempty"`
}

func (p Place) IsDraft() bool {
	return p.ID == 0
}

// Tags returns every mushroom type referenced by the place, whichever of the
// single or list fields the server filled.
func (p Place) Tags() []MushroomType {
	if len(p.MushroomTypes) > 0 {
		return p.MushroomTypes
	}
	if p.MushroomType != nil {
		return []MushroomType{*p.MushroomType}
	}
	return nil
}

// Clone returns a copy whose slices do not alias the receiver's.
func (p Place) Clone() Place {
	c := p
	if p.Images != nil {
		c.Images = append([]PlaceImage(nil), p.Images...)
	}
	if p.MushroomTypes != nil {
		c.MushroomTypes = append([]MushroomType(nil), p.MushroomTypes...)
	}
	if p.MushroomType != nil {
		mt := *p.MushroomType
		c.MushroomType = &mt
	}
	return c
}

type PlaceImage struct {
	ID         int64      `json:"id"`
	URL        string     `json:"url"`
	UploadedAt *time.Time `json:"uploadedAt,omitempty"`
}

// CreatePlaceRequest is the single creation payload: existing mushroom type
// ids plus new type definitions, both always set.
type CreatePlaceRequest struct {
	Title          string   `json:"title" validate:"notblank,max=200"`
	Description    string   `json:"description"`
	Latitude       float64  `json:"latitude" validate:"latitude"`
	Longitude      float64  `json:"longitude" validate:"longitude"`
	Address        string   `json:"address"`
	ExistingTagIDs []int64  `json:"mushroomTypeIds"`
	NewTags        []NewTag `json:"newMushroomTypes" validate:"dive"`
}

type createPlaceWire struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Latitude         float64  `json:"latitude"`
	Longitude        float64  `json:"longitude"`
	Address          string   `json:"address"`
	MushroomTypeID   *int64   `json:"mushroomTypeId,omitempty"`
	MushroomTypeIDs  []int64  `json:"mushroomTypeIds"`
	NewMushroomTypes []NewTag `json:"newMushroomTypes"`
}

// MarshalJSON writes the field names the places service reads. Services
// that only know a single type id get mushroomTypeId when exactly one
// existing type is chosen.
func (r CreatePlaceRequest) MarshalJSON() ([]byte, error) {
	r.Normalize()
	w := createPlaceWire{
		Title:            r.Title,
		Description:      r.Description,
		Latitude:         r.Latitude,
		Longitude:        r.Longitude,
		Address:          r.Address,
		MushroomTypeIDs:  r.ExistingTagIDs,
		NewMushroomTypes: r.NewTags,
	}
	if len(r.ExistingTagIDs) == 1 {
		id := r.ExistingTagIDs[0]
		w.MushroomTypeID = &id
	}
	return json.Marshal(w)
}

// Normalize replaces nil tag lists with empty ones.
func (r *CreatePlaceRequest) Normalize() {
	if r.ExistingTagIDs == nil {
		r.ExistingTagIDs = []int64{}
	}
	if r.NewTags == nil {
		r.NewTags = []NewTag{}
	}
}
