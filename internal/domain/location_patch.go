package domain

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidLocationPatch = errors.New("invalid location patch")

// LocationPatch is a partial location update. Only the four location fields
// can be patched; anything else in the raw input is ignored.
type LocationPatch struct {
	Address   *string
	Latitude  *float64
	Longitude *float64
	Accuracy  *float64
}

func (p LocationPatch) IsEmpty() bool {
	return p.Address == nil && p.Latitude == nil && p.Longitude == nil && p.Accuracy == nil
}

// ParseLocationPatch type-checks every recognised field of a decoded JSON object.
func ParseLocationPatch(raw map[string]any) (LocationPatch, error) {
	var patch LocationPatch
	if v, ok := raw["address"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return LocationPatch{}, fmt.Errorf("%w: address must be a string", ErrInvalidLocationPatch)
		}
		patch.Address = &s
	}
	var err error
	if patch.Latitude, err = numberField(raw, "latitude", -90, 90); err != nil {
		return LocationPatch{}, err
	}
	if patch.Longitude, err = numberField(raw, "longitude", -180, 180); err != nil {
		return LocationPatch{}, err
	}
	if patch.Accuracy, err = numberField(raw, "accuracy", 0, math.MaxFloat64); err != nil {
		return LocationPatch{}, err
	}
	if patch.IsEmpty() {
		return LocationPatch{}, fmt.Errorf("%w: no location fields", ErrInvalidLocationPatch)
	}
	return patch, nil
}

func numberField(raw map[string]any, name string, lo, hi float64) (*float64, error) {
	v, ok := raw[name]
	if !ok || v == nil {
		return nil, nil
	}
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %s must be a number", ErrInvalidLocationPatch, name)
	}
	if f < lo || f > hi {
		return nil, fmt.Errorf("%w: %s out of range", ErrInvalidLocationPatch, name)
	}
	return &f, nil
}

// Apply merges the patch into loc and returns the merged copy.
func (p LocationPatch) Apply(loc *Location) *Location {
	out := Location{}
	if loc != nil {
		out = *loc
	}
	if p.Address != nil {
		out.Address = p.Address
	}
	if p.Latitude != nil {
		out.Latitude = p.Latitude
	}
	if p.Longitude != nil {
		out.Longitude = p.Longitude
	}
	if p.Accuracy != nil {
		out.Accuracy = p.Accuracy
	}
	return &out
}
