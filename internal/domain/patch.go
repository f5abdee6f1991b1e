package domain

import (
	"bytes"
	"encoding/json"
)

// Nullable is a patch field that tells an omitted value apart from an
// explicit null. Set is false when the field was absent from the request.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

func Value[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: &v}
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}

// Apply returns the patched value, keeping current when the field was not set.
func (n Nullable[T]) Apply(current *T) *T {
	if !n.Set {
		return current
	}
	return n.Value
}

type ClientInput struct {
	Name    string   `json:"name"`
	Email   *string  `json:"email"`
	Phone   *string  `json:"phone"`
	Urgency *Urgency `json:"urgency"`
}

type ClientChanges struct {
	Name    *string          `json:"name"`
	Email   Nullable[string] `json:"email"`
	Phone   Nullable[string] `json:"phone"`
	Urgency *Urgency         `json:"urgency"`
}

type OpportunityInput struct {
	ClientID   int64    `json:"client_id"`
	CarLabel   string   `json:"car_label"`
	CarModelID *int64   `json:"car_model_id"`
	Stage      *Stage   `json:"stage"`
	Urgency    *Urgency `json:"urgency"`
}

type OpportunityChanges struct {
	ClientID   *int64          `json:"client_id"`
	CarLabel   *string         `json:"car_label"`
	CarModelID Nullable[int64] `json:"car_model_id"`
	Stage      *Stage          `json:"stage"`
	Urgency    *Urgency        `json:"urgency"`
}

type NoteInput struct {
	OpportunityID int64  `json:"opportunity_id"`
	Title         string `json:"title"`
	Content       string `json:"content"`
}

type NoteChanges struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

type CarInput struct {
	Brand   string  `json:"brand"`
	Model   string  `json:"model"`
	Version *string `json:"version"`
	Year    *int    `json:"year"`
}

type CarChanges struct {
	Brand   *string          `json:"brand"`
	Model   *string          `json:"model"`
	Version Nullable[string] `json:"version"`
	Year    Nullable[int]    `json:"year"`
}
