// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// LocalOwner owns every event when accounts are disabled.
const LocalOwner = "local"

// Category is the closed set of event categories.
type Category string

const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryStudy    Category = "study"
	CategoryOther    Category = "other"
)

// Categories lists every valid category in display order.
func Categories() []Category {
	return []Category{CategoryWork, CategoryPersonal, CategoryStudy, CategoryOther}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryWork, CategoryPersonal, CategoryStudy, CategoryOther:
		return true
	}
	return false
}

// ParseCategory normalises s and validates it.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", ErrInvalidCategory
	}
	return c, nil
}

// Event is one scheduled activity. start <= end is expected but not enforced.
type Event struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Category  Category  `json:"category"`
	Completed bool      `json:"completed"`
	Owner     string    `json:"owner,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Draft is the client-editable part of an Event.
type Draft struct {
	Title    string    `json:"title"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Category Category  `json:"category"`
}

// Validate checks the draft and normalises its title and category in place.
func (d *Draft) Validate() error {
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		return ErrEmptyTitle
	}
	c, err := ParseCategory(string(d.Category))
	if err != nil {
		return err
	}
	d.Category = c
	if d.Start.IsZero() || d.End.IsZero() {
		return ErrMissingTime
	}
	return nil
}

// NewEvent builds a fresh, uncompleted event from a validated draft.
func NewEvent(id, owner string, d Draft, now time.Time) Event {
	return Event{
		ID:        id,
		Title:     d.Title,
		Start:     d.Start,
		End:       d.End,
		Category:  d.Category,
		Owner:     owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Apply replaces the editable fields of e. Identity, owner and completion are kept.
func (e Event) Apply(d Draft, now time.Time) Event {
	e.Title = d.Title
	e.Start = d.Start
	e.End = d.End
	e.Category = d.Category
	e.UpdatedAt = now
	return e
}

// ChangeKind names the mutation that produced a Change.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
	ChangeToggled ChangeKind = "toggled"
)

// Change is published after every successful mutation of an owner's collection.
type Change struct {
	Kind    ChangeKind `json:"kind"`
	Owner   string     `json:"owner"`
	EventID string     `json:"eventId"`
	At      time.Time  `json:"at"`
}
