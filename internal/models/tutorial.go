// Package models defines the domain types for didact.
package models

import (
	"strconv"
	"strings"
)

// Tutorial is a registry entry pointing a (name, category) pair at a source document.
type Tutorial struct {
	Name      string `json:"name"`
	Category  string `json:"category"`
	SourceURI string `json:"sourceUri"`
}

// SameKey reports whether t and o collide on (name, category), ignoring case.
func (t Tutorial) SameKey(o Tutorial) bool {
	return strings.EqualFold(t.Name, o.Name) && strings.EqualFold(t.Category, o.Category)
}

// Heading is a document section title with an optional completion estimate.
type Heading struct {
	Title string `json:"title"`
	Level int    `json:"level"`
	// TimeEstimate is in minutes; nil means absent, never zero.
	TimeEstimate *float64 `json:"timeEstimateMinutes,omitempty"`
}

// Estimated reports whether the heading carries a valid time estimate.
func (h Heading) Estimated() bool { return h.TimeEstimate != nil }

// Description returns the "(~N mins)" label, or "" without an estimate.
func (h Heading) Description() string {
	if h.TimeEstimate == nil {
		return ""
	}
	return "(~" + strconv.FormatFloat(*h.TimeEstimate, 'f', -1, 64) + " mins)"
}
