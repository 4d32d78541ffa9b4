package models

import "time"

// Observation is one fetched reading of a target: the comparable value plus
// display metadata for notifications. Only Value participates in change
// detection.
type Observation struct {
	Value string `json:"value"`
	// Link points at the observed thing (commit URL, resolved page URL).
	Link string `json:"link,omitempty"`
	// Note carries free-text detail such as the commit date.
	Note string `json:"note,omitempty"`
}

// MonitorState is the persisted record for one target. A tick either commits
// a fully-updated state or leaves the prior record untouched.
type MonitorState struct {
	// LastValue is the comparable token from the last successful fetch.
	// Never mutated by a failed fetch.
	LastValue string `json:"last_value"`
	LastLink  string `json:"last_link,omitempty"`
	LastNote  string `json:"last_note,omitempty"`

	// LastCheckedAt advances on every successful tick.
	LastCheckedAt time.Time `json:"last_checked_at"`
	// LastHealthcheckAt is the liveness clock: set on STARTUP, CHANGE, and
	// HEALTHCHECK. A zero value with healthchecks enabled means one is due.
	LastHealthcheckAt time.Time `json:"last_healthcheck_at,omitzero"`
	// Initialized is false until the first successful tick completes.
	Initialized bool `json:"initialized"`
}

// Observation reconstructs the stored reading for comparison and rendering.
func (s MonitorState) Observation() Observation {
	return Observation{Value: s.LastValue, Link: s.LastLink, Note: s.LastNote}
}
