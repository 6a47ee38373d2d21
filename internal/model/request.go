package model

import (
	"strings"
	"time"
)

// Property names read from each feature's properties object.
const (
	PropLocation       = "Location"
	PropCaseID         = "CaseID"
	PropCaseType       = "CaseType"
	PropOpenedDateTime = "OpenedDateTime"
)

// DefaultCaseType is used when a feature carries no CaseType.
const DefaultCaseType = "N/A"

// ServiceRequest is a normalized service-request record derived from exactly
// one input feature.
type ServiceRequest struct {
	CaseID   string    `json:"case_id"`
	Location string    `json:"location"`
	CaseType string    `json:"case_type"`
	OpenedAt time.Time `json:"opened_at"`
}

// Key returns the grouping key for the request's address.
func (r ServiceRequest) Key() string {
	return strings.ToLower(r.Location)
}

// AddressGroup holds every request filed against one address, in input order.
type AddressGroup struct {
	Key      string           `json:"key"`
	Requests []ServiceRequest `json:"requests"`
}

// Count returns the number of requests in the group.
func (g AddressGroup) Count() int {
	return len(g.Requests)
}
