// Package grouping buckets normalized service requests by address and orders
// the derived views used by the reports.
package grouping

import (
	"sort"

	"github.com/sells-group/repeat311/internal/model"
)

// GroupAndFilter buckets records by lower-cased address, keeps only addresses
// with more than one request, and orders the groups by descending request
// count. Equal counts keep the order in which addresses were first seen.
// Requests within a group stay in input order.
func GroupAndFilter(records []model.ServiceRequest) []model.AddressGroup {
	index := make(map[string]int)
	var groups []model.AddressGroup
	for _, r := range records {
		key := r.Key()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, model.AddressGroup{Key: key})
		}
		groups[i].Requests = append(groups[i].Requests, r)
	}

	repeats := groups[:0]
	for _, g := range groups {
		if g.Count() > 1 {
			repeats = append(repeats, g)
		}
	}

	sort.SliceStable(repeats, func(i, j int) bool {
		return repeats[i].Count() > repeats[j].Count()
	})
	return repeats
}

// SortAll returns a copy of records ordered by ascending open time. Records
// opened at the same instant keep their input order.
func SortAll(records []model.ServiceRequest) []model.ServiceRequest {
	sorted := make([]model.ServiceRequest, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OpenedAt.Before(sorted[j].OpenedAt)
	})
	return sorted
}

// Keys returns the set of grouping keys present in groups.
func Keys(groups []model.AddressGroup) map[string]struct{} {
	keys := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		keys[g.Key] = struct{}{}
	}
	return keys
}

// Total returns the number of requests across all groups.
func Total(groups []model.AddressGroup) int {
	n := 0
	for _, g := range groups {
		n += g.Count()
	}
	return n
}
