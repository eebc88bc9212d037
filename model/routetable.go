package model

import (
	"sort"

	"github.com/jwmdev/dpdptw-sim/errs"
)

// routeEdge is the (distance, time) pair between an ordered factory pair.
type routeEdge struct {
	Distance float64
	Time     float64
}

// RouteTable is an immutable, constant-time lookup of pairwise distance and
// travel time over a finite factory id set. It holds no back-pointers, so a
// *RouteTable can be shared by pointer across Simulator snapshots (§9 of
// SPEC_FULL.md) instead of being deep-copied on every what-if evaluation.
type RouteTable struct {
	edges map[[2]int]routeEdge
}

// NewRouteTable builds an empty table; use AddEdge to populate it.
func NewRouteTable() *RouteTable {
	return &RouteTable{edges: make(map[[2]int]routeEdge)}
}

// AddEdge records the distance/time from one factory to another. Routes are
// directional: AddEdge(a, b, ...) does not imply the reverse edge exists.
func (rt *RouteTable) AddEdge(from, to int, distance, time float64) {
	rt.edges[[2]int{from, to}] = routeEdge{Distance: distance, Time: time}
}

// Distance returns the distance from `from` to `to`, or ErrUnknownFactory if
// that edge was never loaded.
func (rt *RouteTable) Distance(from, to int) (float64, error) {
	e, ok := rt.edges[[2]int{from, to}]
	if !ok {
		return 0, errs.ErrUnknownFactory
	}
	return e.Distance, nil
}

// Time returns the travel time from `from` to `to`, or ErrUnknownFactory if
// that edge was never loaded.
func (rt *RouteTable) Time(from, to int) (float64, error) {
	e, ok := rt.edges[[2]int{from, to}]
	if !ok {
		return 0, errs.ErrUnknownFactory
	}
	return e.Time, nil
}

// HasFactory reports whether id appears as either endpoint of a loaded edge.
func (rt *RouteTable) HasFactory(id int) bool {
	for k := range rt.edges {
		if k[0] == id || k[1] == id {
			return true
		}
	}
	return false
}

// Factories returns the distinct factory ids that appear in the table,
// sorted ascending so callers can iterate deterministically.
func (rt *RouteTable) Factories() []int {
	seen := make(map[int]struct{})
	for k := range rt.edges {
		seen[k[0]] = struct{}{}
		seen[k[1]] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// MissingPairs returns the (from, to) pairs absent from the table over the
// given factory id set, excluding self-pairs. Used by cmd/routecheck to
// validate the "dense table over the factory set" contract of SPEC_FULL.md §6.
func (rt *RouteTable) MissingPairs(ids []int) [][2]int {
	var missing [][2]int
	for _, a := range ids {
		for _, b := range ids {
			if a == b {
				continue
			}
			if _, ok := rt.edges[[2]int{a, b}]; !ok {
				missing = append(missing, [2]int{a, b})
			}
		}
	}
	return missing
}
