// Package data holds small immutable domain lookup tables consulted by the
// loader.
package data

// DemandUnits maps an order's category column to the per-unit demand used
// when the loader splits an oversize order into atomic sub-orders
// (SPEC_FULL.md §6).
var DemandUnits = map[string]float64{
	"q_standard": 1,
	"q_small":    0.5,
	"q_box":      0.25,
}
