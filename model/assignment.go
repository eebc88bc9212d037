package model

// Assignment is one half of an order queued onto a vehicle: either its
// pickup or its delivery. Assignments hold a shared pointer to the
// immutable Order (SPEC_FULL.md §9 "cycle avoidance") rather than a copy,
// and nothing in a vehicle references the simulator.
type Assignment struct {
	FactoryID int
	Order     *Order
	Kind      OpKind
}
