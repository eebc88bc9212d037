// Package errs collects the sentinel errors the dispatcher, simulator and
// loader raise so callers can distinguish programming-contract violations
// from recoverable dispatch failures with errors.Is.
package errs

import "errors"

var (
	// ErrInvalidPositions is returned when a pickup position sorts after the
	// delivery position passed to an insertion.
	ErrInvalidPositions = errors.New("invalid insertion positions: pickup must not be after delivery")

	// ErrOrderInFlight is returned when an order's assignment cannot be
	// removed because a vehicle is currently executing it.
	ErrOrderInFlight = errors.New("order is currently being picked up or delivered")

	// ErrUnknownFactory is returned by RouteTable lookups on an id that was
	// never loaded.
	ErrUnknownFactory = errors.New("unknown factory id")

	// ErrInfeasibleInvariant marks an order for which no (vehicle, position)
	// pair can accept it without violating capacity or LIFO cargo ordering.
	// The dispatcher logs it and hands the order back in its overflow slice;
	// Dispatch does not return it as an error.
	ErrInfeasibleInvariant = errors.New("no feasible insertion exists for order")

	// ErrUnsupportedAlgorithm is returned when a Dispatch call names an
	// Algorithm that has no implementation.
	ErrUnsupportedAlgorithm = errors.New("unsupported dispatch algorithm")

	// ErrBadInput is returned by the loader on malformed CSV input.
	ErrBadInput = errors.New("bad input")
)
