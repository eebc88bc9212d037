package model

import (
	"fmt"

	"github.com/jwmdev/dpdptw-sim/errs"
)

// Status is a vehicle's position in the Mealy machine of SPEC_FULL.md §4.4.
type Status int

const (
	StatusIdle Status = iota
	StatusPickingUp
	StatusDelivering
	StatusWaiting
	StatusLoading
	StatusUnloading
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "IDLE"
	case StatusPickingUp:
		return "PICKING_UP"
	case StatusDelivering:
		return "DELIVERING"
	case StatusWaiting:
		return "WAITING"
	case StatusLoading:
		return "LOADING"
	case StatusUnloading:
		return "UNLOADING"
	default:
		return "UNKNOWN"
	}
}

// HistoryEntry is one logged state transition, the structured replacement
// for the teacher's ad hoc "buslog" Printf lines (SPEC_FULL.md §4.4).
type HistoryEntry struct {
	Time float64
	From Status
	To   Status
	Note string
}

// Vehicle is a capacitated actor with an assignment queue, a LIFO cargo
// stack, and the finite-state lifecycle of SPEC_FULL.md §4.4. It is mutated
// only by Simulator.Advance and by Dispatcher insertions/removals.
type Vehicle struct {
	CarNum   int
	Capacity float64
	GPSID    string

	Now    float64
	Status Status

	Location int // last/current factory id
	Queue    []Assignment
	Cargo    []int // stack of order ids physically onboard, push on LOADING done, pop on UNLOADING done
	Current  *Assignment

	NextStatusTime *float64

	Distance float64
	Delay    float64
	History  []HistoryEntry
}

// NewVehicle constructs an idle vehicle parked at startFactoryID.
func NewVehicle(carNum int, capacity float64, gpsID string, startFactoryID int) *Vehicle {
	return &Vehicle{
		CarNum:   carNum,
		Capacity: capacity,
		GPSID:    gpsID,
		Status:   StatusIdle,
		Location: startFactoryID,
	}
}

// IsIdle reports whether the vehicle has no queued or in-flight work.
func (v *Vehicle) IsIdle() bool {
	return v.Status == StatusIdle && v.Current == nil && len(v.Queue) == 0
}

// IsIdleOrEmpty reports whether the vehicle unconditionally accepts a new
// order: either it is IDLE, or its queue is empty (its last assignment is
// in flight but nothing is queued behind it). These are independent
// conditions, not a conjunction: a vehicle can be IDLE with a just-assigned
// non-empty queue (between Dispatcher.placeOne's AddOrder and the next
// Simulator.Advance's activation), and a busy vehicle can have an empty
// queue (its final order in flight).
func (v *Vehicle) IsIdleOrEmpty() bool {
	return v.Status == StatusIdle || len(v.Queue) == 0
}

// AddOrder inserts order's pickup at pickupPos and delivery at deliveryPos
// into the assignment queue (positions index the queue before insertion).
// If the queue is empty, both positions are ignored and the pair is simply
// appended.
func (v *Vehicle) AddOrder(order *Order, pickupPos, deliveryPos int) error {
	if pickupPos > deliveryPos {
		return fmt.Errorf("vehicle %d: add order %d at (%d,%d): %w", v.CarNum, order.ID, pickupPos, deliveryPos, errs.ErrInvalidPositions)
	}
	if len(v.Queue) == 0 {
		v.Queue = append(v.Queue,
			Assignment{FactoryID: order.PickupFactoryID, Order: order, Kind: OpPickup},
			Assignment{FactoryID: order.DeliveryFactoryID, Order: order, Kind: OpDelivery},
		)
		return nil
	}
	if pickupPos < 0 || deliveryPos > len(v.Queue) {
		return fmt.Errorf("vehicle %d: add order %d at (%d,%d): %w", v.CarNum, order.ID, pickupPos, deliveryPos, errs.ErrInvalidPositions)
	}
	delivery := Assignment{FactoryID: order.DeliveryFactoryID, Order: order, Kind: OpDelivery}
	v.Queue = insertAt(v.Queue, deliveryPos, delivery)
	pickup := Assignment{FactoryID: order.PickupFactoryID, Order: order, Kind: OpPickup}
	v.Queue = insertAt(v.Queue, pickupPos, pickup)
	return nil
}

func insertAt(queue []Assignment, pos int, a Assignment) []Assignment {
	queue = append(queue, Assignment{})
	copy(queue[pos+1:], queue[pos:])
	queue[pos] = a
	return queue
}

// RemoveOrder drops both assignments referencing order from the queue. It
// fails with ErrOrderInFlight if the order is the current in-progress
// assignment.
func (v *Vehicle) RemoveOrder(order *Order) error {
	if v.Current != nil && v.Current.Order.Equal(order) {
		return fmt.Errorf("vehicle %d: remove order %d: %w", v.CarNum, order.ID, errs.ErrOrderInFlight)
	}
	out := v.Queue[:0]
	for _, a := range v.Queue {
		if a.Order.Equal(order) {
			continue
		}
		out = append(out, a)
	}
	v.Queue = out
	return nil
}

// hypotheticalBase returns the cargo stack a capacity/LIFO check should
// start from: the physically onboard orders, plus the in-flight pickup's
// order if one is underway (it is guaranteed to be loaded and so must be
// accounted for even though Cargo has not yet been pushed to) — the
// "including the currently-in-progress assignment" clause of SPEC_FULL.md §4.4.
func (v *Vehicle) hypotheticalBase() []int {
	base := make([]int, len(v.Cargo), len(v.Cargo)+1)
	copy(base, v.Cargo)
	if v.Current != nil && v.Current.Kind == OpPickup {
		base = append(base, v.Current.Order.ID)
	}
	return base
}

// hypotheticalQueue returns the queue that would result from AddOrder
// without mutating the vehicle.
func (v *Vehicle) hypotheticalQueue(order *Order, pickupPos, deliveryPos int) []Assignment {
	if len(v.Queue) == 0 {
		return []Assignment{
			{FactoryID: order.PickupFactoryID, Order: order, Kind: OpPickup},
			{FactoryID: order.DeliveryFactoryID, Order: order, Kind: OpDelivery},
		}
	}
	q := make([]Assignment, len(v.Queue))
	copy(q, v.Queue)
	delivery := Assignment{FactoryID: order.DeliveryFactoryID, Order: order, Kind: OpDelivery}
	q = insertAt(q, deliveryPos, delivery)
	pickup := Assignment{FactoryID: order.PickupFactoryID, Order: order, Kind: OpPickup}
	q = insertAt(q, pickupPos, pickup)
	return q
}

// CheckCapacity reports whether inserting order at (pickupPos, deliveryPos)
// keeps the running on-board demand within [0, Capacity] at every prefix of
// the resulting queue, counting the vehicle's current cargo (and any
// in-flight pickup) as a starting balance.
func (v *Vehicle) CheckCapacity(order *Order, pickupPos, deliveryPos int) bool {
	demandByID := make(map[int]float64, len(v.Cargo)+1)
	for _, a := range v.Queue {
		demandByID[a.Order.ID] = a.Order.Demand
	}
	demandByID[order.ID] = order.Demand
	if v.Current != nil {
		demandByID[v.Current.Order.ID] = v.Current.Order.Demand
	}

	load := 0.0
	for _, id := range v.hypotheticalBase() {
		load += demandByID[id]
	}
	if load < 0 || load > v.Capacity {
		return false
	}

	q := v.hypotheticalQueue(order, pickupPos, deliveryPos)
	for _, a := range q {
		if a.Kind == OpPickup {
			load += a.Order.Demand
		} else {
			load -= a.Order.Demand
		}
		if load < -1e-9 || load > v.Capacity+1e-9 {
			return false
		}
	}
	return true
}

// CheckAssignmentList reports whether inserting order at (pickupPos,
// deliveryPos) keeps the queue a valid LIFO pickup/delivery sequence: every
// delivery must pop the order currently on top of the cargo stack.
func (v *Vehicle) CheckAssignmentList(order *Order, pickupPos, deliveryPos int) bool {
	stack := v.hypotheticalBase()
	q := v.hypotheticalQueue(order, pickupPos, deliveryPos)
	for _, a := range q {
		switch a.Kind {
		case OpPickup:
			stack = append(stack, a.Order.ID)
		case OpDelivery:
			if len(stack) == 0 || stack[len(stack)-1] != a.Order.ID {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return true
}

// Activate pops the head of the queue into Current and schedules travel to
// it, if the vehicle is idle with queued work. It returns true if a
// transition happened.
func (v *Vehicle) Activate(rt *RouteTable) (bool, error) {
	if v.Status != StatusIdle || len(v.Queue) == 0 {
		return false, nil
	}
	head := v.Queue[0]
	v.Queue = v.Queue[1:]
	v.Current = &head
	travel, err := rt.Time(v.Location, head.FactoryID)
	if err != nil {
		return false, err
	}
	from := v.Status
	if head.Kind == OpPickup {
		v.Status = StatusPickingUp
	} else {
		v.Status = StatusDelivering
	}
	v.NextStatusTime = &travel
	v.log(from, v.Status, fmt.Sprintf("depart for factory %d (%s order %d)", head.FactoryID, head.Kind, head.Order.ID))
	return true, nil
}

// Step advances the vehicle's in-flight phase by dt and applies the
// transition of SPEC_FULL.md §4.4 if the phase completes exactly at or
// before dt. The caller (Simulator.Advance) guarantees dt never overshoots
// the vehicle's own NextStatusTime.
func (v *Vehicle) Step(dt float64, rt *RouteTable, factories map[int]*Factory) error {
	v.Now += dt
	if v.NextStatusTime == nil {
		return nil
	}
	*v.NextStatusTime -= dt
	if *v.NextStatusTime > 1e-9 {
		return nil
	}

	switch v.Status {
	case StatusPickingUp, StatusDelivering:
		v.Location = v.Current.FactoryID
		f := factories[v.Current.FactoryID]
		wasIdle, residual := f.Assign(v.Current.Kind, v.Current.Order)
		from := v.Status
		if wasIdle {
			dur := serviceDuration(v.Current)
			if v.Current.Kind == OpPickup {
				v.Status = StatusLoading
			} else {
				v.Status = StatusUnloading
			}
			v.NextStatusTime = &dur
			v.log(from, v.Status, fmt.Sprintf("port free, begin %s order %d", v.Current.Kind, v.Current.Order.ID))
		} else {
			v.Status = StatusWaiting
			v.NextStatusTime = &residual
			v.log(from, v.Status, fmt.Sprintf("port busy, queue for %s order %d", v.Current.Kind, v.Current.Order.ID))
		}
		return nil

	case StatusWaiting:
		dur := serviceDuration(v.Current)
		from := v.Status
		if v.Current.Kind == OpPickup {
			v.Status = StatusLoading
		} else {
			v.Status = StatusUnloading
		}
		v.NextStatusTime = &dur
		v.log(from, v.Status, fmt.Sprintf("port free, begin %s order %d", v.Current.Kind, v.Current.Order.ID))
		return nil

	case StatusLoading:
		v.Cargo = append(v.Cargo, v.Current.Order.ID)
		return v.depart(rt)

	case StatusUnloading:
		if n := len(v.Cargo); n > 0 {
			v.Cargo = v.Cargo[:n-1]
		}
		if v.Now > v.Current.Order.PromisedTime {
			v.Delay += v.Now - v.Current.Order.PromisedTime
		}
		return v.depart(rt)
	}
	return nil
}

// depart either starts travel toward the next queued assignment,
// accumulating the leg's distance, or goes idle if the queue is empty. It is
// shared by the LOADING and UNLOADING completion transitions: the distilled
// spec's transition table only mentions distance accumulation on the
// LOADING row, but omitting it on UNLOADING would under-count distance on
// every delivery-then-travel leg and break the cost-linearity invariant
// (SPEC_FULL.md §8), so both completions account for the leg the same way.
func (v *Vehicle) depart(rt *RouteTable) error {
	from := v.Status
	if len(v.Queue) == 0 {
		v.Status = StatusIdle
		v.NextStatusTime = nil
		v.Current = nil
		v.log(from, v.Status, "queue drained")
		return nil
	}
	next := v.Queue[0]
	v.Queue = v.Queue[1:]
	dist, err := rt.Distance(v.Location, next.FactoryID)
	if err != nil {
		return err
	}
	v.Distance += dist
	travel, err := rt.Time(v.Location, next.FactoryID)
	if err != nil {
		return err
	}
	v.Current = &next
	if next.Kind == OpPickup {
		v.Status = StatusPickingUp
	} else {
		v.Status = StatusDelivering
	}
	v.NextStatusTime = &travel
	v.log(from, v.Status, fmt.Sprintf("depart for factory %d (%s order %d)", next.FactoryID, next.Kind, next.Order.ID))
	return nil
}

func serviceDuration(a *Assignment) float64 {
	if a.Kind == OpPickup {
		return a.Order.LoadDuration
	}
	return a.Order.UnloadDuration
}

func (v *Vehicle) log(from, to Status, note string) {
	v.History = append(v.History, HistoryEntry{Time: v.Now, From: from, To: to, Note: note})
}

// Clone returns a structural copy suitable for Simulator.Snapshot: slices
// are re-sliced, Current and NextStatusTime are copied by value, and no
// pointer is shared back to the live vehicle.
func (v *Vehicle) Clone() *Vehicle {
	cp := *v
	cp.Queue = append([]Assignment(nil), v.Queue...)
	cp.Cargo = append([]int(nil), v.Cargo...)
	cp.History = nil // snapshots are throwaway; history is only meaningful on the live model
	if v.Current != nil {
		cur := *v.Current
		cp.Current = &cur
	}
	if v.NextStatusTime != nil {
		t := *v.NextStatusTime
		cp.NextStatusTime = &t
	}
	return &cp
}
