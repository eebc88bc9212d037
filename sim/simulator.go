// Package sim holds the discrete-event fleet Simulator: the model
// container of SPEC_FULL.md §4.5 that advances vehicles through their
// pickup/delivery/queue/load/unload lifecycle and answers the Dispatcher's
// what-if Cost() queries.
package sim

import (
	"container/heap"
	"fmt"
	"math"
	"sort"

	"github.com/jwmdev/dpdptw-sim/model"
)

const epsilon = 1e-9

// Simulator is the model container: fleet, factories, the route table, the
// orders awaiting dispatch, and the global clock.
type Simulator struct {
	Route     *model.RouteTable
	Vehicles  map[int]*model.Vehicle
	Factories map[int]*model.Factory
	Orders    map[int]*model.Order
	Pending   []*model.Order
	Now       float64
}

// New constructs an empty Simulator over the given (already-loaded) route
// table.
func New(route *model.RouteTable) *Simulator {
	return &Simulator{
		Route:     route,
		Vehicles:  make(map[int]*model.Vehicle),
		Factories: make(map[int]*model.Factory),
		Orders:    make(map[int]*model.Order),
	}
}

// LoadVehicles registers the fleet. Car numbers must be unique; a duplicate
// silently overwrites, mirroring the loader's CSV-row-order precedence.
func (s *Simulator) LoadVehicles(vehicles []*model.Vehicle) {
	for _, v := range vehicles {
		s.Vehicles[v.CarNum] = v
	}
}

// LoadFactories registers the factory set.
func (s *Simulator) LoadFactories(factories []*model.Factory) {
	for _, f := range factories {
		s.Factories[f.ID] = f
	}
}

// AddOrders records one arrival-time slice of newly-revealed orders in
// Orders and appends them to Pending. Nothing in this repository reads
// Pending: cmd/dpdptw passes each slice straight to Dispatcher.Dispatch,
// which places orders on vehicles without going through AddOrders.
func (s *Simulator) AddOrders(orders []*model.Order) {
	for _, o := range orders {
		s.Orders[o.ID] = o
	}
	s.Pending = append(s.Pending, orders...)
}

// sortedCarNums returns vehicle keys in ascending order so every traversal
// over the fleet is deterministic (SPEC_FULL.md §5).
func (s *Simulator) sortedCarNums() []int {
	nums := make([]int, 0, len(s.Vehicles))
	for n := range s.Vehicles {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

func (s *Simulator) sortedFactoryIDs() []int {
	ids := make([]int, 0, len(s.Factories))
	for id := range s.Factories {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// CanAddOrder reports whether order can be inserted at (pickupPos,
// deliveryPos) on the named vehicle without violating capacity or LIFO
// cargo ordering. A vehicle that is IDLE or has an empty queue always
// accepts, as two independent conditions (SPEC_FULL.md §4.5).
func (s *Simulator) CanAddOrder(carNum int, order *model.Order, pickupPos, deliveryPos int) (bool, error) {
	v, ok := s.Vehicles[carNum]
	if !ok {
		return false, fmt.Errorf("sim: unknown vehicle %d", carNum)
	}
	if v.IsIdleOrEmpty() {
		return true, nil
	}
	return v.CheckCapacity(order, pickupPos, deliveryPos) && v.CheckAssignmentList(order, pickupPos, deliveryPos), nil
}

func (s *Simulator) maxPortResidual() float64 {
	max := 0.0
	for _, fid := range s.sortedFactoryIDs() {
		for _, p := range s.Factories[fid].Ports {
			if p.FinishTime > max {
				max = p.FinishTime
			}
		}
	}
	return max
}

func (s *Simulator) tickPorts(step float64) {
	for _, fid := range s.sortedFactoryIDs() {
		s.Factories[fid].Tick(step)
	}
}

func (s *Simulator) activateIdle() error {
	for _, n := range s.sortedCarNums() {
		v := s.Vehicles[n]
		if v.Status == model.StatusIdle && v.Current == nil && len(v.Queue) > 0 {
			if _, err := v.Activate(s.Route); err != nil {
				return err
			}
		}
	}
	return nil
}

// Advance moves simulated time forward by dt, applying vehicle state
// transitions as they fall due (SPEC_FULL.md §4.5). Pass math.Inf(1) to
// drain: run until no vehicle has pending work and no port has positive
// residual service time. The next fire time is read from the top of an
// event heap (sim/heap.go); after every micro-step the heap is rebuilt from
// the whole fleet's NextStatusTime values rather than popped and patched.
func (s *Simulator) Advance(dt float64) error {
	drain := math.IsInf(dt, 1)
	elapsed := 0.0

	if err := s.activateIdle(); err != nil {
		return err
	}

	h := &eventHeap{}
	heap.Init(h)
	for _, n := range s.sortedCarNums() {
		if v := s.Vehicles[n]; v.NextStatusTime != nil {
			heap.Push(h, event{carNum: n, fireAt: *v.NextStatusTime})
		}
	}

	for {
		if !drain && elapsed >= dt-epsilon {
			break
		}

		if h.Len() == 0 {
			residual := s.maxPortResidual()
			if drain {
				if residual <= epsilon {
					break
				}
				s.tickPorts(residual)
				elapsed += residual
				continue
			}
			step := dt - elapsed
			s.tickPorts(step)
			for _, n := range s.sortedCarNums() {
				s.Vehicles[n].Now += step
			}
			elapsed = dt
			break
		}

		nextFire := (*h)[0].fireAt
		var step float64
		if drain {
			step = nextFire - elapsed
		} else {
			step = math.Min(nextFire, dt) - elapsed
		}
		if step < 0 {
			step = 0
		}

		for _, n := range s.sortedCarNums() {
			v := s.Vehicles[n]
			if v.NextStatusTime != nil {
				if err := v.Step(step, s.Route, s.Factories); err != nil {
					return err
				}
			} else {
				v.Now += step
			}
		}
		s.tickPorts(step)
		elapsed += step

		// A fired timer may have rearmed the same vehicle (WAITING->LOADING,
		// LOADING->next leg, ...) and newly-idle vehicles with queued work
		// can activate in the same instant, so the heap is rebuilt against
		// the new elapsed baseline rather than patched incrementally.
		if err := s.activateIdle(); err != nil {
			return err
		}
		*h = (*h)[:0]
		for _, n := range s.sortedCarNums() {
			if v := s.Vehicles[n]; v.NextStatusTime != nil {
				heap.Push(h, event{carNum: n, fireAt: elapsed + *v.NextStatusTime})
			}
		}

		if !drain && elapsed >= dt-epsilon {
			break
		}
	}

	if drain {
		s.Now += elapsed
	} else {
		s.Now += dt
	}
	return nil
}

// Cost evaluates the model's total distance and delay if it were drained to
// completion right now, with no side effects on the live model (the
// "purity of what-if" property of SPEC_FULL.md §8): it operates entirely on
// an independent Snapshot.
func (s *Simulator) Cost() (totalDistance, totalDelay float64, err error) {
	snap := s.Snapshot()
	if err := snap.Advance(math.Inf(1)); err != nil {
		return 0, 0, err
	}
	for _, n := range snap.sortedCarNums() {
		v := snap.Vehicles[n]
		totalDistance += v.Distance
		totalDelay += v.Delay
	}
	return totalDistance, totalDelay, nil
}

// Snapshot returns an independent structural copy of the model: vehicles
// and factories are cloned, the (immutable) route table and order map are
// shared by pointer (SPEC_FULL.md §9).
func (s *Simulator) Snapshot() *Simulator {
	cp := &Simulator{
		Route:  s.Route,
		Orders: s.Orders,
		Now:    s.Now,
	}
	cp.Vehicles = make(map[int]*model.Vehicle, len(s.Vehicles))
	for k, v := range s.Vehicles {
		cp.Vehicles[k] = v.Clone()
	}
	cp.Factories = make(map[int]*model.Factory, len(s.Factories))
	for k, f := range s.Factories {
		cp.Factories[k] = f.Clone()
	}
	cp.Pending = append([]*model.Order(nil), s.Pending...)
	return cp
}
