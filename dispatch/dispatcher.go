// Package dispatch implements the online insertion heuristic that assigns
// newly-revealed orders onto vehicles, scoring each candidate insertion by
// a what-if run of the simulator (SPEC_FULL.md §4.6). The greedy-insertion
// shape here — walk every (courier, task) pair, score feasibility and cost
// left to right, commit the first/best fit — follows the same skeleton as
// the reference VRP greedy solver in the retrieved example pool, adapted
// from a single-pass "first courier that fits" search to an exhaustive
// cost-minimizing one across every insertion position.
package dispatch

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/jwmdev/dpdptw-sim/errs"
	"github.com/jwmdev/dpdptw-sim/model"
	"github.com/jwmdev/dpdptw-sim/sim"
)

// Algorithm selects the insertion strategy Dispatch uses.
type Algorithm int

const (
	AlgorithmGreedy Algorithm = iota
	AlgorithmSolomon
)

func (a Algorithm) String() string {
	if a == AlgorithmSolomon {
		return "solomon"
	}
	return "greedy"
}

// Params carries tunables for the insertion cost function and the
// (currently unimplemented) Solomon slot.
type Params struct {
	Mu     float64
	Alpha  float64
	Lambda float64
}

// DefaultParams matches the teacher-derived default of lambda=1 (SPEC_FULL.md §10.2).
func DefaultParams() Params {
	return Params{Mu: 1, Alpha: 1, Lambda: 1}
}

// Dispatcher carries a seeded RNG, but no code path draws from it: ties are
// broken by car_num and then by (pickup, delivery) position, overflow
// orders keep their arrival order, and randomness is never used to
// construct a route (SPEC_FULL.md §4.6).
type Dispatcher struct {
	RNG    *rand.Rand
	Log    *logrus.Logger
	Params Params
	Events *sim.EventLog // optional; nil disables event recording
}

// New builds a Dispatcher whose RNG is seeded from seed.
func New(seed int64, params Params, log *logrus.Logger, events *sim.EventLog) *Dispatcher {
	if log == nil {
		log = logrus.New()
	}
	return &Dispatcher{RNG: rand.New(rand.NewSource(seed)), Log: log, Params: params, Events: events}
}

type candidate struct {
	carNum      int
	pickupPos   int
	deliveryPos int
	cost        float64
}

// Dispatch assigns orders, in arrival order, onto s's live fleet. Orders
// that have no feasible insertion on any vehicle are returned as an
// overflow slice for the caller to retry on the next slice (SPEC_FULL.md
// §4.6 fallback, §7 ErrInfeasibleInvariant).
func (d *Dispatcher) Dispatch(s *sim.Simulator, orders []*model.Order, algorithm Algorithm) (overflow []*model.Order, err error) {
	if algorithm == AlgorithmSolomon {
		return nil, fmt.Errorf("dispatch: algorithm %s: %w", algorithm, errs.ErrUnsupportedAlgorithm)
	}
	if algorithm != AlgorithmGreedy {
		return nil, fmt.Errorf("dispatch: algorithm %d: %w", algorithm, errs.ErrUnsupportedAlgorithm)
	}

	for _, order := range orders {
		placed, cerr := d.placeOne(s, order)
		if cerr != nil {
			return nil, cerr
		}
		if !placed {
			ierr := fmt.Errorf("dispatch: order %d: %w", order.ID, errs.ErrInfeasibleInvariant)
			d.Log.WithFields(logrus.Fields{"order_id": order.ID}).WithError(ierr).Warn("no feasible insertion, deferring to overflow")
			if d.Events != nil {
				d.Events.Append(sim.OrderOverflowEvent{Time: s.Now, OrderID: order.ID})
			}
			overflow = append(overflow, order)
		}
	}
	return overflow, nil
}

func (d *Dispatcher) placeOne(s *sim.Simulator, order *model.Order) (bool, error) {
	carNums := sortedCarNums(s)

	// Idle fast-path: first vehicle that is IDLE or has an empty queue, in
	// car_num order, takes the order at (0,0) unconditionally (SPEC_FULL.md
	// §4.6 step 1).
	for _, n := range carNums {
		if s.Vehicles[n].IsIdleOrEmpty() {
			if err := s.Vehicles[n].AddOrder(order, 0, 0); err != nil {
				return false, fmt.Errorf("dispatch: idle fast-path car %d order %d: %w", n, order.ID, err)
			}
			d.Log.WithFields(logrus.Fields{"order_id": order.ID, "car_num": n}).Debug("assigned via idle fast-path")
			if d.Events != nil {
				d.Events.Append(sim.OrderAssignedEvent{Time: s.Now, OrderID: order.ID, CarNum: n, PickupPos: 0, DeliveryPos: 0})
			}
			return true, nil
		}
	}

	var best *candidate
	for _, n := range carNums {
		v := s.Vehicles[n]
		qlen := len(v.Queue)
		for i := 0; i <= qlen; i++ {
			for j := i; j <= qlen; j++ {
				ok, err := s.CanAddOrder(n, order, i, j)
				if err != nil {
					return false, err
				}
				if !ok {
					continue
				}
				cost, err := d.trialCost(s, n, order, i, j)
				if err != nil {
					return false, err
				}
				if best == nil || cost < best.cost || (cost == best.cost && lessPosition(n, i, j, best)) {
					best = &candidate{carNum: n, pickupPos: i, deliveryPos: j, cost: cost}
				}
			}
		}
	}

	if best == nil {
		return false, nil
	}
	if err := s.Vehicles[best.carNum].AddOrder(order, best.pickupPos, best.deliveryPos); err != nil {
		return false, fmt.Errorf("dispatch: commit car %d order %d: %w", best.carNum, order.ID, err)
	}
	d.Log.WithFields(logrus.Fields{
		"order_id": order.ID, "car_num": best.carNum,
		"pickup_pos": best.pickupPos, "delivery_pos": best.deliveryPos, "cost": best.cost,
	}).Debug("assigned via greedy insertion")
	if d.Events != nil {
		d.Events.Append(sim.OrderAssignedEvent{Time: s.Now, OrderID: order.ID, CarNum: best.carNum, PickupPos: best.pickupPos, DeliveryPos: best.deliveryPos})
	}
	return true, nil
}

// trialCost clones the live model, tentatively applies the insertion, and
// reads Cost() — the snapshot guarantees the live model is untouched
// regardless of how many candidates are scored (SPEC_FULL.md §5 "Snapshots
// for what-if").
func (d *Dispatcher) trialCost(s *sim.Simulator, carNum int, order *model.Order, pickupPos, deliveryPos int) (float64, error) {
	trial := s.Snapshot()
	if err := trial.Vehicles[carNum].AddOrder(order, pickupPos, deliveryPos); err != nil {
		return 0, err
	}
	distance, delay, err := trial.Cost()
	if err != nil {
		return 0, err
	}
	return distance + d.Params.Lambda*delay, nil
}

func lessPosition(carNum, i, j int, cur *candidate) bool {
	if carNum != cur.carNum {
		return carNum < cur.carNum
	}
	if i != cur.pickupPos {
		return i < cur.pickupPos
	}
	return j < cur.deliveryPos
}

func sortedCarNums(s *sim.Simulator) []int {
	nums := make([]int, 0, len(s.Vehicles))
	for n := range s.Vehicles {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}
