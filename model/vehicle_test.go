package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwmdev/dpdptw-sim/errs"
	"github.com/jwmdev/dpdptw-sim/model"
)

func newRoute(t *testing.T) *model.RouteTable {
	t.Helper()
	rt := model.NewRouteTable()
	for _, a := range []int{1, 2, 3} {
		for _, b := range []int{1, 2, 3} {
			if a == b {
				continue
			}
			rt.AddEdge(a, b, 10, 5)
		}
	}
	return rt
}

func TestVehicle_AddOrderAppendsToEmptyQueue(t *testing.T) {
	v := model.NewVehicle(1, 10, "gps-1", 1)
	order := &model.Order{ID: 1, Demand: 2, PickupFactoryID: 1, DeliveryFactoryID: 2}

	err := v.AddOrder(order, 0, 0)

	require.NoError(t, err)
	require.Len(t, v.Queue, 2)
	assert.Equal(t, model.OpPickup, v.Queue[0].Kind)
	assert.Equal(t, model.OpDelivery, v.Queue[1].Kind)
}

func TestVehicle_AddOrderRejectsInvertedPositions(t *testing.T) {
	v := model.NewVehicle(1, 10, "gps-1", 1)
	order := &model.Order{ID: 1, Demand: 2, PickupFactoryID: 1, DeliveryFactoryID: 2}

	err := v.AddOrder(order, 2, 0)

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrInvalidPositions)
}

func TestVehicle_CheckCapacityRejectsOverload(t *testing.T) {
	v := model.NewVehicle(1, 5, "gps-1", 1)
	first := &model.Order{ID: 1, Demand: 4, PickupFactoryID: 1, DeliveryFactoryID: 2}
	require.NoError(t, v.AddOrder(first, 0, 0))

	second := &model.Order{ID: 2, Demand: 2, PickupFactoryID: 1, DeliveryFactoryID: 2}

	// Nesting second's pickup/delivery inside first's open interval means
	// both orders are on board at once: 4 + 2 exceeds the capacity of 5.
	assert.False(t, v.CheckCapacity(second, 1, 1))
}

func TestVehicle_CheckCapacityAcceptsWithinLimit(t *testing.T) {
	v := model.NewVehicle(1, 5, "gps-1", 1)
	first := &model.Order{ID: 1, Demand: 4, PickupFactoryID: 1, DeliveryFactoryID: 2}
	require.NoError(t, v.AddOrder(first, 0, 0))

	second := &model.Order{ID: 2, Demand: 1, PickupFactoryID: 1, DeliveryFactoryID: 2}

	assert.True(t, v.CheckCapacity(second, 1, 1))
}

func TestVehicle_CheckAssignmentListEnforcesLIFO(t *testing.T) {
	v := model.NewVehicle(1, 10, "gps-1", 1)
	first := &model.Order{ID: 1, Demand: 1, PickupFactoryID: 1, DeliveryFactoryID: 2}
	require.NoError(t, v.AddOrder(first, 0, 0))

	second := &model.Order{ID: 2, Demand: 1, PickupFactoryID: 1, DeliveryFactoryID: 2}

	// Nesting second's pickup and delivery strictly inside first's interval
	// preserves LIFO order: push first, push second, pop second, pop first.
	assert.True(t, v.CheckAssignmentList(second, 1, 1), "fully nested insertion preserves LIFO order")
	// Inserting second's delivery after first's delivery while second's
	// pickup sits inside first's interval interleaves the two stacks.
	assert.False(t, v.CheckAssignmentList(second, 1, 2))
}

func TestVehicle_ActivateTransitionsIdleToPickingUp(t *testing.T) {
	v := model.NewVehicle(1, 10, "gps-1", 1)
	order := &model.Order{ID: 1, Demand: 1, PickupFactoryID: 2, DeliveryFactoryID: 3}
	require.NoError(t, v.AddOrder(order, 0, 0))
	rt := newRoute(t)

	activated, err := v.Activate(rt)

	require.NoError(t, err)
	assert.True(t, activated)
	assert.Equal(t, model.StatusPickingUp, v.Status)
	require.NotNil(t, v.NextStatusTime)
	assert.Equal(t, 5.0, *v.NextStatusTime)
}

func TestVehicle_ActivateNoopWhenQueueEmpty(t *testing.T) {
	v := model.NewVehicle(1, 10, "gps-1", 1)
	rt := newRoute(t)

	activated, err := v.Activate(rt)

	require.NoError(t, err)
	assert.False(t, activated, "no queued work means no transition")
}

func TestVehicle_StepFullCycleAccruesDistanceAndCargo(t *testing.T) {
	v := model.NewVehicle(1, 10, "gps-1", 1)
	order := &model.Order{ID: 1, Demand: 1, PickupFactoryID: 2, DeliveryFactoryID: 3, LoadDuration: 2, UnloadDuration: 3, PromisedTime: 1000}
	require.NoError(t, v.AddOrder(order, 0, 0))
	rt := newRoute(t)
	factories := map[int]*model.Factory{
		1: model.NewFactory(1, 0, 0, 1),
		2: model.NewFactory(2, 0, 0, 1),
		3: model.NewFactory(3, 0, 0, 1),
	}

	activated, err := v.Activate(rt)
	require.NoError(t, err)
	require.True(t, activated)

	// Travel to pickup factory (5 time units).
	require.NoError(t, v.Step(5, rt, factories))
	assert.Equal(t, model.StatusLoading, v.Status)

	// Loading completes after 2 units, pushing the order onto Cargo and
	// departing toward the delivery factory (distance and travel accrue here).
	require.NoError(t, v.Step(2, rt, factories))
	assert.Equal(t, model.StatusDelivering, v.Status)
	assert.Equal(t, []int{1}, v.Cargo)
	assert.Equal(t, 10.0, v.Distance)

	// Travel to delivery factory.
	require.NoError(t, v.Step(5, rt, factories))
	assert.Equal(t, model.StatusUnloading, v.Status)

	// Unloading completes, popping cargo and going idle (no further queue).
	require.NoError(t, v.Step(3, rt, factories))
	assert.True(t, v.IsIdle())
	assert.Empty(t, v.Cargo)
	assert.Zero(t, v.Delay, "delivery finished before the promised time")
}

func TestVehicle_StepAccruesDelayPastPromisedTime(t *testing.T) {
	v := model.NewVehicle(1, 10, "gps-1", 1)
	order := &model.Order{ID: 1, Demand: 1, PickupFactoryID: 2, DeliveryFactoryID: 3, LoadDuration: 0, UnloadDuration: 0, PromisedTime: 1}
	require.NoError(t, v.AddOrder(order, 0, 0))
	rt := newRoute(t)
	factories := map[int]*model.Factory{
		1: model.NewFactory(1, 0, 0, 1),
		2: model.NewFactory(2, 0, 0, 1),
		3: model.NewFactory(3, 0, 0, 1),
	}

	_, err := v.Activate(rt)
	require.NoError(t, err)
	require.NoError(t, v.Step(5, rt, factories)) // arrive at pickup, port idle -> loading (0 duration)
	require.NoError(t, v.Step(0, rt, factories)) // loading completes instantly, depart
	require.NoError(t, v.Step(5, rt, factories)) // arrive at delivery, port idle -> unloading (0 duration)
	require.NoError(t, v.Step(0, rt, factories)) // unloading completes

	assert.Greater(t, v.Delay, 0.0)
}

func TestVehicle_RemoveOrderFailsWhileInFlight(t *testing.T) {
	v := model.NewVehicle(1, 10, "gps-1", 1)
	order := &model.Order{ID: 1, Demand: 1, PickupFactoryID: 2, DeliveryFactoryID: 3}
	require.NoError(t, v.AddOrder(order, 0, 0))
	rt := newRoute(t)
	_, err := v.Activate(rt)
	require.NoError(t, err)

	err = v.RemoveOrder(order)

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrOrderInFlight)
}

func TestVehicle_CloneIsIndependent(t *testing.T) {
	v := model.NewVehicle(1, 10, "gps-1", 1)
	order := &model.Order{ID: 1, Demand: 1, PickupFactoryID: 2, DeliveryFactoryID: 3}
	require.NoError(t, v.AddOrder(order, 0, 0))

	cp := v.Clone()
	cp.Queue[0].FactoryID = 999
	cp.Cargo = append(cp.Cargo, 42)

	assert.NotEqual(t, 999, v.Queue[0].FactoryID)
	assert.Empty(t, v.Cargo)
}

func TestVehicle_IsIdleOrEmptyTreatsConditionsIndependently(t *testing.T) {
	v := model.NewVehicle(1, 10, "gps-1", 1)
	order := &model.Order{ID: 1, Demand: 1, PickupFactoryID: 2, DeliveryFactoryID: 3}
	require.NoError(t, v.AddOrder(order, 0, 0))

	// IDLE status with a freshly-assigned, non-empty queue: the window
	// between Dispatcher.placeOne's AddOrder and the next Activate.
	assert.False(t, v.IsIdle(), "a queued vehicle is not fully idle")
	assert.True(t, v.IsIdleOrEmpty(), "IDLE status alone is enough, regardless of queue contents")

	// Busy status with an empty queue: its last assignment is in flight and
	// nothing is queued behind it.
	v.Status = model.StatusPickingUp
	v.Queue = nil
	assert.False(t, v.IsIdle(), "a busy vehicle is never fully idle")
	assert.True(t, v.IsIdleOrEmpty(), "an empty queue alone is enough, regardless of status")
}
