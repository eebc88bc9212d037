package dispatch_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwmdev/dpdptw-sim/dispatch"
	"github.com/jwmdev/dpdptw-sim/errs"
	"github.com/jwmdev/dpdptw-sim/model"
	"github.com/jwmdev/dpdptw-sim/sim"
)

func routeWithFarFactory() *model.RouteTable {
	rt := model.NewRouteTable()
	near := []int{1, 2, 3}
	for _, a := range near {
		for _, b := range near {
			if a == b {
				rt.AddEdge(a, b, 0, 0)
				continue
			}
			rt.AddEdge(a, b, 10, 5)
		}
		rt.AddEdge(a, 4, 1000, 500)
		rt.AddEdge(4, a, 1000, 500)
	}
	rt.AddEdge(4, 4, 0, 0)
	return rt
}

func newTestSim(t *testing.T, rt *model.RouteTable, vehicleCount, portsPerFactory int, factoryIDs []int) *sim.Simulator {
	t.Helper()
	s := sim.New(rt)
	vehicles := make([]*model.Vehicle, 0, vehicleCount)
	for i := 1; i <= vehicleCount; i++ {
		vehicles = append(vehicles, model.NewVehicle(i, 10, "gps", 1))
	}
	s.LoadVehicles(vehicles)
	factories := make([]*model.Factory, 0, len(factoryIDs))
	for _, id := range factoryIDs {
		factories = append(factories, model.NewFactory(id, 0, 0, portsPerFactory))
	}
	s.LoadFactories(factories)
	return s
}

func TestDispatch_IdleFastPath(t *testing.T) {
	rt := routeWithFarFactory()
	s := newTestSim(t, rt, 2, 1, []int{1, 2, 3, 4})
	events := sim.NewEventLog()
	d := dispatch.New(1, dispatch.DefaultParams(), nil, events)

	order := &model.Order{ID: 1, Demand: 1, PickupFactoryID: 2, DeliveryFactoryID: 3, PromisedTime: 1000}

	overflow, err := d.Dispatch(s, []*model.Order{order}, dispatch.AlgorithmGreedy)

	require.NoError(t, err)
	assert.Empty(t, overflow)
	require.Len(t, s.Vehicles[1].Queue, 2, "lowest car_num idle vehicle takes the fast path")
	assert.True(t, s.Vehicles[2].IsIdle(), "the other idle vehicle is untouched")
}

func TestDispatch_IdleFastPathAcceptsIdleVehicleWithQueuedWork(t *testing.T) {
	rt := routeWithFarFactory()
	s := newTestSim(t, rt, 1, 1, []int{1, 2, 3, 4})

	// Vehicle 1 has a queued order but hasn't been Activate'd yet, so it is
	// still StatusIdle: this must still take the fast path.
	queued := &model.Order{ID: 1, Demand: 1, PickupFactoryID: 2, DeliveryFactoryID: 3, PromisedTime: 1000}
	require.NoError(t, s.Vehicles[1].AddOrder(queued, 0, 0))
	require.Equal(t, model.StatusIdle, s.Vehicles[1].Status)

	events := sim.NewEventLog()
	d := dispatch.New(1, dispatch.DefaultParams(), nil, events)

	order := &model.Order{ID: 2, Demand: 1, PickupFactoryID: 2, DeliveryFactoryID: 3, PromisedTime: 1000}
	overflow, err := d.Dispatch(s, []*model.Order{order}, dispatch.AlgorithmGreedy)

	require.NoError(t, err)
	assert.Empty(t, overflow)
	require.Len(t, s.Vehicles[1].Queue, 4, "fast path appended at (0,0) ahead of the existing queue")
	assert.Equal(t, order.ID, s.Vehicles[1].Queue[0].Order.ID)
}

func TestDispatch_ExhaustiveSearchMinimizesCost(t *testing.T) {
	rt := routeWithFarFactory()
	s := newTestSim(t, rt, 2, 1, []int{1, 2, 3, 4})

	// Put both vehicles to work so the idle fast-path never triggers.
	existingNear := &model.Order{ID: 1, Demand: 1, PickupFactoryID: 2, DeliveryFactoryID: 3, PromisedTime: 1000}
	existingFar := &model.Order{ID: 2, Demand: 1, PickupFactoryID: 4, DeliveryFactoryID: 4, PromisedTime: 1000}
	require.NoError(t, s.Vehicles[1].AddOrder(existingNear, 0, 0))
	require.NoError(t, s.Vehicles[2].AddOrder(existingFar, 0, 0))
	// Advance(0) activates both vehicles: each leaves IDLE with its pickup in
	// flight and its delivery still queued.
	require.NoError(t, s.Advance(0))

	events := sim.NewEventLog()
	d := dispatch.New(1, dispatch.DefaultParams(), nil, events)

	// Pickup/delivery factories mirror vehicle 1's existing route, so
	// appending there is cheap; detouring vehicle 2 out near factory 4 to
	// reach them is far more expensive.
	order := &model.Order{ID: 3, Demand: 1, PickupFactoryID: 2, DeliveryFactoryID: 3, PromisedTime: 1000}

	overflow, err := d.Dispatch(s, []*model.Order{order}, dispatch.AlgorithmGreedy)

	require.NoError(t, err)
	assert.Empty(t, overflow)
	assert.Len(t, s.Vehicles[1].Queue, 3, "order 3 was inserted into the cheaper vehicle's queue")
	assert.Len(t, s.Vehicles[2].Queue, 1, "the far vehicle was left untouched")
}

func TestDispatch_InfeasibleOrderOverflows(t *testing.T) {
	rt := routeWithFarFactory()
	s := sim.New(rt)
	v := model.NewVehicle(1, 1, "gps", 1)
	s.LoadVehicles([]*model.Vehicle{v})
	s.LoadFactories([]*model.Factory{model.NewFactory(2, 0, 0, 1), model.NewFactory(3, 0, 0, 1)})

	small := &model.Order{ID: 1, Demand: 0.5, PickupFactoryID: 2, DeliveryFactoryID: 3, PromisedTime: 1000}
	require.NoError(t, v.AddOrder(small, 0, 0))
	// Activate the vehicle so the idle fast-path does not take the order.
	require.NoError(t, s.Advance(0))

	events := sim.NewEventLog()
	d := dispatch.New(1, dispatch.DefaultParams(), nil, events)

	oversize := &model.Order{ID: 2, Demand: 2, PickupFactoryID: 2, DeliveryFactoryID: 3, PromisedTime: 1000}

	overflow, err := d.Dispatch(s, []*model.Order{oversize}, dispatch.AlgorithmGreedy)

	require.NoError(t, err)
	require.Len(t, overflow, 1)
	assert.Equal(t, oversize.ID, overflow[0].ID)
	assert.Equal(t, 1, events.Len())
}

func TestDispatch_RejectsUnsupportedAlgorithm(t *testing.T) {
	rt := model.NewRouteTable()
	s := sim.New(rt)
	d := dispatch.New(1, dispatch.DefaultParams(), nil, nil)

	_, err := d.Dispatch(s, nil, dispatch.AlgorithmSolomon)

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrUnsupportedAlgorithm)
}

func TestDispatch_RejectsUnknownAlgorithm(t *testing.T) {
	rt := model.NewRouteTable()
	s := sim.New(rt)
	d := dispatch.New(1, dispatch.DefaultParams(), nil, nil)

	_, err := d.Dispatch(s, nil, dispatch.Algorithm(99))

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrUnsupportedAlgorithm)
}
