package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwmdev/dpdptw-sim/model"
)

func TestFactory_AssignIdlePortLoads(t *testing.T) {
	f := model.NewFactory(1, 0, 0, 2)
	order := &model.Order{ID: 1, LoadDuration: 10, UnloadDuration: 5}

	wasIdle, residual := f.Assign(model.OpPickup, order)

	assert.True(t, wasIdle)
	assert.Zero(t, residual)
	assert.Equal(t, 10.0, f.Ports[0].FinishTime)
}

func TestFactory_AssignPrefersShortestQueueLowestIndex(t *testing.T) {
	f := model.NewFactory(1, 0, 0, 2)
	order := &model.Order{ID: 1, LoadDuration: 10, UnloadDuration: 5}

	// Occupy port 0 only.
	f.Assign(model.OpPickup, order)

	wasIdle, residual := f.Assign(model.OpPickup, order)

	assert.True(t, wasIdle, "second arrival should take the still-idle port 1")
	assert.Zero(t, residual)
	assert.Equal(t, 10.0, f.Ports[1].FinishTime)
}

func TestFactory_AssignContentionWaits(t *testing.T) {
	f := model.NewFactory(1, 0, 0, 1)
	order := &model.Order{ID: 1, LoadDuration: 10, UnloadDuration: 5}

	f.Assign(model.OpPickup, order)
	wasIdle, residual := f.Assign(model.OpDelivery, order)

	assert.False(t, wasIdle)
	assert.Equal(t, 10.0, residual)
	assert.Equal(t, 15.0, f.Ports[0].FinishTime)
}

func TestFactory_TickFloorsAtZero(t *testing.T) {
	f := model.NewFactory(1, 0, 0, 1)
	order := &model.Order{ID: 1, LoadDuration: 10, UnloadDuration: 5}
	f.Assign(model.OpPickup, order)

	f.Tick(100)

	assert.Zero(t, f.Ports[0].FinishTime)
}

func TestFactory_CloneIsIndependent(t *testing.T) {
	f := model.NewFactory(1, 0, 0, 1)
	order := &model.Order{ID: 1, LoadDuration: 10, UnloadDuration: 5}
	f.Assign(model.OpPickup, order)

	cp := f.Clone()
	cp.Ports[0].FinishTime = 999

	assert.Equal(t, 10.0, f.Ports[0].FinishTime)
	assert.Equal(t, 999.0, cp.Ports[0].FinishTime)
}
