package model

// OpKind distinguishes the two halves of an order at a factory.
type OpKind int

const (
	OpPickup OpKind = iota
	OpDelivery
)

func (k OpKind) String() string {
	if k == OpPickup {
		return "PICKUP"
	}
	return "DELIVERY"
}

// Port is a single service bay at a Factory. FinishTime is the residual
// service duration, in simulator time units, until the port is free again.
type Port struct {
	FinishTime float64
}

// Factory owns a fixed number of Ports and serves vehicles FIFO-by-arrival
// within "shortest queue, lowest index first" tie-breaking (SPEC_FULL.md §4.3).
type Factory struct {
	ID        int
	Longitude float64
	Latitude  float64
	Ports     []*Port
}

// NewFactory builds a Factory with portCount idle ports.
func NewFactory(id int, lon, lat float64, portCount int) *Factory {
	ports := make([]*Port, portCount)
	for i := range ports {
		ports[i] = &Port{}
	}
	return &Factory{ID: id, Longitude: lon, Latitude: lat, Ports: ports}
}

// Assign places a vehicle on the port with the smallest FinishTime (ties
// broken by lowest index), then adds the service duration implied by op to
// that port's FinishTime. It returns whether the port was idle at the
// moment of assignment (idle means the caller should transition the vehicle
// straight to LOADING/UNLOADING) and, when it was not idle, the residual
// FinishTime the vehicle must WAIT out before its own service begins.
func (f *Factory) Assign(op OpKind, order *Order) (wasIdle bool, residual float64) {
	best := 0
	for i, p := range f.Ports {
		if p.FinishTime < f.Ports[best].FinishTime {
			best = i
		}
	}
	residual = f.Ports[best].FinishTime
	wasIdle = residual == 0
	duration := order.UnloadDuration
	if op == OpPickup {
		duration = order.LoadDuration
	}
	f.Ports[best].FinishTime += duration
	return wasIdle, residual
}

// Tick decrements every port's FinishTime by step, floored at zero.
func (f *Factory) Tick(step float64) {
	for _, p := range f.Ports {
		p.FinishTime -= step
		if p.FinishTime < 0 {
			p.FinishTime = 0
		}
	}
}

// Clone returns a structural copy of the factory: new Port values, same ID
// and coordinates. Used by Simulator.Snapshot for what-if evaluation.
func (f *Factory) Clone() *Factory {
	cp := &Factory{ID: f.ID, Longitude: f.Longitude, Latitude: f.Latitude}
	cp.Ports = make([]*Port, len(f.Ports))
	for i, p := range f.Ports {
		cp.Ports[i] = &Port{FinishTime: p.FinishTime}
	}
	return cp
}
