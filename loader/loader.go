// Package loader parses the CSV input files (routes, vehicles, factories,
// orders) into model values and groups orders into arrival-time slices
// (SPEC_FULL.md §6). It is the only package in this repository that
// touches the filesystem on the read path.
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/jwmdev/dpdptw-sim/data"
	"github.com/jwmdev/dpdptw-sim/errs"
	"github.com/jwmdev/dpdptw-sim/model"
)

// LoadRoutes parses a routes CSV: (start_factory_id, end_factory_id, distance, time).
func LoadRoutes(path string) (*model.RouteTable, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	rt := model.NewRouteTable()
	for i, row := range rows {
		if len(row) != 4 {
			return nil, fmt.Errorf("loader: routes row %d: want 4 columns, got %d: %w", i, len(row), errs.ErrBadInput)
		}
		from, err := atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("loader: routes row %d start_factory_id: %w", i, err)
		}
		to, err := atoi(row[1])
		if err != nil {
			return nil, fmt.Errorf("loader: routes row %d end_factory_id: %w", i, err)
		}
		dist, err := atof(row[2])
		if err != nil {
			return nil, fmt.Errorf("loader: routes row %d distance: %w", i, err)
		}
		t, err := atof(row[3])
		if err != nil {
			return nil, fmt.Errorf("loader: routes row %d time: %w", i, err)
		}
		rt.AddEdge(from, to, dist, t)
	}
	return rt, nil
}

// LoadVehicles parses a vehicles CSV: (car_num, capacity, operation_time, gps_id).
// operation_time is accepted for forward compatibility with richer fleets
// but is not consumed by the simulator today.
func LoadVehicles(path string, startFactoryID int) ([]*model.Vehicle, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	vehicles := make([]*model.Vehicle, 0, len(rows))
	for i, row := range rows {
		if len(row) != 4 {
			return nil, fmt.Errorf("loader: vehicles row %d: want 4 columns, got %d: %w", i, len(row), errs.ErrBadInput)
		}
		carNum, err := atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("loader: vehicles row %d car_num: %w", i, err)
		}
		capacity, err := atof(row[1])
		if err != nil {
			return nil, fmt.Errorf("loader: vehicles row %d capacity: %w", i, err)
		}
		gpsID := row[3]
		vehicles = append(vehicles, model.NewVehicle(carNum, capacity, gpsID, startFactoryID))
	}
	return vehicles, nil
}

// LoadFactories parses a factories CSV: (factory_id, longitude, latitude, port_num).
func LoadFactories(path string) ([]*model.Factory, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	factories := make([]*model.Factory, 0, len(rows))
	for i, row := range rows {
		if len(row) != 4 {
			return nil, fmt.Errorf("loader: factories row %d: want 4 columns, got %d: %w", i, len(row), errs.ErrBadInput)
		}
		id, err := atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("loader: factories row %d factory_id: %w", i, err)
		}
		lon, err := atof(row[1])
		if err != nil {
			return nil, fmt.Errorf("loader: factories row %d longitude: %w", i, err)
		}
		lat, err := atof(row[2])
		if err != nil {
			return nil, fmt.Errorf("loader: factories row %d latitude: %w", i, err)
		}
		ports, err := strconv.Atoi(strings.TrimSpace(row[3]))
		if err != nil {
			return nil, fmt.Errorf("loader: factories row %d port_num: %w", i, err)
		}
		factories = append(factories, model.NewFactory(id, lon, lat, ports))
	}
	return factories, nil
}

// rawOrder is one parsed orders-CSV row before demand-split.
type rawOrder struct {
	id                 int
	qStandard, qSmall, qBox int
	demand             float64
	creationTime       float64
	promisedTime       float64
	loadDuration       float64
	unloadDuration     float64
	pickupFactoryID    int
	deliveryFactoryID  int
}

// LoadOrders parses an orders CSV: (order_id, q_standard, q_small, q_box,
// demand, creation_time, committed_completion_time, load_time, unload_time,
// pickup_id, delivery_id). Orders whose demand exceeds maxVehicleCapacity
// are split into atomic sub-orders carrying the parent id as ParentID and
// sharing its timestamps, one per category unit (SPEC_FULL.md §6). Every
// returned order gets a fresh sequential ID. The result is sliced into
// arrival-time buckets, each keyed by creation_time rounded down to the
// nearest multiple of the slice size (the GCD of all load_time values
// unless overridden), iterated in ascending time order.
func LoadOrders(path string, maxVehicleCapacity float64, sliceSizeOverride float64) ([]OrderSlice, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	raws := make([]rawOrder, 0, len(rows))
	loadDurations := make([]int64, 0, len(rows))
	for i, row := range rows {
		if len(row) != 11 {
			return nil, fmt.Errorf("loader: orders row %d: want 11 columns, got %d: %w", i, len(row), errs.ErrBadInput)
		}
		r, err := parseOrderRow(row)
		if err != nil {
			return nil, fmt.Errorf("loader: orders row %d: %w", i, err)
		}
		raws = append(raws, r)
		loadDurations = append(loadDurations, int64(r.loadDuration))
	}
	sort.Slice(raws, func(i, j int) bool { return raws[i].creationTime < raws[j].creationTime })

	sliceSize := sliceSizeOverride
	if sliceSize <= 0 {
		sliceSize = float64(gcdAll(loadDurations))
	}
	if sliceSize <= 0 {
		sliceSize = 1
	}

	buckets := make(map[float64][]*model.Order)
	nextID := 1
	for _, raw := range raws {
		for _, o := range splitOrder(raw, maxVehicleCapacity, &nextID) {
			key := o.CreationTime - mod(o.CreationTime, sliceSize)
			buckets[key] = append(buckets[key], o)
		}
	}

	keys := make([]float64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Float64s(keys)

	slices := make([]OrderSlice, 0, len(keys))
	for _, k := range keys {
		slices = append(slices, OrderSlice{Time: k, Orders: buckets[k]})
	}
	return slices, nil
}

// OrderSlice is one arrival-time bucket of orders, keyed by the bucket's
// start time (SPEC_FULL.md §6).
type OrderSlice struct {
	Time   float64
	Orders []*model.Order
}

func parseOrderRow(row []string) (rawOrder, error) {
	var r rawOrder
	var err error
	if r.id, err = atoi(row[0]); err != nil {
		return r, fmt.Errorf("order_id: %w", err)
	}
	if r.qStandard, err = strconv.Atoi(strings.TrimSpace(row[1])); err != nil {
		return r, fmt.Errorf("q_standard: %w", err)
	}
	if r.qSmall, err = strconv.Atoi(strings.TrimSpace(row[2])); err != nil {
		return r, fmt.Errorf("q_small: %w", err)
	}
	if r.qBox, err = strconv.Atoi(strings.TrimSpace(row[3])); err != nil {
		return r, fmt.Errorf("q_box: %w", err)
	}
	if r.demand, err = atof(row[4]); err != nil {
		return r, fmt.Errorf("demand: %w", err)
	}
	if r.creationTime, err = parseClock(row[5]); err != nil {
		return r, fmt.Errorf("creation_time: %w", err)
	}
	if r.promisedTime, err = parseClock(row[6]); err != nil {
		return r, fmt.Errorf("committed_completion_time: %w", err)
	}
	if r.loadDuration, err = atof(row[7]); err != nil {
		return r, fmt.Errorf("load_time: %w", err)
	}
	if r.unloadDuration, err = atof(row[8]); err != nil {
		return r, fmt.Errorf("unload_time: %w", err)
	}
	if r.pickupFactoryID, err = atoi(row[9]); err != nil {
		return r, fmt.Errorf("pickup_id: %w", err)
	}
	if r.deliveryFactoryID, err = atoi(row[10]); err != nil {
		return r, fmt.Errorf("delivery_id: %w", err)
	}
	return r, nil
}

// splitOrder returns a single order with the row's fields when its demand
// fits within maxVehicleCapacity, or one atomic sub-order per category unit
// otherwise. Every returned order takes its ID from nextID, so the row's
// order_id is kept only as the ParentID of sub-orders; sub-orders also
// share the parent's timestamps.
func splitOrder(r rawOrder, maxVehicleCapacity float64, nextID *int) []*model.Order {
	if r.demand <= maxVehicleCapacity {
		return []*model.Order{{
			ID:                assignID(nextID),
			ParentID:          0,
			Demand:            r.demand,
			QStandard:         r.qStandard,
			QSmall:            r.qSmall,
			QBox:              r.qBox,
			PickupFactoryID:   r.pickupFactoryID,
			DeliveryFactoryID: r.deliveryFactoryID,
			CreationTime:      r.creationTime,
			PromisedTime:      r.promisedTime,
			LoadDuration:      r.loadDuration,
			UnloadDuration:    r.unloadDuration,
		}}
	}

	var out []*model.Order
	units := []struct {
		count    int
		category string
		setField func(o *model.Order)
	}{
		{r.qStandard, "q_standard", func(o *model.Order) { o.QStandard = 1 }},
		{r.qSmall, "q_small", func(o *model.Order) { o.QSmall = 1 }},
		{r.qBox, "q_box", func(o *model.Order) { o.QBox = 1 }},
	}
	for _, u := range units {
		unitDemand := data.DemandUnits[u.category]
		for i := 0; i < u.count; i++ {
			o := &model.Order{
				ID:                assignID(nextID),
				ParentID:          r.id,
				Demand:            unitDemand,
				PickupFactoryID:   r.pickupFactoryID,
				DeliveryFactoryID: r.deliveryFactoryID,
				CreationTime:      r.creationTime,
				PromisedTime:      r.promisedTime,
				LoadDuration:      r.loadDuration,
				UnloadDuration:    r.unloadDuration,
			}
			u.setField(o)
			out = append(out, o)
		}
	}
	return out
}

func assignID(nextID *int) int {
	id := *nextID
	*nextID++
	return id
}

func parseClock(s string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%q: %w", s, errs.ErrBadInput)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, errs.ErrBadInput)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, errs.ErrBadInput)
	}
	sec, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, errs.ErrBadInput)
	}
	return float64(h*3600 + m*60 + sec), nil
}

func mod(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	m := a - b*float64(int64(a/b))
	if m < 0 {
		m += b
	}
	return m
}

func gcd(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func gcdAll(values []int64) int64 {
	var result int64
	for _, v := range values {
		if v == 0 {
			continue
		}
		result = gcd(result, v)
	}
	return result
}

func atoi(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, errs.ErrBadInput)
	}
	return v, nil
}

func atof(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, errs.ErrBadInput)
	}
	return v, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open %s: %w", path, errs.ErrBadInput)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("loader: read header of %s: %w", path, errs.ErrBadInput)
	}
	_ = header

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("loader: read %s: %w", path, errs.ErrBadInput)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
