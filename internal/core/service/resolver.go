package service

import (
	"context"
	"strings"

	"github.com/plugwise/p1-legacy/internal/core/domain"
	"github.com/plugwise/p1-legacy/internal/core/port"
	"github.com/plugwise/p1-legacy/internal/metrics"
	"github.com/plugwise/p1-legacy/pkg/smile_p1"
)

type FormulaId string

const (
	FORMULA_NET_ELECTRICITY_POINT      FormulaId = "net_electricity_point"
	FORMULA_NET_ELECTRICITY_CUMULATIVE FormulaId = "net_electricity_cumulative"
)

// FieldGetter looks up one raw field.
type FieldGetter func(kind smile_p1.ModuleKind, field string) (float64, error)

// Formula computes a derived reading from raw fields. The first
// lookup error is returned as is.
type Formula func(get FieldGetter) (float64, error)

// readingSource is either a direct field lookup or a derived formula.
type readingSource struct {
	module  smile_p1.ModuleKind
	field   string
	formula FormulaId
}

func direct(kind smile_p1.ModuleKind, field string) readingSource {
	return readingSource{module: kind, field: field}
}

func derived(id FormulaId) readingSource {
	return readingSource{formula: id}
}

func (s readingSource) isDerived() bool {
	return s.formula != ""
}

var formulas = map[FormulaId]Formula{
	FORMULA_NET_ELECTRICITY_POINT:      netElectricityPoint,
	FORMULA_NET_ELECTRICITY_CUMULATIVE: netElectricityCumulative,
}

var readingSources = map[string]readingSource{
	domain.MEASUREMENT_ELECTRICITY_CONSUMED_POINT:              direct(smile_p1.ModuleElectricity, domain.MEASUREMENT_ELECTRICITY_CONSUMED_POINT),
	domain.MEASUREMENT_ELECTRICITY_PRODUCED_POINT:              direct(smile_p1.ModuleElectricity, domain.MEASUREMENT_ELECTRICITY_PRODUCED_POINT),
	domain.MEASUREMENT_ELECTRICITY_CONSUMED_OFFPEAK_INTERVAL:   direct(smile_p1.ModuleElectricity, domain.MEASUREMENT_ELECTRICITY_CONSUMED_OFFPEAK_INTERVAL),
	domain.MEASUREMENT_ELECTRICITY_CONSUMED_PEAK_INTERVAL:      direct(smile_p1.ModuleElectricity, domain.MEASUREMENT_ELECTRICITY_CONSUMED_PEAK_INTERVAL),
	domain.MEASUREMENT_ELECTRICITY_CONSUMED_OFFPEAK_CUMULATIVE: direct(smile_p1.ModuleElectricity, domain.MEASUREMENT_ELECTRICITY_CONSUMED_OFFPEAK_CUMULATIVE),
	domain.MEASUREMENT_ELECTRICITY_CONSUMED_PEAK_CUMULATIVE:    direct(smile_p1.ModuleElectricity, domain.MEASUREMENT_ELECTRICITY_CONSUMED_PEAK_CUMULATIVE),
	domain.MEASUREMENT_ELECTRICITY_PRODUCED_OFFPEAK_INTERVAL:   direct(smile_p1.ModuleElectricity, domain.MEASUREMENT_ELECTRICITY_PRODUCED_OFFPEAK_INTERVAL),
	domain.MEASUREMENT_ELECTRICITY_PRODUCED_PEAK_INTERVAL:      direct(smile_p1.ModuleElectricity, domain.MEASUREMENT_ELECTRICITY_PRODUCED_PEAK_INTERVAL),
	domain.MEASUREMENT_ELECTRICITY_PRODUCED_OFFPEAK_CUMULATIVE: direct(smile_p1.ModuleElectricity, domain.MEASUREMENT_ELECTRICITY_PRODUCED_OFFPEAK_CUMULATIVE),
	domain.MEASUREMENT_ELECTRICITY_PRODUCED_PEAK_CUMULATIVE:    direct(smile_p1.ModuleElectricity, domain.MEASUREMENT_ELECTRICITY_PRODUCED_PEAK_CUMULATIVE),
	domain.MEASUREMENT_GAS_CONSUMED_INTERVAL:                   direct(smile_p1.ModuleGas, domain.MEASUREMENT_GAS_CONSUMED_INTERVAL),
	domain.MEASUREMENT_GAS_CONSUMED_CUMULATIVE:                 direct(smile_p1.ModuleGas, domain.MEASUREMENT_GAS_CONSUMED_CUMULATIVE),
	domain.MEASUREMENT_NET_ELECTRICITY_POINT:                   derived(FORMULA_NET_ELECTRICITY_POINT),
	domain.MEASUREMENT_NET_ELECTRICITY_CUMULATIVE:              derived(FORMULA_NET_ELECTRICITY_CUMULATIVE),
}

// sourceFor returns the table entry for key. Keys outside the table are
// looked up as raw fields of the module named by their prefix.
func sourceFor(key string) readingSource {
	if src, ok := readingSources[key]; ok {
		return src
	}
	for _, kind := range smile_p1.ModuleKinds {
		if strings.HasPrefix(key, string(kind)+"_") {
			return direct(kind, key)
		}
	}
	return direct(smile_p1.ModuleElectricity, key)
}

type DerivedReadingResolver struct {
	data    port.MeterData
	metrics *metrics.Metrics
}

func NewDerivedReadingResolver(data port.MeterData, m *metrics.Metrics) *DerivedReadingResolver {
	return &DerivedReadingResolver{
		data:    data,
		metrics: m,
	}
}

// Resolve refreshes the meter data (subject to its throttle) and returns
// the value of key.
func (r *DerivedReadingResolver) Resolve(ctx context.Context, key string) (float64, error) {
	if err := r.data.Refresh(ctx); err != nil {
		r.metrics.ResolveResult(key, err)
		return 0, err
	}
	value, err := r.lookup(key)
	r.metrics.ResolveResult(key, err)
	return value, err
}

// ResolveAll refreshes once and resolves every key. A refresh failure
// fails the whole call; lookup failures are reported per reading.
func (r *DerivedReadingResolver) ResolveAll(ctx context.Context, keys []string) ([]domain.Reading, error) {
	if err := r.data.Refresh(ctx); err != nil {
		for _, key := range keys {
			r.metrics.ResolveResult(key, err)
		}
		return nil, err
	}
	readings := make([]domain.Reading, 0, len(keys))
	for _, key := range keys {
		value, err := r.lookup(key)
		r.metrics.ResolveResult(key, err)
		readings = append(readings, domain.Reading{Key: key, Value: value, Error: err})
	}
	return readings, nil
}

func (r *DerivedReadingResolver) lookup(key string) (float64, error) {
	src := sourceFor(key)
	if !src.isDerived() {
		return r.data.GetField(src.module, src.field)
	}
	return formulas[src.formula](r.data.GetField)
}

func netElectricityPoint(get FieldGetter) (float64, error) {
	consumed, err := get(smile_p1.ModuleElectricity, domain.MEASUREMENT_ELECTRICITY_CONSUMED_POINT)
	if err != nil {
		return 0, err
	}
	produced, err := get(smile_p1.ModuleElectricity, domain.MEASUREMENT_ELECTRICITY_PRODUCED_POINT)
	if err != nil {
		return 0, err
	}
	return consumed - produced, nil
}

func netElectricityCumulative(get FieldGetter) (float64, error) {
	values, err := fields(get, smile_p1.ModuleElectricity,
		domain.MEASUREMENT_ELECTRICITY_CONSUMED_OFFPEAK_CUMULATIVE,
		domain.MEASUREMENT_ELECTRICITY_CONSUMED_PEAK_CUMULATIVE,
		domain.MEASUREMENT_ELECTRICITY_PRODUCED_OFFPEAK_CUMULATIVE,
		domain.MEASUREMENT_ELECTRICITY_PRODUCED_PEAK_CUMULATIVE)
	if err != nil {
		return 0, err
	}
	return (values[0] + values[1]) - (values[2] + values[3]), nil
}

func fields(get FieldGetter, kind smile_p1.ModuleKind, names ...string) ([]float64, error) {
	values := make([]float64, len(names))
	for i, name := range names {
		v, err := get(kind, name)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// ensure interface compliance
var _ port.ReadingResolver = (*DerivedReadingResolver)(nil)
