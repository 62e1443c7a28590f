package smile_p1

import (
	"context"
	"sync"
	"time"
)

const TestModulesDocument = `<?xml version="1.0" encoding="UTF-8"?>
<modules>
  <module id="2a7ef3c4e8d04bb3a4f54a1c7e8b9d10">
    <vendor_name>Plugwise</vendor_name>
    <vendor_model>Smile P1</vendor_model>
    <services>
      <electricity_point_meter id="ep1">
        <measurement log_date="2020-03-05T12:10:00+01:00" unit="W" directionality="consumed">120.000</measurement>
        <measurement log_date="2020-03-05T12:10:00+01:00" unit="W" directionality="produced">5.000</measurement>
      </electricity_point_meter>
      <electricity_interval_meter id="ei1">
        <measurement log_date="2020-03-05T12:05:00+01:00" unit="Wh" interval="PT5M" directionality="consumed" tariff_indicator="nl_offpeak">0.000</measurement>
        <measurement log_date="2020-03-05T12:05:00+01:00" unit="Wh" interval="PT5M" directionality="consumed" tariff_indicator="nl_peak">11.000</measurement>
        <measurement log_date="2020-03-05T12:05:00+01:00" unit="Wh" interval="PT5M" directionality="produced" tariff_indicator="nl_offpeak">0.000</measurement>
        <measurement log_date="2020-03-05T12:05:00+01:00" unit="Wh" interval="PT5M" directionality="produced" tariff_indicator="nl_peak">1.000</measurement>
      </electricity_interval_meter>
      <electricity_cumulative_meter id="ec1">
        <measurement log_date="2020-03-05T12:10:00+01:00" unit="Wh" directionality="consumed" tariff_indicator="nl_offpeak">1000.000</measurement>
        <measurement log_date="2020-03-05T12:10:00+01:00" unit="Wh" directionality="consumed" tariff_indicator="nl_peak">2000.000</measurement>
        <measurement log_date="2020-03-05T12:10:00+01:00" unit="Wh" directionality="produced" tariff_indicator="nl_offpeak">300.000</measurement>
        <measurement log_date="2020-03-05T12:10:00+01:00" unit="Wh" directionality="produced" tariff_indicator="nl_peak">400.000</measurement>
      </electricity_cumulative_meter>
    </services>
  </module>
  <module id="9c1d2e3f4a5b4c6d8e7f6a5b4c3d2e1f">
    <vendor_name>Plugwise</vendor_name>
    <vendor_model>Smile P1</vendor_model>
    <services>
      <gas_interval_meter id="gi1">
        <measurement log_date="2020-03-05T12:00:00+01:00" unit="m3" interval="PT1H" directionality="consumed">0.120</measurement>
      </gas_interval_meter>
      <gas_cumulative_meter id="gc1">
        <measurement log_date="2020-03-05T12:00:00+01:00" unit="m3" directionality="consumed">3812.401</measurement>
      </gas_cumulative_meter>
    </services>
  </module>
</modules>`

func CreateTestSmileP1Reader() (SmileP1Reader, error) {
	return NewTestReader(), nil
}

// TestReader serves snapshots parsed from TestModulesDocument, or from
// whatever was set with SetModule, and counts module fetches.
type TestReader struct {
	mu      sync.Mutex
	modules map[ModuleKind]*Snapshot
	err     error
	fetches int
}

func NewTestReader() *TestReader {
	doc, err := parseModules([]byte(TestModulesDocument))
	if err != nil {
		panic(err)
	}
	modules := make(map[ModuleKind]*Snapshot)
	for _, kind := range ModuleKinds {
		s, err := doc.snapshot(kind)
		if err != nil {
			panic(err)
		}
		modules[kind] = s
	}
	return &TestReader{modules: modules}
}

func (r *TestReader) SetModule(kind ModuleKind, fields map[string]float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[kind] = NewSnapshot(kind, "test", time.Now(), fields)
}

// SetError makes every following fetch fail with err. A nil err restores normal operation.
func (r *TestReader) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Fetches returns the number of GetModule calls served so far.
func (r *TestReader) Fetches() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetches
}

func (r *TestReader) GetInfo(_ context.Context) (*GatewayInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return &GatewayInfo{
		Host:         "smile-test",
		ModuleId:     "2a7ef3c4e8d04bb3a4f54a1c7e8b9d10",
		Manufacturer: "Plugwise",
		Model:        "Smile P1",
	}, nil
}

func (r *TestReader) GetModule(_ context.Context, kind ModuleKind) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches++
	if r.err != nil {
		return nil, r.err
	}
	if s, ok := r.modules[kind]; ok {
		return s, nil
	}
	return NewSnapshot(kind, "", time.Time{}, nil), nil
}

var _ SmileP1Reader = (*TestReader)(nil)
