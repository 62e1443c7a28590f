package smile_p1

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrMalformedDocument = errors.New("malformed gateway document")

type xmlModules struct {
	XMLName xml.Name    `xml:"modules"`
	Modules []xmlModule `xml:"module"`
}

type xmlModule struct {
	Id          string      `xml:"id,attr"`
	VendorName  string      `xml:"vendor_name"`
	VendorModel string      `xml:"vendor_model"`
	Services    xmlServices `xml:"services"`
}

type xmlServices struct {
	Meters []xmlMeter `xml:",any"`
}

type xmlMeter struct {
	XMLName      xml.Name
	Measurements []xmlMeasurement `xml:"measurement"`
}

type xmlMeasurement struct {
	Directionality string `xml:"directionality,attr"`
	Tariff         string `xml:"tariff_indicator,attr"`
	Unit           string `xml:"unit,attr"`
	LogDate        string `xml:"log_date,attr"`
	Value          string `xml:",chardata"`
}

func parseModules(body []byte) (*xmlModules, error) {
	var doc xmlModules
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	return &doc, nil
}

// meterKind splits a service element name like "electricity_cumulative_meter"
// into its module kind and meter type.
func meterKind(name string) (ModuleKind, string, bool) {
	base, ok := strings.CutSuffix(name, "_meter")
	if !ok {
		return "", "", false
	}
	idx := strings.LastIndex(base, "_")
	if idx <= 0 || idx == len(base)-1 {
		return "", "", false
	}
	return ModuleKind(base[:idx]), base[idx+1:], true
}

func tariffName(tariff string) string {
	switch tariff {
	case "nl_offpeak":
		return "offpeak"
	case "nl_peak":
		return "peak"
	}
	return strings.TrimPrefix(tariff, "nl_")
}

// FieldName builds the snapshot field name for a measurement,
// e.g. electricity_consumed_offpeak_cumulative.
func FieldName(kind ModuleKind, directionality, tariff, meterType string) string {
	parts := []string{string(kind), directionality}
	if t := tariffName(tariff); t != "" {
		parts = append(parts, t)
	}
	parts = append(parts, meterType)
	return strings.Join(parts, "_")
}

func (m *xmlModule) hasKind(kind ModuleKind) bool {
	for _, meter := range m.Services.Meters {
		if k, _, ok := meterKind(meter.XMLName.Local); ok && k == kind {
			return true
		}
	}
	return false
}

func (doc *xmlModules) findModule(kind ModuleKind) *xmlModule {
	for i := range doc.Modules {
		if doc.Modules[i].hasKind(kind) {
			return &doc.Modules[i]
		}
	}
	return nil
}

// snapshot extracts the fields of the first module reporting kind.
// A document without such a module yields an empty snapshot.
func (doc *xmlModules) snapshot(kind ModuleKind) (*Snapshot, error) {
	module := doc.findModule(kind)
	if module == nil {
		return NewSnapshot(kind, "", time.Time{}, nil), nil
	}
	fields := make(map[string]float64)
	var latest time.Time
	for _, meter := range module.Services.Meters {
		k, meterType, ok := meterKind(meter.XMLName.Local)
		if !ok || k != kind {
			continue
		}
		for _, m := range meter.Measurements {
			if m.Directionality == "" {
				continue
			}
			value, err := strconv.ParseFloat(strings.TrimSpace(m.Value), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s/%s: %w", ErrMalformedDocument, meter.XMLName.Local, m.Directionality, err)
			}
			fields[FieldName(kind, m.Directionality, m.Tariff, meterType)] = value
			if ts, err := time.Parse(time.RFC3339, m.LogDate); err == nil && ts.After(latest) {
				latest = ts
			}
		}
	}
	return NewSnapshot(kind, module.Id, latest, fields), nil
}

func (doc *xmlModules) info() (*GatewayInfo, error) {
	module := doc.findModule(ModuleElectricity)
	if module == nil {
		return nil, fmt.Errorf("%w: no electricity module", ErrMalformedDocument)
	}
	return &GatewayInfo{
		ModuleId:     module.Id,
		Manufacturer: module.VendorName,
		Model:        module.VendorModel,
	}, nil
}
