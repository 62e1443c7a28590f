package domain

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	MEASUREMENT_ELECTRICITY_CONSUMED_POINT              = "electricity_consumed_point"
	MEASUREMENT_ELECTRICITY_PRODUCED_POINT              = "electricity_produced_point"
	MEASUREMENT_ELECTRICITY_CONSUMED_OFFPEAK_INTERVAL   = "electricity_consumed_offpeak_interval"
	MEASUREMENT_ELECTRICITY_CONSUMED_PEAK_INTERVAL      = "electricity_consumed_peak_interval"
	MEASUREMENT_ELECTRICITY_CONSUMED_OFFPEAK_CUMULATIVE = "electricity_consumed_offpeak_cumulative"
	MEASUREMENT_ELECTRICITY_CONSUMED_PEAK_CUMULATIVE    = "electricity_consumed_peak_cumulative"
	MEASUREMENT_ELECTRICITY_PRODUCED_OFFPEAK_INTERVAL   = "electricity_produced_offpeak_interval"
	MEASUREMENT_ELECTRICITY_PRODUCED_PEAK_INTERVAL      = "electricity_produced_peak_interval"
	MEASUREMENT_ELECTRICITY_PRODUCED_OFFPEAK_CUMULATIVE = "electricity_produced_offpeak_cumulative"
	MEASUREMENT_ELECTRICITY_PRODUCED_PEAK_CUMULATIVE    = "electricity_produced_peak_cumulative"
	MEASUREMENT_NET_ELECTRICITY_POINT                   = "net_electricity_point"
	MEASUREMENT_NET_ELECTRICITY_CUMULATIVE              = "net_electricity_cumulative"
	MEASUREMENT_GAS_CONSUMED_INTERVAL                   = "gas_consumed_interval"
	MEASUREMENT_GAS_CONSUMED_CUMULATIVE                 = "gas_consumed_cumulative"

	CATEGORY_POWER  = "power"
	CATEGORY_ENERGY = "energy"
	CATEGORY_NONE   = ""

	ICON_FLASH        = "mdi:flash"
	ICON_SUNNY        = "mdi:white-balance-sunny"
	ICON_GAS_CYLINDER = "mdi:gas-cylinder"
	DEFAULT_ICON      = ICON_FLASH

	SENSOR_NAME_PREFIX = "P1 "
)

// Measurement is the display metadata of a measurement key.
type Measurement struct {
	Label    string
	Category string
	Unit     string
	Icon     string
}

var measurementCatalog = map[string]Measurement{
	MEASUREMENT_ELECTRICITY_CONSUMED_POINT:              {"Electricity Consumed Point", CATEGORY_POWER, "W", ICON_FLASH},
	MEASUREMENT_ELECTRICITY_PRODUCED_POINT:              {"Electricity Produced Point", CATEGORY_POWER, "W", ICON_FLASH},
	MEASUREMENT_ELECTRICITY_CONSUMED_OFFPEAK_INTERVAL:   {"Electricity Consumed Off Peak Interval", CATEGORY_ENERGY, "Wh", ICON_FLASH},
	MEASUREMENT_ELECTRICITY_CONSUMED_PEAK_INTERVAL:      {"Electricity Consumed Peak Interval", CATEGORY_ENERGY, "Wh", ICON_FLASH},
	MEASUREMENT_ELECTRICITY_CONSUMED_OFFPEAK_CUMULATIVE: {"Electricity Consumed Off Peak Cumulative", CATEGORY_ENERGY, "Wh", ICON_FLASH},
	MEASUREMENT_ELECTRICITY_CONSUMED_PEAK_CUMULATIVE:    {"Electricity Consumed Peak Cumulative", CATEGORY_ENERGY, "Wh", ICON_FLASH},
	MEASUREMENT_ELECTRICITY_PRODUCED_OFFPEAK_INTERVAL:   {"Electricity Produced Off Peak Interval", CATEGORY_ENERGY, "Wh", ICON_SUNNY},
	MEASUREMENT_ELECTRICITY_PRODUCED_PEAK_INTERVAL:      {"Electricity Produced Peak Interval", CATEGORY_ENERGY, "Wh", ICON_SUNNY},
	MEASUREMENT_ELECTRICITY_PRODUCED_OFFPEAK_CUMULATIVE: {"Electricity Produced Off Peak Cumulative", CATEGORY_ENERGY, "Wh", ICON_SUNNY},
	MEASUREMENT_ELECTRICITY_PRODUCED_PEAK_CUMULATIVE:    {"Electricity Produced Peak Cumulative", CATEGORY_ENERGY, "Wh", ICON_SUNNY},
	MEASUREMENT_NET_ELECTRICITY_POINT:                   {"Net Electricity Point", CATEGORY_POWER, "W", ICON_FLASH},
	MEASUREMENT_NET_ELECTRICITY_CUMULATIVE:              {"Net Electricity Cumulative", CATEGORY_ENERGY, "Wh", ICON_FLASH},
	MEASUREMENT_GAS_CONSUMED_INTERVAL:                   {"Gas Consumed Interval", CATEGORY_NONE, "m3", ICON_GAS_CYLINDER},
	MEASUREMENT_GAS_CONSUMED_CUMULATIVE:                 {"Gas Consumed Cumulative", CATEGORY_NONE, "m3", ICON_GAS_CYLINDER},
}

// LookupMeasurement returns the catalog entry for key, or a fallback entry
// labelled after the key when the catalog does not know it.
func LookupMeasurement(key string) (Measurement, bool) {
	if m, ok := measurementCatalog[key]; ok {
		return m, true
	}
	return fallbackMeasurement(key), false
}

func IsKnownMeasurement(key string) bool {
	_, ok := measurementCatalog[key]
	return ok
}

func MeasurementKeys() []string {
	keys := make([]string, 0, len(measurementCatalog))
	for k := range measurementCatalog {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func fallbackMeasurement(key string) Measurement {
	return Measurement{
		Label:    titleKey(key),
		Category: CATEGORY_NONE,
		Unit:     "",
		Icon:     DEFAULT_ICON,
	}
}

// titleKey title-cases every run of letters, so gas_produced -> Gas_Produced
// and phase2voltage -> Phase2Voltage.
func titleKey(key string) string {
	caser := cases.Title(language.Und)
	var b strings.Builder
	start := -1
	for i, r := range key {
		if unicode.IsLetter(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			b.WriteString(caser.String(key[start:i]))
			start = -1
		}
		b.WriteRune(r)
	}
	if start >= 0 {
		b.WriteString(caser.String(key[start:]))
	}
	return b.String()
}

func NormalizeMeasurementKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
