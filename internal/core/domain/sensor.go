package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/plugwise/p1-legacy/pkg/smile_p1"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE       = "bridge"
	SENSOR_ID_GATEWAY_LAST_DATA  = "smile_last_update"
	STATE_CLASS_MEASUREMENT      = "measurement"
	STATE_CLASS_TOTAL            = "total"
	STATE_CLASS_TOTAL_INCREASING = "total_increasing"
	DEVICE_CLASS_ENERGY          = "energy"
	DEVICE_CLASS_POWER           = "power"
	DEVICE_CLASS_TIMESTAMP       = "timestamp"
	DEVICE_CLASS_CONNECTIVITY    = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC      = "diagnostic"
	SENSOR_TYPE_SENSOR           = "sensor"
	SENSOR_TYPE_BINARY           = "binary_sensor"
	READING_DECIMALS             = 3
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("p1legacy_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "p1legacy2mqtt",
		Model:        "P1 legacy bridge",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("P1 legacy bridge %s", md5HashShort(baseTopic)),
	}
}

func GatewayDevice(info *smile_p1.GatewayInfo) Device {
	id := info.ModuleId
	if id == "" {
		id = info.Host
	}
	return Device{
		Id:           fmt.Sprintf("p1_smile_%s", md5HashShort(id)),
		Manufacturer: info.Manufacturer,
		Model:        info.Model,
		Name:         fmt.Sprintf("%s %s %s", info.Manufacturer, info.Model, md5HashShort(id)),
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {
	return []GenericSensor{
		{
			Device:         bridgeDevice,
			Id:             SENSOR_ID_BRIDGE_STATE,
			SensorType:     SENSOR_TYPE_BINARY,
			Name:           "Connection state",
			DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
			UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
		},
	}
}

// MeasurementSensors builds one sensor per configured measurement key,
// plus the gateway's last update timestamp.
func MeasurementSensors(gatewayDevice Device, keys []string) []GenericSensor {

	var sensors []GenericSensor

	for _, key := range keys {
		m, _ := LookupMeasurement(key)
		sensors = append(sensors, GenericSensor{
			Device:            gatewayDevice,
			Id:                key,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              SENSOR_NAME_PREFIX + m.Label,
			UniqueId:          uniqueId(gatewayDevice.Id, key),
			UnitOfMeasurement: m.Unit,
			StateClass:        stateClass(key, m),
			DeviceClass:       m.Category,
			Icon:              m.Icon,
		})
	}

	sensors = append(sensors, GenericSensor{
		Device:         gatewayDevice,
		Id:             SENSOR_ID_GATEWAY_LAST_DATA,
		SensorType:     SENSOR_TYPE_SENSOR,
		Name:           SENSOR_NAME_PREFIX + "Last update",
		DeviceClass:    DEVICE_CLASS_TIMESTAMP,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(gatewayDevice.Id, SENSOR_ID_GATEWAY_LAST_DATA),
		Icon:           "mdi:clock-outline",
	})

	return sensors
}

func stateClass(key string, m Measurement) string {
	switch {
	case m.Category == CATEGORY_POWER, strings.HasSuffix(key, "_interval"):
		return STATE_CLASS_MEASUREMENT
	case key == MEASUREMENT_NET_ELECTRICITY_CUMULATIVE:
		// net energy goes down while producing
		return STATE_CLASS_TOTAL
	case m.Category == CATEGORY_ENERGY, m.Unit == "m3":
		return STATE_CLASS_TOTAL_INCREASING
	}
	return ""
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}
