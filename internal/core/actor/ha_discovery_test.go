package actor

import (
	"testing"

	"github.com/plugwise/p1-legacy/internal/core/domain"
	"github.com/plugwise/p1-legacy/internal/util"
	"github.com/plugwise/p1-legacy/pkg/smile_p1"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverySensors(t *testing.T) {

	cfg := util.LoadTestConfig()
	cfg.Smile.Resources = []string{
		domain.MEASUREMENT_NET_ELECTRICITY_CUMULATIVE,
		"gas_produced_cumulative",
	}
	info := &smile_p1.GatewayInfo{
		Host:         "smile-test",
		ModuleId:     "abc",
		Manufacturer: "Plugwise",
		Model:        "Smile P1",
	}

	sensors := DiscoverySensors(&cfg, info)

	// bridge state, two measurements, last update
	require.Len(t, sensors, 4)
	assert.Equal(t, domain.SENSOR_ID_BRIDGE_STATE, sensors[0].Id)

	net := sensors[1]
	assert.Equal(t, "P1 Net Electricity Cumulative", net.Name)
	assert.Equal(t, "Wh", net.UnitOfMeasurement)
	assert.Equal(t, domain.STATE_CLASS_TOTAL, net.StateClass)
	assert.Equal(t, "Plugwise", net.Device.Manufacturer, "first gateway sensor carries the full device")
	assert.NotEmpty(t, net.Device.ViaDevice)

	fallback := sensors[2]
	assert.Equal(t, "P1 Gas_Produced_Cumulative", fallback.Name)
	assert.Equal(t, "", fallback.UnitOfMeasurement)
	assert.Equal(t, domain.ICON_FLASH, fallback.Icon)
	assert.Empty(t, fallback.Device.Manufacturer, "later sensors only reference the device")
	assert.Equal(t, net.Device.Id, fallback.Device.Id)

	assert.Equal(t, domain.SENSOR_ID_GATEWAY_LAST_DATA, sensors[3].Id)
}
