package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeRequestVehicleYear(t *testing.T) {
	cases := map[string]VehicleYear{
		`2024`:     2024,
		`"2021"`:   2021,
		`" 1999 "`: 1999,
		`""`:       0,
		`null`:     0,
	}
	for raw, want := range cases {
		t.Run(raw, func(t *testing.T) {
			var req AnalyzeRequest
			require.NoError(t, json.Unmarshal([]byte(`{"jobId":"x","vehicleYear":`+raw+`}`), &req))
			assert.Equal(t, want, req.VehicleYear)
		})
	}

	var req AnalyzeRequest
	assert.Error(t, json.Unmarshal([]byte(`{"vehicleYear":"soon"}`), &req))
	assert.Error(t, json.Unmarshal([]byte(`{"vehicleYear":2024.5}`), &req))
	assert.Equal(t, "", VehicleYear(0).String())
}
