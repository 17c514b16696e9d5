package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateUnmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{`"2024-03-01"`, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{`"2024-03-01T10:00:00.123456789Z"`, time.Date(2024, 3, 1, 10, 0, 0, 123000000, time.UTC)},
		{`"2024-03-01T15:30:00+05:30"`, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Date
			require.NoError(t, json.Unmarshal([]byte(tt.in), &d))
			assert.True(t, tt.want.Equal(d.Time), d.Time.String())
		})
	}

	var d Date
	assert.Error(t, json.Unmarshal([]byte(`"01/03/2024"`), &d))
	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.Nil(t, d.Ptr())
}
