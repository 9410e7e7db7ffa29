package timerq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchedPolicy(t *testing.T) {
	tests := []struct {
		in   string
		want SchedPolicy
		ok   bool
	}{
		{"other", SchedOther, true},
		{"fifo", SchedFIFO, true},
		{"rr", SchedRR, true},
		{"deadline", SchedOther, false},
		{"", SchedOther, false},
	}
	for _, tt := range tests {
		got, err := ParseSchedPolicy(tt.in)
		if tt.ok {
			require.NoError(t, err, tt.in)
			assert.Equal(t, tt.want, got, tt.in)
		} else {
			assert.Error(t, err, tt.in)
		}
	}
}

func TestSchedPolicyString(t *testing.T) {
	assert.Equal(t, "other", SchedOther.String())
	assert.Equal(t, "fifo", SchedFIFO.String())
	assert.Equal(t, "rr", SchedRR.String())
	assert.Equal(t, "unknown", SchedPolicy(42).String())
}
