package envutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qiime2/q2prov/pkg/logger"
)

func TestGetIntFromEnv(t *testing.T) {
	log := logger.New("envutil:test")

	tests := []struct {
		name     string
		value    string
		expected int
	}{
		{name: "unset uses default", value: "", expected: 8},
		{name: "valid value", value: "4", expected: 4},
		{name: "not a number uses default", value: "lots", expected: 8},
		{name: "below minimum uses default", value: "0", expected: 8},
		{name: "above maximum uses default", value: "100", expected: 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("Q2PROV_TEST_WORKERS", tt.value)
			got := GetIntFromEnv("Q2PROV_TEST_WORKERS", 8, 1, 64, log)
			assert.Equal(t, tt.expected, got)
		})
	}
}
