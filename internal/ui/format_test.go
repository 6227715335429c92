package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "0 B/s", FormatRate(0))
	assert.Equal(t, "0 B/s", FormatRate(-5))
	assert.Equal(t, "5.00 B/s", FormatRate(5))
	assert.Equal(t, "50.0 B/s", FormatRate(50))
	assert.Equal(t, "500 B/s", FormatRate(500))
	assert.Equal(t, "1.00 KB/s", FormatRate(1024))
	assert.Equal(t, "10.0 MB/s", FormatRate(10*1024*1024))
}

func TestFormatETA(t *testing.T) {
	assert.Equal(t, "--", FormatETA(0))
	assert.Equal(t, "--", FormatETA(-time.Second))
	assert.Equal(t, "5s", FormatETA(5*time.Second))
	assert.Equal(t, "1m 05s", FormatETA(65*time.Second))
	assert.Equal(t, "2h 03m 04s", FormatETA(2*time.Hour+3*time.Minute+4*time.Second))
}
