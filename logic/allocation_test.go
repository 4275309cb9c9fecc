package logic

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTollGate/tollgate-captive-portal-site/models"
)

func timeSchedule(stepSizeMs int64) *models.PricingSchedule {
	return &models.PricingSchedule{
		Metric:   models.MetricMilliseconds,
		StepSize: decimal.NewFromInt(stepSizeMs),
		Limits:   models.PurchaseLimits{Min: 1},
	}
}

func byteSchedule(stepSizeKiB int64) *models.PricingSchedule {
	return &models.PricingSchedule{
		Metric:   models.MetricBytes,
		StepSize: decimal.NewFromInt(stepSizeKiB),
		Limits:   models.PurchaseLimits{Min: 1},
	}
}

func TestCalculateTenMinutesForExactPrice(t *testing.T) {
	a := NewAllocator(fakeResolver)
	o := offer(210, 1, "https://mint-a.example")

	got := a.Calculate(decimal.NewFromInt(210), &o, timeSchedule(600000))
	require.NotNil(t, got)
	assert.Equal(t, "10", got.Value)
	assert.Equal(t, "minute_plural", got.Unit)
}

func TestCalculateExactlyOneStepPerPrice(t *testing.T) {
	// Paying exactly the offer price buys exactly stepSize * max(minSteps,1).
	tests := []struct {
		name     string
		offer    models.AccessOffer
		stepMs   int64
		expected string
		unit     string
	}{
		{"single step", offer(210, 1, "m"), 30000, "30", "second_plural"},
		{"min steps multiply", offer(500, 3, "m"), 600000, "30", "minute_plural"},
		{"zero min steps count as one", offer(100, 0, "m"), 1000, "1", "second"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := NewAllocator(fakeResolver)
			got := a.Calculate(tc.offer.Price, &tc.offer, timeSchedule(tc.stepMs))
			require.NotNil(t, got)
			assert.Equal(t, tc.expected, got.Value)
			assert.Equal(t, tc.unit, got.Unit)
		})
	}
}

func TestCalculateDurationLadder(t *testing.T) {
	a := NewAllocator(fakeResolver)
	o := offer(1, 1, "m")

	tests := []struct {
		name   string
		stepMs int64
		value  string
		unit   string
	}{
		{"under a minute renders seconds", 45000, "45", "second_plural"},
		{"one second is singular", 1000, "1", "second"},
		{"under an hour renders minutes", 90000, "1.5", "minute_plural"},
		{"hours keep two decimals", 5400000, "1.5", "hour_plural"},
		{"whole hours render as integers", 7200000, "2", "hour_plural"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := a.Calculate(decimal.NewFromInt(1), &o, timeSchedule(tc.stepMs))
			require.NotNil(t, got)
			assert.Equal(t, tc.value, got.Value)
			assert.Equal(t, tc.unit, got.Unit)
		})
	}
}

func TestCalculateDataLadder(t *testing.T) {
	a := NewAllocator(fakeResolver)
	o := offer(1, 1, "m")

	tests := []struct {
		name    string
		stepKiB int64
		value   string
		unit    string
	}{
		{"below 1024 stays KiB", 512, "512", "KiB"},
		{"megabytes with one decimal", 1536, "1.5", "MB"},
		{"gigabytes with two decimals", 1572864, "1.5", "GB"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := a.Calculate(decimal.NewFromInt(1), &o, byteSchedule(tc.stepKiB))
			require.NotNil(t, got)
			assert.Equal(t, tc.value, got.Value)
			assert.Equal(t, tc.unit, got.Unit)
		})
	}
}

func TestCalculateSuppressedCases(t *testing.T) {
	a := NewAllocator(fakeResolver)
	o := offer(210, 1, "m")

	assert.Nil(t, a.Calculate(decimal.Zero, &o, timeSchedule(600000)))
	assert.Nil(t, a.Calculate(decimal.NewFromInt(-5), &o, timeSchedule(600000)))
	assert.Nil(t, a.Calculate(decimal.NewFromInt(210), nil, timeSchedule(600000)))
	assert.Nil(t, a.Calculate(decimal.NewFromInt(210), &o, nil))
}
