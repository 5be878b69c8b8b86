package conformance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewReport_DerivesCounts(t *testing.T) {
	outcomes := []Outcome{
		{Name: "a", Passed: true, Detail: "ok"},
		{Name: "b", Passed: false, Detail: "expected 3, found 9"},
		{Name: "c", Passed: true, Detail: "ok"},
	}

	report := NewReport(outcomes)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, outcomes, report.Outcomes)
	assert.False(t, report.Passing())
}

func TestNewReport_Empty(t *testing.T) {
	report := NewReport(nil)

	assert.Equal(t, 0, report.Total)
	assert.Equal(t, 0, report.Failed)
	assert.True(t, report.Passing())
}

func TestNewReport_AllFailed(t *testing.T) {
	report := NewReport([]Outcome{
		{Name: "a", Passed: false, Detail: "x"},
		{Name: "b", Passed: false, Detail: "y"},
	})

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Failed)
	assert.False(t, report.Passing())
}
