package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGrade(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []Grade{GradeA, GradeB, GradeC, GradeNotGiven}, Grades())

	for _, g := range Grades() {
		assert.True(t, g.IsValid(), g.String())
	}
	assert.False(t, Grade("D").IsValid())
	assert.False(t, Grade("").IsValid())

	t.Run("UnmarshalJSON", func(t *testing.T) {
		t.Parallel()
		var g Grade
		assert.NoError(t, json.Unmarshal([]byte(`"A"`), &g))
		assert.Equal(t, GradeA, g)
		assert.Error(t, json.Unmarshal([]byte(`"Z"`), &g))
		assert.Error(t, json.Unmarshal([]byte(`7`), &g))
	})
}

func TestAttitude(t *testing.T) {
	t.Parallel()
	for _, a := range []Attitude{
		AttitudeUnset, AttitudeAlways, AttitudeSometimes, AttitudeRarely,
		AttitudeNever, AttitudeNotObserved, AttitudeNotApplicable,
	} {
		assert.True(t, a.IsValid(), a.String())
	}
	assert.False(t, Attitude("Talvez").IsValid())

	t.Run("UnmarshalJSON", func(t *testing.T) {
		t.Parallel()
		var a Attitude
		assert.NoError(t, json.Unmarshal([]byte(`"Sempre"`), &a))
		assert.Equal(t, AttitudeAlways, a)
		assert.Error(t, json.Unmarshal([]byte(`"Talvez"`), &a))
	})
}

func TestReportingPeriod(t *testing.T) {
	t.Parallel()
	testdata := map[ReportingPeriod]int{
		PeriodFirst:  0,
		PeriodSecond: 1,
		PeriodThird:  2,
	}
	for p, idx := range testdata {
		assert.True(t, p.IsValid(), p.String())
		assert.Equal(t, idx, p.Index())
	}
	assert.False(t, ReportingPeriod("TR4").IsValid())
	assert.Equal(t, -1, ReportingPeriod("TR4").Index())

	t.Run("UnmarshalJSON", func(t *testing.T) {
		t.Parallel()
		var p ReportingPeriod
		assert.NoError(t, json.Unmarshal([]byte(`"TR3"`), &p))
		assert.Equal(t, PeriodThird, p)
		assert.Error(t, json.Unmarshal([]byte(`"TR4"`), &p))
	})
}
