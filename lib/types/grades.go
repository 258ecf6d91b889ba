package types

import (
	"encoding/json"
	"fmt"
)

// Grade is one of the canonical skill-grade values the diary accepts.
type Grade string

// The full set of grades a skill combo can hold. NotGiven ("NE") also
// stands in for the "not applicable" / "not delivered" display aliases.
const (
	GradeA        Grade = "A"
	GradeB        Grade = "B"
	GradeC        Grade = "C"
	GradeNotGiven Grade = "NE"
)

// Grades lists the canonical values in ranking order, best first.
func Grades() []Grade {
	return []Grade{GradeA, GradeB, GradeC, GradeNotGiven}
}

// IsValid reports whether g is one of the canonical values.
func (g Grade) IsValid() bool {
	switch g {
	case GradeA, GradeB, GradeC, GradeNotGiven:
		return true
	}
	return false
}

func (g Grade) String() string { return string(g) }

// UnmarshalJSON validates incoming grade values.
func (g *Grade) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v := Grade(s)
	if !v.IsValid() {
		return fmt.Errorf("'%s' is not a valid grade value", s)
	}
	*g = v
	return nil
}

// Attitude is one of the options the attitude observation combo accepts.
type Attitude string

const (
	AttitudeUnset         Attitude = "Selecione"
	AttitudeAlways        Attitude = "Sempre"
	AttitudeSometimes     Attitude = "Às vezes"
	AttitudeRarely        Attitude = "Raramente"
	AttitudeNever         Attitude = "Nunca"
	AttitudeNotObserved   Attitude = "Não conseguiu observar"
	AttitudeNotApplicable Attitude = "Não se aplica"
)

// IsValid reports whether a is one of the combo options.
func (a Attitude) IsValid() bool {
	switch a {
	case AttitudeUnset, AttitudeAlways, AttitudeSometimes, AttitudeRarely,
		AttitudeNever, AttitudeNotObserved, AttitudeNotApplicable:
		return true
	}
	return false
}

func (a Attitude) String() string { return string(a) }

// UnmarshalJSON validates incoming attitude values.
func (a *Attitude) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v := Attitude(s)
	if !v.IsValid() {
		return fmt.Errorf("'%s' is not a valid attitude value", s)
	}
	*a = v
	return nil
}

// ReportingPeriod identifies one of the three school trimesters.
type ReportingPeriod string

const (
	PeriodFirst  ReportingPeriod = "TR1"
	PeriodSecond ReportingPeriod = "TR2"
	PeriodThird  ReportingPeriod = "TR3"
)

// IsValid reports whether p is a known trimester.
func (p ReportingPeriod) IsValid() bool {
	switch p {
	case PeriodFirst, PeriodSecond, PeriodThird:
		return true
	}
	return false
}

func (p ReportingPeriod) String() string { return string(p) }

// Index returns the zero-based position of the trimester, -1 when invalid.
func (p ReportingPeriod) Index() int {
	switch p {
	case PeriodFirst:
		return 0
	case PeriodSecond:
		return 1
	case PeriodThird:
		return 2
	}
	return -1
}

// UnmarshalJSON validates incoming period values.
func (p *ReportingPeriod) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v := ReportingPeriod(s)
	if !v.IsValid() {
		return fmt.Errorf("'%s' is not a valid reporting period", s)
	}
	*p = v
	return nil
}
