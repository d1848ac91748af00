package funcs

import (
	"time"

	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/eval"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/types"
)

// temporalComponent builds the declarative metadata shared by the
// year/month/day/hour/minute/second/millisecond accessors: singleton
// Date/DateTime/Time input, no parameters, Integer result.
func temporalComponent(name, input, example string, fn FuncImpl) FuncDef {
	return FuncDef{
		Name:        name,
		Category:    "temporal",
		Description: "Returns the " + name + " component of the input, or empty if that component is not present in its precision.",
		Examples:    []string{example},
		Signature:   eval.FuncSignature{Input: input, Result: "Integer"},
		MinArgs:     0,
		MaxArgs:     0,
		Fn:          fn,
	}
}

func init() {
	Register(temporalComponent("year", "Date | DateTime", "birthDate.year()", fnYear))
	Register(temporalComponent("month", "Date | DateTime", "birthDate.month()", fnMonth))
	Register(temporalComponent("day", "Date | DateTime", "birthDate.day()", fnDay))
	Register(temporalComponent("hour", "DateTime | Time", "issued.hour()", fnHour))
	Register(temporalComponent("minute", "DateTime | Time", "issued.minute()", fnMinute))
	Register(temporalComponent("second", "DateTime | Time", "issued.second()", fnSecond))
	Register(temporalComponent("millisecond", "DateTime | Time", "issued.millisecond()", fnMillisecond))

	// utility.go's init runs after this one (files initialise in name
	// order), so its now/today/timeOfDay registrations replace these.
	Register(FuncDef{
		Name:        "now",
		Category:    "temporal",
		Description: "Returns the current date and time, including timezone offset.",
		Examples:    []string{"now()"},
		Signature:   eval.FuncSignature{Input: "collection", Result: "DateTime"},
		MinArgs:     0,
		MaxArgs:     0,
		Fn:          fnNowReal,
	})

	Register(FuncDef{
		Name:        "today",
		Category:    "temporal",
		Description: "Returns the current date.",
		Examples:    []string{"today()"},
		Signature:   eval.FuncSignature{Input: "collection", Result: "Date"},
		MinArgs:     0,
		MaxArgs:     0,
		Fn:          fnTodayReal,
	})

	Register(FuncDef{
		Name:        "timeOfDay",
		Category:    "temporal",
		Description: "Returns the current time of day.",
		Examples:    []string{"timeOfDay()"},
		Signature:   eval.FuncSignature{Input: "collection", Result: "Time"},
		MinArgs:     0,
		MaxArgs:     0,
		Fn:          fnTimeOfDayReal,
	})
}

// fnYear returns the year component.
func fnYear(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}

	switch v := input[0].(type) {
	case types.Date:
		return types.Collection{types.NewInteger(int64(v.Year()))}, nil
	case types.DateTime:
		return types.Collection{types.NewInteger(int64(v.Year()))}, nil
	default:
		return types.Collection{}, nil
	}
}

// fnMonth returns the month component.
func fnMonth(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}

	switch v := input[0].(type) {
	case types.Date:
		if v.Month() == 0 {
			return types.Collection{}, nil
		}
		return types.Collection{types.NewInteger(int64(v.Month()))}, nil
	case types.DateTime:
		if v.Month() == 0 {
			return types.Collection{}, nil
		}
		return types.Collection{types.NewInteger(int64(v.Month()))}, nil
	default:
		return types.Collection{}, nil
	}
}

// fnDay returns the day component.
func fnDay(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}

	switch v := input[0].(type) {
	case types.Date:
		if v.Day() == 0 {
			return types.Collection{}, nil
		}
		return types.Collection{types.NewInteger(int64(v.Day()))}, nil
	case types.DateTime:
		if v.Day() == 0 {
			return types.Collection{}, nil
		}
		return types.Collection{types.NewInteger(int64(v.Day()))}, nil
	default:
		return types.Collection{}, nil
	}
}

// fnHour returns the hour component.
func fnHour(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}

	switch v := input[0].(type) {
	case types.DateTime:
		return types.Collection{types.NewInteger(int64(v.Hour()))}, nil
	case types.Time:
		return types.Collection{types.NewInteger(int64(v.Hour()))}, nil
	default:
		return types.Collection{}, nil
	}
}

// fnMinute returns the minute component.
func fnMinute(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}

	switch v := input[0].(type) {
	case types.DateTime:
		return types.Collection{types.NewInteger(int64(v.Minute()))}, nil
	case types.Time:
		return types.Collection{types.NewInteger(int64(v.Minute()))}, nil
	default:
		return types.Collection{}, nil
	}
}

// fnSecond returns the second component.
func fnSecond(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}

	switch v := input[0].(type) {
	case types.DateTime:
		return types.Collection{types.NewInteger(int64(v.Second()))}, nil
	case types.Time:
		return types.Collection{types.NewInteger(int64(v.Second()))}, nil
	default:
		return types.Collection{}, nil
	}
}

// fnMillisecond returns the millisecond component.
func fnMillisecond(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}

	switch v := input[0].(type) {
	case types.DateTime:
		return types.Collection{types.NewInteger(int64(v.Millisecond()))}, nil
	case types.Time:
		return types.Collection{types.NewInteger(int64(v.Millisecond()))}, nil
	default:
		return types.Collection{}, nil
	}
}

// fnNowReal returns the current datetime.
func fnNowReal(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return types.Collection{types.NewDateTimeFromTime(time.Now())}, nil
}

// fnTodayReal returns the current date.
func fnTodayReal(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return types.Collection{types.NewDateFromTime(time.Now())}, nil
}

// fnTimeOfDayReal returns the current time.
func fnTimeOfDayReal(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return types.Collection{types.NewTimeFromGoTime(time.Now())}, nil
}
