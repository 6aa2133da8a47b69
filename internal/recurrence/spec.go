package recurrence

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

// Kind discriminates the tagged RecurrenceSpec variants.
type Kind string

const (
	KindOneShot         Kind = "one_shot"
	KindWeekly          Kind = "weekly"
	KindRelativeToEvent Kind = "relative_to_event"
	KindDailyCheckin    Kind = "daily_checkin"
)

// ScheduleParseError marks a malformed recurrence spec. Triggers carrying one
// are rejected at registration and never armed.
type ScheduleParseError struct {
	msg string
}

func (e ScheduleParseError) Error() string {
	return e.msg
}

// NewScheduleParseError creates a new schedule parse error.
func NewScheduleParseError(format string, args ...interface{}) error {
	return ScheduleParseError{msg: fmt.Sprintf(format, args...)}
}

// TimeOfDay is a wall-clock time within a day.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Spec is the tagged recurrence configuration:
// OneShot(Instant) | Weekly(weekdays, time) | RelativeToEvent(minutes) |
// DailyCheckin(time). Exactly the fields for the tagged Kind are set.
type Spec struct {
	Kind Kind `json:"kind"`

	// one_shot
	At *time.Time `json:"at,omitempty"`

	// weekly
	Weekdays []time.Weekday `json:"weekdays,omitempty"`

	// weekly, daily_checkin
	Time *TimeOfDay `json:"time,omitempty"`

	// relative_to_event
	MinutesBefore int `json:"minutes_before,omitempty"`

	// IANA timezone for wall-clock kinds; empty means the engine default.
	Timezone string `json:"timezone,omitempty"`
}

// Per-kind JSON schemas, validated before decoding so malformed specs are
// rejected with a ScheduleParseError rather than half-decoded.
var specSchemas = map[Kind]string{
	KindOneShot: `{
		"type": "object",
		"required": ["kind", "at"],
		"properties": {
			"kind": {"const": "one_shot"},
			"at": {"type": "string", "format": "date-time"},
			"timezone": {"type": "string"}
		},
		"additionalProperties": false
	}`,
	KindWeekly: `{
		"type": "object",
		"required": ["kind", "weekdays", "time"],
		"properties": {
			"kind": {"const": "weekly"},
			"weekdays": {
				"type": "array",
				"minItems": 1,
				"items": {"type": "integer", "minimum": 0, "maximum": 6},
				"uniqueItems": true
			},
			"time": {"$ref": "#/definitions/timeOfDay"},
			"timezone": {"type": "string"}
		},
		"additionalProperties": false,
		"definitions": {"timeOfDay": ` + timeOfDaySchema + `}
	}`,
	KindRelativeToEvent: `{
		"type": "object",
		"required": ["kind", "minutes_before"],
		"properties": {
			"kind": {"const": "relative_to_event"},
			"minutes_before": {"type": "integer", "minimum": 0, "maximum": 1440},
			"timezone": {"type": "string"}
		},
		"additionalProperties": false
	}`,
	KindDailyCheckin: `{
		"type": "object",
		"required": ["kind", "time"],
		"properties": {
			"kind": {"const": "daily_checkin"},
			"time": {"$ref": "#/definitions/timeOfDay"},
			"timezone": {"type": "string"}
		},
		"additionalProperties": false,
		"definitions": {"timeOfDay": ` + timeOfDaySchema + `}
	}`,
}

const timeOfDaySchema = `{
	"type": "object",
	"required": ["hour", "minute"],
	"properties": {
		"hour": {"type": "integer", "minimum": 0, "maximum": 23},
		"minute": {"type": "integer", "minimum": 0, "maximum": 59}
	},
	"additionalProperties": false
}`

// Parse validates raw spec JSON against the schema for its tagged kind and
// decodes it. All failure modes return a ScheduleParseError.
func Parse(raw json.RawMessage) (*Spec, error) {
	if len(raw) == 0 {
		return nil, NewScheduleParseError("recurrence spec is required")
	}

	var tag struct {
		Kind Kind `json:"kind"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, NewScheduleParseError("invalid recurrence spec: %v", err)
	}

	schemaJSON, ok := specSchemas[tag.Kind]
	if !ok {
		return nil, NewScheduleParseError("unsupported recurrence kind: %q", tag.Kind)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaJSON),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return nil, NewScheduleParseError("invalid recurrence spec: %v", err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return nil, NewScheduleParseError("invalid %s spec: %s", tag.Kind, strings.Join(details, "; "))
	}

	var spec Spec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, NewScheduleParseError("invalid recurrence spec: %v", err)
	}

	if spec.Timezone != "" {
		if _, err := time.LoadLocation(spec.Timezone); err != nil {
			return nil, NewScheduleParseError("invalid timezone %q: %v", spec.Timezone, err)
		}
	}

	sort.Slice(spec.Weekdays, func(i, j int) bool { return spec.Weekdays[i] < spec.Weekdays[j] })
	return &spec, nil
}

// Location resolves the spec's timezone, falling back to the provided default.
func (s *Spec) Location(fallback *time.Location) (*time.Location, error) {
	if s.Timezone == "" {
		if fallback != nil {
			return fallback, nil
		}
		return time.Local, nil
	}
	return time.LoadLocation(s.Timezone)
}

// Recurring reports whether the spec yields more than one occurrence.
func (s *Spec) Recurring() bool {
	return s.Kind == KindWeekly || s.Kind == KindDailyCheckin
}
