package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// NextOccurrence computes the next firing instant strictly after `after`.
//
// Wall-clock kinds (weekly, daily_checkin) are evaluated in the spec's
// location and converted to UTC afterwards, so a DST shift preserves the
// wall-clock intent. If the naive occurrence already passed (app offline),
// the result simply rolls forward to the next valid occurrence instead of
// firing immediately.
//
// A nil result with a nil error means the spec has no future occurrence:
// a one-shot whose instant passed (the caller expires it) or an
// event-relative spec, which is resolved externally via EventOffset.
func NextOccurrence(spec *Spec, after time.Time, defaultLoc *time.Location) (*time.Time, error) {
	if spec == nil {
		return nil, NewScheduleParseError("recurrence spec is required")
	}

	switch spec.Kind {
	case KindOneShot:
		if spec.At == nil {
			return nil, NewScheduleParseError("one_shot spec has no instant")
		}
		if !spec.At.After(after) {
			return nil, nil
		}
		at := spec.At.UTC()
		return &at, nil

	case KindWeekly, KindDailyCheckin:
		loc, err := spec.Location(defaultLoc)
		if err != nil {
			return nil, NewScheduleParseError("invalid timezone %q: %v", spec.Timezone, err)
		}
		schedule, err := compile(spec)
		if err != nil {
			return nil, err
		}
		next := schedule.Next(after.In(loc)).UTC()
		if next.IsZero() {
			return nil, NewScheduleParseError("%s spec yields no occurrence", spec.Kind)
		}
		return &next, nil

	case KindRelativeToEvent:
		return nil, nil

	default:
		return nil, NewScheduleParseError("unsupported recurrence kind: %q", spec.Kind)
	}
}

// EventOffset resolves an event-relative spec against an externally supplied
// event start time.
func EventOffset(spec *Spec, eventStart time.Time) (time.Time, error) {
	if spec == nil || spec.Kind != KindRelativeToEvent {
		return time.Time{}, NewScheduleParseError("spec is not event-relative")
	}
	return eventStart.Add(-time.Duration(spec.MinutesBefore) * time.Minute).UTC(), nil
}

// compile lowers a wall-clock spec to a cron schedule. The cron machinery
// evaluates field matches against the local calendar, which is exactly the
// wall-clock-preserving behavior required across DST transitions.
func compile(spec *Spec) (cron.Schedule, error) {
	if spec.Time == nil {
		return nil, NewScheduleParseError("%s spec has no time of day", spec.Kind)
	}

	dow := "*"
	if spec.Kind == KindWeekly {
		if len(spec.Weekdays) == 0 {
			return nil, NewScheduleParseError("weekly spec has no weekdays")
		}
		days := make([]string, 0, len(spec.Weekdays))
		for _, d := range spec.Weekdays {
			if d < time.Sunday || d > time.Saturday {
				return nil, NewScheduleParseError("invalid weekday %d", d)
			}
			days = append(days, strconv.Itoa(int(d)))
		}
		dow = strings.Join(days, ",")
	}

	expr := fmt.Sprintf("%d %d * * %s", spec.Time.Minute, spec.Time.Hour, dow)
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, NewScheduleParseError("invalid %s spec: %v", spec.Kind, err)
	}
	return schedule, nil
}
