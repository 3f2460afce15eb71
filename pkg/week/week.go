package week

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"time"
)

// WeekId identifies an allowance week by its ISO week number and ISO year.
type WeekId struct {
	Week int
	Year int
}

var labelPattern = regexp.MustCompile(`^\s*Week\s+(\d+)\s*-\s*(\d+)\s*$`)

// sentinelKey is the sort key of labels that cannot be parsed. It is larger than any valid key.
var sentinelKey = Key{Year: math.MaxInt, Week: math.MaxInt}

// FromDate returns the ISO week containing the given date.
func FromDate(date time.Time) WeekId {
	year, week := date.ISOWeek()
	return WeekId{Week: week, Year: year}
}

// ParseLabel parses labels of the form "Week 7 - 2025". The second return value is false
// when the label does not match or the week is outside 1..53.
func ParseLabel(label string) (WeekId, bool) {
	m := labelPattern.FindStringSubmatch(label)
	if m == nil {
		return WeekId{}, false
	}
	weekNumber, err := strconv.Atoi(m[1])
	if err != nil || weekNumber < 1 || weekNumber > 53 {
		return WeekId{}, false
	}
	year, err := strconv.Atoi(m[2])
	if err != nil {
		return WeekId{}, false
	}
	return WeekId{Week: weekNumber, Year: year}, true
}

// Label returns the display label, e.g. "Week 7 - 2025".
func (w WeekId) Label() string {
	return fmt.Sprintf("Week %d - %d", w.Week, w.Year)
}

func (w WeekId) String() string {
	return w.Label()
}

// Equal returns true when both the year and week match.
func (w WeekId) Equal(other WeekId) bool {
	return w.Year == other.Year && w.Week == other.Week
}

// Before reports whether w refers to a week that occurs before other.
func (w WeekId) Before(other WeekId) bool {
	if w.Year != other.Year {
		return w.Year < other.Year
	}
	return w.Week < other.Week
}

// After reports whether w refers to a week that occurs after other.
func (w WeekId) After(other WeekId) bool {
	return other.Before(w)
}

// Key orders labels chronologically, (year, week) ascending.
type Key struct {
	Year int
	Week int
}

// Compare returns -1, 0 or +1.
func (k Key) Compare(other Key) int {
	if k.Year != other.Year {
		if k.Year < other.Year {
			return -1
		}
		return 1
	}
	switch {
	case k.Week < other.Week:
		return -1
	case k.Week > other.Week:
		return 1
	}
	return 0
}

// Malformed reports whether the key is the sentinel given to unparseable labels.
func (k Key) Malformed() bool {
	return k == sentinelKey
}

// SortKey returns the chronological key of a label. Unparseable labels get a sentinel
// key that sorts after every valid one.
func SortKey(label string) Key {
	id, ok := ParseLabel(label)
	if !ok {
		return sentinelKey
	}
	return Key{Year: id.Year, Week: id.Week}
}

// SortLabels returns a chronologically ordered copy of labels. Malformed labels are
// moved to the end and keep their relative input order.
func SortLabels(labels []string) []string {
	sorted := slices.Clone(labels)
	SortBy(sorted, func(label string) string { return label })
	return sorted
}

// SortBy stably sorts items in place by the week label returned from labelOf.
func SortBy[T any](items []T, labelOf func(T) string) {
	keys := make(map[string]Key, len(items))
	keyOf := func(item T) Key {
		label := labelOf(item)
		k, ok := keys[label]
		if !ok {
			k = SortKey(label)
			keys[label] = k
		}
		return k
	}
	slices.SortStableFunc(items, func(a, b T) int {
		return keyOf(a).Compare(keyOf(b))
	})
}
