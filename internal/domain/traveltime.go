package domain

import (
	"fmt"
	"math"
	"time"
)

// TravelEstimate is one slot's commute estimate. Minutes is the
// conservative (upper-bound) value used for planning; Display is the
// "<low>-<high> min" range shown next to it. The two are always written
// together: the repository never stores one without the other, and the
// upper bound of Display equals Minutes.
type TravelEstimate struct {
	Minutes int
	Display string
}

// Slot is a named departure scenario. All slots depart on the canonical
// weekday so estimates stay comparable no matter when they are computed.
// TrafficFactor is only applied on the distance-based fallback path, where
// no traffic-aware provider data is available.
type Slot struct {
	Name          string
	Hour, Minute  int
	TrafficFactor float64
}

const DepartureWeekday = time.Monday

var Slots = []Slot{
	{Name: "830am", Hour: 8, Minute: 30, TrafficFactor: 1.3},
	{Name: "930am", Hour: 9, Minute: 30, TrafficFactor: 1.1},
	{Name: "midday", Hour: 12, Minute: 0, TrafficFactor: 1.0},
	{Name: "630pm", Hour: 18, Minute: 30, TrafficFactor: 1.4},
	{Name: "730pm", Hour: 19, Minute: 30, TrafficFactor: 1.2},
}

// NextDeparture returns the next occurrence of the slot's time on the
// canonical weekday, strictly after now. If today is that weekday and the
// slot time has not yet passed, it departs today; otherwise next week.
// Providers reject departure times in the past.
func (s Slot) NextDeparture(now time.Time) time.Time {
	days := (int(DepartureWeekday) - int(now.Weekday()) + 7) % 7
	dep := time.Date(now.Year(), now.Month(), now.Day(), s.Hour, s.Minute, 0, 0, now.Location())
	dep = dep.AddDate(0, 0, days)
	if !dep.After(now) {
		dep = dep.AddDate(0, 0, 7)
	}
	return dep
}

// DeriveRange turns a conservative upper-bound estimate into the display
// range. The lower bound is a fixed percentage discount reflecting
// best-case traffic; the provider returns a single duration, not a range,
// so the range is synthetic. Any client re-deriving a range from a stored
// Minutes value must go through this function so both ends agree.
func DeriveRange(upper, discountPct int) (int, int) {
	lower := int(math.Round(float64(upper) * (1 - float64(discountPct)/100)))
	if lower < 1 {
		lower = 1
	}
	if lower > upper {
		lower = upper
	}
	return lower, upper
}

func FormatRange(lower, upper int) string {
	return fmt.Sprintf("%d-%d min", lower, upper)
}

// NewTravelEstimate builds the pair from a conservative minutes value.
func NewTravelEstimate(upper, discountPct int) TravelEstimate {
	lo, hi := DeriveRange(upper, discountPct)
	return TravelEstimate{Minutes: hi, Display: FormatRange(lo, hi)}
}
