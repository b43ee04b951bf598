package repository

// Class partitions timeframes by analysis horizon. Indicator parameters are
// selected per class, not per call site.
type Class int

const (
	ClassIntraday Class = iota // 1m..daily, short windows
	ClassWeekly                // weekly, medium windows
	ClassLongTerm              // monthly/quarterly, long windows
)

// Class returns the analysis horizon for the timeframe.
func (tf Timeframe) Class() Class {
	switch tf {
	case TFWeekly:
		return ClassWeekly
	case TFMonthly, TFQuarterly:
		return ClassLongTerm
	default:
		return ClassIntraday
	}
}

// Profile is the indicator parameter set for one timeframe class.
type Profile struct {
	SMAPeriods []int
	EMAPeriods []int

	MACDFast   int
	MACDSlow   int
	MACDSignal int

	RSIPeriod int
	ADXPeriod int

	StochK      int
	StochD      int
	StochSmooth int

	BBPeriod int
	BBStdDev float64
}

var profiles = map[Class]Profile{
	ClassIntraday: {
		SMAPeriods: []int{10, 20, 50},
		EMAPeriods: []int{10, 20, 50},
		MACDFast:   12, MACDSlow: 26, MACDSignal: 9,
		RSIPeriod: 14,
		ADXPeriod: 14,
		StochK:    14, StochD: 3, StochSmooth: 3,
		BBPeriod: 20, BBStdDev: 2,
	},
	ClassWeekly: {
		SMAPeriods: []int{50, 100, 200},
		EMAPeriods: []int{50, 100, 200},
		MACDFast:   24, MACDSlow: 52, MACDSignal: 9,
		RSIPeriod: 21,
		ADXPeriod: 20,
		StochK:    21, StochD: 5, StochSmooth: 5,
		BBPeriod: 20, BBStdDev: 2,
	},
	ClassLongTerm: {
		SMAPeriods: []int{50, 100, 200},
		EMAPeriods: []int{50, 100, 200},
		MACDFast:   50, MACDSlow: 200, MACDSignal: 9,
		RSIPeriod: 50,
		ADXPeriod: 50,
		StochK:    50, StochD: 5, StochSmooth: 5,
		BBPeriod: 20, BBStdDev: 2,
	},
}

// ProfileFor returns the indicator parameters for the timeframe.
func ProfileFor(tf Timeframe) Profile {
	return profiles[tf.Class()]
}
