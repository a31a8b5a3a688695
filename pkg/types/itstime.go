package types

import "time"

// itsEpoch is 2004-01-01T00:00:00Z, the origin of ETSI TimestampIts
var itsEpoch = time.Date(2004, time.January, 1, 0, 0, 0, 0, time.UTC)

// ItsTime represents milliseconds since the ITS epoch (2004-01-01 UTC).
// Leap seconds are not applied.
type ItsTime uint64

// Now returns the current time as ItsTime
func Now() ItsTime {
	return FromTime(time.Now())
}

// FromTime converts a Go time.Time to ItsTime
func FromTime(t time.Time) ItsTime {
	ms := t.Sub(itsEpoch).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ItsTime(ms)
}

// ToTime converts ItsTime to Go time.Time
func (t ItsTime) ToTime() time.Time {
	return itsEpoch.Add(time.Duration(t) * time.Millisecond)
}
