package cpuprofile

import (
	"time"

	"github.com/google/pprof/profile"
)

// ToPProf converts the sample tree into a pprof profile. Stacks arrive root
// first; pprof wants leaf-first locations.
func (p *Profile) ToPProf() (*profile.Profile, error) {
	res := &profile.Profile{
		SampleType: []*profile.ValueType{{
			Type: "samples",
			Unit: "count",
		}},
		Sample: make([]*profile.Sample, len(p.Samples)),
	}
	if p.PeriodMicros > 0 {
		res.Period = p.PeriodMicros * int64(time.Microsecond)
		res.PeriodType = &profile.ValueType{Type: "cpu", Unit: "nanoseconds"}
	}

	locations := make(map[string]*profile.Location)
	for i := range p.Samples {
		res.Sample[i] = &profile.Sample{
			Value: []int64{p.Samples[i].Weight},
		}
		for _, function := range p.Samples[i].Stack {
			loc, found := locations[function]
			if !found {
				funcPtr := &profile.Function{
					ID:   1 + uint64(len(res.Function)),
					Name: function,
				}
				loc = &profile.Location{
					ID: 1 + uint64(len(res.Location)),
					Line: []profile.Line{{
						Function: funcPtr,
					}},
				}
				res.Function = append(res.Function, funcPtr)
				res.Location = append(res.Location, loc)
				locations[function] = loc
			}
			res.Sample[i].Location = append(res.Sample[i].Location, loc)
		}
		reverseLocations(res.Sample[i].Location)
	}

	return res, res.CheckValid()
}

func reverseLocations(locs []*profile.Location) {
	for i, j := 0, len(locs)-1; i < j; i, j = i+1, j-1 {
		locs[i], locs[j] = locs[j], locs[i]
	}
}
