// Package cpuprofile models the call-sample tree returned by the external
// sampling subsystem for a time window of the recorded session.
package cpuprofile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Sample is one sampled call stack, root frame first.
type Sample struct {
	Stack  []string
	Weight int64
}

type Profile struct {
	Samples []Sample
	// PeriodMicros is the sampling period the profiler ran with, when known.
	PeriodMicros int64
}

func (p *Profile) TotalWeight() int64 {
	var total int64
	for i := range p.Samples {
		total += p.Samples[i].Weight
	}
	return total
}

func (p *Profile) Empty() bool {
	return p == nil || len(p.Samples) == 0
}

////////////////////////////////////////////////////////////////////////////////

// The collapsed text form: one "frame;frame;frame weight" line per sample.

func Decode(r io.Reader) (*Profile, error) {
	res := &Profile{
		Samples: make([]Sample, 0),
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		idx := strings.LastIndexByte(line, ' ')
		if idx == -1 {
			return nil, errors.New("cpuprofile: malformed collapsed input")
		}
		weight, err := strconv.ParseInt(line[idx+1:], 0, 64)
		if err != nil {
			return nil, fmt.Errorf("cpuprofile: malformed collapsed input: %w", err)
		}
		res.Samples = append(res.Samples, Sample{
			Stack:  strings.Split(line[:idx], ";"),
			Weight: weight,
		})
	}

	return res, scanner.Err()
}

func Encode(p *Profile, w io.Writer) error {
	for i := range p.Samples {
		stack := strings.Join(p.Samples[i].Stack, ";")
		if _, err := fmt.Fprintf(w, "%s %d\n", stack, p.Samples[i].Weight); err != nil {
			return err
		}
	}
	return nil
}

func Unmarshal(buf []byte) (*Profile, error) {
	return Decode(bytes.NewReader(buf))
}

func Marshal(p *Profile) ([]byte, error) {
	buf := new(bytes.Buffer)
	err := Encode(p, buf)
	return buf.Bytes(), err
}
