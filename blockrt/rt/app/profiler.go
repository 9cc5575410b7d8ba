package app

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Profiler keeps the CPU time of named frame phases and a few counters for
// the debug log. Durations are smoothed so a single slow frame does not
// dominate the printout.
type Profiler struct {
	Scopes     map[string]time.Duration
	StartTimes map[string]time.Time
	Counts     map[string]int
	Order      []string

	// Smoothing is the weight of the newest sample, in (0,1].
	Smoothing float64
	now       func() time.Time
}

func NewProfiler() *Profiler {
	return &Profiler{
		Scopes:     make(map[string]time.Duration),
		StartTimes: make(map[string]time.Time),
		Counts:     make(map[string]int),
		Smoothing:  0.1,
		now:        time.Now,
	}
}

func (p *Profiler) BeginScope(name string) {
	if _, seen := p.Scopes[name]; !seen {
		p.Order = append(p.Order, name)
		p.Scopes[name] = 0
	}
	p.StartTimes[name] = p.now()
}

func (p *Profiler) EndScope(name string) {
	start, ok := p.StartTimes[name]
	if !ok {
		return
	}
	delete(p.StartTimes, name)
	sample := p.now().Sub(start)
	prev := p.Scopes[name]
	if prev == 0 {
		p.Scopes[name] = sample
		return
	}
	p.Scopes[name] = prev + time.Duration(p.Smoothing*float64(sample-prev))
}

func (p *Profiler) SetCount(name string, count int) {
	p.Counts[name] = count
}

func (p *Profiler) String() string {
	var sb strings.Builder
	sb.WriteString("timings:")
	for _, name := range p.Order {
		fmt.Fprintf(&sb, " %s=%.2fms", name, float64(p.Scopes[name].Microseconds())/1000.0)
	}

	keys := make([]string, 0, len(p.Counts))
	for k := range p.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	sb.WriteString(" counts:")
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%d", k, p.Counts[k])
	}
	return sb.String()
}
