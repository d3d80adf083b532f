package driver

import (
	"time"

	metrics "github.com/rcrowley/go-metrics"
	"go.uber.org/atomic"
)

// Metric names registered in Config.Registry.
const (
	MetricReadWait     = "rwlock.read.wait"
	MetricWriteWait    = "rwlock.write.wait"
	MetricReadEntries  = "rwlock.read.entries"
	MetricWriteEntries = "rwlock.write.entries"
	MetricPeakReaders  = "rwlock.read.peak"
)

// probes watches the critical sections from the workers' side. The live
// gauges are updated inside the critical section, so they double as a
// cross-check of the lock: writersIn never exceeds 1 and is never non-zero
// while readersIn is.
type probes struct {
	seq         *atomic.Uint64
	readersIn   *atomic.Int64
	writersIn   *atomic.Int64
	peakReaders *atomic.Int64

	readWait  metrics.Timer
	writeWait metrics.Timer
	reads     metrics.Counter
	writes    metrics.Counter
	peak      metrics.Gauge
}

func newProbes(r metrics.Registry) *probes {
	return &probes{
		seq:         atomic.NewUint64(0),
		readersIn:   atomic.NewInt64(0),
		writersIn:   atomic.NewInt64(0),
		peakReaders: atomic.NewInt64(0),
		readWait:    metrics.GetOrRegisterTimer(MetricReadWait, r),
		writeWait:   metrics.GetOrRegisterTimer(MetricWriteWait, r),
		reads:       metrics.GetOrRegisterCounter(MetricReadEntries, r),
		writes:      metrics.GetOrRegisterCounter(MetricWriteEntries, r),
		peak:        metrics.GetOrRegisterGauge(MetricPeakReaders, r),
	}
}

func (p *probes) enterRead(waited time.Duration) {
	p.readWait.Update(waited)
	p.reads.Inc(1)
	cur := p.readersIn.Inc()
	for {
		prev := p.peakReaders.Load()
		if cur <= prev || p.peakReaders.CompareAndSwap(prev, cur) {
			break
		}
	}
	p.peak.Update(p.peakReaders.Load())
}

func (p *probes) exitRead() { p.readersIn.Dec() }

func (p *probes) enterWrite(waited time.Duration) {
	p.writeWait.Update(waited)
	p.writes.Inc(1)
	p.writersIn.Inc()
}

func (p *probes) exitWrite() { p.writersIn.Dec() }

// Report summarises a finished run.
type Report struct {
	Reads       int64 // read critical sections entered
	Writes      int64 // write critical sections entered
	PeakReaders int64 // most readers seen inside at once

	MeanReadWait  time.Duration
	MeanWriteWait time.Duration
	MaxWriteWait  time.Duration

	// JoinOrder lists the groups in the order their join completed.
	JoinOrder []Group
}

func (p *probes) report(joined []Group) Report {
	rw := p.readWait.Snapshot()
	ww := p.writeWait.Snapshot()
	return Report{
		Reads:         p.reads.Count(),
		Writes:        p.writes.Count(),
		PeakReaders:   p.peakReaders.Load(),
		MeanReadWait:  time.Duration(rw.Mean()),
		MeanWriteWait: time.Duration(ww.Mean()),
		MaxWriteWait:  time.Duration(ww.Max()),
		JoinOrder:     append([]Group(nil), joined...),
	}
}
