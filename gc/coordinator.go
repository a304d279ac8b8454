package gc

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/projecteru2/core/log"

	"github.com/projecteru2/gcstore/store"
)

// fsmState is the coordinator's four-state machine (spec.md §4.1).
type fsmState int

const (
	stateResting fsmState = iota
	stateReadyForGC
	stateScanning
	stateCompacting
)

func (s fsmState) String() string {
	switch s {
	case stateResting:
		return "resting"
	case stateReadyForGC:
		return "ready_for_gc"
	case stateScanning:
		return "scanning"
	case stateCompacting:
		return "compacting"
	default:
		return "unknown"
	}
}

// Coordinator is the single logical actor driving the retention machine
// over a serial mailbox. All state (current fsmState, in-flight
// TrackedWrites/BlockedWrites) is owned exclusively by the goroutine
// running Run; Store*/RunGC are safe to call from any goroutine and
// communicate only through the mailbox and one-shot completion channels.
type Coordinator struct {
	repos   Repositories
	cfg     Config
	scan    *scanEngine
	compact *compactEngine
	metrics *metrics

	mailbox chan message

	state     fsmState
	tracked   *TrackedWrites
	blocked   *BlockedWrites
	restTimer *time.Timer
}

// NewCoordinator builds a Coordinator. reg is where the three interface-level
// metrics (spec.md §6) are registered; pass prometheus.DefaultRegisterer for
// the global registry.
func NewCoordinator(repos Repositories, cfg Config, reg prometheus.Registerer) *Coordinator {
	cfg = cfg.withDefaults()
	return &Coordinator{
		repos:   repos,
		cfg:     cfg,
		scan:    newScanEngine(repos, cfg),
		compact: newCompactEngine(repos),
		metrics: newMetrics(reg),
		mailbox: make(chan message, 64),
	}
}

// RunGC requests a GC cycle. It is fire-and-forget: RunGC carries no
// completion handle (spec.md §6).
func (c *Coordinator) RunGC(ctx context.Context) {
	c.send(ctx, runGC{})
}

// StoreApp announces a write and returns a one-shot handle completed once
// the coordinator admits it — immediately, or after the in-flight compact
// finishes. version == nil is the "store the app's existence" case;
// non-nil is "store this version".
func (c *Coordinator) StoreApp(ctx context.Context, id store.PathID, version *store.Version) <-chan error {
	done := make(chan error, 1)
	c.send(ctx, storeApp{id: id, version: version, done: done})
	return done
}

// StorePod is the symmetric counterpart of StoreApp.
func (c *Coordinator) StorePod(ctx context.Context, id store.PathID, version *store.Version) <-chan error {
	done := make(chan error, 1)
	c.send(ctx, storePod{id: id, version: version, done: done})
	return done
}

// StoreRoot announces a new root snapshot.
func (c *Coordinator) StoreRoot(ctx context.Context, root store.RootSnapshot) <-chan error {
	done := make(chan error, 1)
	c.send(ctx, storeRoot{root: root, done: done})
	return done
}

// StorePlan announces a new deployment plan. Per spec.md §4.4 it is
// internally decomposed into two root writes; the returned handle
// completes once both inner writes do.
func (c *Coordinator) StorePlan(ctx context.Context, plan store.Plan) <-chan error {
	done := make(chan error, 1)
	c.send(ctx, storePlan{plan: plan, done: done})
	return done
}

func (c *Coordinator) send(ctx context.Context, m message) {
	select {
	case c.mailbox <- m:
	case <-ctx.Done():
	}
}

// Run drives the FSM until ctx is canceled. Callers should start it in its
// own goroutine.
func (c *Coordinator) Run(ctx context.Context) {
	logger := log.WithFunc("gc.Coordinator.Run")

	c.state = stateReadyForGC
	if c.cfg.CleaningInterval > 0 {
		c.state = stateResting
		c.armRestTimer()
	}
	logger.Infof(ctx, "coordinator starting in state %s", c.state)

	for {
		var timerC <-chan time.Time
		if c.restTimer != nil {
			timerC = c.restTimer.C
		}

		select {
		case <-ctx.Done():
			return

		case <-timerC:
			c.restTimer = nil
			c.send(ctx, wakeUp{})

		case m := <-c.mailbox:
			c.handle(ctx, m)
		}
	}
}

func (c *Coordinator) handle(ctx context.Context, m message) {
	switch c.state {
	case stateResting:
		c.handleResting(ctx, m)
	case stateReadyForGC:
		c.handleReadyForGC(ctx, m)
	case stateScanning:
		c.handleScanning(ctx, m)
	case stateCompacting:
		c.handleCompacting(ctx, m)
	}
}

// handleResting ignores RunGC (spec.md §4.1: "ignore RunGC, save CPU"),
// admits every write immediately, and reacts to the rest timer's wakeUp by
// moving to ReadyForGc.
func (c *Coordinator) handleResting(ctx context.Context, m message) {
	switch msg := m.(type) {
	case wakeUp:
		c.state = stateReadyForGC
		log.WithFunc("gc.Coordinator").Infof(ctx, "resting period elapsed, ready for gc")
	case runGC:
		// Ignored while resting.
	case storeApp:
		resolve(msg.done, nil)
	case storePod:
		resolve(msg.done, nil)
	case storeRoot:
		resolve(msg.done, nil)
	case storePlan:
		resolve(msg.done, nil)
	}
}

func (c *Coordinator) handleReadyForGC(ctx context.Context, m message) {
	switch msg := m.(type) {
	case runGC:
		c.startScan(ctx)
	case storeApp:
		resolve(msg.done, nil)
	case storePod:
		resolve(msg.done, nil)
	case storeRoot:
		resolve(msg.done, nil)
	case storePlan:
		resolve(msg.done, nil)
	}
}

// handleScanning admits every write immediately but records it into
// TrackedWrites (spec.md §4.3), so the eventual diff against ScanResult can
// exclude anything a writer announced during the scan.
func (c *Coordinator) handleScanning(ctx context.Context, m message) {
	logger := log.WithFunc("gc.Coordinator")

	switch msg := m.(type) {
	case runGC:
		c.tracked.GCRequested = true

	case storeApp:
		resolve(msg.done, nil)
		if msg.version == nil {
			c.tracked.AppsStored[msg.id] = struct{}{}
		} else {
			addVersion(c.tracked.AppVersionsStored, msg.id, *msg.version)
		}

	case storePod:
		resolve(msg.done, nil)
		if msg.version == nil {
			c.tracked.PodsStored[msg.id] = struct{}{}
		} else {
			addVersion(c.tracked.PodVersionsStored, msg.id, *msg.version)
		}

	case storeRoot:
		resolve(msg.done, nil)
		c.tracked.recordRoot(msg.root)

	case storePlan:
		resolve(msg.done, nil)
		c.tracked.recordRoot(msg.plan.Original)
		c.tracked.recordRoot(msg.plan.Target)

	case scanDone:
		if msg.err != nil {
			logger.Warnf(ctx, "scan failed: %v", msg.err)
		}
		blocked := c.tracked.effectiveDeletionSet(msg.result)
		gcRequested := blocked.GCRequested
		c.tracked = nil

		if msg.result.IsEmpty() || blocked.isEmpty() {
			if gcRequested {
				c.startScan(ctx)
			} else {
				c.enterRestOrReady()
			}
			return
		}
		c.blocked = blocked
		c.startCompact(ctx)
	}
}

// handleCompacting arbitrates concurrent writes via pin-or-release
// (spec.md §4.4): conflicting writes are held until CompactDone, everything
// else is admitted immediately.
func (c *Coordinator) handleCompacting(ctx context.Context, m message) {
	switch msg := m.(type) {
	case runGC:
		c.blocked.GCRequested = true

	case storeApp:
		if decideStoreApp(c.blocked, msg.id, msg.version) {
			c.blocked.pin(msg.done)
		} else {
			resolve(msg.done, nil)
		}

	case storePod:
		if decideStorePod(c.blocked, msg.id, msg.version) {
			c.blocked.pin(msg.done)
		} else {
			resolve(msg.done, nil)
		}

	case storeRoot:
		if decideStoreRoot(c.blocked, msg.root) {
			c.blocked.pin(msg.done)
		} else {
			resolve(msg.done, nil)
		}

	case storePlan:
		c.decidePlanDuringCompact(msg)

	case compactDone:
		if msg.err != nil {
			log.WithFunc("gc.Coordinator").Warnf(ctx, "compact failed: %v", msg.err)
		}
		c.metrics.runsTotal.Inc()
		c.blocked.releaseAll()
		gcRequested := c.blocked.GCRequested
		c.blocked = nil
		if gcRequested {
			c.startScan(ctx)
		} else {
			c.enterRestOrReady()
		}
	}
}

// decidePlanDuringCompact implements spec.md §4.4's StorePlan decomposition:
// two internal root decisions, whose outer handle completes only once both
// inner ones do.
func (c *Coordinator) decidePlanDuringCompact(msg storePlan) {
	originalDone := make(chan error, 1)
	targetDone := make(chan error, 1)

	if decideStoreRoot(c.blocked, msg.plan.Original) {
		c.blocked.pin(originalDone)
	} else {
		resolve(originalDone, nil)
	}
	if decideStoreRoot(c.blocked, msg.plan.Target) {
		c.blocked.pin(targetDone)
	} else {
		resolve(targetDone, nil)
	}

	go func() {
		errOriginal := <-originalDone
		errTarget := <-targetDone
		if errOriginal != nil {
			msg.done <- errOriginal
		} else {
			msg.done <- errTarget
		}
		close(msg.done)
	}()
}

func (c *Coordinator) startScan(ctx context.Context) {
	c.state = stateScanning
	c.tracked = newTrackedWrites()

	timer := prometheus.NewTimer(c.metrics.scanDuration)
	go func() {
		result := c.scan.run(ctx)
		timer.ObserveDuration()
		c.send(ctx, scanDone{result: result})
	}()
}

func (c *Coordinator) startCompact(ctx context.Context) {
	c.state = stateCompacting

	timer := prometheus.NewTimer(c.metrics.compactDuration)
	blocked := c.blocked
	go func() {
		err := c.compact.run(ctx, blocked)
		timer.ObserveDuration()
		c.send(ctx, compactDone{err: err})
	}()
}

func (c *Coordinator) enterRestOrReady() {
	if c.cfg.CleaningInterval > 0 {
		c.state = stateResting
		c.armRestTimer()
	} else {
		c.state = stateReadyForGC
	}
}

func (c *Coordinator) armRestTimer() {
	c.restTimer = time.NewTimer(c.cfg.CleaningInterval)
}

func resolve(done chan<- error, err error) {
	done <- err
	close(done)
}
