package safety

import (
	"log/slog"
	"sync"
)

// engineLogCap bounds the in-memory command log.
const engineLogCap = 256

// Engine is the sole path through which any actuator's commanded state
// may change. It enforces minimum cycle time per group, heater/exhaust
// mutual exclusion, and the pump runtime ceiling, and owns the
// authoritative actuator records.
//
// Interlock checks and their resulting mutation are indivisible: one
// mutex guards the whole decision, so a concurrent host cannot
// interleave a second request between check and write.
type Engine struct {
	mu sync.Mutex

	minCycleMs   int64
	maxPumpRunMs int64

	states    map[ActuatorID]State
	onSince   map[ActuatorID]int64
	groupLast map[Group]int64

	transport ActuatorTransport
	logger    *slog.Logger

	log []CommandLogEntry
}

// NewEngine builds an engine with every actuator off and every group
// gate expired, so the first command after boot is not blocked.
func NewEngine(minCycleMs, maxPumpRunMs int64, transport ActuatorTransport, logger *slog.Logger) *Engine {
	if transport == nil {
		transport = NopTransport{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		minCycleMs:   minCycleMs,
		maxPumpRunMs: maxPumpRunMs,
		states:       make(map[ActuatorID]State, len(AllActuators)),
		onSince:      make(map[ActuatorID]int64, len(AllActuators)),
		groupLast:    make(map[Group]int64, 4),
		transport:    transport,
		logger:       logger.With("component", "safety"),
	}
	for _, id := range AllActuators {
		e.states[id] = StateOff
	}
	for _, g := range []Group{GroupHeat, GroupVent, GroupPump, GroupLight} {
		e.groupLast[g] = -minCycleMs
	}
	return e
}

// RequestChange asks for an actuator state change at the given tick.
// All interlock checks must pass for the change to apply; a rejection
// carries a structured reason and mutates nothing (except the pump
// runtime ceiling, which forces the pump off while rejecting the
// caller's "on").
func (e *Engine) RequestChange(id ActuatorID, desired State, nowMs int64) Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.requestLocked(id, desired, nowMs, false)
}

func (e *Engine) requestLocked(id ActuatorID, desired State, nowMs int64, forced bool) Result {
	group := GroupOf(id)

	// Check 1: minimum cycle time, shared at the group level.
	if nowMs-e.groupLast[group] < e.minCycleMs {
		e.reject(id, desired, nowMs, forced, ReasonCycleTooSoon)
		return Result{Reason: ReasonCycleTooSoon}
	}

	// Check 2: heaters and the exhaust fan are mutually exclusive.
	if group == GroupHeat && desired == StateOn && e.states[FanExhaust] == StateOn {
		e.reject(id, desired, nowMs, forced, ReasonMutualExclusion)
		return Result{Reason: ReasonMutualExclusion}
	}
	if id == FanExhaust && desired == StateOn {
		// Force both heaters off first. Each force-off runs through the
		// same gates, so a recent heat-group change cascades into a
		// rejection here.
		for _, heater := range []ActuatorID{HeaterPrimary, HeaterSecondary} {
			if e.states[heater] == StateOn {
				e.requestLocked(heater, StateOff, nowMs, true)
			}
		}
		if e.states[HeaterPrimary] == StateOn || e.states[HeaterSecondary] == StateOn {
			e.reject(id, desired, nowMs, forced, ReasonMutualExclusion)
			return Result{Reason: ReasonMutualExclusion}
		}
	}

	// Check 3: pump runtime ceiling. An "on" request for a pump already
	// past its ceiling is answered by forcing it off.
	if id == Pump && desired == StateOn && e.states[Pump] == StateOn &&
		nowMs-e.onSince[Pump] > e.maxPumpRunMs {
		e.apply(Pump, StateOff, nowMs, true, ReasonRuntimeExceeded)
		return Result{Reason: ReasonRuntimeExceeded}
	}

	// Equal state is a no-op: not counted as a change, does not reset
	// the group cycle timer, not logged.
	if e.states[id] == desired {
		return Result{Applied: true, NoOp: true}
	}

	e.apply(id, desired, nowMs, forced, ReasonNone)
	return Result{Applied: true}
}

// apply mutates state, stamps the group clock, and drives the relay.
func (e *Engine) apply(id ActuatorID, s State, nowMs int64, forced bool, reason RejectReason) {
	if err := e.transport.Write(id, s == StateOn); err != nil {
		// The commanded state remains authoritative; the transport
		// reported a bounded failure for this write.
		e.logger.Error("relay write failed", "actuator", string(id), "state", string(s), "error", err)
	}
	e.states[id] = s
	e.groupLast[GroupOf(id)] = nowMs
	if s == StateOn {
		e.onSince[id] = nowMs
	}
	e.appendLog(CommandLogEntry{
		TickMs:   nowMs,
		Actuator: id,
		Desired:  s,
		Applied:  true,
		Forced:   forced,
		Reason:   reason,
	})
	e.logger.Info("actuator state changed",
		"actuator", string(id), "state", string(s), "forced", forced)
}

func (e *Engine) reject(id ActuatorID, desired State, nowMs int64, forced bool, reason RejectReason) {
	e.appendLog(CommandLogEntry{
		TickMs:   nowMs,
		Actuator: id,
		Desired:  desired,
		Applied:  false,
		Forced:   forced,
		Reason:   reason,
	})
	e.logger.Warn("actuator command rejected",
		"actuator", string(id), "desired", string(desired), "reason", string(reason))
}

func (e *Engine) appendLog(entry CommandLogEntry) {
	e.log = append(e.log, entry)
	if len(e.log) > engineLogCap {
		e.log = e.log[len(e.log)-engineLogCap:]
	}
}

// CheckRuntimes enforces runtime ceilings outside any caller request.
// Invoked every decision cycle so the pump's on-duration never exceeds
// its ceiling even when nobody asks for a change.
func (e *Engine) CheckRuntimes(nowMs int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.states[Pump] == StateOn && nowMs-e.onSince[Pump] > e.maxPumpRunMs {
		e.apply(Pump, StateOff, nowMs, true, ReasonRuntimeExceeded)
	}
}

// StopAll turns every actuator off through the normal gates.
func (e *Engine) StopAll(nowMs int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range AllActuators {
		if e.states[id] == StateOn {
			e.requestLocked(id, StateOff, nowMs, true)
		}
	}
}

// IsOn reports the commanded state of one actuator.
func (e *Engine) IsOn(id ActuatorID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.states[id] == StateOn
}

// Records returns the authoritative actuator record set.
func (e *Engine) Records() []Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Record, 0, len(AllActuators))
	for _, id := range AllActuators {
		out = append(out, Record{
			ID:                id,
			State:             e.states[id],
			Group:             GroupOf(id),
			LastGroupChangeMs: e.groupLast[GroupOf(id)],
			OnSinceMs:         e.onSince[id],
		})
	}
	return out
}

// CommandLog returns a copy of the bounded applied/rejected log.
func (e *Engine) CommandLog() []CommandLogEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]CommandLogEntry, len(e.log))
	copy(out, e.log)
	return out
}
