// Package sim advances a particle set through time under a simplified
// gravity model and keeps its numerical state finite.
package sim

import (
	"math"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/stellarforge/particles"
	"github.com/pthm-cable/stellarforge/simerr"
)

// State is the stepper lifecycle state.
type State uint8

const (
	StateReady State = iota
	StateStepping
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateStepping:
		return "stepping"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Phase names reported to a PhaseTimer.
const (
	PhaseForces    = "forces"
	PhaseIntegrate = "integrate"
	PhaseValidate  = "validate"
)

// PhaseTimer receives phase boundaries during Step.
type PhaseTimer interface {
	StartPhase(phase string)
}

// Status summarises one step.
type Status struct {
	Tick      int64
	Time      float64
	Model     ForceModel
	Corrected int // particles repaired after going non-finite
	Clamped   int // particles whose speed was rescaled
	State     State
}

// Stepper owns a particle set and advances it one tick at a time.
// It is not safe for concurrent use.
type Stepper struct {
	cfg   Config
	set   *particles.Set
	state State
	tick  int64
	time  float64

	model    ForceModel
	centroid centroidSums

	acc     []float64
	nextPos []float64
	nextVel []float64

	pool  *workerPool
	timer PhaseTimer
}

// New validates cfg and set and returns a READY stepper that takes
// ownership of set.
func New(cfg Config, set *particles.Set) (*Stepper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if set == nil {
		set = particles.New(0)
	}
	if err := set.Check(); err != nil {
		return nil, err
	}
	s := &Stepper{cfg: cfg, set: set}
	if cfg.Workers > 1 {
		s.pool = newWorkerPool(cfg.Workers)
	}
	return s, nil
}

// SetTimer installs an optional phase timer. nil disables timing.
func (s *Stepper) SetTimer(t PhaseTimer) {
	s.timer = t
}

// Config returns the stepper configuration.
func (s *Stepper) Config() Config { return s.cfg }

// State returns the lifecycle state.
func (s *Stepper) State() State { return s.state }

// Tick returns the number of completed steps.
func (s *Stepper) Tick() int64 { return s.tick }

// Time returns the simulated time elapsed.
func (s *Stepper) Time() float64 { return s.time }

// Particles exposes the owned set for read-only use between steps.
func (s *Stepper) Particles() *particles.Set { return s.set }

// Snapshot copies render data out of the set, reusing dst when possible.
func (s *Stepper) Snapshot(dst *particles.RenderSnapshot) *particles.RenderSnapshot {
	return s.set.Snapshot(dst)
}

// Restore sets the tick counter and clock, for resuming a saved run.
func (s *Stepper) Restore(tick int64, t float64) {
	s.tick, s.time = tick, t
}

// Reset replaces the particle set, clears the clock and returns the stepper
// to READY. It is the only way out of FAULTED.
func (s *Stepper) Reset(set *particles.Set) error {
	if set == nil {
		return simerr.InvalidParameterf("nil particle set")
	}
	if err := set.Check(); err != nil {
		return err
	}
	s.set = set
	s.state = StateReady
	s.tick, s.time = 0, 0
	return nil
}

// AddParticle appends a particle and returns its index.
func (s *Stepper) AddParticle(pos, vel r3.Vec, mass float64, t particles.Type) (int, error) {
	return s.set.Add(pos, vel, mass, t)
}

// RemoveParticle deletes the particle at index, preserving the order of
// the rest.
func (s *Stepper) RemoveParticle(index int) error {
	return s.set.Remove(index)
}

// Close stops any worker goroutines.
func (s *Stepper) Close() {
	if s.pool != nil {
		s.pool.stop()
	}
}

func (s *Stepper) startPhase(phase string) {
	if s.timer != nil {
		s.timer.StartPhase(phase)
	}
}

func (s *Stepper) status(corrected, clamped int) Status {
	return Status{
		Tick:      s.tick,
		Time:      s.time,
		Model:     s.model,
		Corrected: corrected,
		Clamped:   clamped,
		State:     s.state,
	}
}

// Step advances the set by dt using semi-implicit Euler:
// v += a·dt, then x += v·dt. New state is built in scratch buffers and
// committed only after validation, so a failed step leaves the set untouched.
func (s *Stepper) Step(dt float64) (Status, error) {
	if s.state == StateFaulted {
		return s.status(0, 0), simerr.Divergedf("stepper faulted at tick %d; reset required", s.tick)
	}
	if !(dt > 0) || dt > s.cfg.MaxDT {
		return s.status(0, 0), simerr.InvalidTimestep(dt, s.cfg.MaxDT)
	}

	s.state = StateStepping
	n := s.set.Len()
	s.model = s.cfg.ModelFor(n)
	if n == 0 {
		s.commit(dt)
		return s.status(0, 0), nil
	}
	s.grow(n)

	s.startPhase(PhaseForces)
	s.computeForces(n)

	s.startPhase(PhaseIntegrate)
	copy(s.nextVel, s.set.Velocities)
	blas64.Axpy(dt, flat(s.acc), flat(s.nextVel))
	clamped := s.clampSpeeds()
	copy(s.nextPos, s.set.Positions)
	blas64.Axpy(dt, flat(s.nextVel), flat(s.nextPos))

	s.startPhase(PhaseValidate)
	corrected, err := s.repair()
	if err != nil {
		s.state = StateFaulted
		return s.status(corrected, clamped), err
	}

	copy(s.set.Positions, s.nextPos)
	copy(s.set.Velocities, s.nextVel)
	s.commit(dt)
	return s.status(corrected, clamped), nil
}

func (s *Stepper) commit(dt float64) {
	s.tick++
	s.time += dt
	s.state = StateReady
}

func (s *Stepper) grow(n int) {
	if cap(s.acc) < 3*n {
		s.acc = make([]float64, 3*n)
		s.nextPos = make([]float64, 3*n)
		s.nextVel = make([]float64, 3*n)
	}
	s.acc = s.acc[:3*n]
	s.nextPos = s.nextPos[:3*n]
	s.nextVel = s.nextVel[:3*n]
}

// computeForces fills s.acc for all n particles.
func (s *Stepper) computeForces(n int) {
	if s.model == ForceCentroid {
		s.prepareCentroid()
	}
	if s.pool != nil && s.model != ForceNone && n >= s.cfg.ParallelThreshold {
		s.pool.start(s.accelerateRange)
		s.pool.run(n)
		return
	}
	s.accelerateRange(0, n)
}

// clampSpeeds rescales velocities above MaxSpeed, preserving direction.
func (s *Stepper) clampSpeeds() int {
	maxSpeed := s.cfg.MaxSpeed
	if maxSpeed <= 0 {
		return 0
	}
	var clamped int
	v := s.nextVel
	for i := 0; i < len(v); i += 3 {
		speed := math.Hypot(math.Hypot(v[i], v[i+1]), v[i+2])
		if speed > maxSpeed && !math.IsInf(speed, 0) {
			k := maxSpeed / speed
			v[i] *= k
			v[i+1] *= k
			v[i+2] *= k
			clamped++
		}
	}
	return clamped
}

// repair replaces any particle with a non-finite position or velocity by
// its previous-tick position, clamped to the world bound, at rest. If that
// position is itself non-finite the step fails.
func (s *Stepper) repair() (int, error) {
	var corrected int
	bound := s.cfg.WorldBound
	for i := 0; i < s.set.Len(); i++ {
		j := 3 * i
		if finite3(s.nextPos[j:j+3]) && finite3(s.nextVel[j:j+3]) {
			continue
		}
		prev := s.set.Positions[j : j+3]
		if !finite3(prev) {
			return corrected, simerr.Divergedf("particle %d has no finite position to revert to at tick %d", i, s.tick)
		}
		for k := 0; k < 3; k++ {
			p := prev[k]
			if bound > 0 {
				p = math.Max(-bound, math.Min(bound, p))
			}
			s.nextPos[j+k] = p
			s.nextVel[j+k] = 0
		}
		corrected++
	}
	return corrected, nil
}

func finite3(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func flat(data []float64) blas64.Vector {
	return blas64.Vector{N: len(data), Inc: 1, Data: data}
}
