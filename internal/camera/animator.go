// Package camera animates the viewer camera between poses.
package camera

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// DefaultDuration is the length of one transition.
const DefaultDuration = 1000 * time.Millisecond

// Pose is a camera position and the point it looks at.
type Pose struct {
	Position mgl32.Vec3 `json:"position"`
	Target   mgl32.Vec3 `json:"target"`
}

// Rig is the camera the animator drives.
type Rig interface {
	Position() mgl32.Vec3
	SetPose(position, target mgl32.Vec3)
}

// State is the animator state.
type State string

// Animator states. A transition started while Animating replaces the
// current one.
const (
	StateIdle      State = "idle"
	StateAnimating State = "animating"
)

// Animator interpolates a Rig from a start pose to a target pose with an
// ease-in-out cubic curve. At most one transition is in flight; a new
// request discards the old one.
//
// Not safe for concurrent use.
type Animator struct {
	rig      Rig
	duration time.Duration
	now      func() time.Time

	state     State
	from      Pose
	to        Pose
	startedAt time.Time
	seq       uint64
}

// NewAnimator creates an idle animator for rig. A non-positive duration
// selects DefaultDuration.
func NewAnimator(rig Rig, duration time.Duration) *Animator {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Animator{
		rig:      rig,
		duration: duration,
		now:      time.Now,
		state:    StateIdle,
	}
}

// SetClock replaces the time source used by StartTransition.
func (a *Animator) SetClock(now func() time.Time) {
	a.now = now
}

// Duration returns the transition length.
func (a *Animator) Duration() time.Duration {
	return a.duration
}

// State returns the current state.
func (a *Animator) State() State {
	return a.state
}

// Transition returns the in-flight transition's poses. ok is false when
// idle.
func (a *Animator) Transition() (from, to Pose, ok bool) {
	return a.from, a.to, a.state == StateAnimating
}

// Transitions returns how many transitions have been started.
func (a *Animator) Transitions() uint64 {
	return a.seq
}

// StartTransition begins moving toward target, abandoning any transition
// in flight. The start pose is the rig's current position looking at the
// world origin.
func (a *Animator) StartTransition(targetPosition, targetLookAt mgl32.Vec3) {
	a.from = Pose{Position: a.rig.Position()}
	a.to = Pose{Position: targetPosition, Target: targetLookAt}
	a.startedAt = a.now()
	a.state = StateAnimating
	a.seq++
}

// Tick applies the pose for now. It reports whether a transition finished
// on this tick.
func (a *Animator) Tick(now time.Time) (finished bool) {
	if a.state != StateAnimating {
		return false
	}

	progress := Progress(now.Sub(a.startedAt), a.duration)
	if progress >= 1 {
		a.rig.SetPose(a.to.Position, a.to.Target)
		a.state = StateIdle
		return true
	}

	eased := EaseInOutCubic(progress)
	a.rig.SetPose(
		lerp(a.from.Position, a.to.Position, eased),
		lerp(a.from.Target, a.to.Target, eased),
	)
	return false
}

// Update implements render.Updater.
func (a *Animator) Update(now time.Time) {
	a.Tick(now)
}

// Progress returns elapsed/duration clamped to [0, 1].
func Progress(elapsed, duration time.Duration) float32 {
	if duration <= 0 {
		return 1
	}
	return mgl32.Clamp(float32(float64(elapsed)/float64(duration)), 0, 1)
}

// EaseInOutCubic maps t in [0, 1] onto [0, 1]: 4t³ below 0.5,
// 1 - (-2t+2)³/2 from 0.5.
func EaseInOutCubic(t float32) float32 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := -2*t + 2
	return 1 - u*u*u/2
}

// lerp returns a + (b-a)*t.
func lerp(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}
