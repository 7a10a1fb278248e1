package camera

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// fakeRig records the last pose applied.
type fakeRig struct {
	position mgl32.Vec3
	target   mgl32.Vec3
	sets     int
}

func (r *fakeRig) Position() mgl32.Vec3 { return r.position }

func (r *fakeRig) SetPose(position, target mgl32.Vec3) {
	r.position, r.target = position, target
	r.sets++
}

const epsilon = 1e-5

func newTestAnimator(start mgl32.Vec3) (*Animator, *fakeRig, time.Time) {
	rig := &fakeRig{position: start}
	a := NewAnimator(rig, 0)
	t0 := time.Unix(1000, 0)
	a.SetClock(func() time.Time { return t0 })
	return a, rig, t0
}

func TestEaseInOutCubic(t *testing.T) {
	tests := []struct {
		in, want float32
	}{
		{0, 0},
		{0.25, 0.0625},
		{0.5, 0.5},
		{0.75, 0.9375},
		{1, 1},
	}
	for _, tt := range tests {
		if got := EaseInOutCubic(tt.in); !mgl32.FloatEqualThreshold(got, tt.want, epsilon) {
			t.Errorf("EaseInOutCubic(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}

	prev := float32(0)
	for i := 1; i <= 100; i++ {
		v := EaseInOutCubic(float32(i) / 100)
		if v < prev || v > 1 {
			t.Fatalf("EaseInOutCubic not monotonic in [0,1] at %d: %v after %v", i, v, prev)
		}
		prev = v
	}
}

func TestProgress(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		want    float32
	}{
		{-time.Second, 0},
		{0, 0},
		{250 * time.Millisecond, 0.25},
		{time.Second, 1},
		{5 * time.Second, 1},
	}
	for _, tt := range tests {
		if got := Progress(tt.elapsed, time.Second); !mgl32.FloatEqualThreshold(got, tt.want, epsilon) {
			t.Errorf("Progress(%v) = %v, want %v", tt.elapsed, got, tt.want)
		}
	}
	if Progress(time.Second, 0) != 1 {
		t.Error("Progress with zero duration != 1")
	}
}

func TestAnimator_IdleTickIsNoop(t *testing.T) {
	a, rig, t0 := newTestAnimator(mgl32.Vec3{0, 2, 8})
	if a.State() != StateIdle {
		t.Fatalf("initial State() = %s", a.State())
	}
	if a.Tick(t0) {
		t.Error("idle Tick() reported finished")
	}
	if rig.sets != 0 {
		t.Error("idle Tick() moved the camera")
	}
	if a.Duration() != time.Second {
		t.Errorf("Duration() = %v, want 1s", a.Duration())
	}
}

func TestAnimator_Endpoints(t *testing.T) {
	start := mgl32.Vec3{0, 2, 8}
	target := mgl32.Vec3{0, 1, 3}
	a, rig, t0 := newTestAnimator(start)

	a.StartTransition(target, mgl32.Vec3{})
	if a.State() != StateAnimating {
		t.Fatalf("State() = %s, want animating", a.State())
	}

	a.Tick(t0)
	if !rig.position.ApproxEqualThreshold(start, epsilon) {
		t.Errorf("position at t=0 = %v, want %v", rig.position, start)
	}

	a.Tick(t0.Add(500 * time.Millisecond))
	mid := start.Add(target.Sub(start).Mul(0.5))
	if !rig.position.ApproxEqualThreshold(mid, epsilon) {
		t.Errorf("position at t=0.5 = %v, want %v", rig.position, mid)
	}

	if !a.Tick(t0.Add(time.Second)) {
		t.Error("Tick() at duration did not report finished")
	}
	if rig.position != target {
		t.Errorf("position at t=1 = %v, want exactly %v", rig.position, target)
	}
	if a.State() != StateIdle {
		t.Errorf("State() after finish = %s, want idle", a.State())
	}

	sets := rig.sets
	a.Tick(t0.Add(2 * time.Second))
	if rig.sets != sets {
		t.Error("Tick() after finish moved the camera")
	}
}

func TestAnimator_LookAtStartsAtOrigin(t *testing.T) {
	a, rig, t0 := newTestAnimator(mgl32.Vec3{0, 2, 8})
	rig.target = mgl32.Vec3{9, 9, 9}

	lookAt := mgl32.Vec3{3, 0, 0}
	a.StartTransition(mgl32.Vec3{3, 1, 3}, lookAt)

	a.Tick(t0)
	if rig.target != (mgl32.Vec3{}) {
		t.Errorf("look-at at t=0 = %v, want origin", rig.target)
	}
	a.Tick(t0.Add(time.Second))
	if rig.target != lookAt {
		t.Errorf("look-at at t=1 = %v, want %v", rig.target, lookAt)
	}
}

func TestAnimator_LatestWins(t *testing.T) {
	a, rig, t0 := newTestAnimator(mgl32.Vec3{0, 2, 8})
	now := t0
	a.SetClock(func() time.Time { return now })

	first := mgl32.Vec3{-3, 1, 3}
	second := mgl32.Vec3{3, 1, 3}

	a.StartTransition(first, mgl32.Vec3{-3, 0, 0})
	now = t0.Add(400 * time.Millisecond)
	a.Tick(now)
	midway := rig.position

	a.StartTransition(second, mgl32.Vec3{3, 0, 0})
	from, to, ok := a.Transition()
	if !ok || from.Position != midway || to.Position != second {
		t.Errorf("Transition() = %v -> %v (%v), want %v -> %v", from.Position, to.Position, ok, midway, second)
	}
	if a.Transitions() != 2 {
		t.Errorf("Transitions() = %d, want 2", a.Transitions())
	}

	a.Tick(now.Add(time.Second))
	if rig.position != second {
		t.Errorf("settled at %v, want second target %v", rig.position, second)
	}
}

func TestAnimator_Update(t *testing.T) {
	a, rig, t0 := newTestAnimator(mgl32.Vec3{})
	a.StartTransition(mgl32.Vec3{1, 1, 1}, mgl32.Vec3{})
	a.Update(t0.Add(time.Second))
	if rig.position != (mgl32.Vec3{1, 1, 1}) {
		t.Errorf("Update() position = %v", rig.position)
	}
}
