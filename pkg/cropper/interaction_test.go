package cropper

import (
	"math/rand"
	"testing"
)

func newTestInteraction(t *testing.T, r Rect) *Interaction {
	t.Helper()
	s, err := NewSurface(3000, 4000, 700)
	if err != nil {
		t.Fatal(err)
	}
	return NewInteraction(s, r, 50, 12)
}

func down(x, y float64) PointerEvent { return PointerEvent{Kind: EventDown, X: x, Y: y} }
func move(x, y float64) PointerEvent { return PointerEvent{Kind: EventMove, X: x, Y: y} }
func up() PointerEvent               { return PointerEvent{Kind: EventUp} }

func checkInvariants(t *testing.T, in *Interaction) {
	t.Helper()
	r := in.Rect()
	if r.Width < in.minW-epsilon || r.Height < in.minH-epsilon {
		t.Fatalf("rect %+v below minimum %fx%f", r, in.minW, in.minH)
	}
	if !in.surface.InBounds(r) {
		t.Fatalf("rect %+v outside surface %dx%d", r, in.surface.DisplayWidth, in.surface.DisplayHeight)
	}
}

func TestDrag(t *testing.T) {
	in := newTestInteraction(t, Rect{Left: 100, Top: 100, Width: 200, Height: 200})

	in.Apply(down(150, 150))
	if in.State().Mode() != ModeDragging {
		t.Fatalf("Expected dragging, got %s", in.State().Mode())
	}

	in.Apply(move(160, 170))
	if r := in.Rect(); r.Left != 110 || r.Top != 120 {
		t.Errorf("Expected origin 110,120, got %f,%f", r.Left, r.Top)
	}

	in.Apply(move(-500, -500))
	if r := in.Rect(); r.Left != 0 || r.Top != 0 {
		t.Errorf("Expected clamp to 0,0, got %f,%f", r.Left, r.Top)
	}

	in.Apply(move(5000, 5000))
	if r := in.Rect(); r.Left != 500 || r.Top != 733 {
		t.Errorf("Expected clamp to 500,733, got %f,%f", r.Left, r.Top)
	}
	if r := in.Rect(); r.Width != 200 || r.Height != 200 {
		t.Errorf("Drag must not change size, got %fx%f", r.Width, r.Height)
	}

	in.Apply(up())
	if in.State().Mode() != ModeIdle {
		t.Errorf("Expected idle after up, got %s", in.State().Mode())
	}

	// moves while idle do nothing
	if in.Apply(move(0, 0)) {
		t.Error("Move while idle should not change the rect")
	}
}

func TestResizeSE(t *testing.T) {
	in := newTestInteraction(t, Rect{Left: 100, Top: 100, Width: 200, Height: 200})

	in.Apply(down(300, 300))
	st, ok := in.State().(Resizing)
	if !ok || st.Handle != HandleSE {
		t.Fatalf("Expected resizing se, got %#v", in.State())
	}

	in.Apply(move(350, 320))
	r := in.Rect()
	if r.Left != 100 || r.Top != 100 || r.Width != 250 || r.Height != 220 {
		t.Errorf("Expected {100 100 250 220}, got %+v", r)
	}
}

func TestResizeRejectsWidthKeepsHeight(t *testing.T) {
	in := newTestInteraction(t, Rect{Left: 100, Top: 100, Width: 100, Height: 200})

	in.Apply(down(200, 300))
	in.Apply(move(200-1000, 300+30))

	r := in.Rect()
	if r.Width != 100 || r.Left != 100 {
		t.Errorf("Width change should be rejected, got left=%f width=%f", r.Left, r.Width)
	}
	if r.Height != 230 {
		t.Errorf("Height change should apply, got %f", r.Height)
	}
}

func TestResizeFreezesInsteadOfClamping(t *testing.T) {
	in := newTestInteraction(t, Rect{Left: 100, Top: 100, Width: 200, Height: 200})

	in.Apply(down(300, 200)) // east handle
	in.Apply(move(250, 200))
	if w := in.Rect().Width; w != 150 {
		t.Fatalf("Expected width 150, got %f", w)
	}

	// would shrink to 20, below minimum: keep the last accepted width
	in.Apply(move(120, 200))
	if w := in.Rect().Width; w != 150 {
		t.Errorf("Expected width to freeze at 150, got %f", w)
	}

	// beyond the right surface edge is rejected too
	in.Apply(move(1000, 200))
	if w := in.Rect().Width; w != 150 {
		t.Errorf("Expected width to freeze at 150, got %f", w)
	}
}

func TestResizeWestKeepsRightEdge(t *testing.T) {
	in := newTestInteraction(t, Rect{Left: 100, Top: 100, Width: 200, Height: 200})

	in.Apply(down(100, 200))
	in.Apply(move(80, 200))

	r := in.Rect()
	if r.Left != 80 || r.Width != 220 {
		t.Errorf("Expected left 80 width 220, got %f %f", r.Left, r.Width)
	}
	if r.Right() != 300 {
		t.Errorf("Right edge should stay at 300, got %f", r.Right())
	}

	// past the left surface edge is rejected
	in.Apply(move(-50, 200))
	if r := in.Rect(); r.Left != 80 {
		t.Errorf("Expected left to stay 80, got %f", r.Left)
	}
}

func TestResizeNorthWest(t *testing.T) {
	in := newTestInteraction(t, Rect{Left: 100, Top: 100, Width: 200, Height: 200})

	in.Apply(down(100, 100))
	in.Apply(move(60, 140))

	r := in.Rect()
	if r.Left != 60 || r.Width != 240 || r.Top != 140 || r.Height != 160 {
		t.Errorf("Expected {60 140 240 160}, got %+v", r)
	}
	if r.Bottom() != 300 || r.Right() != 300 {
		t.Errorf("Opposite edges should stay fixed, got right=%f bottom=%f", r.Right(), r.Bottom())
	}
}

func TestEdgeHandleMovesOneAxis(t *testing.T) {
	in := newTestInteraction(t, Rect{Left: 100, Top: 100, Width: 200, Height: 200})

	in.Apply(down(200, 300)) // south handle
	in.Apply(move(260, 340))

	r := in.Rect()
	if r.Width != 200 || r.Left != 100 {
		t.Errorf("South handle must not change width, got %+v", r)
	}
	if r.Height != 240 {
		t.Errorf("Expected height 240, got %f", r.Height)
	}
}

func TestDownIgnoredWhileActive(t *testing.T) {
	in := newTestInteraction(t, Rect{Left: 100, Top: 100, Width: 200, Height: 200})

	in.Apply(down(150, 150))
	in.Apply(down(300, 300))
	if in.State().Mode() != ModeDragging {
		t.Errorf("Second down must be ignored, got %s", in.State().Mode())
	}
}

func TestDownOutsideIgnored(t *testing.T) {
	in := newTestInteraction(t, Rect{Left: 100, Top: 100, Width: 200, Height: 200})

	in.Apply(down(500, 500))
	if in.State().Mode() != ModeIdle {
		t.Errorf("Down outside should stay idle, got %s", in.State().Mode())
	}
}

func TestCancelEndsGesture(t *testing.T) {
	in := newTestInteraction(t, Rect{Left: 100, Top: 100, Width: 200, Height: 200})

	var transitions []string
	in.OnTransition(func(prev, next State) {
		transitions = append(transitions, prev.Mode().String()+">"+next.Mode().String())
	})

	in.Apply(down(300, 300))
	in.Apply(PointerEvent{Kind: EventCancel})

	if in.State().Mode() != ModeIdle {
		t.Errorf("Expected idle after cancel, got %s", in.State().Mode())
	}
	want := []string{"idle>resizing", "resizing>idle"}
	if len(transitions) != len(want) || transitions[0] != want[0] || transitions[1] != want[1] {
		t.Errorf("Expected transitions %v, got %v", want, transitions)
	}
}

func TestHitTestPrefersHandle(t *testing.T) {
	in := newTestInteraction(t, Rect{Left: 100, Top: 100, Width: 200, Height: 200})

	h, _ := in.HitTest(295, 295)
	if h != HandleSE {
		t.Errorf("Expected se handle, got %s", h)
	}

	h, inside := in.HitTest(200, 200)
	if h != 0 || !inside {
		t.Errorf("Expected body hit, got handle=%s inside=%v", h, inside)
	}
}

func TestRandomGesturesKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	in := newTestInteraction(t, Rect{Left: 70, Top: 93.3, Width: 560, Height: 746.4})

	for i := 0; i < 5000; i++ {
		r := in.Rect()
		var ev PointerEvent
		switch rng.Intn(6) {
		case 0:
			// press on a random handle or the body
			hs := Handles()
			if rng.Intn(3) == 0 {
				ev = down(r.Left+r.Width/2, r.Top+r.Height/2)
			} else {
				x, y := hs[rng.Intn(len(hs))].Point(r)
				ev = down(x, y)
			}
		case 1:
			ev = up()
		default:
			ev = move(rng.Float64()*1400-350, rng.Float64()*1800-430)
		}
		in.Apply(ev)
		checkInvariants(t, in)
	}
}

func TestParseEventKind(t *testing.T) {
	cases := map[string]EventKind{
		"mousedown":   EventDown,
		"touchstart":  EventDown,
		"pointermove": EventMove,
		"touchmove":   EventMove,
		"mouseup":     EventUp,
		"touchend":    EventUp,
		"touchcancel": EventCancel,
		"Cancel":      EventCancel,
	}
	for name, want := range cases {
		got, err := ParseEventKind(name)
		if err != nil || got != want {
			t.Errorf("ParseEventKind(%q): expected %s, got %s (%v)", name, want, got, err)
		}
	}
	if _, err := ParseEventKind("click"); err == nil {
		t.Error("Expected error for unknown event")
	}
}

func TestParseHandle(t *testing.T) {
	for _, h := range Handles() {
		got, err := ParseHandle(h.String())
		if err != nil || got != h {
			t.Errorf("ParseHandle(%q): expected %s, got %s (%v)", h.String(), h, got, err)
		}
	}
	if _, err := ParseHandle("x"); err == nil {
		t.Error("Expected error for unknown handle")
	}
}

func BenchmarkResizeMove(b *testing.B) {
	s, _ := NewSurface(3000, 4000, 700)
	in := NewInteraction(s, Rect{Left: 100, Top: 100, Width: 200, Height: 200}, 50, 12)
	in.Apply(down(300, 300))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		in.Apply(move(float64(300+i%100), float64(300+i%50)))
	}
}

func TestResizeSnapsToSurfaceEdges(t *testing.T) {
	in := newTestInteraction(t, Rect{Left: 100, Top: 100, Width: 200, Height: 200})

	in.Apply(down(100, 100))
	in.Apply(move(-1e-10, -1e-10))
	r := in.Rect()
	if r.Left != 0 || r.Top != 0 {
		t.Errorf("Expected origin snapped to 0,0, got %g,%g", r.Left, r.Top)
	}
	if !approx(r.Width, 300, 1e-6) || !approx(r.Height, 300, 1e-6) {
		t.Errorf("Expected 300x300, got %fx%f", r.Width, r.Height)
	}
	in.Apply(up())

	in.SetRect(Rect{Left: 100, Top: 100, Width: 200, Height: 200})
	in.Apply(down(300, 300))
	in.Apply(move(700+1e-10, 300))
	r = in.Rect()
	if r.Left+r.Width > float64(in.surface.DisplayWidth) {
		t.Errorf("Right edge %g past surface width %d", r.Left+r.Width, in.surface.DisplayWidth)
	}
	if !approx(r.Width, 600, 1e-6) {
		t.Errorf("Expected width 600, got %f", r.Width)
	}
	checkInvariants(t, in)
}
