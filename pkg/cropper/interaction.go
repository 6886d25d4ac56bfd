package cropper

import (
	"fmt"
	"math"
	"strings"
)

// Handle names one of the eight resize control points
type Handle int

const (
	HandleN Handle = iota + 1
	HandleS
	HandleE
	HandleW
	HandleNE
	HandleNW
	HandleSE
	HandleSW
)

var handleNames = map[Handle]string{
	HandleN: "n", HandleS: "s", HandleE: "e", HandleW: "w",
	HandleNE: "ne", HandleNW: "nw", HandleSE: "se", HandleSW: "sw",
}

func (h Handle) String() string {
	if name, ok := handleNames[h]; ok {
		return name
	}
	return "none"
}

// ParseHandle parses a handle name such as "se" or "N"
func ParseHandle(s string) (Handle, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for h, name := range handleNames {
		if name == s {
			return h, nil
		}
	}
	return 0, fmt.Errorf("unknown handle %q", s)
}

// Handles returns all handles, corners first
func Handles() []Handle {
	return []Handle{HandleNW, HandleNE, HandleSW, HandleSE, HandleN, HandleS, HandleE, HandleW}
}

// edges reports which rectangle edges the handle moves
func (h Handle) edges() (n, s, e, w bool) {
	name := handleNames[h]
	return strings.Contains(name, "n"), strings.Contains(name, "s"),
		strings.Contains(name, "e"), strings.Contains(name, "w")
}

// Point returns the handle's position on r
func (h Handle) Point(r Rect) (float64, float64) {
	n, s, e, w := h.edges()
	x, y := r.Left+r.Width/2, r.Top+r.Height/2
	switch {
	case e:
		x = r.Right()
	case w:
		x = r.Left
	}
	switch {
	case n:
		y = r.Top
	case s:
		y = r.Bottom()
	}
	return x, y
}

// EventKind is the unified pointer/touch event vocabulary
type EventKind int

const (
	EventDown EventKind = iota
	EventMove
	EventUp
	EventCancel
)

func (k EventKind) String() string {
	switch k {
	case EventDown:
		return "down"
	case EventMove:
		return "move"
	case EventUp:
		return "up"
	case EventCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// ParseEventKind maps mouse, touch and pointer event names onto EventKind
func ParseEventKind(name string) (EventKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "down", "mousedown", "touchstart", "pointerdown":
		return EventDown, nil
	case "move", "mousemove", "touchmove", "pointermove":
		return EventMove, nil
	case "up", "mouseup", "touchend", "pointerup":
		return EventUp, nil
	case "cancel", "touchcancel", "pointercancel":
		return EventCancel, nil
	}
	return 0, fmt.Errorf("unknown event %q", name)
}

// PointerEvent is one input event in display-space coordinates
type PointerEvent struct {
	Kind EventKind
	X, Y float64
}

// Mode is the discriminant of State
type Mode int

const (
	ModeIdle Mode = iota
	ModeDragging
	ModeResizing
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeDragging:
		return "dragging"
	case ModeResizing:
		return "resizing"
	default:
		return "unknown"
	}
}

// State is the interaction state: Idle, Dragging or Resizing
type State interface {
	Mode() Mode
}

// Idle means no gesture is active
type Idle struct{}

// Dragging moves the whole rectangle; the offset is pointer minus origin
type Dragging struct {
	OffsetX, OffsetY float64
}

// Resizing moves the edges named by Handle relative to the anchor point and
// the pre-gesture geometry
type Resizing struct {
	Handle         Handle
	StartX, StartY float64
	Start          Rect
}

func (Idle) Mode() Mode     { return ModeIdle }
func (Dragging) Mode() Mode { return ModeDragging }
func (Resizing) Mode() Mode { return ModeResizing }

// Interaction owns the crop rectangle of one session and applies pointer
// events to it. The rectangle always satisfies the size and bounds invariants.
type Interaction struct {
	surface      Surface
	rect         Rect
	state        State
	minW, minH   float64
	handleRadius float64
	listener     func(prev, next State)
}

// NewInteraction starts an idle interaction over surface with rect
func NewInteraction(surface Surface, rect Rect, minSize, handleRadius float64) *Interaction {
	minW, minH := surface.MinSize(minSize)
	return &Interaction{
		surface:      surface,
		rect:         rect,
		state:        Idle{},
		minW:         minW,
		minH:         minH,
		handleRadius: handleRadius,
	}
}

// OnTransition registers a callback invoked on every state change
func (in *Interaction) OnTransition(fn func(prev, next State)) {
	in.listener = fn
}

// Rect returns the current rectangle
func (in *Interaction) Rect() Rect { return in.rect }

// State returns the current interaction state
func (in *Interaction) State() State { return in.state }

// SetRect replaces the rectangle outright and ends any active gesture
func (in *Interaction) SetRect(r Rect) {
	in.rect = r
	in.transition(Idle{})
}

// HitTest returns the handle nearest to (x, y) within the handle radius, or
// zero and whether the point is inside the rectangle body.
func (in *Interaction) HitTest(x, y float64) (Handle, bool) {
	var best Handle
	bestDist := math.Inf(1)
	for _, h := range Handles() {
		hx, hy := h.Point(in.rect)
		d := math.Hypot(x-hx, y-hy)
		if d <= in.handleRadius && d < bestDist {
			best, bestDist = h, d
		}
	}
	if best != 0 {
		return best, false
	}
	return 0, in.rect.Contains(x, y)
}

// Apply applies one event and reports whether the rectangle changed
func (in *Interaction) Apply(ev PointerEvent) bool {
	switch ev.Kind {
	case EventDown:
		in.down(ev.X, ev.Y)
		return false
	case EventMove:
		before := in.rect
		switch st := in.state.(type) {
		case Dragging:
			in.drag(st, ev.X, ev.Y)
		case Resizing:
			in.resize(st, ev.X, ev.Y)
		}
		return in.rect != before
	case EventUp, EventCancel:
		if in.state.Mode() != ModeIdle {
			in.transition(Idle{})
		}
	}
	return false
}

func (in *Interaction) down(x, y float64) {
	if in.state.Mode() != ModeIdle {
		return
	}

	handle, inside := in.HitTest(x, y)
	switch {
	case handle != 0:
		in.transition(Resizing{Handle: handle, StartX: x, StartY: y, Start: in.rect})
	case inside:
		in.transition(Dragging{OffsetX: x - in.rect.Left, OffsetY: y - in.rect.Top})
	}
}

func (in *Interaction) drag(st Dragging, x, y float64) {
	in.rect.Left = clamp(x-st.OffsetX, 0, in.surface.Width()-in.rect.Width)
	in.rect.Top = clamp(y-st.OffsetY, 0, in.surface.Height()-in.rect.Height)
}

// resize evaluates each axis on its own. An axis whose new size or position
// would break the invariants keeps its current value for this event.
func (in *Interaction) resize(st Resizing, x, y float64) {
	dx, dy := x-st.StartX, y-st.StartY
	n, s, e, w := st.Handle.edges()

	if e || w {
		left, width := st.Start.Left, st.Start.Width
		if e {
			width = st.Start.Width + dx
		}
		if w {
			width = st.Start.Width - dx
			left = st.Start.Left + dx
		}
		if width >= in.minW-epsilon && left >= -epsilon && left+width <= in.surface.Width()+epsilon {
			in.rect.Left, in.rect.Width = snapAxis(left, width, in.minW, in.surface.Width())
		}
	}

	if n || s {
		top, height := st.Start.Top, st.Start.Height
		if s {
			height = st.Start.Height + dy
		}
		if n {
			height = st.Start.Height - dy
			top = st.Start.Top + dy
		}
		if height >= in.minH-epsilon && top >= -epsilon && top+height <= in.surface.Height()+epsilon {
			in.rect.Top, in.rect.Height = snapAxis(top, height, in.minH, in.surface.Height())
		}
	}
}

// snapAxis pulls a position and size accepted within epsilon back onto
// [0, extent] with size at least minSize.
func snapAxis(pos, size, minSize, extent float64) (float64, float64) {
	lo := math.Max(pos, 0)
	hi := math.Min(pos+size, extent)
	size = math.Max(hi-lo, math.Min(minSize, extent))
	if lo+size > extent {
		lo = extent - size
	}
	return lo, size
}

func (in *Interaction) transition(next State) {
	prev := in.state
	in.state = next
	if in.listener != nil && prev.Mode() != next.Mode() {
		in.listener(prev, next)
	}
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
