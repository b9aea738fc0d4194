package fixed

// Vec2 is a 2D vector of Q16.16 components.
type Vec2 struct {
	X FP `json:"x"`
	Y FP `json:"y"`
}

func V(x, y FP) Vec2 { return Vec2{X: x, Y: y} }

func VInt(x, y int32) Vec2 { return Vec2{X: FromInt(x), Y: FromInt(y)} }

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }

func (v Vec2) Scale(s FP) Vec2 { return Vec2{X: Mul(v.X, s), Y: Mul(v.Y, s)} }

func (v Vec2) IsZero() bool { return v.X == 0 && v.Y == 0 }

func Dot(a, b Vec2) FP { return Mul(a.X, b.X) + Mul(a.Y, b.Y) }

// Cross returns the z component of the 3D cross product of (a,0) and (b,0).
func Cross(a, b Vec2) FP { return Mul(a.X, b.Y) - Mul(a.Y, b.X) }

func LengthSq(v Vec2) FP { return Dot(v, v) }

func Length(v Vec2) FP { return Sqrt(LengthSq(v)) }

// Normalize returns v scaled to unit length. The zero vector, and any vector whose
// computed length is zero, normalizes to the zero vector.
func Normalize(v Vec2) Vec2 {
	l := Length(v)
	if l == 0 {
		return Vec2{}
	}
	return Vec2{X: Div(v.X, l), Y: Div(v.Y, l)}
}

func Distance(a, b Vec2) FP { return Length(b.Sub(a)) }

func DistanceSq(a, b Vec2) FP { return LengthSq(b.Sub(a)) }

// MoveTowards steps from toward to by at most step. It lands exactly on to when the
// remaining distance is <= step.
func MoveTowards(from, to Vec2, step FP) (Vec2, bool) {
	d := to.Sub(from)
	dist := Length(d)
	if dist <= step {
		return to, true
	}
	return from.Add(Normalize(d).Scale(step)), false
}
