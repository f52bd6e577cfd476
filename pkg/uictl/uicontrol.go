package uictl

import "golang.org/x/exp/constraints"

type Number interface {
	constraints.Integer | constraints.Float
}

// Dial is a control that can read some value.
type Dial[N Number] interface {
	Read() N
}

// CappedDial is a Dial with a maximum cap value.
type CappedDial[N Number] interface {
	Dial[N]
	Cap() (num, max N)
}

// Levels is a control that can read multiple levels.
type Levels[N Number] interface {
	Read() []N
}

// CappedDialFunc adapts a function returning a value and its cap to a
// CappedDial.
type CappedDialFunc[N Number] func() (num, max N)

func (f CappedDialFunc[N]) Read() N {
	n, _ := f()
	return n
}

func (f CappedDialFunc[N]) Cap() (num, max N) {
	return f()
}

// LevelsFunc adapts a function to Levels.
type LevelsFunc[N Number] func() []N

func (f LevelsFunc[N]) Read() []N {
	return f()
}
