package reactive

import "fmt"

// Tuple2 is the pair ZipWith emits.
type Tuple2[A, B any] struct {
	T1 A
	T2 B
}

func NewTuple2[A, B any](a A, b B) Tuple2[A, B] {
	return Tuple2[A, B]{T1: a, T2: b}
}

func (t Tuple2[A, B]) String() string {
	return fmt.Sprintf("[%v,%v]", t.T1, t.T2)
}

// Tuple3 is the triple Zip3 can emit.
type Tuple3[A, B, C any] struct {
	T1 A
	T2 B
	T3 C
}

func NewTuple3[A, B, C any](a A, b B, c C) Tuple3[A, B, C] {
	return Tuple3[A, B, C]{T1: a, T2: b, T3: c}
}

func (t Tuple3[A, B, C]) String() string {
	return fmt.Sprintf("[%v,%v,%v]", t.T1, t.T2, t.T3)
}
