package variant

// Fixed-arity tuples. Fields are exported so that Clone copies every element and
// bus encoders see them as structs.

// Tuple1 holds 1 value
type Tuple1[A any] struct {
	V1 A
}

// NewTuple1 builds a Tuple1
func NewTuple1[A any](v1 A) Tuple1[A] {
	return Tuple1[A]{V1: v1}
}

// Tuple2 holds 2 values
type Tuple2[A, B any] struct {
	V1 A
	V2 B
}

// NewTuple2 builds a Tuple2
func NewTuple2[A, B any](v1 A, v2 B) Tuple2[A, B] {
	return Tuple2[A, B]{V1: v1, V2: v2}
}

// Tuple3 holds 3 values
type Tuple3[A, B, C any] struct {
	V1 A
	V2 B
	V3 C
}

// NewTuple3 builds a Tuple3
func NewTuple3[A, B, C any](v1 A, v2 B, v3 C) Tuple3[A, B, C] {
	return Tuple3[A, B, C]{V1: v1, V2: v2, V3: v3}
}

// Tuple4 holds 4 values
type Tuple4[A, B, C, D any] struct {
	V1 A
	V2 B
	V3 C
	V4 D
}

// NewTuple4 builds a Tuple4
func NewTuple4[A, B, C, D any](v1 A, v2 B, v3 C, v4 D) Tuple4[A, B, C, D] {
	return Tuple4[A, B, C, D]{V1: v1, V2: v2, V3: v3, V4: v4}
}

// Tuple5 holds 5 values
type Tuple5[A, B, C, D, E any] struct {
	V1 A
	V2 B
	V3 C
	V4 D
	V5 E
}

// NewTuple5 builds a Tuple5
func NewTuple5[A, B, C, D, E any](v1 A, v2 B, v3 C, v4 D, v5 E) Tuple5[A, B, C, D, E] {
	return Tuple5[A, B, C, D, E]{V1: v1, V2: v2, V3: v3, V4: v4, V5: v5}
}

// Tuple6 holds 6 values
type Tuple6[A, B, C, D, E, F any] struct {
	V1 A
	V2 B
	V3 C
	V4 D
	V5 E
	V6 F
}

// NewTuple6 builds a Tuple6
func NewTuple6[A, B, C, D, E, F any](v1 A, v2 B, v3 C, v4 D, v5 E, v6 F) Tuple6[A, B, C, D, E, F] {
	return Tuple6[A, B, C, D, E, F]{V1: v1, V2: v2, V3: v3, V4: v4, V5: v5, V6: v6}
}

// Tuple7 holds 7 values
type Tuple7[A, B, C, D, E, F, G any] struct {
	V1 A
	V2 B
	V3 C
	V4 D
	V5 E
	V6 F
	V7 G
}

// NewTuple7 builds a Tuple7
func NewTuple7[A, B, C, D, E, F, G any](v1 A, v2 B, v3 C, v4 D, v5 E, v6 F, v7 G) Tuple7[A, B, C, D, E, F, G] {
	return Tuple7[A, B, C, D, E, F, G]{V1: v1, V2: v2, V3: v3, V4: v4, V5: v5, V6: v6, V7: v7}
}

// Tuple8 holds 8 values
type Tuple8[A, B, C, D, E, F, G, H any] struct {
	V1 A
	V2 B
	V3 C
	V4 D
	V5 E
	V6 F
	V7 G
	V8 H
}

// NewTuple8 builds a Tuple8
func NewTuple8[A, B, C, D, E, F, G, H any](v1 A, v2 B, v3 C, v4 D, v5 E, v6 F, v7 G, v8 H) Tuple8[A, B, C, D, E, F, G, H] {
	return Tuple8[A, B, C, D, E, F, G, H]{V1: v1, V2: v2, V3: v3, V4: v4, V5: v5, V6: v6, V7: v7, V8: v8}
}

// Tuple9 holds 9 values
type Tuple9[A, B, C, D, E, F, G, H, I any] struct {
	V1 A
	V2 B
	V3 C
	V4 D
	V5 E
	V6 F
	V7 G
	V8 H
	V9 I
}

// NewTuple9 builds a Tuple9
func NewTuple9[A, B, C, D, E, F, G, H, I any](v1 A, v2 B, v3 C, v4 D, v5 E, v6 F, v7 G, v8 H, v9 I) Tuple9[A, B, C, D, E, F, G, H, I] {
	return Tuple9[A, B, C, D, E, F, G, H, I]{V1: v1, V2: v2, V3: v3, V4: v4, V5: v5, V6: v6, V7: v7, V8: v8, V9: v9}
}

// Tuple10 holds 10 values
type Tuple10[A, B, C, D, E, F, G, H, I, J any] struct {
	V1  A
	V2  B
	V3  C
	V4  D
	V5  E
	V6  F
	V7  G
	V8  H
	V9  I
	V10 J
}

// NewTuple10 builds a Tuple10
func NewTuple10[A, B, C, D, E, F, G, H, I, J any](v1 A, v2 B, v3 C, v4 D, v5 E, v6 F, v7 G, v8 H, v9 I, v10 J) Tuple10[A, B, C, D, E, F, G, H, I, J] {
	return Tuple10[A, B, C, D, E, F, G, H, I, J]{V1: v1, V2: v2, V3: v3, V4: v4, V5: v5, V6: v6, V7: v7, V8: v8, V9: v9, V10: v10}
}

// Tuple11 holds 11 values
type Tuple11[A, B, C, D, E, F, G, H, I, J, K any] struct {
	V1  A
	V2  B
	V3  C
	V4  D
	V5  E
	V6  F
	V7  G
	V8  H
	V9  I
	V10 J
	V11 K
}

// NewTuple11 builds a Tuple11
func NewTuple11[A, B, C, D, E, F, G, H, I, J, K any](v1 A, v2 B, v3 C, v4 D, v5 E, v6 F, v7 G, v8 H, v9 I, v10 J, v11 K) Tuple11[A, B, C, D, E, F, G, H, I, J, K] {
	return Tuple11[A, B, C, D, E, F, G, H, I, J, K]{V1: v1, V2: v2, V3: v3, V4: v4, V5: v5, V6: v6, V7: v7, V8: v8, V9: v9, V10: v10, V11: v11}
}

// Tuple12 holds 12 values
type Tuple12[A, B, C, D, E, F, G, H, I, J, K, L any] struct {
	V1  A
	V2  B
	V3  C
	V4  D
	V5  E
	V6  F
	V7  G
	V8  H
	V9  I
	V10 J
	V11 K
	V12 L
}

// NewTuple12 builds a Tuple12
func NewTuple12[A, B, C, D, E, F, G, H, I, J, K, L any](v1 A, v2 B, v3 C, v4 D, v5 E, v6 F, v7 G, v8 H, v9 I, v10 J, v11 K, v12 L) Tuple12[A, B, C, D, E, F, G, H, I, J, K, L] {
	return Tuple12[A, B, C, D, E, F, G, H, I, J, K, L]{V1: v1, V2: v2, V3: v3, V4: v4, V5: v5, V6: v6, V7: v7, V8: v8, V9: v9, V10: v10, V11: v11, V12: v12}
}
