// Package compiler implements the PureLisp middle-end: K-normalization,
// A-normalization, copy propagation and closure conversion.
package compiler

import "strconv"

// Prefixes for generated names. '@' cannot start a surface identifier, so
// generated names never collide with names written by the user.
const (
	TempPrefix  = "@t"
	FnPrefix    = "@fn"
	HoistPrefix = "@f"
)

// NameGenerator hands out unique names for one compilation unit.
type NameGenerator struct {
	counter int
}

// NewNameGenerator returns a generator whose counter starts at zero.
func NewNameGenerator() *NameGenerator {
	return &NameGenerator{}
}

// Next returns prefix followed by the next counter value.
func (g *NameGenerator) Next(prefix string) string {
	name := prefix + strconv.Itoa(g.counter)
	g.counter++
	return name
}
