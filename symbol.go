package symfile

import (
	"cmp"
	"errors"
	"slices"
)

// ErrSymbolNotFound is returned when a symbol lookup has no result.
var ErrSymbolNotFound = errors.New("symbol not found")

// Symbol A primitive representation of a symbol.
type Symbol struct {
	Name  string
	Value uint64
	Size  uint64
}

// indexSymbols indexes syms by name. Sizes not known from the symbol table
// are inferred from the address of the next symbol.
func indexSymbols(syms []Symbol) map[string]Symbol {
	slices.SortStableFunc(syms, func(a, b Symbol) int {
		return cmp.Compare(a.Value, b.Value)
	})
	m := make(map[string]Symbol, len(syms))
	for i, sym := range syms {
		if sym.Size == 0 && i+1 < len(syms) {
			sym.Size = syms[i+1].Value - sym.Value
		}
		m[sym.Name] = sym
	}
	return m
}
