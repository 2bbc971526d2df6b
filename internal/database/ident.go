package database

import "strings"

// Ident is a trusted raw SQL identifier (a table, column, or view name).
//
// Identifiers cannot travel as bound parameters, so they are interpolated
// into statement text. The distinct type keeps that injection surface
// visible in signatures: never construct an Ident from end-user input.
type Ident string

// Quoted renders the identifier double-quoted with embedded quotes escaped,
// which safely handles reserved words and mixed-case names.
func (id Ident) Quoted() string {
	return `"` + strings.ReplaceAll(string(id), `"`, `""`) + `"`
}

func (id Ident) String() string {
	return string(id)
}
