// Package migrations содержит SQL-схему API, встроенную в бинарник.
package migrations

import "embed"

// Files — все .sql этой директории; применяются в лексикографическом порядке (001, 002, ...).
//
//go:embed *.sql
var Files embed.FS
