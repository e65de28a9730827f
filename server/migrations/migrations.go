// Package migrations содержит SQL-миграции схемы, встроенные в бинарник.
// Для каждого диалекта свой каталог: postgres и sqlite.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
