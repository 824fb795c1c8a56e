package migrations

import "embed"

// Migrations holds the golang-migrate files applied by the sqlite driver.
//
//go:embed *.sql
var Migrations embed.FS
