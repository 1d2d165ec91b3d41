// Package db provides the embedded goose migrations for the order schema.
package db

import "embed"

// Migrations holds the goose SQL migrations, applied in file name order.
//
//go:embed migrations/*.sql
var Migrations embed.FS
