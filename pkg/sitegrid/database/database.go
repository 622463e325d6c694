// Package database opens the relational store backing the site and
// group registries.
package database

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open connects to the store at the given path. SQLite is the default
// backend; any GORM-supported relational driver can be swapped in
// without touching the services.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return db, nil
}
