//go:build mattn

package connector

// CGO driver: github.com/mattn/go-sqlite3, selected with -tags mattn.
import _ "github.com/mattn/go-sqlite3"

const driverName = "sqlite3"
