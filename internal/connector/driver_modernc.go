//go:build !mattn

package connector

// Default driver: modernc.org/sqlite (pure Go, no CGO).
import _ "modernc.org/sqlite"

const driverName = "sqlite"
