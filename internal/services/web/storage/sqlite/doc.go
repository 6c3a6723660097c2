// Package sqlite provides the web persistence adapter backed by SQLite.
package sqlite
