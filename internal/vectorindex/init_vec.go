//go:build sqlite_vec && cgo

package vectorindex

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func init() {
	// Registers sqlite-vec as an auto-loadable extension against
	// mattn/go-sqlite3's CGO driver. Only takes effect when the storage
	// layer was opened with storage.DriverMattn; the pure-Go modernc
	// driver never sees this extension and SQLiteVecIndex is unusable
	// with it.
	vec.Auto()
}
