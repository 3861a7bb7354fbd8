// Package logfields defines the canonical slog attribute keys used across the
// scratch packages.
package logfields

import (
	"log/slog"
	"time"
)

const (
	KeyDepot     = "depot"
	KeySpace     = "space"
	KeyPath      = "path"
	KeyOwner     = "owner"
	KeyTrackedBy = "tracked_by"
	KeyManifest  = "manifest"
	KeyReason    = "reason"
	KeyCount     = "count"
	KeyDuration  = "duration_ms"
	KeyError     = "error"
)

func Depot(p string) slog.Attr { return slog.String(KeyDepot, p) }
func Space(id string) slog.Attr { return slog.String(KeySpace, id) }
func Path(p string) slog.Attr { return slog.String(KeyPath, p) }
func Owner(o string) slog.Attr { return slog.String(KeyOwner, o) }
func TrackedBy(t string) slog.Attr { return slog.String(KeyTrackedBy, t) }
func Manifest(p string) slog.Attr { return slog.String(KeyManifest, p) }
func Reason(r string) slog.Attr { return slog.String(KeyReason, r) }
func Count(n int) slog.Attr { return slog.Int(KeyCount, n) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDuration, float64(d.Microseconds())/1000.0)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
