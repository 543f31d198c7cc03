package degrade

import (
	"reflect"

	"github.com/kailas-cloud/holdex/internal/domain/level"
)

// Default truncation limits.
const (
	DefaultReducedLimit = 100
	DefaultMinimalLimit = 20
)

// StaticResponse replaces every payload at static_only.
type StaticResponse struct {
	Data     string `json:"data"`
	Degraded bool   `json:"degraded"`
	Message  string `json:"message"`
}

// Sentinel is the payload served at static_only.
var Sentinel = StaticResponse{
	Data:     "static_response",
	Degraded: true,
	Message:  "Service limit reached, showing cached data",
}

// Option configures a Degrader.
type Option func(*Degrader)

// WithLimits overrides the slice limits for reduced and minimal levels.
// Non-positive values keep the defaults.
func WithLimits(reduced, minimal int) Option {
	return func(d *Degrader) {
		if reduced > 0 {
			d.reduced = reduced
		}
		if minimal > 0 {
			d.minimal = minimal
		}
	}
}

// Degrader shrinks payloads according to the service level.
// It is a pure function of (payload, level).
type Degrader struct {
	reduced int
	minimal int
}

// New creates a Degrader.
func New(opts ...Option) *Degrader {
	d := &Degrader{reduced: DefaultReducedLimit, minimal: DefaultMinimalLimit}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Degrade shapes resp for lvl. Slices and arrays are truncated at reduced and
// minimal; other values pass through. static_only discards resp.
func (d *Degrader) Degrade(resp any, lvl level.Level) any {
	switch lvl {
	case level.Normal:
		return resp
	case level.Reduced:
		return truncate(resp, d.reduced)
	case level.Minimal:
		return truncate(resp, d.minimal)
	default:
		return Sentinel
	}
}

func truncate(resp any, n int) any {
	if resp == nil {
		return nil
	}
	v := reflect.ValueOf(resp)
	switch v.Kind() {
	case reflect.Slice:
		if v.Len() <= n {
			return resp
		}
		return v.Slice(0, n).Interface()
	case reflect.Array:
		if v.Len() <= n {
			return resp
		}
		out := reflect.MakeSlice(reflect.SliceOf(v.Type().Elem()), n, n)
		reflect.Copy(out, v)
		return out.Interface()
	default:
		return resp
	}
}
