package hafas

import (
	"log/slog"
	"time"

	"github.com/samirrijal/hafasgo/internal/hafas/raw"
)

// Options switches optional parts of the parsed output on or off.
type Options struct {
	Remarks       bool
	Stopovers     bool
	Polylines     bool
	ScheduledDays bool
	LinesOfStops  bool
	SubStops      bool
	Entrances     bool
}

// DefaultOptions returns the options most queries start from.
func DefaultOptions() Options {
	return Options{Remarks: true, SubStops: true, Entrances: true}
}

// Context is what every parser sees: the profile, the options of the
// current query and the resolved common tables of the current response.
type Context struct {
	Profile *Profile
	Opt     Options
	Common  *Common
	Res     *raw.Object
	Logger  *slog.Logger
	// Now is the clock used for relative dates, e.g. scheduled days.
	Now func() time.Time
}

// NewContext creates a parse context for one query.
func NewContext(p *Profile, opt Options) *Context {
	return &Context{
		Profile: p,
		Opt:     opt,
		Logger:  slog.Default().With("profile", p.Name),
		Now:     time.Now,
	}
}

// Links returns what the resolver attached to o. It never returns nil.
func (c *Context) Links(o *raw.Object) *Links {
	return c.Common.Links(o)
}

func (c *Context) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func (c *Context) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}
