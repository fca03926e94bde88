package hafas

import (
	"github.com/samirrijal/hafasgo/internal/core/domain"
	"github.com/samirrijal/hafasgo/internal/hafas/raw"
)

type remarkRef struct {
	remark *domain.Remark
	ref    *raw.Object
}

// findRemarks pairs each message reference with the warning or hint it points at.
func findRemarks(ctx *Context, refs []*raw.Object) []remarkRef {
	var out []remarkRef
	for _, ref := range refs {
		l := ctx.Links(ref)
		r := l.Warning
		if r == nil {
			r = l.Hint
		}
		if r != nil {
			out = append(out, remarkRef{remark: r, ref: ref})
		}
	}
	return out
}

func remarksOf(ctx *Context, refs []*raw.Object) []*domain.Remark {
	found := findRemarks(ctx, refs)
	if len(found) == 0 {
		return nil
	}
	out := make([]*domain.Remark, len(found))
	for i, f := range found {
		out[i] = f.remark
	}
	return out
}

// AttributeRemarks attaches each referenced remark to leg according to its
// from/to stop range. A range covering every stopover attaches to the leg
// itself; a narrower range puts a copy on each stopover inside it. A remark
// whose range stop is not among the stopovers is skipped.
// leg.Stopovers must still include pass-by stops.
func AttributeRemarks(ctx *Context, leg *domain.Leg, refs []*raw.Object) {
	for _, f := range findRemarks(ctx, refs) {
		l := ctx.Links(f.ref)

		from, to := 0, len(leg.Stopovers)-1
		if l.FromLocation != nil {
			if from = stopoverIndex(leg.Stopovers, l.FromLocation); from < 0 {
				continue
			}
		}
		if l.ToLocation != nil {
			if to = stopoverIndex(leg.Stopovers, l.ToLocation); to < 0 {
				continue
			}
		}

		if from == 0 && to == len(leg.Stopovers)-1 {
			leg.Remarks = append(leg.Remarks, f.remark)
			continue
		}
		for i := from; i <= to; i++ {
			if st := leg.Stopovers[i]; st != nil {
				cp := *f.remark
				st.Remarks = append(st.Remarks, &cp)
			}
		}
	}
}

func stopoverIndex(stopovers []*domain.Stopover, stop *domain.Location) int {
	for i, st := range stopovers {
		if st != nil && sameStop(st.Stop, stop) {
			return i
		}
	}
	return -1
}

// sameStop compares by identity, falling back to the ID for stops parsed
// outside the common table.
func sameStop(a, b *domain.Location) bool {
	if a == nil || b == nil {
		return false
	}
	if a == b {
		return true
	}
	return a.ID != "" && a.ID == b.ID && a.Kind == b.Kind
}
