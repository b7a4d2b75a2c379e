package malh

import (
	"sort"

	"malhdb/pkg/bits"
	"malhdb/pkg/pager"

	"github.com/bits-and-blooms/bitset"
)

// Query is a lazy, restartable partial-match scan over a relation. The
// candidate buckets are fixed at start; the cursor walks them in ascending
// bucket order, primary page first, then the overflow chain, yielding
// tuples in insertion order.
type Query struct {
	rel        *Relation
	pattern    Pattern
	candidates []PageID
	cur        int    // index into candidates
	inOvflow   bool   // whether the cursor is in the overflow chain
	ovpage     PageID // current overflow page when inOvflow
	off        uint32 // body offset of the next tuple to examine
}

// StartQuery parses a query pattern and computes the candidate bucket set:
// every bucket id consistent with the choice-vector bits that the
// pattern's known attributes determine.
func (r *Relation) StartQuery(q string) (*Query, error) {
	pattern, err := ParsePattern(q, r.nattrs)
	if err != nil {
		return nil, err
	}
	// Classify each combined-hash bit as known (value forced by a literal
	// attribute) or unknown (fed by a wildcard attribute).
	known := bitset.New(MAXCHVEC)
	var knownVal uint32
	hashes := make([]uint32, r.nattrs)
	hashed := make([]bool, r.nattrs)
	for i, item := range r.cv {
		if pattern[item.Attr] == Wildcard {
			continue
		}
		if !hashed[item.Attr] {
			hashes[item.Attr] = HashAttr(pattern[item.Attr])
			hashed[item.Attr] = true
		}
		known.Set(uint(i))
		if bits.IsSet(hashes[item.Attr], uint(item.Bit)) {
			knownVal = bits.Set(knownVal, uint(i))
		}
	}
	return &Query{
		rel:        r,
		pattern:    pattern,
		candidates: enumerateCandidates(known, knownVal, r.depth, r.sp),
	}, nil
}

// enumerateCandidates expands the unknown bits among the low depth address
// bits into base bucket ids, then applies the split-pointer correction:
// buckets below sp were split this round, so bit depth distinguishes the
// old and new halves; buckets at or past sp are a single candidate.
func enumerateCandidates(known *bitset.BitSet, knownVal uint32, depth uint32, sp uint32) []PageID {
	d := uint(depth)
	var unknownPos []uint
	for j := uint(0); j < d; j++ {
		if !known.Test(j) {
			unknownPos = append(unknownPos, j)
		}
	}
	base := bits.Low(knownVal, d)
	combos := uint32(1) << len(unknownPos)
	var candidates []PageID
	for m := uint32(0); m < combos; m++ {
		b := base
		for k, pos := range unknownPos {
			if bits.IsSet(m, uint(k)) {
				b = bits.Set(b, pos)
			}
		}
		switch {
		case b >= sp:
			candidates = append(candidates, PageID(b))
		case known.Test(d):
			if bits.IsSet(knownVal, d) {
				b = bits.Set(b, d)
			}
			candidates = append(candidates, PageID(b))
		default:
			candidates = append(candidates, PageID(b), PageID(bits.Set(b, d)))
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })
	return candidates
}

// Candidates returns the bucket ids the scan will visit, ascending.
func (q *Query) Candidates() []PageID {
	return q.candidates
}

// Next returns the next tuple matching the pattern, or ok == false at the
// end of the scan.
func (q *Query) Next() (t Tuple, ok bool, err error) {
	for q.cur < len(q.candidates) {
		var p *pager.Pager
		var pid PageID
		if q.inOvflow {
			p, pid = q.rel.ovflow, q.ovpage
		} else {
			p, pid = q.rel.data, q.candidates[q.cur]
		}
		pg, err := p.GetPage(int64(pid))
		if err != nil {
			return nil, false, err
		}
		for {
			raw, next, more := nextTupleAt(pg, q.off)
			if !more {
				break
			}
			q.off = next
			t, err := ParseTuple(raw, q.rel.nattrs)
			if err != nil {
				p.PutPage(pg)
				return nil, false, err
			}
			if q.pattern.Matches(t) {
				if err := p.PutPage(pg); err != nil {
					return nil, false, err
				}
				return t, true, nil
			}
		}
		// End of page: follow the overflow chain, then move to the next
		// candidate bucket.
		ov := pageOvflow(pg)
		if err := p.PutPage(pg); err != nil {
			return nil, false, err
		}
		q.off = 0
		if ov != NoPage {
			q.inOvflow = true
			q.ovpage = ov
		} else {
			q.inOvflow = false
			q.cur++
		}
	}
	return nil, false, nil
}

// Close releases the query. The cursor holds no pages between Next calls,
// so there is nothing to unpin.
func (q *Query) Close() {}
