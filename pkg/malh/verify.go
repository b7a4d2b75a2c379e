package malh

import (
	"fmt"

	"malhdb/pkg/bits"
)

// Check verifies the linear-hash invariants of an open relation: the page
// count matches 2^depth + sp, the split pointer is in range, and every
// stored tuple lives in the bucket its combined hash addresses.
func Check(r *Relation) error {
	if r.sp >= 1<<r.depth {
		return fmt.Errorf("split pointer %d out of range at depth %d", r.sp, r.depth)
	}
	if r.npages != 1<<r.depth+r.sp {
		return fmt.Errorf("npages is %d, expected 2^%d + %d", r.npages, r.depth, r.sp)
	}
	for pid := uint32(0); pid < r.npages; pid++ {
		if err := r.checkBucket(PageID(pid)); err != nil {
			return err
		}
	}
	return nil
}

// checkBucket walks one bucket's chain and rehashes every tuple.
func (r *Relation) checkBucket(pid PageID) error {
	pg, err := r.data.GetPage(int64(pid))
	if err != nil {
		return err
	}
	tuples := pageTuples(pg)
	ovid := pageOvflow(pg)
	if err := r.data.PutPage(pg); err != nil {
		return err
	}
	for ovid != NoPage {
		ovpg, err := r.ovflow.GetPage(int64(ovid))
		if err != nil {
			return err
		}
		tuples = append(tuples, pageTuples(ovpg)...)
		ovid = pageOvflow(ovpg)
		if err := r.ovflow.PutPage(ovpg); err != nil {
			return err
		}
	}
	for _, raw := range tuples {
		t, err := ParseTuple(raw, r.nattrs)
		if err != nil {
			return fmt.Errorf("bucket %d holds corrupt tuple %q: %w", pid, raw, err)
		}
		if home := r.bucketOf(t.Hash(r.cv)); home != pid {
			return fmt.Errorf("tuple %q (hash %s) stored in bucket %d, addressed to %d",
				raw, bits.String(t.Hash(r.cv)), pid, home)
		}
	}
	return nil
}
