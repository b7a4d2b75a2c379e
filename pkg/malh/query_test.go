package malh_test

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"malhdb/pkg/bits"
	"malhdb/pkg/malh"
)

// interleavedChVec alternates combined-hash bits between attribute 0 (even
// positions) and attribute 1 (odd positions).
func interleavedChVec() string {
	parts := make([]string, 32)
	for i := range parts {
		parts[i] = fmt.Sprintf("%d:%d", i%2, i/2)
	}
	return strings.Join(parts, ",")
}

func candidateIDs(t *testing.T, rel *malh.Relation, pattern string) []uint32 {
	t.Helper()
	q, err := rel.StartQuery(pattern)
	if err != nil {
		t.Fatal("Failed to start query:", err)
	}
	defer q.Close()
	var ids []uint32
	for _, pid := range q.Candidates() {
		ids = append(ids, uint32(pid))
	}
	return ids
}

func TestSelectWildcardAndPartial(t *testing.T) {
	rel := setupRelation(t, 2, 1, 0, attrChVec(0))
	defer rel.Close()
	for _, tup := range []string{"x,1", "y,2"} {
		if _, err := rel.Insert(tup); err != nil {
			t.Fatal(err)
		}
	}
	got := scanAll(t, rel)
	if len(got) != 2 || got["x,1"] != 1 || got["y,2"] != 1 {
		t.Errorf("all-wildcard scan returned %v", got)
	}

	q, err := rel.StartQuery("x,?")
	if err != nil {
		t.Fatal(err)
	}
	defer q.Close()
	tup, ok, err := q.Next()
	if err != nil || !ok || tup.String() != "x,1" {
		t.Fatalf("select x,? returned %q (ok=%v, err=%v)", tup.String(), ok, err)
	}
	if _, ok, _ = q.Next(); ok {
		t.Error("select x,? returned more than one tuple")
	}
}

func TestCandidatesAllWildcard(t *testing.T) {
	rel := setupRelation(t, 2, 4, 2, interleavedChVec())
	defer rel.Close()
	ids := candidateIDs(t, rel, "?,?")
	if len(ids) != 4 {
		t.Fatalf("all-wildcard candidates = %v, want all 4 buckets", ids)
	}
	if !sort.SliceIsSorted(ids, func(i, j int) bool { return ids[i] < ids[j] }) {
		t.Error("candidates are not in ascending bucket order")
	}
}

func TestCandidatesHalfKnown(t *testing.T) {
	// At depth 2 with even bits from attribute 0, a pattern fixing only
	// attribute 0 knows bit 0 but not bit 1: exactly two candidates, with
	// the known bit matching attribute 0's hash.
	rel := setupRelation(t, 2, 4, 2, interleavedChVec())
	defer rel.Close()

	val := valsWithHash(t, 1, func(h uint32) bool { return !bits.IsSet(h, 0) })[0]
	ids := candidateIDs(t, rel, val+",?")
	if len(ids) != 2 || ids[0] != 0b00 || ids[1] != 0b10 {
		t.Errorf("candidates for known bit0=0 are %v, want [0 2]", ids)
	}

	val = valsWithHash(t, 1, func(h uint32) bool { return bits.IsSet(h, 0) })[0]
	ids = candidateIDs(t, rel, val+",?")
	if len(ids) != 2 || ids[0] != 0b01 || ids[1] != 0b11 {
		t.Errorf("candidates for known bit0=1 are %v, want [1 3]", ids)
	}
}

func TestCandidatesAllKnown(t *testing.T) {
	// With every bit known, exactly one bucket is visited.
	rel := setupRelation(t, 2, 4, 2, interleavedChVec())
	defer rel.Close()
	ids := candidateIDs(t, rel, "alpha,beta")
	if len(ids) != 1 {
		t.Fatalf("all-known candidates = %v, want exactly one bucket", ids)
	}
	tup, _ := malh.ParseTuple("alpha,beta", 2)
	want := bits.Low(tup.Hash(rel.ChoiceVector()), 2)
	if ids[0] != want {
		t.Errorf("candidate %d, want %d", ids[0], want)
	}
}

// splitOnce drives a relation through exactly one split so sp moves to 1.
func splitOnce(t *testing.T, rel *malh.Relation) {
	t.Helper()
	capacity := int(rel.Capacity())
	for i := 0; i < capacity; i++ {
		if _, err := rel.Insert(fmt.Sprintf("w%d,u%d", i, i)); err != nil {
			t.Fatal(err)
		}
	}
	if rel.SplitPointer() != 1 {
		t.Fatalf("split pointer = %d after one split, want 1", rel.SplitPointer())
	}
}

func TestCandidatesSplitPointerCorrection(t *testing.T) {
	// Depth 1, two buckets; one split moves sp to 1 and adds bucket 2.
	rel := setupRelation(t, 2, 2, 1, interleavedChVec())
	defer rel.Close()
	splitOnce(t, rel)
	if rel.Depth() != 1 || rel.NPages() != 3 {
		t.Fatalf("after one split: d=%d npages=%d, want d=1 npages=3", rel.Depth(), rel.NPages())
	}

	// All bits unknown: every bucket is a candidate.
	ids := candidateIDs(t, rel, "?,?")
	if len(ids) != 3 || ids[0] != 0 || ids[1] != 1 || ids[2] != 2 {
		t.Errorf("all-wildcard candidates = %v, want [0 1 2]", ids)
	}

	// Bit 0 known as 0: base bucket 0 is below sp, and bit 1 (fed by the
	// wildcard attribute) forks it into buckets 0 and 2.
	val := valsWithHash(t, 1, func(h uint32) bool { return !bits.IsSet(h, 0) })[0]
	ids = candidateIDs(t, rel, val+",?")
	if len(ids) != 2 || ids[0] != 0 || ids[1] != 2 {
		t.Errorf("candidates for split bucket = %v, want [0 2]", ids)
	}

	// Bit 0 known as 1: bucket 1 is at the split pointer, still unsplit,
	// and must be visited as a single candidate.
	val = valsWithHash(t, 1, func(h uint32) bool { return bits.IsSet(h, 0) })[0]
	ids = candidateIDs(t, rel, val+",?")
	if len(ids) != 1 || ids[0] != 1 {
		t.Errorf("candidates for unsplit bucket = %v, want [1]", ids)
	}
}

func TestPartialMatchSoundAndComplete(t *testing.T) {
	rel := setupRelation(t, 2, 1, 0, interleavedChVec())
	defer rel.Close()

	inserted := make([]string, 0, 600)
	for i := 0; i < 600; i++ {
		tup := fmt.Sprintf("g%d,h%d", i%17, i)
		if _, err := rel.Insert(tup); err != nil {
			t.Fatal(err)
		}
		inserted = append(inserted, tup)
	}
	if rel.Depth() == 0 {
		t.Fatal("workload did not trigger any split")
	}

	for _, pattern := range []string{"g3,?", "?,h123", "g5,h5", "?,?"} {
		p, err := malh.ParsePattern(pattern, 2)
		if err != nil {
			t.Fatal(err)
		}
		want := make(map[string]int)
		for _, raw := range inserted {
			tup, _ := malh.ParseTuple(raw, 2)
			if p.Matches(tup) {
				want[raw]++
			}
		}
		q, err := rel.StartQuery(pattern)
		if err != nil {
			t.Fatal(err)
		}
		got := make(map[string]int)
		for {
			tup, ok, err := q.Next()
			if err != nil {
				t.Fatal(err)
			}
			if !ok {
				break
			}
			got[tup.String()]++
		}
		q.Close()
		if len(got) != len(want) {
			t.Errorf("pattern %q matched %d distinct tuples, want %d", pattern, len(got), len(want))
			continue
		}
		for raw, n := range want {
			if got[raw] != n {
				t.Errorf("pattern %q: tuple %q returned %d times, want %d", pattern, raw, got[raw], n)
			}
		}
	}
}

func TestQueryRejectsBadPatterns(t *testing.T) {
	rel := setupRelation(t, 2, 1, 0, attrChVec(0))
	defer rel.Close()
	for _, bad := range []string{"a", "a,b,c", "a,", "?x,b"} {
		if _, err := rel.StartQuery(bad); err == nil {
			t.Errorf("expected an error for pattern %q", bad)
		}
	}
}
