// Package malh implements a multi-attribute linear hashed file: a bucket
// oriented index over fixed-schema comma-separated tuples, addressable by
// any subset of the attributes. A relation is three files: <name>.info
// (metadata and choice vector), <name>.data (primary pages) and
// <name>.ovflow (overflow pages).
package malh

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"malhdb/pkg/bits"
	"malhdb/pkg/pager"
)

// The .info file: nattrs, depth, sp, npages, ntups, then the 32
// choice-vector entries, all fixed-width little-endian uint32.
const infoSize = 5*COUNT_SIZE + MAXCHVEC*2*COUNT_SIZE

var (
	// ErrTupleTooLarge is returned when a tuple cannot fit even in an
	// empty page.
	ErrTupleTooLarge = errors.New("tuple too large for a page")

	// ErrReadOnly is returned when inserting into a relation opened for
	// reading.
	ErrReadOnly = errors.New("relation is open read-only")
)

// Relation is an open multi-attribute linear hashed file.
type Relation struct {
	name   string // path prefix of the three files
	mode   byte   // 'r' or 'w'
	nattrs uint32 // attributes per tuple
	depth  uint32 // current file depth
	sp     uint32 // split pointer, next bucket to split
	npages uint32 // primary data pages
	ntups  uint32 // tuples inserted since creation
	cv     ChVec  // bit-interleaving rule, immutable after create
	// Inserts since the last split. Deliberately not persisted: a reopened
	// relation starts a fresh count, which keeps the trigger well defined
	// across close/reopen cycles.
	loadSinceSplit uint32
	data           *pager.Pager
	ovflow         *pager.Pager
}

func infoFileName(name string) string   { return name + ".info" }
func dataFileName(name string) string   { return name + ".data" }
func ovflowFileName(name string) string { return name + ".ovflow" }

// Exists reports whether a relation with the given name already exists.
func Exists(name string) bool {
	_, err := os.Stat(infoFileName(name))
	return err == nil
}

// Create makes a new relation: an .info file carrying the metadata and
// parsed choice vector, a .data file with npages empty primary pages, and
// an empty .ovflow file. npages must equal 2^depth so the linear-hash
// invariant holds from the start. No files are created if the choice
// vector fails to parse.
func Create(name string, nattrs uint32, npages uint32, depth uint32, cvSpec string) error {
	if nattrs == 0 {
		return errors.New("relation needs at least one attribute")
	}
	if depth >= bits.MaxBits {
		return fmt.Errorf("depth %d exceeds the hash width", depth)
	}
	if npages != 1<<depth {
		return fmt.Errorf("npages must be 2^depth (got %d pages at depth %d)", npages, depth)
	}
	if Exists(name) {
		return fmt.Errorf("relation %q already exists", name)
	}
	cv, err := ParseChVec(nattrs, cvSpec)
	if err != nil {
		return err
	}
	r := &Relation{
		name:   name,
		mode:   'w',
		nattrs: nattrs,
		depth:  depth,
		npages: npages,
		cv:     cv,
	}
	if r.data, err = pager.New(dataFileName(name)); err != nil {
		return err
	}
	if r.ovflow, err = pager.New(ovflowFileName(name)); err != nil {
		r.data.Close()
		return err
	}
	for i := uint32(0); i < npages; i++ {
		if _, err = addPage(r.data); err != nil {
			r.Close()
			return err
		}
	}
	return r.Close()
}

// Open opens an existing relation in mode 'r' or 'w'. Closing a relation
// opened in 'w' mode rewrites the .info file.
func Open(name string, mode byte) (*Relation, error) {
	if mode != 'r' && mode != 'w' {
		return nil, fmt.Errorf("invalid open mode %q", mode)
	}
	r := &Relation{name: name, mode: mode}
	if err := r.readInfo(); err != nil {
		return nil, err
	}
	var err error
	if r.data, err = pager.New(dataFileName(name)); err != nil {
		return nil, err
	}
	if r.ovflow, err = pager.New(ovflowFileName(name)); err != nil {
		r.data.Close()
		return nil, err
	}
	if uint32(r.data.GetNumPages()) != r.npages {
		r.data.Close()
		r.ovflow.Close()
		return nil, fmt.Errorf("data file has %d pages, metadata says %d",
			r.data.GetNumPages(), r.npages)
	}
	return r, nil
}

// Close flushes all pages and, in write mode, rewrites the .info file with
// the current counters. A crash before Close leaves the previously
// persisted counters intact.
func (r *Relation) Close() error {
	var err error
	if r.mode == 'w' {
		err = r.writeInfo()
	}
	if closeErr := r.data.Close(); err == nil {
		err = closeErr
	}
	if closeErr := r.ovflow.Close(); err == nil {
		err = closeErr
	}
	return err
}

// Remove deletes the three files of a relation that is not open.
func Remove(name string) error {
	if !Exists(name) {
		return fmt.Errorf("relation %q does not exist", name)
	}
	err := os.Remove(infoFileName(name))
	if dataErr := os.Remove(dataFileName(name)); err == nil {
		err = dataErr
	}
	if ovErr := os.Remove(ovflowFileName(name)); err == nil {
		err = ovErr
	}
	return err
}

func (r *Relation) writeInfo() error {
	buf := make([]byte, infoSize)
	counters := []uint32{r.nattrs, r.depth, r.sp, r.npages, r.ntups}
	for i, c := range counters {
		binary.LittleEndian.PutUint32(buf[int64(i)*COUNT_SIZE:], c)
	}
	off := int64(len(counters)) * COUNT_SIZE
	for _, item := range r.cv {
		binary.LittleEndian.PutUint32(buf[off:], item.Attr)
		binary.LittleEndian.PutUint32(buf[off+COUNT_SIZE:], item.Bit)
		off += 2 * COUNT_SIZE
	}
	return os.WriteFile(infoFileName(r.name), buf, 0666)
}

func (r *Relation) readInfo() error {
	buf, err := os.ReadFile(infoFileName(r.name))
	if err != nil {
		return err
	}
	if int64(len(buf)) != infoSize {
		return fmt.Errorf("info file is %d bytes, expected %d", len(buf), infoSize)
	}
	r.nattrs = binary.LittleEndian.Uint32(buf[0*COUNT_SIZE:])
	r.depth = binary.LittleEndian.Uint32(buf[1*COUNT_SIZE:])
	r.sp = binary.LittleEndian.Uint32(buf[2*COUNT_SIZE:])
	r.npages = binary.LittleEndian.Uint32(buf[3*COUNT_SIZE:])
	r.ntups = binary.LittleEndian.Uint32(buf[4*COUNT_SIZE:])
	off := 5 * COUNT_SIZE
	for i := range r.cv {
		r.cv[i].Attr = binary.LittleEndian.Uint32(buf[off:])
		r.cv[i].Bit = binary.LittleEndian.Uint32(buf[off+COUNT_SIZE:])
		off += 2 * COUNT_SIZE
	}
	return nil
}

// Accessors for relation metadata.

func (r *Relation) Name() string         { return r.name }
func (r *Relation) NAttrs() uint32       { return r.nattrs }
func (r *Relation) Depth() uint32        { return r.depth }
func (r *Relation) SplitPointer() uint32 { return r.sp }
func (r *Relation) NPages() uint32       { return r.npages }
func (r *Relation) NTuples() uint32      { return r.ntups }
func (r *Relation) ChoiceVector() ChVec  { return r.cv }

// Capacity is the number of insertions between splits, derived from how
// many average-sized tuples fit in a page body.
func (r *Relation) Capacity() uint32 {
	c := uint32(PAGE_BODY_SIZE) / (AVG_ATTR_BYTES * r.nattrs)
	if c == 0 {
		c = 1
	}
	return c
}

// bucketOf maps a combined hash to a primary bucket. Buckets below the
// split pointer were already split this round, so their tuples are
// re-addressed with one more bit.
func (r *Relation) bucketOf(hash uint32) PageID {
	p := bits.Low(hash, uint(r.depth))
	if p < r.sp {
		p = bits.Low(hash, uint(r.depth)+1)
	}
	return PageID(p)
}

// Insert parses and appends one tuple, returning the id of the primary
// bucket it was stored under (the tuple itself may sit on an overflow page
// of that bucket). Crossing the load threshold splits the bucket at the
// split pointer before returning.
func (r *Relation) Insert(raw string) (PageID, error) {
	if r.mode != 'w' {
		return NoPage, ErrReadOnly
	}
	t, err := ParseTuple(raw, r.nattrs)
	if err != nil {
		return NoPage, err
	}
	if int64(len(raw))+1 > PAGE_BODY_SIZE {
		return NoPage, ErrTupleTooLarge
	}
	p := r.bucketOf(t.Hash(r.cv))
	if err := r.placeTuple(p, raw); err != nil {
		return NoPage, err
	}
	r.ntups++
	r.loadSinceSplit++
	if r.loadSinceSplit >= r.Capacity() {
		r.loadSinceSplit = 0
		if err := r.split(); err != nil {
			return NoPage, err
		}
	}
	return p, nil
}

// placeTuple stores tup in bucket pid: primary page first, then along the
// overflow chain, extending the chain when every page is full. Mutated
// pages are written back before the call returns.
func (r *Relation) placeTuple(pid PageID, tup string) error {
	pg, err := r.data.GetPage(int64(pid))
	if err != nil {
		return err
	}
	if addToPage(pg, tup) {
		r.data.FlushPage(pg)
		return r.data.PutPage(pg)
	}
	if pageOvflow(pg) == NoPage {
		// First overflow page in the chain.
		ovid, err := addPage(r.ovflow)
		if err != nil {
			r.data.PutPage(pg)
			return err
		}
		pageSetOvflow(pg, ovid)
		r.data.FlushPage(pg)
		if err := r.data.PutPage(pg); err != nil {
			return err
		}
		return r.appendToOvflowPage(ovid, tup)
	}
	ovid := pageOvflow(pg)
	if err := r.data.PutPage(pg); err != nil {
		return err
	}
	// Walk the chain until a page has room; worst case, link a new page at
	// the end.
	for {
		ovpg, err := r.ovflow.GetPage(int64(ovid))
		if err != nil {
			return err
		}
		if addToPage(ovpg, tup) {
			r.ovflow.FlushPage(ovpg)
			return r.ovflow.PutPage(ovpg)
		}
		next := pageOvflow(ovpg)
		if next == NoPage {
			newid, err := addPage(r.ovflow)
			if err != nil {
				r.ovflow.PutPage(ovpg)
				return err
			}
			pageSetOvflow(ovpg, newid)
			r.ovflow.FlushPage(ovpg)
			if err := r.ovflow.PutPage(ovpg); err != nil {
				return err
			}
			return r.appendToOvflowPage(newid, tup)
		}
		if err := r.ovflow.PutPage(ovpg); err != nil {
			return err
		}
		ovid = next
	}
}

// appendToOvflowPage adds tup to a freshly created overflow page.
func (r *Relation) appendToOvflowPage(ovid PageID, tup string) error {
	ovpg, err := r.ovflow.GetPage(int64(ovid))
	if err != nil {
		return err
	}
	if !addToPage(ovpg, tup) {
		r.ovflow.PutPage(ovpg)
		return ErrTupleTooLarge
	}
	r.ovflow.FlushPage(ovpg)
	return r.ovflow.PutPage(ovpg)
}

// split redistributes bucket sp over buckets sp and sp+2^depth using one
// more address bit, then advances the linear-hash state. Reinsertions do
// not touch the tuple counter, so a split never nests.
func (r *Relation) split() error {
	oldp := PageID(r.sp)
	newp := PageID(r.sp + 1<<r.depth)
	// Materialise the new primary page.
	id, err := addPage(r.data)
	if err != nil {
		return err
	}
	if uint32(id) != r.npages {
		return fmt.Errorf("data file out of step with metadata: new page %d, expected %d", id, r.npages)
	}
	// Capture the old bucket's tuples and reset its pages in place,
	// preserving the chain links so redistribution can reuse them.
	var tuples []string
	pg, err := r.data.GetPage(int64(oldp))
	if err != nil {
		return err
	}
	tuples = append(tuples, pageTuples(pg)...)
	ovid := pageOvflow(pg)
	initPage(pg, ovid)
	r.data.FlushPage(pg)
	if err := r.data.PutPage(pg); err != nil {
		return err
	}
	for ovid != NoPage {
		ovpg, err := r.ovflow.GetPage(int64(ovid))
		if err != nil {
			return err
		}
		tuples = append(tuples, pageTuples(ovpg)...)
		next := pageOvflow(ovpg)
		initPage(ovpg, next)
		r.ovflow.FlushPage(ovpg)
		if err := r.ovflow.PutPage(ovpg); err != nil {
			return err
		}
		ovid = next
	}
	// Redistribute with depth+1 address bits. Every tuple lands in oldp or
	// newp by construction.
	for _, tup := range tuples {
		t, err := ParseTuple(tup, r.nattrs)
		if err != nil {
			return fmt.Errorf("corrupt tuple %q in bucket %d: %w", tup, oldp, err)
		}
		p := PageID(bits.Low(t.Hash(r.cv), uint(r.depth)+1))
		if p != oldp && p != newp {
			return fmt.Errorf("tuple %q rehashed to bucket %d during split of %d", tup, p, oldp)
		}
		if err := r.placeTuple(p, tup); err != nil {
			return err
		}
	}
	r.npages++
	r.sp++
	if r.sp == 1<<r.depth {
		r.sp = 0
		r.depth++
	}
	return nil
}

// Stats writes the relation's global counters, choice vector and
// per-bucket chain fill to w.
func (r *Relation) Stats(w io.Writer) error {
	fmt.Fprintf(w, "Global Info:\n")
	fmt.Fprintf(w, "#attrs:%d  #pages:%d  #tuples:%d  d:%d  sp:%d\n",
		r.nattrs, r.npages, r.ntups, r.depth, r.sp)
	fmt.Fprintf(w, "Choice vector: %s\n", r.cv)
	fmt.Fprintf(w, "Bucket Info:\n")
	fmt.Fprintf(w, "%-4s %s\n", "#", "Info on pages in bucket")
	fmt.Fprintf(w, "%-4s %s\n", "", "(pageID,#tuples,freebytes,ovflow)")
	for pid := uint32(0); pid < r.npages; pid++ {
		fmt.Fprintf(w, "[%2d]  ", pid)
		pg, err := r.data.GetPage(int64(pid))
		if err != nil {
			return err
		}
		ovid := pageOvflow(pg)
		fmt.Fprintf(w, "(d%d,%d,%d,%s)", pid, pageNTuples(pg), pageFreeSpace(pg), ovflowString(ovid))
		if err := r.data.PutPage(pg); err != nil {
			return err
		}
		for ovid != NoPage {
			curid := ovid
			ovpg, err := r.ovflow.GetPage(int64(ovid))
			if err != nil {
				return err
			}
			ovid = pageOvflow(ovpg)
			fmt.Fprintf(w, " -> (ov%d,%d,%d,%s)", curid, pageNTuples(ovpg), pageFreeSpace(ovpg), ovflowString(ovid))
			if err := r.ovflow.PutPage(ovpg); err != nil {
				return err
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}

func ovflowString(id PageID) string {
	if id == NoPage {
		return "-"
	}
	return fmt.Sprintf("%d", id)
}
