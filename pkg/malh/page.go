package malh

import (
	"bytes"
	"encoding/binary"

	"malhdb/pkg/pager"
)

// Tuple pages are raw pager pages interpreted through the helpers below.
// Layout: ntuples | free offset | overflow link | body. The body is a
// back-to-back stream of NUL-terminated tuple strings; the unused tail is
// zero, so a zero-length string marks the end of data.

func readCount(pg *pager.Page, offset int64) uint32 {
	return binary.LittleEndian.Uint32(pg.GetData()[offset : offset+COUNT_SIZE])
}

func writeCount(pg *pager.Page, offset int64, val uint32) {
	var buf [COUNT_SIZE]byte
	binary.LittleEndian.PutUint32(buf[:], val)
	pg.Update(buf[:], offset, COUNT_SIZE)
}

// pageNTuples returns the number of tuples stored in the page.
func pageNTuples(pg *pager.Page) uint32 {
	return readCount(pg, NTUPLES_OFFSET)
}

// pageFreeOffset returns the byte offset within the body where the next
// tuple would be placed.
func pageFreeOffset(pg *pager.Page) uint32 {
	return readCount(pg, FREE_OFFSET)
}

// pageFreeSpace returns the number of unused body bytes.
func pageFreeSpace(pg *pager.Page) uint32 {
	return uint32(PAGE_BODY_SIZE) - pageFreeOffset(pg)
}

// pageOvflow returns the page's overflow link, NoPage if none.
func pageOvflow(pg *pager.Page) PageID {
	return PageID(readCount(pg, OVFLOW_OFFSET))
}

// pageSetOvflow sets the page's overflow link.
func pageSetOvflow(pg *pager.Page, id PageID) {
	writeCount(pg, OVFLOW_OFFSET, uint32(id))
}

// initPage formats pg as an empty tuple page with the given overflow link.
// The body is zeroed so the end-of-data sentinel holds.
func initPage(pg *pager.Page, ovflow PageID) {
	zeros := make([]byte, PAGE_BODY_SIZE)
	pg.Update(zeros, PAGE_HEADER_SIZE, PAGE_BODY_SIZE)
	writeCount(pg, NTUPLES_OFFSET, 0)
	writeCount(pg, FREE_OFFSET, 0)
	pageSetOvflow(pg, ovflow)
}

// addPage appends an empty tuple page to the pager's file and returns its
// id. The new page is flushed and released before returning.
func addPage(p *pager.Pager) (PageID, error) {
	pg, err := p.GetNewPage()
	if err != nil {
		return NoPage, err
	}
	initPage(pg, NoPage)
	p.FlushPage(pg)
	if err := p.PutPage(pg); err != nil {
		return NoPage, err
	}
	return PageID(pg.GetPageNum()), nil
}

// addToPage appends tup and its NUL terminator to the page body if it
// fits, updating the tuple count and free offset. Reports false (leaving
// the page unchanged) when there is not enough space.
func addToPage(pg *pager.Page, tup string) bool {
	free := pageFreeOffset(pg)
	need := int64(len(tup)) + 1
	if int64(free)+need > PAGE_BODY_SIZE {
		return false
	}
	data := append([]byte(tup), 0)
	pg.Update(data, PAGE_HEADER_SIZE+int64(free), need)
	writeCount(pg, FREE_OFFSET, free+uint32(need))
	writeCount(pg, NTUPLES_OFFSET, pageNTuples(pg)+1)
	return true
}

// nextTupleAt returns the NUL-terminated tuple starting at off in the
// page's body and the offset just past its terminator. Reports false at
// the end-of-data sentinel.
func nextTupleAt(pg *pager.Page, off uint32) (string, uint32, bool) {
	body := pg.GetData()[PAGE_HEADER_SIZE:PAGESIZE]
	if int64(off) >= PAGE_BODY_SIZE || body[off] == 0 {
		return "", off, false
	}
	end := bytes.IndexByte(body[off:], 0)
	if end < 0 {
		return "", off, false
	}
	return string(body[off : int(off)+end]), off + uint32(end) + 1, true
}

// pageTuples returns all tuples stored in the page, in insertion order.
func pageTuples(pg *pager.Page) []string {
	var tuples []string
	off := uint32(0)
	for {
		tup, next, ok := nextTupleAt(pg, off)
		if !ok {
			return tuples
		}
		tuples = append(tuples, tup)
		off = next
	}
}
