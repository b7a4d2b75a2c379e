// Package pager implements whole-page io over a single file through a
// fixed-size buffer of aligned frames. Pages are acquired with GetPage /
// GetNewPage, released with PutPage, and written back on eviction, flush,
// or close. The engine is single-threaded, so the pager does no locking.
package pager

import (
	"errors"
	"io"
	"os"
	"strings"

	"malhdb/pkg/config"
	"malhdb/pkg/list"

	"github.com/ncw/directio"
)

// PageSize is the size in bytes of an individual page.
const PageSize int64 = directio.BlockSize

// ErrRanOutOfPages is returned when every frame in the buffer is pinned.
var ErrRanOutOfPages = errors.New("no available pages")

// Pager manages the pages of one file.
type Pager struct {
	file         *os.File   // handle on the backing file
	numPages     int64      // pages in the file plus new ones not yet flushed
	freeList     *list.List // frames never used since startup
	unpinnedList *list.List // frames holding pages with no active references
	pinnedList   *list.List // frames holding pages currently in use
	// Maps pagenums to the link (in one of the lists) holding their page.
	pageTable map[int64]*list.Link
}

// New constructs a Pager backed by the file at filePath, creating the file
// if it does not exist.
func New(filePath string) (*Pager, error) {
	pager := &Pager{
		freeList:     list.NewList(),
		unpinnedList: list.NewList(),
		pinnedList:   list.NewList(),
		pageTable:    make(map[int64]*list.Link),
	}
	frames := directio.AlignedBlock(int(PageSize * config.MaxPagesInBuffer))
	for i := 0; i < config.MaxPagesInBuffer; i++ {
		page := Page{
			pager:   pager,
			pagenum: NoPage,
			data:    frames[i*int(PageSize) : (i+1)*int(PageSize)],
		}
		pager.freeList.PushTail(&page)
	}
	if err := pager.open(filePath); err != nil {
		return nil, err
	}
	return pager, nil
}

// open points the pager at the file at filePath. The file must be empty or
// page-aligned.
func (pager *Pager) open(filePath string) (err error) {
	if idx := strings.LastIndex(filePath, "/"); idx != -1 {
		if err = os.MkdirAll(filePath[:idx], 0775); err != nil {
			return err
		}
	}
	pager.file, err = directio.OpenFile(filePath, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return err
	}
	info, err := pager.file.Stat()
	if err != nil {
		return err
	}
	if info.Size()%PageSize != 0 {
		return errors.New("file is not aligned to the page size")
	}
	pager.numPages = info.Size() / PageSize
	return nil
}

// GetFileName returns the path of the pager's backing file.
func (pager *Pager) GetFileName() string {
	return pager.file.Name()
}

// GetNumPages returns the number of pages the pager has access to.
func (pager *Pager) GetNumPages() int64 {
	return pager.numPages
}

// GetFreePN returns the pagenum the next new page will get.
func (pager *Pager) GetFreePN() int64 {
	return pager.numPages
}

// Close flushes all dirty pages and closes the backing file. It is an error
// to close a pager while pages are still pinned.
func (pager *Pager) Close() error {
	if pager.pinnedList.PeekHead() != nil {
		return errors.New("pages are still pinned on close")
	}
	pager.FlushAllPages()
	return pager.file.Close()
}

// fillPageFromDisk populates a frame with the page's bytes on disk.
func (pager *Pager) fillPageFromDisk(page *Page) error {
	if _, err := pager.file.Seek(page.pagenum*PageSize, io.SeekStart); err != nil {
		return err
	}
	if _, err := pager.file.Read(page.data); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// newFrame claims an unused frame for pagenum, evicting an unpinned page if
// the free list is empty. Returns ErrRanOutOfPages when every frame is
// pinned.
func (pager *Pager) newFrame(pagenum int64) (*Page, error) {
	var page *Page
	if link := pager.freeList.PeekHead(); link != nil {
		link.PopSelf()
		page = link.GetValue().(*Page)
	} else if link := pager.unpinnedList.PeekHead(); link != nil {
		link.PopSelf()
		page = link.GetValue().(*Page)
		pager.FlushPage(page)
		delete(pager.pageTable, page.pagenum)
	} else {
		return nil, ErrRanOutOfPages
	}
	page.pagenum = pagenum
	page.dirty = false
	page.pinCount = 1
	return page, nil
}

// GetNewPage appends a fresh, zeroed page to the file and returns it
// pinned. The page is only materialised on disk once it is flushed.
func (pager *Pager) GetNewPage() (*Page, error) {
	page, err := pager.newFrame(pager.numPages)
	if err != nil {
		return nil, err
	}
	for i := range page.data {
		page.data[i] = 0
	}
	page.dirty = true
	pager.pageTable[page.pagenum] = pager.pinnedList.PushTail(page)
	pager.numPages++
	return page, nil
}

// GetPage returns the page with the given pagenum, pinned. The page comes
// from the buffer if resident, otherwise it is read from disk.
func (pager *Pager) GetPage(pagenum int64) (*Page, error) {
	if pagenum < 0 || pagenum >= pager.numPages {
		return nil, errors.New("pagenum is out of bounds")
	}
	if link, ok := pager.pageTable[pagenum]; ok {
		page := link.GetValue().(*Page)
		// Promote to the pinned list on first reference.
		if page.pinCount == 0 {
			link.PopSelf()
			pager.pageTable[pagenum] = pager.pinnedList.PushTail(page)
		}
		page.Get()
		return page, nil
	}
	page, err := pager.newFrame(pagenum)
	if err != nil {
		return nil, err
	}
	if err = pager.fillPageFromDisk(page); err != nil {
		pager.freeList.PushTail(page)
		return nil, err
	}
	pager.pageTable[pagenum] = pager.pinnedList.PushTail(page)
	return page, nil
}

// PutPage releases one reference to the page. When the last reference is
// released the page moves to the unpinned list and becomes evictable.
func (pager *Pager) PutPage(page *Page) error {
	pins := page.Put()
	if pins < 0 {
		return errors.New("page was put more times than it was got")
	}
	if pins == 0 {
		link, ok := pager.pageTable[page.pagenum]
		if !ok {
			return errors.New("page is not in the page table")
		}
		link.PopSelf()
		pager.pageTable[page.pagenum] = pager.unpinnedList.PushTail(page)
	}
	return nil
}

// FlushPage writes the page back to disk if it is dirty.
func (pager *Pager) FlushPage(page *Page) {
	if page.IsDirty() {
		pager.file.WriteAt(page.data, page.pagenum*PageSize)
		page.SetDirty(false)
	}
}

// FlushAllPages writes every dirty resident page back to disk.
func (pager *Pager) FlushAllPages() {
	writer := func(link *list.Link) {
		pager.FlushPage(link.GetValue().(*Page))
	}
	pager.pinnedList.Map(writer)
	pager.unpinnedList.Map(writer)
}
