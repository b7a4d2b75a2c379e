package malh

import (
	"malhdb/pkg/bits"
	"malhdb/pkg/pager"
)

/////////////////////////////////////////////////////////////////////////////
////////////////////////// Low-level Constants //////////////////////////////
/////////////////////////////////////////////////////////////////////////////

// All on-disk counters and offsets are fixed-width little-endian uint32.
const COUNT_SIZE int64 = 4

const PAGESIZE int64 = pager.PageSize

// Tuple-page header: ntuples | free offset | overflow link.
const NTUPLES_OFFSET int64 = 0
const FREE_OFFSET int64 = NTUPLES_OFFSET + COUNT_SIZE
const OVFLOW_OFFSET int64 = FREE_OFFSET + COUNT_SIZE
const PAGE_HEADER_SIZE int64 = OVFLOW_OFFSET + COUNT_SIZE

// Bytes available for tuple data in each page.
const PAGE_BODY_SIZE int64 = PAGESIZE - PAGE_HEADER_SIZE

// Number of entries in every choice vector.
const MAXCHVEC = bits.MaxBits

// Heuristic average bytes per attribute, used for the split threshold.
const AVG_ATTR_BYTES = 10

// PageID identifies a page within the data or overflow file.
type PageID uint32

// NoPage marks the absence of an overflow link.
const NoPage PageID = ^PageID(0)

// Wildcard is the reserved query-level token matching any attribute value.
const Wildcard = "?"
