// Package list implements the doubly linked list that the pager uses to
// track page frames (free, pinned, unpinned).
package list

// List is a doubly linked list of Links.
type List struct {
	head *Link
	tail *Link
}

// Link is one element of a List. A Link belongs to at most one list at a
// time; PopSelf detaches it.
type Link struct {
	list  *List
	prev  *Link
	next  *Link
	value interface{}
}

// NewList constructs an empty list.
func NewList() *List {
	return &List{}
}

// PeekHead returns the first link, or nil if the list is empty.
func (l *List) PeekHead() *Link {
	return l.head
}

// PeekTail returns the last link, or nil if the list is empty.
func (l *List) PeekTail() *Link {
	return l.tail
}

// PushHead prepends value to the list and returns its link.
func (l *List) PushHead(value interface{}) *Link {
	link := &Link{list: l, next: l.head, value: value}
	if l.head != nil {
		l.head.prev = link
	} else {
		l.tail = link
	}
	l.head = link
	return link
}

// PushTail appends value to the list and returns its link.
func (l *List) PushTail(value interface{}) *Link {
	link := &Link{list: l, prev: l.tail, value: value}
	if l.tail != nil {
		l.tail.next = link
	} else {
		l.head = link
	}
	l.tail = link
	return link
}

// Find returns the first link for which f is true, or nil.
func (l *List) Find(f func(*Link) bool) *Link {
	for cur := l.head; cur != nil; cur = cur.next {
		if f(cur) {
			return cur
		}
	}
	return nil
}

// Map applies f to every link in order.
func (l *List) Map(f func(*Link)) {
	for cur := l.head; cur != nil; {
		next := cur.next
		f(cur)
		cur = next
	}
}

// GetList returns the list this link belongs to, or nil if detached.
func (link *Link) GetList() *List {
	return link.list
}

// GetValue returns the link's value.
func (link *Link) GetValue() interface{} {
	return link.value
}

// SetValue replaces the link's value.
func (link *Link) SetValue(value interface{}) {
	link.value = value
}

// GetPrev returns the previous link, or nil.
func (link *Link) GetPrev() *Link {
	return link.prev
}

// GetNext returns the next link, or nil.
func (link *Link) GetNext() *Link {
	return link.next
}

// PopSelf removes the link from its list.
func (link *Link) PopSelf() {
	if link.list == nil {
		return
	}
	if link.prev != nil {
		link.prev.next = link.next
	} else {
		link.list.head = link.next
	}
	if link.next != nil {
		link.next.prev = link.prev
	} else {
		link.list.tail = link.prev
	}
	link.list = nil
	link.prev = nil
	link.next = nil
}
