package list_test

import (
	"testing"

	"malhdb/pkg/list"
)

func collect(l *list.List) []interface{} {
	var vals []interface{}
	l.Map(func(link *list.Link) {
		vals = append(vals, link.GetValue())
	})
	return vals
}

func TestPushOrder(t *testing.T) {
	l := list.NewList()
	l.PushTail(2)
	l.PushTail(3)
	l.PushHead(1)
	vals := collect(l)
	want := []interface{}{1, 2, 3}
	if len(vals) != len(want) {
		t.Fatalf("got %d values, want %d", len(vals), len(want))
	}
	for i := range want {
		if vals[i] != want[i] {
			t.Errorf("position %d: got %v, want %v", i, vals[i], want[i])
		}
	}
	if l.PeekHead().GetValue() != 1 || l.PeekTail().GetValue() != 3 {
		t.Error("head or tail is wrong after pushes")
	}
}

func TestFind(t *testing.T) {
	l := list.NewList()
	for i := 0; i < 5; i++ {
		l.PushTail(i)
	}
	link := l.Find(func(link *list.Link) bool { return link.GetValue() == 3 })
	if link == nil || link.GetValue() != 3 {
		t.Fatal("Find failed to locate an existing value")
	}
	if l.Find(func(link *list.Link) bool { return link.GetValue() == 99 }) != nil {
		t.Error("Find located a value that is not in the list")
	}
}

func TestPopSelf(t *testing.T) {
	l := list.NewList()
	a := l.PushTail("a")
	b := l.PushTail("b")
	c := l.PushTail("c")

	// Middle.
	b.PopSelf()
	if vals := collect(l); len(vals) != 2 || vals[0] != "a" || vals[1] != "c" {
		t.Fatalf("after popping middle link: %v", vals)
	}
	// Head.
	a.PopSelf()
	if l.PeekHead() != c || l.PeekTail() != c {
		t.Fatal("after popping head, single link should be head and tail")
	}
	// Only link.
	c.PopSelf()
	if l.PeekHead() != nil || l.PeekTail() != nil {
		t.Fatal("list should be empty after popping the last link")
	}
	// Popping a detached link is a no-op.
	c.PopSelf()
}
