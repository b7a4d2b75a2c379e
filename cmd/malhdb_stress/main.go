package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"malhdb/pkg/malh"

	"golang.org/x/sync/errgroup"
)

// Builds several relations concurrently (the engine stays single-writer
// per relation), loads each with random tuples across enough splits to
// exercise the overflow and redistribution paths, then verifies the
// linear-hash invariants and the all-wildcard round trip.

// roundRobinChVec spreads the 32 combined-hash bits evenly over the
// attributes.
func roundRobinChVec(nattrs int) string {
	parts := make([]string, 0, 32)
	for i := 0; i < 32; i++ {
		parts = append(parts, fmt.Sprintf("%d:%d", i%nattrs, i/nattrs))
	}
	return strings.Join(parts, ",")
}

// randomTuple builds a tuple like "a123,b45,c6789".
func randomTuple(rng *rand.Rand, nattrs int) string {
	fields := make([]string, nattrs)
	for i := range fields {
		fields[i] = fmt.Sprintf("%c%d", 'a'+i%26, rng.Intn(100000))
	}
	return strings.Join(fields, ",")
}

func runWorker(dir string, id int, nattrs int, ntuples int, seed int64) error {
	name := filepath.Join(dir, fmt.Sprintf("stress%d", id))
	if err := malh.Create(name, uint32(nattrs), 1, 0, roundRobinChVec(nattrs)); err != nil {
		return err
	}
	rel, err := malh.Open(name, 'w')
	if err != nil {
		return err
	}
	defer rel.Close()

	rng := rand.New(rand.NewSource(seed + int64(id)))
	inserted := make(map[string]int)
	for i := 0; i < ntuples; i++ {
		tup := randomTuple(rng, nattrs)
		if _, err := rel.Insert(tup); err != nil {
			return fmt.Errorf("worker %d: insert %q: %w", id, tup, err)
		}
		inserted[tup]++
	}

	if err := malh.Check(rel); err != nil {
		return fmt.Errorf("worker %d: %w", id, err)
	}

	// Round trip: an all-wildcard scan must return every insert.
	pattern := strings.TrimSuffix(strings.Repeat("?,", nattrs), ",")
	q, err := rel.StartQuery(pattern)
	if err != nil {
		return err
	}
	defer q.Close()
	scanned := make(map[string]int)
	count := 0
	for {
		t, ok, err := q.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		scanned[t.String()]++
		count++
	}
	if count != ntuples {
		return fmt.Errorf("worker %d: scanned %d tuples, inserted %d", id, count, ntuples)
	}
	for tup, n := range inserted {
		if scanned[tup] != n {
			return fmt.Errorf("worker %d: tuple %q inserted %d times, scanned %d", id, tup, n, scanned[tup])
		}
	}
	log.Printf("worker %d: %d tuples over %d pages (d=%d sp=%d), ok",
		id, rel.NTuples(), rel.NPages(), rel.Depth(), rel.SplitPointer())
	return nil
}

func main() {
	var dbFlag = flag.String("db", "data/", "data folder")
	var relationsFlag = flag.Int("relations", 4, "number of relations to build")
	var tuplesFlag = flag.Int("tuples", 2000, "tuples per relation")
	var nattrsFlag = flag.Int("nattrs", 3, "attributes per tuple")
	var seedFlag = flag.Int64("seed", 9315, "random seed")
	flag.Parse()

	if err := os.MkdirAll(*dbFlag, 0775); err != nil {
		log.Fatal(err)
	}
	var g errgroup.Group
	for i := 0; i < *relationsFlag; i++ {
		id := i
		g.Go(func() error {
			return runWorker(*dbFlag, id, *nattrsFlag, *tuplesFlag, *seedFlag)
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
	log.Printf("all %d relations verified", *relationsFlag)
}
