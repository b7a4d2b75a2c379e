// Package journal keeps an append-only log of mutating commands and
// supports tail-reads of recent activity and snapshots of the data folder.
// It is an activity log, not a write-ahead log: nothing is replayed.
package journal

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/icza/backscanner"
	"github.com/otiai10/copy"
)

// Journal is an open journal file.
type Journal struct {
	file *os.File
}

// Open opens (or creates) the journal file at path.
func Open(path string) (*Journal, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}
	return &Journal{file: file}, nil
}

// Append records one operation performed by the given client.
func (j *Journal) Append(client uuid.UUID, op string) error {
	_, err := fmt.Fprintf(j.file, "%s %s\n", client, strings.ReplaceAll(op, "\n", " "))
	return err
}

// Tail returns up to n of the most recent journal lines in chronological
// order. It scans the file backwards from the end.
func (j *Journal) Tail(n int) ([]string, error) {
	stat, err := j.file.Stat()
	if err != nil {
		return nil, err
	}
	scanner := backscanner.New(j.file, int(stat.Size()))
	var lines []string
	for len(lines) < n {
		line, _, err := scanner.Line()
		if err != nil {
			break
		}
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	// Reverse into chronological order.
	for i, k := 0, len(lines)-1; i < k; i, k = i+1, k-1 {
		lines[i], lines[k] = lines[k], lines[i]
	}
	return lines, nil
}

// Close closes the journal file.
func (j *Journal) Close() error {
	return j.file.Close()
}

// Backup copies the data folder srcDir to dstDir, journal included.
func Backup(srcDir string, dstDir string) error {
	if strings.TrimSuffix(srcDir, "/") == strings.TrimSuffix(dstDir, "/") {
		return fmt.Errorf("backup folder must differ from the data folder")
	}
	return copy.Copy(srcDir, dstDir)
}
