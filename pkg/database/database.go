// Package database manages the catalog of relations living in one data
// folder and exposes them through REPL command handlers.
package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"malhdb/pkg/config"
	"malhdb/pkg/journal"
	"malhdb/pkg/malh"
)

var nonAlphanumeric = regexp.MustCompile(`\W`)

// Database is a set of relations under one data folder, opened on demand
// and closed together.
type Database struct {
	basepath  string
	relations map[string]*malh.Relation
	journal   *journal.Journal
}

// Open opens a database rooted at the given data folder, creating the
// folder and its journal as needed.
func Open(folder string) (*Database, error) {
	if !strings.HasSuffix(folder, "/") {
		folder += "/"
	}
	if err := os.MkdirAll(folder, 0775); err != nil {
		return nil, err
	}
	jnl, err := journal.Open(filepath.Join(folder, config.JournalFileName))
	if err != nil {
		return nil, err
	}
	return &Database{
		basepath:  folder,
		relations: make(map[string]*malh.Relation),
		journal:   jnl,
	}, nil
}

// Close closes every open relation, then the journal.
func (db *Database) Close() (err error) {
	for _, rel := range db.relations {
		if closeErr := rel.Close(); err == nil {
			err = closeErr
		}
	}
	db.relations = make(map[string]*malh.Relation)
	if closeErr := db.journal.Close(); err == nil {
		err = closeErr
	}
	return err
}

// CreateRelation creates a new relation in the data folder and returns it
// open for writing.
func (db *Database) CreateRelation(name string, nattrs uint32, npages uint32, depth uint32, cvSpec string) (*malh.Relation, error) {
	if nonAlphanumeric.MatchString(name) {
		return nil, errors.New("relation name must be alphanumeric")
	}
	path := filepath.Join(db.basepath, name)
	if err := malh.Create(path, nattrs, npages, depth, cvSpec); err != nil {
		return nil, err
	}
	rel, err := malh.Open(path, 'w')
	if err != nil {
		return nil, err
	}
	db.relations[name] = rel
	return rel, nil
}

// GetRelation returns an open handle for the named relation, opening it
// from disk on first use.
func (db *Database) GetRelation(name string) (*malh.Relation, error) {
	if rel, ok := db.relations[name]; ok {
		return rel, nil
	}
	path := filepath.Join(db.basepath, name)
	if !malh.Exists(path) {
		return nil, fmt.Errorf("relation %q not found", name)
	}
	rel, err := malh.Open(path, 'w')
	if err != nil {
		return nil, err
	}
	db.relations[name] = rel
	return rel, nil
}

// DropRelation closes the named relation if open and removes its files.
func (db *Database) DropRelation(name string) error {
	if rel, ok := db.relations[name]; ok {
		delete(db.relations, name)
		if err := rel.Close(); err != nil {
			return err
		}
	}
	return malh.Remove(filepath.Join(db.basepath, name))
}

// GetRelations returns the open relations keyed by name.
func (db *Database) GetRelations() map[string]*malh.Relation {
	return db.relations
}

// GetBasePath returns the database's data folder.
func (db *Database) GetBasePath() string {
	return db.basepath
}

// GetJournal returns the database's operation journal.
func (db *Database) GetJournal() *journal.Journal {
	return db.journal
}
