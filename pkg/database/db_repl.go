package database

import (
	"fmt"
	"strconv"
	"strings"

	"malhdb/pkg/journal"
	"malhdb/pkg/malh"
	"malhdb/pkg/repl"
)

// DatabaseRepl builds the REPL command table for a database.
func DatabaseRepl(db *Database) *repl.REPL {
	r := repl.NewRepl()
	r.AddCommand("create", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		out, err := HandleCreate(db, payload)
		if err == nil {
			db.journal.Append(replConfig.GetAddr(), payload)
		}
		return out, err
	}, "Create a relation. usage: create <name> <nattrs> <npages> <depth> <choicevec>")

	r.AddCommand("insert", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		out, err := HandleInsert(db, payload)
		if err == nil {
			db.journal.Append(replConfig.GetAddr(), payload)
		}
		return out, err
	}, "Insert a tuple. usage: insert <tuple> into <name>")

	r.AddCommand("select", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandleSelect(db, payload)
	}, "Print tuples matching a pattern ('?' matches any value). usage: select <pattern> from <name>")

	r.AddCommand("stats", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandleStats(db, payload)
	}, "Print relation metadata and per-bucket fill. usage: stats <name>")

	r.AddCommand("check", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandleCheck(db, payload)
	}, "Verify the linear-hash invariants of a relation. usage: check <name>")

	r.AddCommand("drop", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		out, err := HandleDrop(db, payload)
		if err == nil {
			db.journal.Append(replConfig.GetAddr(), payload)
		}
		return out, err
	}, "Remove a relation and its files. usage: drop <name>")

	r.AddCommand("backup", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandleBackup(db, payload)
	}, "Copy the data folder to a snapshot folder. usage: backup <folder>")

	r.AddCommand("history", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandleHistory(db, payload)
	}, "Show recent operations from the journal. usage: history <n>")

	return r
}

// HandleCreate handles: create <name> <nattrs> <npages> <depth> <choicevec>
func HandleCreate(db *Database, payload string) (string, error) {
	fields := strings.Fields(payload)
	if len(fields) != 6 {
		return "", fmt.Errorf("usage: create <name> <nattrs> <npages> <depth> <choicevec>")
	}
	name := fields[1]
	nattrs, err := parseCount(fields[2])
	if err != nil {
		return "", fmt.Errorf("create error: bad nattrs: %v", err)
	}
	npages, err := parseCount(fields[3])
	if err != nil {
		return "", fmt.Errorf("create error: bad npages: %v", err)
	}
	depth, err := parseCount(fields[4])
	if err != nil {
		return "", fmt.Errorf("create error: bad depth: %v", err)
	}
	if _, err = db.CreateRelation(name, nattrs, npages, depth, fields[5]); err != nil {
		return "", fmt.Errorf("create error: %v", err)
	}
	return fmt.Sprintf("relation %s created.", name), nil
}

// HandleInsert handles: insert <tuple> into <name>
func HandleInsert(db *Database, payload string) (string, error) {
	fields := strings.Fields(payload)
	if len(fields) != 4 || fields[2] != "into" {
		return "", fmt.Errorf("usage: insert <tuple> into <name>")
	}
	rel, err := db.GetRelation(fields[3])
	if err != nil {
		return "", fmt.Errorf("insert error: %v", err)
	}
	pid, err := rel.Insert(fields[1])
	if err != nil {
		return "", fmt.Errorf("insert error: %v", err)
	}
	return fmt.Sprintf("inserted into bucket %d", pid), nil
}

// HandleSelect handles: select <pattern> from <name>
func HandleSelect(db *Database, payload string) (string, error) {
	fields := strings.Fields(payload)
	if len(fields) != 4 || fields[2] != "from" {
		return "", fmt.Errorf("usage: select <pattern> from <name>")
	}
	rel, err := db.GetRelation(fields[3])
	if err != nil {
		return "", fmt.Errorf("select error: %v", err)
	}
	q, err := rel.StartQuery(fields[1])
	if err != nil {
		return "", fmt.Errorf("select error: %v", err)
	}
	defer q.Close()
	var sb strings.Builder
	for {
		t, ok, err := q.Next()
		if err != nil {
			return "", fmt.Errorf("select error: %v", err)
		}
		if !ok {
			break
		}
		sb.WriteString(t.String())
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// HandleStats handles: stats <name>
func HandleStats(db *Database, payload string) (string, error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 {
		return "", fmt.Errorf("usage: stats <name>")
	}
	rel, err := db.GetRelation(fields[1])
	if err != nil {
		return "", fmt.Errorf("stats error: %v", err)
	}
	var sb strings.Builder
	if err := rel.Stats(&sb); err != nil {
		return "", fmt.Errorf("stats error: %v", err)
	}
	return sb.String(), nil
}

// HandleCheck handles: check <name>
func HandleCheck(db *Database, payload string) (string, error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 {
		return "", fmt.Errorf("usage: check <name>")
	}
	rel, err := db.GetRelation(fields[1])
	if err != nil {
		return "", fmt.Errorf("check error: %v", err)
	}
	if err := malh.Check(rel); err != nil {
		return "", fmt.Errorf("check error: %v", err)
	}
	return "ok", nil
}

// HandleDrop handles: drop <name>
func HandleDrop(db *Database, payload string) (string, error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 {
		return "", fmt.Errorf("usage: drop <name>")
	}
	if err := db.DropRelation(fields[1]); err != nil {
		return "", fmt.Errorf("drop error: %v", err)
	}
	return fmt.Sprintf("relation %s dropped.", fields[1]), nil
}

// HandleBackup handles: backup <folder>
func HandleBackup(db *Database, payload string) (string, error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 {
		return "", fmt.Errorf("usage: backup <folder>")
	}
	// Flush open relations so the snapshot sees current metadata.
	for _, rel := range db.relations {
		if err := rel.Close(); err != nil {
			return "", fmt.Errorf("backup error: %v", err)
		}
	}
	db.relations = make(map[string]*malh.Relation)
	if err := journal.Backup(db.basepath, fields[1]); err != nil {
		return "", fmt.Errorf("backup error: %v", err)
	}
	return fmt.Sprintf("backed up to %s", fields[1]), nil
}

// HandleHistory handles: history <n>
func HandleHistory(db *Database, payload string) (string, error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 {
		return "", fmt.Errorf("usage: history <n>")
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n <= 0 {
		return "", fmt.Errorf("history error: n must be a positive integer")
	}
	lines, err := db.journal.Tail(n)
	if err != nil {
		return "", fmt.Errorf("history error: %v", err)
	}
	return strings.Join(lines, "\n"), nil
}

func parseCount(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
