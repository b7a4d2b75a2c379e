package database_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"malhdb/pkg/database"

	"github.com/google/uuid"
)

func setupDatabase(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.Open(t.TempDir())
	if err != nil {
		t.Fatal("Failed to open database:", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateGetDrop(t *testing.T) {
	db := setupDatabase(t)
	if _, err := db.CreateRelation("parts", 2, 1, 0, "0:0,1:0"); err != nil {
		t.Fatal("Failed to create relation:", err)
	}
	if _, err := db.CreateRelation("bad name", 2, 1, 0, "0:0"); err == nil {
		t.Error("expected an error for a non-alphanumeric name")
	}
	rel, err := db.GetRelation("parts")
	if err != nil {
		t.Fatal("Failed to get relation:", err)
	}
	if rel.NAttrs() != 2 {
		t.Errorf("relation has %d attrs, want 2", rel.NAttrs())
	}
	if _, err := db.GetRelation("missing"); err == nil {
		t.Error("expected an error getting a missing relation")
	}
	if err := db.DropRelation("parts"); err != nil {
		t.Fatal("Failed to drop relation:", err)
	}
	if _, err := os.Stat(filepath.Join(db.GetBasePath(), "parts.info")); err == nil {
		t.Error("drop left the info file behind")
	}
	if _, err := db.GetRelation("parts"); err == nil {
		t.Error("dropped relation is still reachable")
	}
}

func TestHandlersEndToEnd(t *testing.T) {
	db := setupDatabase(t)
	if _, err := database.HandleCreate(db, "create stock 2 1 0 0:0,1:0"); err != nil {
		t.Fatal("create handler failed:", err)
	}
	out, err := database.HandleInsert(db, "insert bolt,10 into stock")
	if err != nil {
		t.Fatal("insert handler failed:", err)
	}
	if !strings.Contains(out, "bucket") {
		t.Errorf("insert handler output %q", out)
	}
	if _, err := database.HandleInsert(db, "insert nut,3 into stock"); err != nil {
		t.Fatal(err)
	}

	out, err = database.HandleSelect(db, "select ?,? from stock")
	if err != nil {
		t.Fatal("select handler failed:", err)
	}
	if !strings.Contains(out, "bolt,10") || !strings.Contains(out, "nut,3") {
		t.Errorf("select handler output %q", out)
	}
	out, err = database.HandleSelect(db, "select bolt,? from stock")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "bolt,10" {
		t.Errorf("partial select output %q, want just bolt,10", out)
	}

	out, err = database.HandleStats(db, "stats stock")
	if err != nil {
		t.Fatal("stats handler failed:", err)
	}
	if !strings.Contains(out, "#attrs:2") || !strings.Contains(out, "#tuples:2") {
		t.Errorf("stats handler output %q", out)
	}

	if out, err = database.HandleCheck(db, "check stock"); err != nil || out != "ok" {
		t.Errorf("check handler returned %q, %v", out, err)
	}

	if _, err := database.HandleDrop(db, "drop stock"); err != nil {
		t.Fatal("drop handler failed:", err)
	}
	if _, err := database.HandleSelect(db, "select ?,? from stock"); err == nil {
		t.Error("select succeeded on a dropped relation")
	}
}

func TestHandlerUsageErrors(t *testing.T) {
	db := setupDatabase(t)
	bad := map[string]func() error{
		"create":  func() error { _, err := database.HandleCreate(db, "create onlyname"); return err },
		"insert":  func() error { _, err := database.HandleInsert(db, "insert a,b onto rel"); return err },
		"select":  func() error { _, err := database.HandleSelect(db, "select ?,?"); return err },
		"stats":   func() error { _, err := database.HandleStats(db, "stats"); return err },
		"drop":    func() error { _, err := database.HandleDrop(db, "drop"); return err },
		"history": func() error { _, err := database.HandleHistory(db, "history zero"); return err },
	}
	for name, run := range bad {
		if run() == nil {
			t.Errorf("%s: expected a usage error", name)
		}
	}
}

func TestBackupAndHistoryHandlers(t *testing.T) {
	db := setupDatabase(t)
	if _, err := database.HandleCreate(db, "create items 2 1 0 0:0"); err != nil {
		t.Fatal(err)
	}
	if _, err := database.HandleInsert(db, "insert pin,1 into items"); err != nil {
		t.Fatal(err)
	}
	db.GetJournal().Append(uuid.New(), "insert pin,1 into items")

	lines, err := db.GetJournal().Tail(1)
	if err != nil || len(lines) != 1 {
		t.Fatalf("journal tail returned %v, %v", lines, err)
	}
	out, err := database.HandleHistory(db, "history 5")
	if err != nil {
		t.Fatal("history handler failed:", err)
	}
	if !strings.Contains(out, "insert pin,1 into items") {
		t.Errorf("history output %q", out)
	}

	snapshot := filepath.Join(t.TempDir(), "snap")
	if _, err := database.HandleBackup(db, "backup "+snapshot); err != nil {
		t.Fatal("backup handler failed:", err)
	}
	if _, err := os.Stat(filepath.Join(snapshot, "items.info")); err != nil {
		t.Error("backup snapshot is missing the relation info file")
	}
	// The database stays usable after a backup.
	if _, err := database.HandleSelect(db, "select ?,? from items"); err != nil {
		t.Error("select failed after backup:", err)
	}
}
