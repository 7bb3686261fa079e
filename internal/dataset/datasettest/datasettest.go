// Package datasettest builds simulator-shaped SQLite databases for tests.
package datasettest

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// StaticTimestamp mirrors dataset.StaticTimestamp without importing it.
const StaticTimestamp int64 = 2000000000

// Report is one UE row spread across nodeapploss, lteuecell and nodelocation.
type Report struct {
	NodeID int
	Time   int64
	Loss   float64
	CellID int
	X, Y   float64
}

// Tower is one lteenb row with its static nodelocation.
type Tower struct {
	NodeID int
	X, Y   float64
}

// Run describes the content of one run database.
type Run struct {
	Scenario    int
	StartConfig int
	RunID       int
	Reports     []Report
	Towers      []Tower
}

const schema = `
CREATE TABLE nodeapploss (nodeid INTEGER, loss REAL, simulationtime INTEGER);
CREATE TABLE lteuecell (nodeid INTEGER, cellid INTEGER, simulationtime INTEGER);
CREATE TABLE nodelocation (nodeid INTEGER, x REAL, y REAL, z REAL, simulationtime INTEGER);
CREATE TABLE lteenb (nodeid INTEGER);
`

// RunDir returns the campaign folder layout for a run under root.
func RunDir(root string, r Run) string {
	return filepath.Join(root,
		fmt.Sprintf("scenario=%d", r.Scenario),
		fmt.Sprintf("start-config=%d", r.StartConfig),
		fmt.Sprintf("run-id=%d", r.RunID),
		"run=0",
	)
}

// WriteRun creates RunDir(root, r)/oran-repository.db and returns its path.
func WriteRun(t testing.TB, root string, r Run) string {
	t.Helper()

	dir := RunDir(root, r)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %q: %v", dir, err)
	}
	path := filepath.Join(dir, "oran-repository.db")
	WriteDB(t, path, r)
	return path
}

// WriteDB creates a database at path holding r's reports and towers.
func WriteDB(t testing.TB, path string, r Run) {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open %q: %v", path, err)
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	for _, rep := range r.Reports {
		mustExec(t, db, `INSERT INTO nodeapploss (nodeid, loss, simulationtime) VALUES (?, ?, ?)`,
			rep.NodeID, rep.Loss, rep.Time)
		mustExec(t, db, `INSERT INTO lteuecell (nodeid, cellid, simulationtime) VALUES (?, ?, ?)`,
			rep.NodeID, rep.CellID, rep.Time)
		mustExec(t, db, `INSERT INTO nodelocation (nodeid, x, y, z, simulationtime) VALUES (?, ?, ?, 0, ?)`,
			rep.NodeID, rep.X, rep.Y, rep.Time)
	}
	for _, tw := range r.Towers {
		mustExec(t, db, `INSERT INTO lteenb (nodeid) VALUES (?)`, tw.NodeID)
		mustExec(t, db, `INSERT INTO nodelocation (nodeid, x, y, z, simulationtime) VALUES (?, ?, ?, 30, ?)`,
			tw.NodeID, tw.X, tw.Y, StaticTimestamp)
		// A time-series position that must not be picked up as static.
		mustExec(t, db, `INSERT INTO nodelocation (nodeid, x, y, z, simulationtime) VALUES (?, ?, ?, 30, ?)`,
			tw.NodeID, tw.X+1000, tw.Y+1000, int64(0))
	}
}

// StandardTowers is the three-tower deployment used across tests.
func StandardTowers() []Tower {
	return []Tower{
		{NodeID: 1, X: 0, Y: 0},
		{NodeID: 2, X: 10, Y: 0},
		{NodeID: 3, X: 0, Y: 10},
	}
}

func mustExec(t testing.TB, db *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}
