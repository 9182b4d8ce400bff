package celmech

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
)

func TestExportSolution(t *testing.T) {
	sys := twoPlanetSystem(t)
	ll, err := NewLaplaceLagrangeSystem(sys, LaplaceSource{})
	if err != nil {
		t.Fatal(err)
	}
	tsec, err := ll.Tsec()
	if err != nil {
		t.Fatal(err)
	}
	sol, err := ll.Solution([]float64{0, 0.5 * tsec, tsec}, 0)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	conf := ExportConfig{Filename: "secular", Directory: dir}
	if err := ExportSolution(conf, sol); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(filepath.Join(dir, "secular.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	// Header plus one row per time and planet.
	want := 1 + 3*2
	if len(rows) != want {
		t.Errorf("export wrote %d rows, want %d", len(rows), want)
	}
	if rows[0][0] != "t" || rows[0][2] != "e" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if err := ExportSolution(ExportConfig{}, sol); err == nil {
		t.Error("expected error for a missing file name")
	}
}
