package celmech

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// ExportConfig configures CSV export of secular element histories.
type ExportConfig struct {
	Filename  string
	Directory string
	Timestamp bool // append a UTC timestamp to the file name
}

// IsUseless returns whether this config doesn't export anything.
func (c ExportConfig) IsUseless() bool {
	return c.Filename == ""
}

func (c ExportConfig) path() string {
	name := c.Filename
	if c.Timestamp {
		name += "-" + time.Now().UTC().Format("2006-01-02-15.04.05")
	}
	return filepath.Join(c.Directory, name+".csv")
}

// ExportSolution writes the secular solution as CSV, one row per output
// time and planet.
func ExportSolution(conf ExportConfig, sol *SecularSolution) error {
	if conf.IsUseless() {
		return cfgErrorf("export needs a file name")
	}
	f, err := os.Create(conf.path())
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write([]string{"t", "planet", "e", "pomega", "inc", "Omega"}); err != nil {
		return err
	}
	for ti, tv := range sol.Time {
		for pi := range sol.E[ti] {
			row := []string{
				strconv.FormatFloat(tv, 'g', -1, 64),
				strconv.Itoa(pi + 1),
				strconv.FormatFloat(sol.E[ti][pi], 'g', -1, 64),
				strconv.FormatFloat(sol.Pomega[ti][pi], 'g', -1, 64),
				strconv.FormatFloat(sol.Inc[ti][pi], 'g', -1, 64),
				strconv.FormatFloat(sol.Omega[ti][pi], 'g', -1, 64),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}
