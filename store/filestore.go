// Package store persists tank states and step outputs: the restart files of
// the last state, resampled temperature profiles, a sqlite history of runs
// and profile plots.
package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	log "github.com/sirupsen/logrus"

	"freettes/calculator"
)

const (
	storageFile    = "last_profile_zus.csv"
	foundationFile = "last_profile_fund.csv"
	shellFile      = "last_profile_kap.csv"

	profileDir  = "temperaturprofile"
	snapshotDir = "sz"
)

// ErrNoState is returned by Load when no state has been saved yet.
var ErrNoState = errors.New("no saved state")

// FileStore keeps the restart state and the per-step profiles in one
// directory.
type FileStore struct {
	dir    string
	height float64 // top of the resampled profiles, m
}

func NewFileStore(dir string, height float64) (*FileStore, error) {
	for _, sub := range []string{dir, filepath.Join(dir, profileDir), filepath.Join(dir, snapshotDir)} {
		if err := os.MkdirAll(sub, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", sub, err)
		}
	}
	return &FileStore{dir: dir, height: height}, nil
}

func (fs *FileStore) Dir() string {
	return fs.dir
}

// Save writes the three restart files.
func (fs *FileStore) Save(st calculator.State) error {
	storage := make([][]float64, len(st.Storage))
	for i, c := range st.Storage {
		storage[i] = []float64{c.Pos, c.T, c.Dh, c.Imp, c.V}
	}
	foundation := make([][]float64, len(st.Foundation))
	for i, c := range st.Foundation {
		foundation[i] = []float64{c.Pos, c.T, c.Dh}
	}
	shell := make([][]float64, len(st.Shell))
	for i, c := range st.Shell {
		shell[i] = []float64{c.Pos, c.T, c.Dh, c.C}
	}

	if err := fs.writeTable(storageFile, []string{"pos", "T", "dh", "imp", "v"}, storage); err != nil {
		return err
	}
	if err := fs.writeTable(foundationFile, []string{"pos", "T", "dh"}, foundation); err != nil {
		return err
	}
	if err := fs.writeTable(shellFile, []string{"pos", "T", "dh", "C"}, shell); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"dir":        fs.dir,
		"cells":      len(st.Storage),
		"foundation": len(st.Foundation),
		"shell":      len(st.Shell),
	}).Debug("state saved")
	return nil
}

// Load reads the state written by Save. It returns ErrNoState when the
// storage file does not exist.
func (fs *FileStore) Load() (calculator.State, error) {
	var st calculator.State
	storage, err := fs.readTable(storageFile, 5)
	if errors.Is(err, os.ErrNotExist) {
		return st, ErrNoState
	}
	if err != nil {
		return st, err
	}
	foundation, err := fs.readTable(foundationFile, 3)
	if err != nil {
		return st, err
	}
	shell, err := fs.readTable(shellFile, 4)
	if err != nil {
		return st, err
	}

	st.Storage = make(calculator.Grid, len(storage))
	for i, r := range storage {
		st.Storage[i] = calculator.Cell{Pos: r[0], T: r[1], Dh: r[2], Imp: r[3], V: r[4]}
	}
	st.Foundation = make([]calculator.FoundationCell, len(foundation))
	for i, r := range foundation {
		st.Foundation[i] = calculator.FoundationCell{Pos: r[0], T: r[1], Dh: r[2]}
	}
	st.Shell = make([]calculator.ShellCell, len(shell))
	for i, r := range shell {
		st.Shell[i] = calculator.ShellCell{Pos: r[0], T: r[1], Dh: r[2], C: r[3]}
	}
	if len(st.Storage) == 0 {
		return st, fmt.Errorf("%s holds no cells: %w", storageFile, ErrNoState)
	}
	return st, nil
}

func (fs *FileStore) writeTable(name string, header []string, rows [][]float64) error {
	path := filepath.Join(fs.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = ';'
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	record := make([]string, len(header))
	for _, r := range rows {
		for j, v := range r {
			record[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func (fs *FileStore) readTable(name string, columns int) ([][]float64, error) {
	path := filepath.Join(fs.dir, name)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ';'
	r.FieldsPerRecord = columns
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	rows := make([][]float64, 0, len(records)-1)
	for line, rec := range records[1:] {
		row := make([]float64, columns)
		for j, s := range rec {
			if row[j], err = strconv.ParseFloat(s, 64); err != nil {
				return nil, fmt.Errorf("%s line %d: %w", path, line+2, err)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
