package l1000fwd

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// DefaultSnapshotPath is where the L1000FWD drug metadata is expected
const DefaultSnapshotPath = "data/L1000FWD/Drugs_metadata.csv"

const inchiKeyPrefix = "InChIKey="

// Drug is one row of the metadata snapshot
type Drug struct {
	PertID   string
	InChIKey string
	Name     string
}

// Snapshot is the local copy of the L1000FWD drug metadata. The first column
// holds the pert id, inchi_key and pert_iname are found by header.
type Snapshot struct {
	Drugs []Drug
	byID  map[string]int
}

func LoadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening L1000FWD metadata")
	}
	defer f.Close()

	s, err := ReadSnapshot(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return s, nil
}

func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "reading header")
	}
	keyCol, nameCol := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case "inchi_key":
			keyCol = i
		case "pert_iname":
			nameCol = i
		}
	}
	if keyCol < 0 || nameCol < 0 {
		return nil, errors.Errorf("header %v lacks inchi_key or pert_iname", header)
	}

	s := &Snapshot{byID: make(map[string]int)}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading row")
		}
		d := Drug{PertID: record[0]}
		if keyCol < len(record) {
			d.InChIKey = strings.TrimPrefix(strings.TrimSpace(record[keyCol]), inchiKeyPrefix)
		}
		if nameCol < len(record) {
			d.Name = record[nameCol]
		}
		if _, dup := s.byID[d.PertID]; !dup {
			s.byID[d.PertID] = len(s.Drugs)
		}
		s.Drugs = append(s.Drugs, d)
	}
	return s, nil
}

// Lookup finds a drug by pert id
func (s *Snapshot) Lookup(pertID string) (Drug, bool) {
	i, ok := s.byID[pertID]
	if !ok {
		return Drug{}, false
	}
	return s.Drugs[i], true
}

// ByInChIKey indexes the drugs by key, the first row wins for repeated keys
func (s *Snapshot) ByInChIKey() map[string]Drug {
	idx := make(map[string]Drug, len(s.Drugs))
	for _, d := range s.Drugs {
		if d.InChIKey == "" {
			continue
		}
		if _, ok := idx[d.InChIKey]; !ok {
			idx[d.InChIKey] = d
		}
	}
	return idx
}
