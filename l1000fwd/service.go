// Package l1000fwd converts drug names to InChIKeys, and back, through the
// L1000FWD synonyms search and a local copy of its drug metadata.
package l1000fwd

import (
	"context"
	"io"
	"os"
	"sort"
	"time"

	"github.com/briandowns/spinner"
	"go.uber.org/zap"
)

// Match is a pert id found for a queried name. Missing is set when the
// metadata row has no InChIKey.
type Match struct {
	PertID   string
	InChIKey string
	Missing  bool
}

type QueryResult struct {
	Matches   []Match
	Unmatched []string
}

// Keys lists the InChIKeys of the matches that have one
func (r *QueryResult) Keys() []string {
	var keys []string
	for _, m := range r.Matches {
		if !m.Missing {
			keys = append(keys, m.InChIKey)
		}
	}
	return keys
}

// DrugName is the reverse lookup of an InChIKey, Found is false when the key is unknown
type DrugName struct {
	Key   string
	Name  string
	Found bool
}

type Service struct {
	Synonyms     *SynonymClient
	SnapshotPath string
	Logger       *zap.SugaredLogger
	// Output receives the spinner of verbose queries, stderr when nil
	Output io.Writer
}

func NewService(synonyms *SynonymClient, snapshotPath string, logger *zap.SugaredLogger) *Service {
	if snapshotPath == "" {
		snapshotPath = DefaultSnapshotPath
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{Synonyms: synonyms, SnapshotPath: snapshotPath, Logger: logger}
}

//QueryDrugNames searches every name and returns the InChIKeys of all the exact
//matches present in the metadata snapshot. A name may match several pert ids.
func (s *Service) QueryDrugNames(ctx context.Context, names []string, verbose bool) (*QueryResult, error) {
	if verbose && len(names) > 0 {
		out := s.Output
		if out == nil {
			out = os.Stderr
		}
		sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
		sp.Suffix = " Searching L1000FWD synonyms"
		sp.Start()
		defer sp.Stop()
	}

	result := &QueryResult{}
	ids := make(map[string]struct{})
	for _, name := range names {
		query := NormalizeName(name)
		found, err := s.Synonyms.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		matched := exactMatches(query, found)
		if len(matched) == 0 {
			if verbose {
				s.Logger.Infof("%s not found", query)
			}
			result.Unmatched = append(result.Unmatched, name)
			continue
		}
		for _, id := range matched {
			ids[id] = struct{}{}
		}
	}

	snapshot, err := LoadSnapshot(s.SnapshotPath)
	if err != nil {
		return nil, err
	}
	for id := range ids {
		d, ok := snapshot.Lookup(id)
		if !ok {
			s.Logger.Debugf("%s is not in the metadata snapshot", id)
			continue
		}
		result.Matches = append(result.Matches, Match{PertID: id, InChIKey: d.InChIKey, Missing: d.InChIKey == ""})
	}
	sort.Slice(result.Matches, func(i, j int) bool {
		return result.Matches[i].PertID < result.Matches[j].PertID
	})
	return result, nil
}

//GetDrugNames returns the pert_iname of every key, in the order of keys
func (s *Service) GetDrugNames(keys []string) ([]DrugName, error) {
	snapshot, err := LoadSnapshot(s.SnapshotPath)
	if err != nil {
		return nil, err
	}
	idx := snapshot.ByInChIKey()

	out := make([]DrugName, 0, len(keys))
	for _, k := range keys {
		d, ok := idx[k]
		out = append(out, DrugName{Key: k, Name: d.Name, Found: ok})
	}
	return out, nil
}
