// Package extractor reads the drug names to convert, either from an Oracle
// database (ChEMBL molecule dictionary by default) or from a plain text file.
package extractor

import (
	"bufio"
	"context"
	"database/sql"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	//Driver for Oracle database
	_ "github.com/godror/godror"
)

// DefaultQuery lists the preferred names of the ChEMBL molecules
const DefaultQuery = "SELECT DISTINCT pref_name FROM molecule_dictionary WHERE pref_name IS NOT NULL"

//Extractor connects to the given oracle string connection (Oraconn) and
//returns the first column of Query as drug names
type Extractor struct {
	Oraconn string
	Query   string
	Logger  *zap.SugaredLogger
	//DB is used instead of opening Oraconn when set
	DB *sql.DB
}

// Names runs the query and collects the non blank names
func (ex *Extractor) Names(ctx context.Context) ([]string, error) {
	logger := ex.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	db := ex.DB
	if db == nil {
		var err error
		db, err = sql.Open("godror", ex.Oraconn)
		if err != nil {
			logger.Error("Go oracle open ERROR ", err)
			return nil, errors.Wrap(err, "opening oracle connection")
		}
		defer db.Close()
		logger.Info("Success connecting to Oracle DB")
	}

	query := ex.Query
	if query == "" {
		query = DefaultQuery
	}
	logger.Debug("Query: ", query)

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		logger.Error("Error running query ", err)
		return nil, errors.Wrap(err, "running names query")
	}
	defer rows.Close()

	var names []string
	var name sql.NullString
l:
	for rows.Next() {
		select {
		case <-ctx.Done():
			logger.Warn("Interrupting extractor because of context done")
			break l
		default:
		}

		if err := rows.Scan(&name); err != nil {
			logger.Error(err, "Error reading line")
			return nil, errors.Wrap(err, "scanning name")
		}
		if !name.Valid || strings.TrimSpace(name.String) == "" {
			continue
		}
		names = append(names, strings.TrimSpace(name.String))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating names")
	}
	if err := ctx.Err(); err != nil {
		return names, err
	}

	logger.Infof("Got %d names from Oracle", len(names))
	return names, nil
}

// ReadNamesFile reads one name per line, blank lines and # comments are skipped
func ReadNamesFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening names file")
	}
	defer f.Close()
	return ReadNames(f)
}

func ReadNames(r io.Reader) ([]string, error) {
	var names []string
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := s.Err(); err != nil {
		return nil, errors.Wrap(err, "reading names")
	}
	return names, nil
}
