package l1000fwd

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const metadata = `,pert_iname,alt_name,pubchem_cid,SMILES,inchi_key,MoA
BRD-K12345678,aspirin,,2244,CC(=O)OC1=CC=CC=C1C(=O)O,InChIKey=BSYNRYMUTXBXSQ-UHFFFAOYSA-N,COX inhibitor
BRD-K00000002,acetylsalicylic-acid,,2244,CC(=O)OC1=CC=CC=C1C(=O)O,InChIKey=BSYNRYMUTXBXSQ-UHFFFAOYSA-N,COX inhibitor
BRD-K87654321,imatinib,,5291,,InChIKey=KTUFNOKKBVMGRW-UHFFFAOYSA-N,BCR-ABL inhibitor
BRD-A00000001,mystery,,,,,
`

var synonyms = map[string]string{
	"ASPIRIN":   `[{"Name": "aspirin", "pert_id": "BRD-K12345678"}, {"Name": "aspirin-x", "pert_id": "BRD-K99999999"}]`,
	"IMATINIB":  `[{"Name": "Imatinib", "pert_id": "BRD-K87654321"}, {"Name": "imatinib", "pert_id": "BRD-K00000404"}]`,
	"MYSTERY":   `[{"Name": "mystery", "pert_id": "BRD-A00000001"}]`,
	"NOT-FOUND": `[]`,
}

type ServiceTestSuite struct {
	suite.Suite
	server   *httptest.Server
	requests []string
	service  *Service
}

func (s *ServiceTestSuite) SetupTest() {
	s.requests = nil
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimPrefix(r.URL.Path, "/L1000FWD/synonyms/")
		s.requests = append(s.requests, query)
		if query == "BROKEN" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		body, ok := synonyms[query]
		if !ok {
			body = "[]"
		}
		fmt.Fprint(w, body)
	}))

	dir := s.T().TempDir()
	path := filepath.Join(dir, "Drugs_metadata.csv")
	s.Require().NoError(ioutil.WriteFile(path, []byte(metadata), 0644))

	client := NewSynonymClient(s.server.URL+"/L1000FWD", nil, nil)
	s.service = NewService(client, path, nil)
	s.service.Output = ioutil.Discard
}

func (s *ServiceTestSuite) TearDownTest() {
	s.server.Close()
}

func (s *ServiceTestSuite) TestQueryDrugNames() {
	res, err := s.service.QueryDrugNames(context.Background(), []string{"aspirin", "imatinib", "not found"}, true)
	s.Require().NoError(err)

	s.Equal([]string{"ASPIRIN", "IMATINIB", "NOT-FOUND"}, s.requests)
	s.Equal([]Match{
		{PertID: "BRD-K12345678", InChIKey: "BSYNRYMUTXBXSQ-UHFFFAOYSA-N"},
		{PertID: "BRD-K87654321", InChIKey: "KTUFNOKKBVMGRW-UHFFFAOYSA-N"},
	}, res.Matches)
	s.Equal([]string{"not found"}, res.Unmatched)
	s.Equal([]string{"BSYNRYMUTXBXSQ-UHFFFAOYSA-N", "KTUFNOKKBVMGRW-UHFFFAOYSA-N"}, res.Keys())
}

func (s *ServiceTestSuite) TestQueryDrugNames_MissingKey() {
	res, err := s.service.QueryDrugNames(context.Background(), []string{"mystery"}, false)
	s.Require().NoError(err)
	s.Equal([]Match{{PertID: "BRD-A00000001", Missing: true}}, res.Matches)
	s.Empty(res.Keys())
	s.Empty(res.Unmatched)
}

func (s *ServiceTestSuite) TestQueryDrugNames_ServerError() {
	res, err := s.service.QueryDrugNames(context.Background(), []string{"broken"}, false)
	s.Require().NoError(err)
	s.Empty(res.Matches)
	s.Equal([]string{"broken"}, res.Unmatched)
}

func (s *ServiceTestSuite) TestQueryDrugNames_NoSnapshot() {
	s.service.SnapshotPath = filepath.Join(s.T().TempDir(), "missing.csv")
	_, err := s.service.QueryDrugNames(context.Background(), []string{"aspirin"}, false)
	s.Error(err)
}

func (s *ServiceTestSuite) TestGetDrugNames() {
	names, err := s.service.GetDrugNames([]string{
		"KTUFNOKKBVMGRW-UHFFFAOYSA-N",
		"XXXXXXXXXXXXXX-UHFFFAOYSA-N",
		"BSYNRYMUTXBXSQ-UHFFFAOYSA-N",
	})
	s.Require().NoError(err)
	s.Equal([]DrugName{
		{Key: "KTUFNOKKBVMGRW-UHFFFAOYSA-N", Name: "imatinib", Found: true},
		{Key: "XXXXXXXXXXXXXX-UHFFFAOYSA-N"},
		{Key: "BSYNRYMUTXBXSQ-UHFFFAOYSA-N", Name: "aspirin", Found: true},
	}, names)
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "ACETYLSALICYLIC-ACID", NormalizeName("acetylsalicylic acid"))
	assert.Equal(t, "IMATINIB", NormalizeName("Imatinib"))
	assert.Equal(t, "A--B", NormalizeName("a  b"))
}

func TestSearch_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "{not json")
	}))
	defer server.Close()

	_, err := NewSynonymClient(server.URL, nil, nil).Search(context.Background(), "ASPIRIN")
	assert.Error(t, err)
}

func TestSearch_Path(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		fmt.Fprint(w, `[{"Name": "X", "pert_id": "BRD-1"}]`)
	}))
	defer server.Close()

	found, err := NewSynonymClient(server.URL+"/", nil, nil).Search(context.Background(), "VALPROIC-ACID")
	require.NoError(t, err)
	assert.Equal(t, "/synonyms/VALPROIC-ACID", path)
	assert.Equal(t, []Synonym{{Name: "X", PertID: "BRD-1"}}, found)
}

func TestReadSnapshot(t *testing.T) {
	s, err := ReadSnapshot(strings.NewReader(metadata))
	require.NoError(t, err)
	assert.Len(t, s.Drugs, 4)

	d, ok := s.Lookup("BRD-K87654321")
	require.True(t, ok)
	assert.Equal(t, "KTUFNOKKBVMGRW-UHFFFAOYSA-N", d.InChIKey)
	assert.Equal(t, "imatinib", d.Name)

	idx := s.ByInChIKey()
	assert.Len(t, idx, 2)
	assert.Equal(t, "aspirin", idx["BSYNRYMUTXBXSQ-UHFFFAOYSA-N"].Name)

	_, err = ReadSnapshot(strings.NewReader("a,b\n1,2\n"))
	assert.Error(t, err)
}

func TestLoadSnapshot_Missing(t *testing.T) {
	_, err := LoadSnapshot(filepath.Join(os.TempDir(), "does-not-exist", "meta.csv"))
	assert.Error(t, err)
}
