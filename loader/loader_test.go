package loader

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chembl/drugname2inchi/config"
	"github.com/chembl/drugname2inchi/converter"
)

// fakeElastic answers the few endpoints the manager uses and records the bulk documents
type fakeElastic struct {
	mu          sync.Mutex
	indexExists bool
	created     string
	bulks       int
	docs        []Conversion
	ids         []string
	failID      string
}

func (f *fakeElastic) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/" && r.Method == http.MethodGet:
		fmt.Fprint(w, `{"name":"node","cluster_name":"test","version":{"number":"6.8.0"},"tagline":"You Know, for Search"}`)
	case r.URL.Path == "/_bulk":
		f.bulk(w, r)
	case r.Method == http.MethodHead:
		if !f.indexExists {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut:
		var body strings.Builder
		s := bufio.NewScanner(r.Body)
		for s.Scan() {
			body.WriteString(s.Text())
		}
		f.created = body.String()
		f.indexExists = true
		fmt.Fprintf(w, `{"acknowledged":true,"shards_acknowledged":true,"index":"%s"}`, strings.TrimPrefix(r.URL.Path, "/"))
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func (f *fakeElastic) bulk(w http.ResponseWriter, r *http.Request) {
	f.bulks++
	var items []string
	s := bufio.NewScanner(r.Body)
	for s.Scan() {
		var action map[string]struct {
			ID string `json:"_id"`
		}
		if err := json.Unmarshal(s.Bytes(), &action); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if !s.Scan() {
			break
		}
		var doc Conversion
		if err := json.Unmarshal(s.Bytes(), &doc); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		id := action["index"].ID
		f.ids = append(f.ids, id)
		f.docs = append(f.docs, doc)

		status, result := 201, "created"
		if doc.Name == f.failID {
			status, result = 400, "error"
		}
		item := fmt.Sprintf(`{"index":{"_index":"drugs","_type":"_doc","_id":"%s","status":%d,"result":"%s"`, id, status, result)
		if status >= 300 {
			item += `,"error":{"type":"mapper_parsing_exception","reason":"failed to parse"}`
		}
		items = append(items, item+"}}")
	}
	errs := f.failID != ""
	fmt.Fprintf(w, `{"took":3,"errors":%t,"items":[%s]}`, errs, strings.Join(items, ","))
}

func newManager(t *testing.T, f *fakeElastic, limit int) *ElasticManager {
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)

	conf := config.Default()
	conf.ElasticHost = server.URL
	conf.Index = "drugs"
	conf.BulkLimit = limit

	em := &ElasticManager{}
	require.NoError(t, em.Init(context.Background(), conf, zap.NewNop().Sugar()))
	t.Cleanup(em.Close)
	return em
}

func TestInit_CreatesIndex(t *testing.T) {
	f := &fakeElastic{}
	em := newManager(t, f, 10)

	assert.True(t, f.indexExists)
	assert.Contains(t, f.created, `"inchi_keys"`)
	assert.Contains(t, f.created, `"_doc"`)
	assert.Equal(t, "drugs", em.IndexName)
	assert.NotEmpty(t, em.RunID)
}

func TestInit_ExistingIndex(t *testing.T) {
	f := &fakeElastic{indexExists: true}
	newManager(t, f, 10)
	assert.Empty(t, f.created)
}

func TestIndexConversions(t *testing.T) {
	f := &fakeElastic{indexExists: true}
	em := newManager(t, f, 2)

	result := map[string]converter.KeySet{
		"aspirin":    converter.NewKeySet("BSYNRYMUTXBXSQ-UHFFFAOYSA-N"),
		"imatinib":   converter.NewKeySet("KTUFNOKKBVMGRW-UHFFFAOYSA-N", "YLMAHDNUQAMNNX-UHFFFAOYSA-N"),
		"not a drug": converter.NewKeySet(),
	}
	require.NoError(t, em.IndexConversions(context.Background(), result, "pubchem"))

	assert.Equal(t, 2, f.bulks)
	require.Len(t, f.docs, 3)
	assert.Equal(t, "aspirin", f.docs[0].Name)
	assert.Equal(t, []string{"KTUFNOKKBVMGRW-UHFFFAOYSA-N", "YLMAHDNUQAMNNX-UHFFFAOYSA-N"}, f.docs[1].InChIKeys)
	assert.Empty(t, f.docs[2].InChIKeys)
	for i, d := range f.docs {
		assert.Equal(t, em.RunID, d.RunID)
		assert.Equal(t, "pubchem", d.Source)
		assert.Equal(t, em.documentID(d.Name), f.ids[i])
	}
	assert.Equal(t, 3, em.Totals.Succeeded)
	assert.Equal(t, 0, em.Totals.Failed)
}

func TestIndexConversions_Failures(t *testing.T) {
	f := &fakeElastic{indexExists: true, failID: "imatinib"}
	em := newManager(t, f, 10)

	result := map[string]converter.KeySet{
		"aspirin":  converter.NewKeySet("BSYNRYMUTXBXSQ-UHFFFAOYSA-N"),
		"imatinib": converter.NewKeySet("KTUFNOKKBVMGRW-UHFFFAOYSA-N"),
	}
	err := em.IndexConversions(context.Background(), result, "pubchem")
	require.Error(t, err)
	assert.Equal(t, 1, em.Totals.Failed)
	assert.Equal(t, 1, em.Totals.Succeeded)
}

func TestDocumentID(t *testing.T) {
	em := &ElasticManager{RunID: "6ba7b812-9dad-11d1-80b4-00c04fd430c8"}
	assert.Equal(t, em.documentID("aspirin"), em.documentID("aspirin"))
	assert.NotEqual(t, em.documentID("aspirin"), em.documentID("ibuprofen"))

	other := &ElasticManager{RunID: "not-a-uuid"}
	assert.NotEmpty(t, other.documentID("aspirin"))
}

func TestSendCurrentBulk_Empty(t *testing.T) {
	f := &fakeElastic{indexExists: true}
	em := newManager(t, f, 10)
	require.NoError(t, em.SendCurrentBulk(context.Background()))
	assert.Equal(t, 0, f.bulks)
}
