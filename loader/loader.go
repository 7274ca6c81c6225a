// Package loader indexes name to InChIKey conversions into ElasticSearch.
package loader

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/olivere/elastic"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/chembl/drugname2inchi/config"
	"github.com/chembl/drugname2inchi/converter"
)

// Conversion is the document stored for every converted name
type Conversion struct {
	Name      string    `json:"name"`
	InChIKeys []string  `json:"inchi_keys"`
	Source    string    `json:"source"`
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
}

// WorkerResponse contains the result of the BulkRequest to the ElasticSearch index
type WorkerResponse struct {
	Succeeded    int
	Indexed      int
	Created      int
	Updated      int
	Failed       int
	BulkResponse *elastic.BulkResponse
}

// Add accumulates the counters of another response
func (w *WorkerResponse) Add(o WorkerResponse) {
	w.Succeeded += o.Succeeded
	w.Indexed += o.Indexed
	w.Created += o.Created
	w.Updated += o.Updated
	w.Failed += o.Failed
	w.BulkResponse = o.BulkResponse
}

// ElasticManager used for connection and adding conversions to the
// elastic server
type ElasticManager struct {
	logger             *zap.SugaredLogger
	Client             *elastic.Client
	IndexName          string
	TypeName           string
	Bulklimit          int
	RunID              string
	countBulkRequest   int
	currentBulkService *elastic.BulkService
	Totals             WorkerResponse
}

const mapping = `{
	"settings": {
		"number_of_replicas": 1,
		"number_of_shards": 1
	},
	"mappings": {
		"%s": {
			"properties": {
				"name": {
					"type": "keyword"
				},
				"inchi_keys": {
					"type": "keyword"
				},
				"source": {
					"type": "keyword"
				},
				"run_id": {
					"type": "keyword"
				},
				"created_at": {
					"type": "date"
				}
			}
		}
	}
}`

// Init function initializes an elastic client, pings it to check the provider server is up
// and creates the index when missing
func (em *ElasticManager) Init(ctx context.Context, conf *config.Configuration, logger *zap.SugaredLogger) error {
	em.logger = logger
	if em.IndexName == "" {
		em.IndexName = conf.Index
	}
	if em.TypeName == "" {
		em.TypeName = conf.Type
	}
	if em.Bulklimit <= 0 {
		em.Bulklimit = conf.BulkLimit
	}
	if em.RunID == "" {
		em.RunID = uuid.New().String()
	}

	opts := []elastic.ClientOptionFunc{
		elastic.SetURL(conf.ElasticHost),
		elastic.SetSniff(false),
		elastic.SetHealthcheck(false),
	}
	if conf.ElasticAuth.Username != "" {
		opts = append(opts, elastic.SetBasicAuth(conf.ElasticAuth.Username, conf.ElasticAuth.Password))
	}

	var err error
	em.Client, err = elastic.NewClient(opts...)
	if err != nil {
		em.logger.Error("Error connecting to ElasticSearch ", err)
		return errors.Wrap(err, "creating elastic client")
	}

	inf, code, err := em.Client.Ping(conf.ElasticHost).Do(ctx)
	if err != nil {
		em.logger.Error("Error Pinging elastic client ", err)
		return errors.Wrap(err, "pinging elastic")
	}
	em.logger.Infof("Succesfully pinged ElasticSearch server with code %d and version %s", code, inf.Version.Number)

	ex, err := em.Client.IndexExists(em.IndexName).Do(ctx)
	if err != nil {
		em.logger.Error("Error fetching index existence ", err)
		return errors.Wrap(err, "checking index")
	}

	if !ex {
		em.logger.Infof("Creating index %s", em.IndexName)
		in, err := em.Client.CreateIndex(em.IndexName).BodyString(indexMapping(em.TypeName)).Do(ctx)
		if err != nil {
			em.logger.Error("Error creating index ", err)
			return errors.Wrap(err, "creating index")
		}
		if !in.Acknowledged {
			return errors.Errorf("creation of index %s not acknowledged", em.IndexName)
		}
	} else {
		em.logger.Infof("Index %s exist, skipping its creation", em.IndexName)
	}

	em.currentBulkService = em.Client.Bulk()
	em.countBulkRequest = 0
	return nil
}

func indexMapping(typeName string) string {
	return fmt.Sprintf(mapping, typeName)
}

// AddToIndex fills a BulkRequest and sends it once em.Bulklimit is reached
func (em *ElasticManager) AddToIndex(ctx context.Context, c Conversion) error {
	em.logger.Debugw("Adding to index: ", "name", c.Name, "keys", c.InChIKeys)

	if c.RunID == "" {
		c.RunID = em.RunID
	}
	r := elastic.NewBulkIndexRequest().
		Index(em.IndexName).
		Type(em.TypeName).
		Id(em.documentID(c.Name)).
		Doc(c)
	em.currentBulkService = em.currentBulkService.Add(r)
	em.countBulkRequest++

	if em.countBulkRequest >= em.Bulklimit {
		em.logger.Debugf("Got %d sending BulkRequest", em.countBulkRequest)
		return em.SendCurrentBulk(ctx)
	}
	return nil
}

// documentID is stable for a name within a run
func (em *ElasticManager) documentID(name string) string {
	ns, err := uuid.Parse(em.RunID)
	if err != nil {
		ns = uuid.NameSpaceOID
	}
	return uuid.NewSHA1(ns, []byte(name)).String()
}

//SendCurrentBulk sends the pending requests regardless the BulkLimit has been reached or not
func (em *ElasticManager) SendCurrentBulk(ctx context.Context) error {
	if em.currentBulkService.NumberOfActions() == 0 {
		em.logger.Debug("No actions on current bulk service, skipping bulk")
		return nil
	}

	br, err := em.currentBulkService.Do(ctx)
	em.countBulkRequest = 0
	em.currentBulkService = em.Client.Bulk()
	if err != nil {
		return errors.Wrap(err, "sending bulk")
	}

	wr := WorkerResponse{
		Succeeded:    len(br.Succeeded()),
		Indexed:      len(br.Indexed()),
		Created:      len(br.Created()),
		Updated:      len(br.Updated()),
		Failed:       len(br.Failed()),
		BulkResponse: br,
	}
	em.Totals.Add(wr)
	em.logger.Infow(
		"WORKER_RESPONSE",
		"succeeded", wr.Succeeded,
		"indexed", wr.Indexed,
		"failed", wr.Failed,
		"Took", br.Took,
	)

	if wr.Failed > 0 {
		ids := ""
		for _, it := range br.Failed() {
			ids = ids + "," + it.Id
			if it.Error != nil {
				em.logger.Debug("Reason: ", it.Error.Reason)
			}
		}
		em.logger.Error("IDs with error ", ids)
		return errors.Errorf("%d documents failed to index", wr.Failed)
	}
	return nil
}

// IndexConversions stores every name of result, ordered by name
func (em *ElasticManager) IndexConversions(ctx context.Context, result map[string]converter.KeySet, source string) error {
	names := make([]string, 0, len(result))
	for n := range result {
		names = append(names, n)
	}
	sort.Strings(names)

	now := time.Now().UTC()
	for _, n := range names {
		err := em.AddToIndex(ctx, Conversion{
			Name:      n,
			InChIKeys: result[n].Sorted(),
			Source:    source,
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
	}
	return em.SendCurrentBulk(ctx)
}

//Close terminates the ElasticSearch Client
func (em *ElasticManager) Close() {
	if em.Client != nil {
		em.Client.Stop()
	}
}
