// Package config loads the YAML configuration of drugname2inchi.
package config

import (
	"fmt"
	"io/ioutil"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/chembl/drugname2inchi/backoff"
	"github.com/chembl/drugname2inchi/l1000fwd"
	"github.com/chembl/drugname2inchi/pubchem"
)

// DefaultPath is read when no config path is given
const DefaultPath = "config.yaml"

//ElasticAuth credentials for the Elastic cluster
type ElasticAuth struct {
	Username, Password string
}

//PubChem client settings. A zero MaxAttempts means the default bound, a
//negative one retries forever.
type PubChem struct {
	URL              string
	MinBackoff       time.Duration
	MaxBackoff       time.Duration
	MaxAttempts      int
	Timeout          time.Duration
	BreakerThreshold uint32
	BreakerTimeout   time.Duration
}

//L1000FWD service and metadata snapshot
type L1000FWD struct {
	URL      string
	Metadata string
}

//Redis cache of PubChem answers, an empty Addr keeps the cache in memory
type Redis struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

//Configuration stores the configuration parameters required for the application
type Configuration struct {
	LogPath     string
	MetricsAddr string
	Workers     int
	Canonical   bool
	KeepSalts   bool
	NoCache     bool

	PubChem  PubChem
	L1000FWD L1000FWD
	Redis    Redis

	OracleConn string
	Query      string

	ElasticHost string
	ElasticAuth ElasticAuth
	BulkLimit   int
	Index       string
	Type        string
}

//LoadConfig opening a yaml config file (config.yaml)
func LoadConfig(c string) (*Configuration, error) {

	var t Configuration
	var fn string

	if len(c) > 0 {
		fn = c
	} else {
		fn = DefaultPath
	}

	fmt.Printf("Using config path: %s \n", fn)

	data, err := ioutil.ReadFile(fn)
	if err != nil {
		return &t, err
	}

	t, err = Parse(data)
	return &t, err
}

//Parse decodes YAML and fills the unset values with their defaults
func Parse(data []byte) (Configuration, error) {
	var t Configuration
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, err
	}
	t.ApplyDefaults()
	return t, nil
}

//Default is the configuration used when no file exists
func Default() *Configuration {
	var t Configuration
	t.ApplyDefaults()
	return &t
}

//ApplyDefaults sets every zero value that has a default
func (t *Configuration) ApplyDefaults() {
	if t.LogPath == "" {
		t.LogPath = "."
	}
	if t.PubChem.URL == "" {
		t.PubChem.URL = pubchem.BaseURL
	}
	if t.PubChem.MinBackoff <= 0 {
		t.PubChem.MinBackoff = backoff.DefaultMin
	}
	if t.PubChem.MaxBackoff <= 0 {
		t.PubChem.MaxBackoff = backoff.DefaultMax
	}
	if t.PubChem.MaxAttempts == 0 {
		t.PubChem.MaxAttempts = 10
	}
	if t.PubChem.Timeout <= 0 {
		t.PubChem.Timeout = 30 * time.Second
	}
	if t.L1000FWD.URL == "" {
		t.L1000FWD.URL = l1000fwd.BaseURL
	}
	if t.L1000FWD.Metadata == "" {
		t.L1000FWD.Metadata = l1000fwd.DefaultSnapshotPath
	}
	if t.Redis.Prefix == "" {
		t.Redis.Prefix = "drugname2inchi:"
	}
	if t.Redis.TTL <= 0 {
		t.Redis.TTL = 24 * time.Hour
	}
	if t.BulkLimit <= 0 {
		t.BulkLimit = 500
	}
	if t.Index == "" {
		t.Index = "drugname2inchi"
	}
	if t.Type == "" {
		t.Type = "_doc"
	}
}

//RetriesForever reports whether the PubChem retries are unbounded
func (t *Configuration) RetriesForever() bool {
	return t.PubChem.MaxAttempts < 0
}
