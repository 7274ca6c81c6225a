package l1000fwd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// BaseURL of the L1000FWD web service
const BaseURL = "http://amp.pharm.mssm.edu/L1000FWD/"

var upper = cases.Upper(language.Und)

// Synonym is one entry of the synonyms search answer
type Synonym struct {
	Name   string `json:"Name"`
	PertID string `json:"pert_id"`
}

// SynonymClient searches drug synonyms on L1000FWD
type SynonymClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

//NewSynonymClient creates a client for baseURL, BaseURL when empty
func NewSynonymClient(baseURL string, httpClient *http.Client, logger *zap.SugaredLogger) *SynonymClient {
	if baseURL == "" {
		baseURL = BaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &SynonymClient{baseURL: baseURL, httpClient: httpClient, logger: logger}
}

//NormalizeName turns a drug name into a synonyms query: spaces become hyphens, upper case
func NormalizeName(name string) string {
	return upper.String(strings.Replace(name, " ", "-", -1))
}

//Search returns the synonyms matching query. Any answer other than 200 yields no results.
func (c *SynonymClient) Search(ctx context.Context, query string) ([]Synonym, error) {
	u := c.baseURL + "synonyms/" + url.PathEscape(query)
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "building request for %s", query)
	}
	req = req.WithContext(ctx)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "searching synonyms of %s", query)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warnf("Synonyms search of %s answered %d", query, resp.StatusCode)
		return nil, nil
	}

	var found []Synonym
	if err := json.NewDecoder(resp.Body).Decode(&found); err != nil {
		return nil, errors.Wrapf(err, "decoding synonyms of %s", query)
	}
	return found, nil
}

// exactMatches keeps the pert ids of synonyms whose name equals the normalized query
func exactMatches(query string, found []Synonym) []string {
	var ids []string
	for _, s := range found {
		if upper.String(s.Name) == query {
			ids = append(ids, s.PertID)
		}
	}
	return ids
}
