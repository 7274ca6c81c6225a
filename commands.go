package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/chembl/drugname2inchi/backoff"
	"github.com/chembl/drugname2inchi/cache"
	"github.com/chembl/drugname2inchi/config"
	"github.com/chembl/drugname2inchi/converter"
	"github.com/chembl/drugname2inchi/extractor"
	"github.com/chembl/drugname2inchi/l1000fwd"
	"github.com/chembl/drugname2inchi/loader"
	"github.com/chembl/drugname2inchi/pubchem"
)

type convertFlags struct {
	file      string
	oracle    bool
	oraconn   string
	index     bool
	eshost    string
	parallel  bool
	workers   int
	canonical bool
	keepSalts bool
	verbose   bool
}

func newConvertCmd() *cobra.Command {
	var f convertFlags
	cmd := &cobra.Command{
		Use:   "convert [names...]",
		Short: "Converts drug names into InChIKeys through PubChem",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd.OutOrStdout(), f, args)
		},
	}
	cmd.Flags().StringVar(&f.file, "file", "", "File with one drug name per line")
	cmd.Flags().BoolVar(&f.oracle, "oracle", false, "Reads the drug names from the Oracle query of the config file")
	cmd.Flags().StringVar(&f.oraconn, "oraconn", "", "Oracle Database connection string: Example: 'hr/hr@localhost:1521:XE'")
	cmd.Flags().BoolVar(&f.index, "index", false, "Indexes the conversions into ElasticSearch")
	cmd.Flags().StringVar(&f.eshost, "eshost", "", "ElasticSearch host, Example: http://0.0.0.0:9200")
	cmd.Flags().BoolVar(&f.parallel, "parallel", false, "Converts on a pool of workers")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Size of the pool, defaults to the number of CPUs up to 12")
	cmd.Flags().BoolVar(&f.canonical, "canonical", false, "Uses canonical instead of isomeric SMILES")
	cmd.Flags().BoolVar(&f.keepSalts, "keep-salts", false, "Skips the InChIKey of the desalted structure")
	cmd.Flags().BoolVar(&f.verbose, "verbose", false, "Shows a progress bar")
	return cmd
}

func collectNames(ctx context.Context, f convertFlags, args []string) ([]string, error) {
	names := append([]string{}, args...)
	if f.file != "" {
		fromFile, err := extractor.ReadNamesFile(f.file)
		if err != nil {
			return nil, err
		}
		names = append(names, fromFile...)
	}
	if f.oracle {
		if f.oraconn != "" {
			conf.OracleConn = f.oraconn
		}
		if conf.OracleConn == "" {
			return nil, errors.New("please provide an Oracle connection string")
		}
		ex := extractor.Extractor{Oraconn: conf.OracleConn, Query: conf.Query, Logger: logger}
		fromDB, err := ex.Names(ctx)
		if err != nil {
			return nil, err
		}
		names = append(names, fromDB...)
	}
	return names, nil
}

func newCache() cache.Cache {
	if conf.NoCache {
		return nil
	}
	if conf.Redis.Addr == "" {
		return cache.NewMemory()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	logger.Infof("Caching PubChem answers on redis %s", conf.Redis.Addr)
	return cache.NewRedis(client, conf.Redis.Prefix, conf.Redis.TTL)
}

// querierFactory gives every caller a client with its own backoff
func querierFactory(c *config.Configuration, ch cache.Cache) converter.QuerierFactory {
	httpClient := &http.Client{Timeout: c.PubChem.Timeout}
	return func() converter.Querier {
		return pubchem.NewClient(
			pubchem.WithBaseURL(c.PubChem.URL),
			pubchem.WithHTTPClient(httpClient),
			pubchem.WithBackoff(backoff.New(c.PubChem.MinBackoff, c.PubChem.MaxBackoff)),
			pubchem.WithMaxAttempts(c.PubChem.MaxAttempts),
			pubchem.WithBreaker(c.PubChem.BreakerThreshold, c.PubChem.BreakerTimeout),
			pubchem.WithCache(ch),
			pubchem.WithMetrics(stats),
			pubchem.WithLogger(logger),
		)
	}
}

func runConvert(out io.Writer, f convertFlags, args []string) error {
	ti := time.Now()
	defer elapsedTime(ti)

	ctx, cancel := signalContext()
	defer cancel()

	names, err := collectNames(ctx, f, args)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return errors.New("no drug names given, pass them as arguments, --file or --oracle")
	}

	conv := converter.New(querierFactory(conf, newCache()), logger)
	conv.Metrics = stats
	opts := converter.Options{
		Isomeric:   !(f.canonical || conf.Canonical),
		StripSalts: !(f.keepSalts || conf.KeepSalts),
	}

	var result map[string]converter.KeySet
	var convErr error
	if f.parallel {
		workers := f.workers
		if workers <= 0 {
			workers = conf.Workers
		}
		result, convErr = conv.Batch(ctx, names, opts, workers)
	} else {
		result, convErr = conv.BatchSingleThread(ctx, names, opts, f.verbose)
	}
	if convErr != nil {
		logger.Warnf("%d names failed to convert", len(multierr.Errors(convErr)))
	}

	if err := writeJSON(out, result); err != nil {
		return err
	}

	if f.index {
		if err := indexResult(ctx, f, result); err != nil {
			return multierr.Append(convErr, err)
		}
	}
	return convErr
}

func indexResult(ctx context.Context, f convertFlags, result map[string]converter.KeySet) error {
	if f.eshost != "" {
		conf.ElasticHost = f.eshost
	}
	if conf.ElasticHost == "" {
		return errors.New("please provide an ElasticSearch host")
	}
	logger.Infof("Elastic host %s", conf.ElasticHost)

	em := loader.ElasticManager{}
	if err := em.Init(ctx, conf, logger); err != nil {
		return err
	}
	defer em.Close()

	if err := em.IndexConversions(ctx, result, "pubchem"); err != nil {
		return err
	}
	logger.Infow("Indexed conversions", "run_id", em.RunID, "succeeded", em.Totals.Succeeded)
	return nil
}

func writeJSON(out io.Writer, result map[string]converter.KeySet) error {
	sorted := make(map[string][]string, len(result))
	for name, keys := range result {
		sorted[name] = keys.Sorted()
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(sorted)
}

func newL1000Service() *l1000fwd.Service {
	client := l1000fwd.NewSynonymClient(conf.L1000FWD.URL, &http.Client{Timeout: conf.PubChem.Timeout}, logger)
	s := l1000fwd.NewService(client, conf.L1000FWD.Metadata, logger)
	s.Output = os.Stderr
	return s
}

func newL1000Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "l1000",
		Short: "Queries the L1000FWD drug metadata",
	}

	var verbose bool
	query := &cobra.Command{
		Use:   "query names...",
		Short: "Converts drug names into InChIKeys through the L1000FWD synonyms",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			res, err := newL1000Service().QueryDrugNames(ctx, args, verbose)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, m := range res.Matches {
				key := m.InChIKey
				if m.Missing {
					key = "-"
				}
				fmt.Fprintf(out, "%s\t%s\n", m.PertID, key)
			}
			for _, n := range res.Unmatched {
				logger.Infof("%s not found", n)
			}
			return nil
		},
	}
	query.Flags().BoolVar(&verbose, "verbose", false, "Reports the names without match")

	names := &cobra.Command{
		Use:   "names keys...",
		Short: "Converts InChIKeys into L1000FWD drug names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := newL1000Service().GetDrugNames(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, d := range res {
				name := d.Name
				if !d.Found {
					name = "-"
				}
				fmt.Fprintf(out, "%s\t%s\n", d.Key, name)
			}
			return nil
		},
	}

	cmd.AddCommand(query, names)
	return cmd
}
