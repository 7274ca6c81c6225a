// Package converter turns drug names into InChIKeys. Names are resolved to
// SMILES through PubChem, each structure is converted to its InChIKey and,
// when asked, the InChIKey of the desalted structure is added as well.
package converter

import (
	"context"
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"github.com/vbauerster/mpb/v4"
	"github.com/vbauerster/mpb/v4/decor"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/chembl/drugname2inchi/metrics"
	"github.com/chembl/drugname2inchi/salts"
)

// MaxWorkers caps the default size of the parallel pool
const MaxWorkers = 12

//go:generate mockgen -destination=querier_mock.go -package=converter . Querier

// Querier resolves names and structures, *pubchem.Client implements it
type Querier interface {
	NameToSMILES(ctx context.Context, name string, isomeric bool) ([]string, error)
	SMILESToInChIKey(ctx context.Context, smiles string) (string, error)
}

// QuerierFactory creates a querier per worker so every worker throttles on its own backoff
type QuerierFactory func() Querier

// Options for the conversion of a single name
type Options struct {
	Isomeric   bool
	StripSalts bool
}

func DefaultOptions() Options {
	return Options{Isomeric: true, StripSalts: true}
}

// Converter maps drug names to InChIKeys
type Converter struct {
	NewQuerier QuerierFactory
	Remover    *salts.Remover
	Metrics    *metrics.Metrics
	Logger     *zap.SugaredLogger
	// Output receives the progress bar of verbose batches, stderr when nil
	Output io.Writer

	once    sync.Once
	querier Querier
}

// New creates a Converter using the default salt definitions
func New(factory QuerierFactory, logger *zap.SugaredLogger) *Converter {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Converter{
		NewQuerier: factory,
		Remover:    salts.NewRemover(),
		Logger:     logger,
	}
}

// DefaultWorkers is min(max(NumCPU, 1), MaxWorkers)
func DefaultWorkers() int {
	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}
	if n > MaxWorkers {
		n = MaxWorkers
	}
	return n
}

func (c *Converter) sharedQuerier() Querier {
	c.once.Do(func() {
		c.querier = c.NewQuerier()
	})
	return c.querier
}

// ToInChIKeys converts one name
func (c *Converter) ToInChIKeys(ctx context.Context, name string, opts Options) (KeySet, error) {
	return c.convert(ctx, c.sharedQuerier(), name, opts)
}

func (c *Converter) convert(ctx context.Context, q Querier, name string, opts Options) (KeySet, error) {
	logger := c.logger()
	keys := NewKeySet()

	smiles, err := q.NameToSMILES(ctx, name, opts.Isomeric)
	if err != nil {
		c.Metrics.ObserveConversion("error")
		return keys, errors.Wrapf(err, "resolving %q", name)
	}
	logger.Debugw("Resolved name", "name", name, "smiles", smiles)

	for _, s := range smiles {
		key, err := q.SMILESToInChIKey(ctx, s)
		if err != nil {
			c.Metrics.ObserveConversion("error")
			return keys, errors.Wrapf(err, "InChIKey of %q (%s)", name, s)
		}
		keys.Add(key)

		if !opts.StripSalts {
			continue
		}
		stripped, removed := c.remover().Strip(s)
		if len(removed) == 0 {
			continue
		}
		logger.Debugf("Stripped %v from %s", removed, s)
		key, err = q.SMILESToInChIKey(ctx, stripped)
		if err != nil {
			c.Metrics.ObserveConversion("error")
			return keys, errors.Wrapf(err, "InChIKey of desalted %q (%s)", name, stripped)
		}
		keys.Add(key)
	}

	if len(keys) == 0 {
		logger.Infof("No InChIKey found for %q", name)
		c.Metrics.ObserveConversion("empty")
	} else {
		c.Metrics.ObserveConversion("ok")
	}
	return keys, nil
}

func (c *Converter) logger() *zap.SugaredLogger {
	if c.Logger == nil {
		c.Logger = zap.NewNop().Sugar()
	}
	return c.Logger
}

func (c *Converter) remover() *salts.Remover {
	if c.Remover == nil {
		c.Remover = salts.NewRemover()
	}
	return c.Remover
}

// BatchSingleThread converts the distinct names one after the other. Names
// that fail map to an empty set, their errors are returned combined.
func (c *Converter) BatchSingleThread(ctx context.Context, names []string, opts Options, verbose bool) (map[string]KeySet, error) {
	names = Dedupe(names)
	all := make(map[string]KeySet, len(names))

	var bar *mpb.Bar
	var p *mpb.Progress
	if verbose && len(names) > 0 {
		p, bar = c.progress(len(names))
	}

	var errs error
	q := c.sharedQuerier()
	for _, name := range names {
		keys, err := c.convert(ctx, q, name, opts)
		if err != nil {
			c.logger().Errorw("Conversion failed", "name", name, "error", err)
			errs = multierr.Append(errs, err)
		}
		all[name] = keys
		if bar != nil {
			bar.Increment()
		}
	}

	if p != nil {
		p.Wait()
	}
	return all, errs
}

func (c *Converter) progress(total int) (*mpb.Progress, *mpb.Bar) {
	out := c.Output
	if out == nil {
		out = os.Stderr
	}
	p := mpb.New(mpb.WithOutput(out), mpb.WithWidth(40))
	bar := p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name("Completed "),
			decor.CountersNoUnit("%d/%d"),
			decor.Name(" drugs"),
		),
		mpb.AppendDecorators(decor.Percentage()),
	)
	return p, bar
}

// Batch converts the distinct names on a pool of workers, DefaultWorkers when
// workers <= 0. Every worker owns a querier from NewQuerier, so rate limits are
// not coordinated between workers.
func (c *Converter) Batch(ctx context.Context, names []string, opts Options, workers int) (map[string]KeySet, error) {
	names = Dedupe(names)
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	if workers > len(names) {
		workers = len(names)
	}
	// workers only read the defaults once set here
	c.remover()
	c.logger().Infof("Converting %d names with %d workers", len(names), workers)

	results := make([]KeySet, len(names))
	errs := make([]error, len(names))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			q := c.NewQuerier()
			for i := range jobs {
				results[i], errs[i] = c.convert(ctx, q, names[i], opts)
			}
			c.logger().Debugf("Worker %d done", id)
		}(w)
	}

	for i := range names {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	all := make(map[string]KeySet, len(names))
	var combined error
	for i, name := range names {
		all[name] = results[i]
		if errs[i] != nil {
			c.logger().Errorw("Conversion failed", "name", name, "error", errs[i])
			combined = multierr.Append(combined, errs[i])
		}
	}
	return all, combined
}
