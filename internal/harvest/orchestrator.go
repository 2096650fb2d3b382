package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/reviewharvest/internal/config"
	"github.com/nao1215/reviewharvest/internal/identity"
	"github.com/nao1215/reviewharvest/internal/model"
	"github.com/nao1215/reviewharvest/internal/source"
)

// Resolver looks up target metadata. source.Source satisfies it.
type Resolver interface {
	ResolveMetadata(ctx context.Context, id string, locale model.Locale) (model.Target, error)
}

// Enricher post-processes a dataset after a severity level completes.
type Enricher interface {
	Enrich(ctx context.Context, key model.DatasetKey) error
}

// Binding is what the orchestrator needs from one network identity.
type Binding struct {
	Runner   PartitionRunner
	Resolver Resolver
}

// BindFunc builds the runner and resolver that use identity id.
type BindFunc func(id identity.Identity) Binding

// NewBinder returns a BindFunc creating a source per identity with factory
// and a Controller over it. The merger is shared by all identities.
func NewBinder(factory source.Factory, merger RecordMerger, limits Limits, opts ...ControllerOption) BindFunc {
	return func(id identity.Identity) Binding {
		src := factory(id.HTTPClient())
		return Binding{
			Runner:   NewController(NewFetcher(src), merger, limits, opts...),
			Resolver: src,
		}
	}
}

// Orchestrator runs a whole harvest: targets, then severity levels, then
// the locale catalog.
type Orchestrator struct {
	rotator     identity.Rotator
	bind        BindFunc
	catalog     []model.Locale
	levels      []model.SeverityLevel
	rotatePer   string
	concurrency int
	enricher    Enricher
	metaLocale  model.Locale
	logger      *slog.Logger
	now         func() time.Time
}

// harvestRun is the state of one Run call. Concurrent Runs on the same
// Orchestrator each get their own.
type harvestRun struct {
	*Orchestrator

	mu      sync.Mutex
	summary *model.RunSummary
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithConcurrency sets how many targets are harvested at once.
func WithConcurrency(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithRotatePer sets the identity scope: config.RotatePerLevel,
// config.RotatePerPartition or config.RotatePerRun.
func WithRotatePer(scope string) OrchestratorOption {
	return func(o *Orchestrator) {
		if scope != "" {
			o.rotatePer = scope
		}
	}
}

// WithEnricher sets the pass run on each dataset after its level completes.
func WithEnricher(e Enricher) OrchestratorOption {
	return func(o *Orchestrator) {
		o.enricher = e
	}
}

// WithMetadataLocale sets the locale used to resolve target titles.
// It defaults to the first catalog entry.
func WithMetadataLocale(locale model.Locale) OrchestratorOption {
	return func(o *Orchestrator) {
		o.metaLocale = locale
	}
}

// WithOrchestratorLogger sets the logger.
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOrchestrator creates an orchestrator. catalog must not be empty.
func NewOrchestrator(rotator identity.Rotator, bind BindFunc, catalog []model.Locale, levels []model.SeverityLevel, opts ...OrchestratorOption) (*Orchestrator, error) {
	if len(catalog) == 0 {
		return nil, config.ErrEmptyCatalog
	}
	if len(levels) == 0 {
		return nil, config.ErrNoLevels
	}

	o := &Orchestrator{
		rotator:     rotator,
		bind:        bind,
		catalog:     catalog,
		levels:      levels,
		rotatePer:   config.RotatePerLevel,
		concurrency: config.DefaultConcurrency,
		metaLocale:  catalog[0],
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.rotatePer == config.RotatePerRun && o.concurrency > 1 {
		return nil, config.ErrRunScopeConcurrency
	}
	switch o.rotatePer {
	case config.RotatePerLevel, config.RotatePerPartition, config.RotatePerRun:
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrInvalidRotateScope, o.rotatePer)
	}
	return o, nil
}

// scopeFunc runs fn with the binding of an identity.
type scopeFunc func(ctx context.Context, fn func(Binding) error) error

// Run harvests every target in ids. It returns the summary of everything
// that ran; cancellation of ctx marks the summary interrupted rather than
// returning an error. Errors are returned only when the run could not
// start because no identity could be acquired to resolve the targets.
func (o *Orchestrator) Run(ctx context.Context, ids []string) (*model.RunSummary, error) {
	hr := &harvestRun{Orchestrator: o, summary: &model.RunSummary{StartedAt: o.now()}}
	return hr.execute(ctx, ids)
}

func (o *harvestRun) execute(ctx context.Context, ids []string) (*model.RunSummary, error) {
	if len(ids) == 0 {
		o.logger.Warn("no targets to harvest")
		o.summary.FinishedAt = o.now()
		return o.summary, nil
	}

	var err error
	if o.rotatePer == config.RotatePerRun {
		err = identity.Use(ctx, o.rotator, func(id identity.Identity) error {
			b := o.bind(id)
			o.logger.Info("identity acquired for the run", "identity", id.Name())
			return o.run(ctx, ids, func(_ context.Context, fn func(Binding) error) error {
				return fn(b)
			})
		})
	} else {
		err = o.run(ctx, ids, o.rotatingScope)
	}

	o.summary.FinishedAt = o.now()
	o.sortResults(ids)

	if ctx.Err() != nil {
		o.summary.Interrupted = true
		return o.summary, nil
	}
	if err != nil && errors.Is(err, identity.ErrAcquire) {
		return o.summary, err
	}
	if err != nil {
		o.logger.Warn("run finished with errors", "error", err)
	}
	return o.summary, nil
}

// rotatingScope acquires a fresh identity for every call.
func (o *Orchestrator) rotatingScope(ctx context.Context, fn func(Binding) error) error {
	return identity.Use(ctx, o.rotator, func(id identity.Identity) error {
		o.logger.Info("identity acquired", "identity", id.Name())
		return fn(o.bind(id))
	})
}

func (o *harvestRun) run(ctx context.Context, ids []string, scope scopeFunc) error {
	targets, err := o.resolve(ctx, ids, scope)
	if err != nil {
		return err
	}

	o.mu.Lock()
	o.summary.Targets = targets
	o.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			o.logger.Info("harvesting target",
				"target", target.DisplayName(),
				"id", target.ID,
				"index", i+1,
				"total", len(targets),
			)
			return o.harvestTarget(gctx, target, scope)
		})
	}
	return g.Wait()
}

// resolve looks up the metadata of every id under one identity scope.
// Targets that cannot be resolved are skipped.
func (o *harvestRun) resolve(ctx context.Context, ids []string, scope scopeFunc) ([]model.Target, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var targets []model.Target
	err := scope(ctx, func(b Binding) error {
		for _, id := range ids {
			target, err := b.Resolver.ResolveMetadata(ctx, id, o.metaLocale)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				o.logger.Warn("skipping target: metadata unavailable", "id", id, "error", err)
				o.mu.Lock()
				o.summary.Skipped = append(o.summary.Skipped, id)
				o.mu.Unlock()
				continue
			}
			targets = append(targets, target)
		}
		return nil
	})
	if err != nil && errors.Is(err, identity.ErrRelease) && ctx.Err() == nil {
		o.logger.Warn("identity release failed", "error", err)
		err = nil
	}
	return targets, err
}

// harvestTarget crawls every level of target.
func (o *harvestRun) harvestTarget(ctx context.Context, target model.Target, scope scopeFunc) error {
	for _, level := range o.levels {
		partitions := make([]model.Partition, len(o.catalog))
		for i, locale := range o.catalog {
			partitions[i] = model.Partition{Target: target, Level: level, Locale: locale}
		}

		if o.rotatePer == config.RotatePerPartition {
			for _, p := range partitions {
				if err := o.runScoped(ctx, scope, []model.Partition{p}); err != nil {
					return err
				}
			}
		} else if err := o.runScoped(ctx, scope, partitions); err != nil {
			return err
		}

		o.logger.Info("level finished", "target", target.DisplayName(), "level", int(level))
		o.enrich(ctx, model.DatasetKey{TargetID: target.ID, Level: level})
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// runScoped runs partitions one after another under one identity scope.
// Partitions that could not run because no identity was available are
// recorded as abandoned. Only cancellation is returned.
func (o *harvestRun) runScoped(ctx context.Context, scope scopeFunc, partitions []model.Partition) error {
	ran := 0
	err := scope(ctx, func(b Binding) error {
		for _, p := range partitions {
			res, err := b.Runner.Run(ctx, p)
			o.record(res)
			ran++
			if err != nil {
				return err
			}
		}
		return nil
	})

	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case err == nil:
		return nil
	case errors.Is(err, identity.ErrAcquire):
		o.logger.Error("no network identity, abandoning partitions", "partitions", len(partitions)-ran, "error", err)
		for _, p := range partitions[ran:] {
			o.record(model.PartitionResult{
				Partition: p,
				Outcome:   model.OutcomeAbandoned,
				Err:       err,
				Error:     err.Error(),
			})
		}
		return nil
	default:
		o.logger.Warn("identity release failed", "error", err)
		return nil
	}
}

// enrich runs the enricher for key. Failures are logged and otherwise
// ignored.
func (o *Orchestrator) enrich(ctx context.Context, key model.DatasetKey) {
	if o.enricher == nil || ctx.Err() != nil {
		return
	}
	if err := o.enricher.Enrich(ctx, key); err != nil && ctx.Err() == nil {
		o.logger.Warn("enrichment failed", "dataset", key.String(), "error", err)
	}
}

func (o *harvestRun) record(res model.PartitionResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.summary.Results = append(o.summary.Results, res)
}

// sortResults orders results by target list, level and catalog order so
// that concurrent runs report deterministically.
func (o *harvestRun) sortResults(ids []string) {
	targetIndex := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, ok := targetIndex[id]; !ok {
			targetIndex[id] = i
		}
	}
	levelIndex := make(map[model.SeverityLevel]int, len(o.levels))
	for i, l := range o.levels {
		levelIndex[l] = i
	}
	localeIndex := make(map[model.Locale]int, len(o.catalog))
	for i, l := range o.catalog {
		if _, ok := localeIndex[l]; !ok {
			localeIndex[l] = i
		}
	}

	results := o.summary.Results
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].Partition, results[j].Partition
		if ta, tb := targetIndex[a.Target.ID], targetIndex[b.Target.ID]; ta != tb {
			return ta < tb
		}
		if la, lb := levelIndex[a.Level], levelIndex[b.Level]; la != lb {
			return la < lb
		}
		return localeIndex[a.Locale] < localeIndex[b.Locale]
	})
}
