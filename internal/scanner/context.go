package scanner

import (
	"context"
	"sync"
	"sync/atomic"

	"lms/config"
	"lms/internal/catalog"
	applog "lms/pkg/logger"
)

// Step is one ordered unit of scan work.
type Step interface {
	Name() string
	Execute(ctx *Context) error
}

// Context threads everything a Step needs: cancellation, the catalog
// session, config, the force flag, the bounded error log, and the
// in-flight stats a step mutates as it runs.
type Context struct {
	context.Context

	Store  *catalog.Store
	Config config.Config
	Force  bool
	Log    applog.Logger

	stats    *Stats
	statsMu  sync.Mutex
	errorLog []ScanError
	errMu    sync.Mutex
	aborted  atomic.Bool

	onProgress func(StepStats)

	// Discovered is populated by the discover step and consumed by the
	// parse+upsert step; steps run strictly sequentially so no locking
	// is needed across this handoff.
	Discovered []FileToScan

	// DiscoveredImages is populated by the discover step alongside
	// Discovered: standalone cover-art files (e.g. cover.jpg) found in
	// the same directories, consumed by the external artwork upsert
	// step.
	DiscoveredImages []ImageToScan
}

func newScanContext(ctx context.Context, store *catalog.Store, cfg config.Config, force bool, log applog.Logger, onProgress func(StepStats)) *Context {
	return &Context{
		Context:    ctx,
		Store:      store,
		Config:     cfg,
		Force:      force,
		Log:        log,
		stats:      newStats(),
		onProgress: onProgress,
	}
}

// Aborted reports whether the scan was interrupted: Abort set the flag
// or the scan's context was cancelled (Service.AbortScan cancels it).
// Steps check this between files and between step boundaries.
func (c *Context) Aborted() bool {
	return c.aborted.Load() || c.Err() != nil
}

func (c *Context) Abort() {
	c.aborted.Store(true)
}

func (c *Context) RecordError(e ScanError) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if len(c.errorLog) < maxErrorLogSize {
		c.errorLog = append(c.errorLog, e)
	}
	c.statsMu.Lock()
	c.stats.ErrorsByKind[e.Kind.String()]++
	c.statsMu.Unlock()
}

func (c *Context) IncFilesScanned(n int) { c.addStat(&c.stats.FilesScanned, n) }
func (c *Context) IncAdded(n int) { c.addStat(&c.stats.Added, n) }
func (c *Context) IncUpdated(n int) { c.addStat(&c.stats.Updated, n) }
func (c *Context) IncRemoved(n int) { c.addStat(&c.stats.Removed, n) }

func (c *Context) addStat(field *int, n int) {
	c.statsMu.Lock()
	*field += n
	c.statsMu.Unlock()
}

func (c *Context) Snapshot(stepName string) StepStats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return StepStats{
		StepName:     stepName,
		FilesScanned: c.stats.FilesScanned,
		Added:        c.stats.Added,
		Updated:      c.stats.Updated,
		Removed:      c.stats.Removed,
	}
}

// Progress reports the current snapshot to the throttled publisher,
// a no-op if no callback was wired.
func (c *Context) Progress(stepName string) {
	if c.onProgress != nil {
		c.onProgress(c.Snapshot(stepName))
	}
}
