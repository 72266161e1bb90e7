package trickplay

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	"github.com/vesper-player/vesper/filesystem"
	"github.com/vesper-player/vesper/log"
	"github.com/vesper-player/vesper/util"
	"golang.org/x/sync/errgroup"
)

// Result reports the outcome of one job. Err is nil on success, in which case
// Path holds a complete store that is not modified again.
type Result struct {
	ItemID string
	Path   string
	Info   Info
	Err    error
}

// Pipeline runs at most one job at a time. Starting a job for another item
// discards the previous one, including its output file.
type Pipeline struct {
	fs       afero.Fs
	dir      string
	fetcher  Fetcher
	complete func(Result)

	mu  sync.Mutex
	job *job
	seq int

	// repack serializes the decode-and-write step across jobs.
	repack sync.Mutex
}

type job struct {
	itemID string
	info   Info
	path   string
	cancel context.CancelFunc
	ready  bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFs overrides the filesystem the store is written to.
func WithFs(fs afero.Fs) Option {
	return func(p *Pipeline) { p.fs = fs }
}

// OnComplete registers the callback receiving every job's Result. It runs on
// the job's goroutine.
func OnComplete(fn func(Result)) Option {
	return func(p *Pipeline) { p.complete = fn }
}

// New creates a pipeline writing stores under dir.
func New(dir string, fetcher Fetcher, opts ...Option) *Pipeline {
	p := &Pipeline{
		fs:      filesystem.API(),
		dir:     dir,
		fetcher: fetcher,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// StartProcessing begins a job for itemID. Calling it again for the item of
// the active (running or finished) job is a no-op.
func (p *Pipeline) StartProcessing(itemID string, info Info) error {
	if err := info.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	if p.job != nil && p.job.itemID == itemID {
		p.mu.Unlock()
		return nil
	}

	previous := p.detachLocked()

	p.seq++
	ctx, cancel := context.WithCancel(context.Background())
	j := &job{
		itemID: itemID,
		info:   info,
		path:   filepath.Join(p.dir, fmt.Sprintf("%s-%d-%d.bgra", util.SanitizeFilename(itemID), info.Width, p.seq)),
		cancel: cancel,
	}
	p.job = j
	p.mu.Unlock()

	p.discard(previous)

	log.WithFields(log.Fields{
		"item":  itemID,
		"tiles": info.TotalTiles(),
		"count": info.ThumbnailCount,
	}).Info("trickplay job started")

	go p.run(ctx, j)
	return nil
}

// Clear cancels the active job and deletes its output. Safe to call repeatedly.
func (p *Pipeline) Clear() {
	p.mu.Lock()
	previous := p.detachLocked()
	p.mu.Unlock()

	p.discard(previous)
}

// Close releases everything the pipeline owns.
func (p *Pipeline) Close() {
	p.Clear()
}

// Ready returns the store path when the job for itemID has completed.
func (p *Pipeline) Ready(itemID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.job == nil || p.job.itemID != itemID || !p.job.ready {
		return "", false
	}
	return p.job.path, true
}

// OutputPath returns where the store for itemID is (or will be) written while
// its job is the active one.
func (p *Pipeline) OutputPath(itemID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.job == nil || p.job.itemID != itemID {
		return "", false
	}
	return p.job.path, true
}

func (p *Pipeline) detachLocked() *job {
	j := p.job
	p.job = nil
	return j
}

func (p *Pipeline) discard(j *job) {
	if j == nil {
		return
	}

	j.cancel()
	if err := filesystem.RemoveIfExists(p.fs, j.path); err != nil {
		log.WithField("path", j.path).Warnf("remove trickplay store: %v", err)
	}
}

func (p *Pipeline) run(ctx context.Context, j *job) {
	tiles, err := p.download(ctx, j)
	if err == nil {
		err = p.write(ctx, j, tiles)
	}
	p.finish(j, err)
}

type tile struct {
	index int
	data  []byte
}

// download fetches every tile concurrently and joins once all have arrived.
func (p *Pipeline) download(ctx context.Context, j *job) (map[int][]byte, error) {
	total := j.info.TotalTiles()
	arrived := make(chan tile, total)

	g, gctx := errgroup.WithContext(ctx)
	for index := 0; index < total; index++ {
		g.Go(func() error {
			data, err := p.fetcher.Fetch(gctx, j.itemID, j.info, index)
			if err != nil {
				return fmt.Errorf("fetch tile %d: %w", index, err)
			}
			arrived <- tile{index: index, data: data}
			return nil
		})
	}

	err := g.Wait()
	close(arrived)
	if err != nil {
		return nil, err
	}

	tiles := make(map[int][]byte, total)
	for t := range arrived {
		tiles[t.index] = t.data
	}
	return tiles, nil
}

func (p *Pipeline) write(ctx context.Context, j *job, tiles map[int][]byte) error {
	p.repack.Lock()
	defer p.repack.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	return filesystem.WriteAtomic(p.fs, j.path, func(w io.Writer) error {
		bw := bufio.NewWriterSize(w, j.info.FrameSize())
		if err := Pack(bw, tiles, j.info); err != nil {
			return err
		}
		return bw.Flush()
	})
}

func (p *Pipeline) finish(j *job, err error) {
	p.mu.Lock()
	current := p.job == j
	if current {
		if err != nil {
			p.job = nil
		} else {
			j.ready = true
		}
	}
	p.mu.Unlock()

	entry := log.WithField("item", j.itemID)

	if !current {
		// Superseded or cleared while running; whatever was written is stale.
		_ = filesystem.RemoveIfExists(p.fs, j.path)
		entry.Debug("trickplay job discarded")
		return
	}

	result := Result{ItemID: j.itemID, Info: j.info, Err: err}
	if err != nil {
		_ = filesystem.RemoveIfExists(p.fs, j.path)
		entry.Warnf("trickplay job failed: %v", err)
	} else {
		result.Path = j.path
		entry.WithField("path", j.path).Info("trickplay job finished")
	}

	if p.complete != nil {
		p.complete(result)
	}
}
