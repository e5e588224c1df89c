package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultWorkers is the number of files imported concurrently by Scan.
const DefaultWorkers = 10

var errWalkCancelled = errors.New("catalog: walk cancelled")

// Summary counts the outcome of a Scan.
type Summary struct {
	// Libraries is the number of files imported
	Libraries int64
	// Brushes is the number of brushes stored across all files
	Brushes int64
	// Failed is the number of files that could not be opened or had at
	// least one brush that failed to decode
	Failed int64
}

func isLibrary(file string) bool {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".abr", ".asl":
		return true
	}
	return false
}

func (c *Catalog) findFiles(ctx context.Context, base string) (<-chan string, <-chan error) {
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		errc <- filepath.WalkDir(base, func(file string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}

			// Ignore any hidden files or directories, such as those left by Spotlight
			if file != base && d.Name()[0] == '.' {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if !d.Type().IsRegular() || !isLibrary(file) {
				return nil
			}

			select {
			case out <- file:
			case <-ctx.Done():
				return errWalkCancelled
			}

			return nil
		})
	}()
	return out, errc
}

func (c *Catalog) importWorker(ctx context.Context, in <-chan string, summary *Summary) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for file := range in {
			if ctx.Err() != nil {
				return
			}

			result, err := c.Import(file)
			switch {
			case errors.Is(err, ErrDatabase):
				errc <- err
				return
			case err != nil:
				c.logger.Warn("skipping library", zap.String("file", file), zap.Error(err))
				atomic.AddInt64(&summary.Failed, 1)
				continue
			case result.Errors != nil:
				atomic.AddInt64(&summary.Failed, 1)
			}

			atomic.AddInt64(&summary.Libraries, 1)
			atomic.AddInt64(&summary.Brushes, int64(result.Brushes))
		}
	}()
	return errc
}

// waitForPipeline cancels the pipeline on the first error and waits for
// every stage to finish.
func waitForPipeline(cancel context.CancelFunc, errs ...<-chan error) error {
	var err error
	for e := range mergeErrors(errs...) {
		if e == nil || errors.Is(e, errWalkCancelled) {
			continue
		}
		if err == nil {
			cancel()
		}
		err = multierr.Append(err, e)
	}
	return err
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Scan imports every brush and style library found under path using the
// given number of workers. Files that cannot be decoded are logged and
// skipped; a database failure stops the scan.
func (c *Catalog) Scan(ctx context.Context, path string, workers int) (Summary, error) {
	dir, err := filepath.Abs(path)
	if err != nil {
		return Summary{}, err
	}

	if workers < 1 {
		workers = DefaultWorkers
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var summary Summary

	files, errc := c.findFiles(ctx, dir)
	errcList := []<-chan error{errc}

	for i := 0; i < workers; i++ {
		errcList = append(errcList, c.importWorker(ctx, files, &summary))
	}

	if err := waitForPipeline(cancel, errcList...); err != nil {
		return summary, err
	}

	// Cancelled by the caller rather than by a failure
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	c.logger.Info("scan complete",
		zap.String("dir", dir),
		zap.Int64("libraries", summary.Libraries),
		zap.Int64("brushes", summary.Brushes),
		zap.Int64("failed", summary.Failed))

	return summary, nil
}
