package fetch

import (
	"context"
	"sync"

	"draftforge/internal/workspace"
)

// FetchAll downloads every registered asset task of ws with at most
// parallelism concurrent fetches, then joins. The first terminal failure
// cancels the remaining fetches and is returned; tasks that never started
// stay pending.
func (f *Fetcher) FetchAll(ctx context.Context, ws *workspace.Workspace, parallelism int) error {
	tasks := ws.Tasks()
	if len(tasks) == 0 {
		return ctx.Err()
	}
	if parallelism < 1 {
		parallelism = 1
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup

	var mu sync.Mutex
	var firstErr error
	recordErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		cancel()
	}

	for _, task := range tasks {
		wg.Add(1)
		go func(task *workspace.AssetTask) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-runCtx.Done():
				return
			}
			defer func() { <-sem }()

			if err := f.Fetch(runCtx, task, ws.Path()); err != nil {
				recordErr(err)
			}
		}(task)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
