package entity

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/dutkit/internal/sink"
)

// RunParallel runs every entity in its own goroutine, all publishing to pub.
//
// It waits for all runs. A failing run never cancels its siblings; the
// returned error joins the failures in entity order, nil if all succeeded.
func RunParallel(ctx context.Context, entities []*Entity, pub sink.Publisher) error {
	errs := make([]error, len(entities))
	var wg sync.WaitGroup
	for i, e := range entities {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = e.Run(ctx, pub)
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}
