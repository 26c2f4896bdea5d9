package media

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many auxiliary backend calls run at once.
type Pool struct {
	sem *semaphore.Weighted
}

func NewPool(size int) *Pool {
	return &Pool{sem: semaphore.NewWeighted(int64(max(1, size)))}
}

// Do runs fn once a slot is free. It returns ctx.Err() if the context ends
// while waiting. A panic in fn is returned as an error.
func (p *Pool) Do(ctx context.Context, fn func(context.Context) error) (err error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
