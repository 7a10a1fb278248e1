package asset

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/nerrad567/gray-logic-viewer/internal/scene"
)

// DefaultCacheSize is the number of decoded templates kept when no size
// is configured.
const DefaultCacheSize = 64

// CachingLoader wraps a Loader with a template cache and in-flight
// deduplication. Devices sharing a model reference cause one load; every
// caller receives its own clone of the decoded template.
type CachingLoader struct {
	next      Loader
	templates *lru.Cache[string, *scene.Object]
	group     singleflight.Group
}

// NewCachingLoader creates a caching wrapper around next holding up to
// size templates.
func NewCachingLoader(next Loader, size int) (*CachingLoader, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	templates, err := lru.New[string, *scene.Object](size)
	if err != nil {
		return nil, fmt.Errorf("creating template cache: %w", err)
	}
	return &CachingLoader{next: next, templates: templates}, nil
}

// Load implements Loader.
//
// The shared load is detached from the caller's cancellation but keeps its
// deadline. Each caller stops waiting when its own ctx ends. A panic in the
// wrapped loader is returned as an error to every waiting caller.
func (c *CachingLoader) Load(ctx context.Context, ref string) (*scene.Object, error) {
	if tmpl, ok := c.templates.Get(ref); ok {
		return tmpl.Clone(), nil
	}

	ch := c.group.DoChan(ref, func() (v any, err error) {
		defer func() {
			if p := recover(); p != nil {
				v, err = nil, fmt.Errorf("%w: %v", errLoaderPanic, p)
			}
		}()

		loadCtx := context.WithoutCancel(ctx)
		if deadline, ok := ctx.Deadline(); ok {
			var cancel context.CancelFunc
			loadCtx, cancel = context.WithDeadline(loadCtx, deadline)
			defer cancel()
		}

		obj, err := c.next.Load(loadCtx, ref)
		if err != nil {
			return nil, err
		}
		c.templates.Add(ref, obj)
		return obj, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*scene.Object).Clone(), nil
	}
}

// Len returns the number of cached templates.
func (c *CachingLoader) Len() int {
	return c.templates.Len()
}

// Purge drops every cached template.
func (c *CachingLoader) Purge() {
	c.templates.Purge()
}
