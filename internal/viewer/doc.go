// Package viewer is the composition root of the 3D viewport.
//
// A Controller subscribes to the device store and, on every emitted list,
// lays the devices out along the x axis (see Slots) and asks the resolver
// for each model. Results are posted back to the render scheduler and
// applied only if they belong to the latest list, name a known device and
// arrive before Unmount. Selecting a device starts a camera transition to
// the node's position plus SelectOffset.
//
// Lifecycle:
//
//	c := viewer.New(loop, store, resolver, surface, viewer.DefaultConfig())
//	if err := c.Mount(ctx); err != nil { ... }
//	defer c.Unmount()
//
//	_ = c.Select(ctx, "b")
//	_ = c.DeleteDevice(ctx, "a", true)
package viewer
