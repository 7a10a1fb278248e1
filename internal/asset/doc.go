// Package asset resolves device model references into scene objects.
//
// The pipeline is:
//
//	Resolver ──► CachingLoader ──► GLTFLoader ──► Source
//	   │          (singleflight,     (qmuntal/gltf)   (FileSource,
//	   │           LRU templates)                     HTTPSource)
//	   ▼
//	Result{DeviceID, Object, Fallback, Err}
//
// Resolve never fails: any fetch, decode, format or timeout error yields
// the green fallback cube at the same position with the same device tag.
// Failures are logged at warn level and reported to the Observer.
//
// Usage:
//
//	src := asset.NewRoutingSource(asset.NewFileSource("./assets"), httpSrc)
//	loader, _ := asset.NewCachingLoader(asset.NewGLTFLoader(src), 64)
//	resolver := asset.NewResolver(loader, 10*time.Second)
//	resolver.Resolve(ctx, dev, mgl32.Vec3{3, 0, 0}, func(res asset.Result) {
//	    loop.Post(func() { controller.apply(res) })
//	})
package asset
