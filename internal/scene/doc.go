// Package scene owns the viewer's scene graph.
//
// A Manager holds the lights, the background colour and one Node per device.
// Each Node wraps an *Object tree (a loaded model or the fallback cube)
// tagged with the device ID it represents. Lookups are by that tag, never by
// position in a list, because model loads complete in arbitrary order.
//
// The Manager is not safe for concurrent use. The viewer controller only
// touches it from the render loop goroutine.
//
//	┌──────────── Manager ────────────┐
//	│ background  #1a1a1a             │
//	│ lights      ambient, directional│
//	│ root ─┬─ Object (device "a")    │
//	│       ├─ Object (device "b")    │
//	│       └─ Object (device "c")    │
//	│ nodes  map[deviceID]*Node       │
//	└─────────────────────────────────┘
package scene
