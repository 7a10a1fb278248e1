// Package panel serves the inventory and viewport page as an embedded asset.
//
// The page is plain HTML, CSS and JavaScript embedded into the binary with
// go:embed. It lists devices, opens the add/edit form, and draws the frames
// streamed on the WebSocket frame channel onto a canvas.
//
// index.html is a template: the API base, WebSocket path and channel names
// are rendered into it as JSON, and it is served with Cache-Control
// no-store. Scripts and styles carry a content ETag and are revalidated.
// There is no client-side routing, so unknown paths are 404.
package panel
