// Package render owns the viewer camera and the frame loop.
//
// A Scheduler stands in for a UI thread: Loop runs posted tasks and frame
// callbacks on one goroutine, ManualLoop does the same under test control.
// The Renderer requests a frame, and each frame (1) runs the Updater,
// (2) snapshots the scene into a Frame, (3) hands it to the Surface, then
// requests the next frame through a FrameHandle. Teardown cancels that
// handle.
//
// Drawing is delegated: the Frame carries camera matrices and per-node
// bounds already projected to window space, and the Surface decides what
// to do with them. The service streams frames to browsers over WebSocket.
package render
