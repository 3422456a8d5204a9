package overlay

// RenderRecorder receives the outcome of every sink write for
// operational monitoring. Recording must never block a render.
type RenderRecorder interface {
	RecordRender(cameraID, overlayID string, ok bool)
}

// noopRecorder discards render outcomes.
type noopRecorder struct{}

func (noopRecorder) RecordRender(string, string, bool) {}

// RenderHook is called after every successful sink write with the text
// that was applied. Used to fan renders out to the websocket hub and the
// render echo topic.
type RenderHook func(cameraID, overlayID, text string)
