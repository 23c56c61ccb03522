package websocket

import (
	"encoding/json"

	"github.com/dataviewer2d/dataviewer/pkg/scene"
)

// Message types sent to the live viewer.
const (
	TypeStartDataset = "start_dataset"
	TypeFrame        = "frame"
	TypeEndDataset   = "end_dataset"
)

// Envelope wraps every message on the wire.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AckMessage is the server's reply to start_dataset and end_dataset.
type AckMessage struct {
	Type string `json:"type"`
	For  string `json:"for"`
}

// StartDatasetPayload announces a dataset before its first frame.
type StartDatasetPayload struct {
	Name string `json:"name"`
}

// FramePayload carries one frame in the viewer's JSON layout.
type FramePayload struct {
	Frame    int         `json:"frame"`
	Drawings scene.Scene `json:"drawings"`
}

// EndDatasetPayload closes a dataset with its totals.
type EndDatasetPayload struct {
	Frames int `json:"frames"`
	Shapes int `json:"shapes"`
}
