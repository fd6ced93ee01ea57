package artifact

import (
	"time"

	"github.com/paulb-elastic/synthetics/id"
)

// Screenshot is the record persisted for one step capture. The image
// bytes travel base64-encoded when the record is serialized as JSON.
type Screenshot struct {
	ID        id.ID     `json:"id" msgpack:"id"`
	Journey   string    `json:"journey" msgpack:"journey"`
	Step      string    `json:"step" msgpack:"step"`
	StepID    id.ID     `json:"step_id" msgpack:"step_id"`
	StepIndex int       `json:"step_index" msgpack:"step_index"`
	MIME      string    `json:"mime" msgpack:"mime"`
	Data      []byte    `json:"data" msgpack:"data"`
	Timestamp time.Time `json:"@timestamp" msgpack:"timestamp"`
}

// NewScreenshot builds a record with a fresh shot ID and the current
// time.
func NewScreenshot(journey, step string, stepID id.ID, index int, data []byte) *Screenshot {
	return &Screenshot{
		ID:        id.NewScreenshotID(),
		Journey:   journey,
		Step:      step,
		StepID:    stepID,
		StepIndex: index,
		MIME:      "image/png",
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}
