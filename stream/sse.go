package stream

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EncodeSSE renders a buffered event as an SSE frame: `event:`, `id:`,
// `data:` fields terminated by a blank line. data carries the event's
// Payload() only — kind/taskId/contextId are carried by the frame's own
// `event`/`id` fields and are not duplicated in the JSON body.
func EncodeSSE(be BufferedEvent) (string, error) {
	payload, err := json.Marshal(be.Event.Payload())
	if err != nil {
		return "", fmt.Errorf("marshal event payload: %w", err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "event: %s\n", be.Event.Type())
	fmt.Fprintf(&b, "id: %s\n", be.ID)
	fmt.Fprintf(&b, "data: %s\n\n", payload)
	return b.String(), nil
}
