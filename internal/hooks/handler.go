package hooks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// HookInput is the JSON an agent host sends on stdin to hook handlers.
// Different events populate different subsets; every field is optional.
type HookInput struct {
	SessionID string  `json:"session_id"`
	Mode      string  `json:"mode,omitempty"`
	Task      string  `json:"task,omitempty"`
	ToolName  string  `json:"tool_name,omitempty"`
	Prompt    string  `json:"prompt,omitempty"`
	Cost      float64 `json:"cost,omitempty"`
}

// Handle reads HookInput from stdin, dispatches by event, and writes any
// context to stdout. Hooks must never crash the host: when the server is
// unreachable they degrade to empty output and exit clean.
func Handle(event string, stdin io.Reader) {
	var input HookInput
	if err := json.NewDecoder(stdin).Decode(&input); err != nil && event != "boot" {
		fmt.Fprintf(os.Stderr, "hook %s: decode stdin: %v\n", event, err)
		return
	}

	client := NewClient()
	if !client.Healthy() {
		return // silent: the agent keeps working without memory
	}

	switch event {
	case "boot":
		ctx, err := client.BootContext(input.Mode, input.Task)
		if err != nil {
			return
		}
		fmt.Print(ctx)
	case "tool":
		trackQuiet(client.TrackTool, input.ToolName, input.Cost)
	case "prompt":
		trackQuiet(client.TrackPrompt, input.Prompt, input.Cost)
	case "beat":
		client.Beat()
	default:
		fmt.Fprintf(os.Stderr, "unknown hook event: %s\n", event)
	}
}

func trackQuiet(track func(string, float64) error, name string, cost float64) {
	if name == "" {
		return
	}
	if err := track(name, cost); err != nil {
		fmt.Fprintf(os.Stderr, "hook track: %v\n", err)
	}
}
