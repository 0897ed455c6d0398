//go:build ignore

// Command mock-claude simulates the Claude CLI in print mode for integration
// tests. The prompt (last argument) selects the scenario:
//
//	fail   exit 2 after writing to stderr
//	hang   emit init, then sleep until killed
//	other  emit a full turn: init, assistant text + tool_use, tool_result, result
//
// --resume and --model are echoed back in the init event.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "mock-claude: no prompt")
		os.Exit(1)
	}
	prompt := args[len(args)-1]

	sessionID := "mock-session"
	model := "claude-mock"
	for i := 0; i < len(args)-1; i++ {
		switch args[i] {
		case "--resume":
			sessionID = args[i+1]
		case "--model":
			model = args[i+1]
		}
	}
	cwd, _ := os.Getwd()

	emit(map[string]any{"type": "system", "subtype": "init", "session_id": sessionID, "model": model, "cwd": cwd})

	switch prompt {
	case "fail":
		fmt.Fprintln(os.Stderr, "mock-claude: invalid api key")
		os.Exit(2)
	case "hang":
		time.Sleep(time.Minute)
		return
	}

	fmt.Println(`{"type":"assistant","session_id":"` + sessionID + `","message":{"content":[{"type":"text","text":"Reading it.\n"},{"type":"tool_use","id":"toolu_1","name":"Read","input":{"file_path":"/tmp/x",  "limit":10}}]}}`)
	emit(map[string]any{"type": "user", "session_id": sessionID, "message": map[string]any{
		"role": "user",
		"content": []any{
			map[string]any{"type": "tool_result", "tool_use_id": "toolu_1", "content": "file body"},
		},
	}})
	emit(map[string]any{"type": "assistant", "session_id": sessionID, "message": map[string]any{
		"content": []any{map[string]any{"type": "text", "text": "Done: " + prompt}},
	}})
	emit(map[string]any{"type": "result", "subtype": "success", "session_id": sessionID, "result": "Done: " + prompt, "num_turns": 2})
}

func emit(v map[string]any) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	fmt.Println(string(data))
}
