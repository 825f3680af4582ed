package broadcast

import (
	"encoding/json"
	"fmt"
)

// MessageLevel is the severity/kind of a Notify or Log message.
//
// Success has no fixed ordinal in spec §3 ("MessageLevel ∈ {Trace=0,
// Debug=1, Info=2, Warn=3, Error=4, Success}"); it is placed after Error here
// since it is strictly a terminal/positive marker, never compared ordinally
// against the others in this codebase.
type MessageLevel int

const (
	LevelTrace MessageLevel = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelSuccess
)

var levelNames = [...]string{"Trace", "Debug", "Info", "Warn", "Error", "Success"}

func (l MessageLevel) String() string {
	if int(l) < 0 || int(l) >= len(levelNames) {
		return "Info"
	}
	return levelNames[l]
}

func (l MessageLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *MessageLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for i, name := range levelNames {
		if name == s {
			*l = MessageLevel(i)
			return nil
		}
	}
	return fmt.Errorf("broadcast: unknown message level %q", s)
}

// StatuslineState is the high-level status an editor should reflect in its
// statusline in response to an Execute(UpdateStatusline) task.
type StatuslineState int

const (
	StatuslineSuccess StatuslineState = iota
	StatuslineFailure
	StatuslineProcessing
	StatuslineWatching
	StatuslineRunning
)

var statuslineNames = [...]string{"Success", "Failure", "Processing", "Watching", "Running"}

func (s StatuslineState) String() string {
	if int(s) < 0 || int(s) >= len(statuslineNames) {
		return "Success"
	}
	return statuslineNames[s]
}

func (s StatuslineState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *StatuslineState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	for i, name := range statuslineNames {
		if name == str {
			*s = StatuslineState(i)
			return nil
		}
	}
	return fmt.Errorf("broadcast: unknown statusline state %q", str)
}

// taskKind discriminates the three Task variants a Message can Execute.
type taskKind int

const (
	taskUpdateStatusline taskKind = iota
	taskOpenLogger
	taskReloadLspServer
)

// Task is the payload of an Execute message: either "update the statusline
// to this state", or one of two parameterless editor actions.
type Task struct {
	kind       taskKind
	statusline StatuslineState
}

// UpdateStatusline builds a Task that asks the editor to reflect state.
func UpdateStatusline(state StatuslineState) Task {
	return Task{kind: taskUpdateStatusline, statusline: state}
}

// OpenLogger builds a Task that asks the editor to open its log viewer.
func OpenLogger() Task { return Task{kind: taskOpenLogger} }

// ReloadLspServer builds a Task that asks the editor to restart its LSP client.
func ReloadLspServer() Task { return Task{kind: taskReloadLspServer} }

func (t Task) MarshalJSON() ([]byte, error) {
	switch t.kind {
	case taskUpdateStatusline:
		return json.Marshal(map[string]StatuslineState{"UpdateStatusline": t.statusline})
	case taskOpenLogger:
		return json.Marshal("OpenLogger")
	case taskReloadLspServer:
		return json.Marshal("ReloadLspServer")
	default:
		return nil, fmt.Errorf("broadcast: unknown task kind %d", t.kind)
	}
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		switch bare {
		case "OpenLogger":
			*t = OpenLogger()
			return nil
		case "ReloadLspServer":
			*t = ReloadLspServer()
			return nil
		default:
			return fmt.Errorf("broadcast: unknown task %q", bare)
		}
	}

	var obj struct {
		UpdateStatusline *StatuslineState `json:"UpdateStatusline"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj.UpdateStatusline == nil {
		return fmt.Errorf("broadcast: malformed task object %s", data)
	}
	*t = UpdateStatusline(*obj.UpdateStatusline)
	return nil
}

// payload is the {msg, level} shape shared by Notify and Log.
type payload struct {
	Msg   string       `json:"msg"`
	Level MessageLevel `json:"level"`
}

// messageKind discriminates Message's three variants.
type messageKind int

const (
	kindNotify messageKind = iota
	kindLog
	kindExecute
)

// Message is the tagged union streamed to the editor, one JSON object per
// line: {"Notify":{...}}, {"Log":{...}}, or {"Execute":...}.
type Message struct {
	kind    messageKind
	payload payload
	task    Task
}

// Notify builds a Notify-variant message.
func Notify(msg string, level MessageLevel) Message {
	return Message{kind: kindNotify, payload: payload{Msg: msg, Level: level}}
}

// Log builds a Log-variant message.
func Log(msg string, level MessageLevel) Message {
	return Message{kind: kindLog, payload: payload{Msg: msg, Level: level}}
}

// Execute builds an Execute-variant message wrapping task.
func Execute(task Task) Message {
	return Message{kind: kindExecute, task: task}
}

// NotifyFromString is the "bare string notifies at Info" convenience
// conversion from original_source/proto/src/message.rs's
// `impl From<String> for Message` / `impl From<&str> for Message`.
func NotifyFromString(msg string) Message {
	return Notify(msg, LevelInfo)
}

func (m Message) MarshalJSON() ([]byte, error) {
	switch m.kind {
	case kindNotify:
		return json.Marshal(map[string]payload{"Notify": m.payload})
	case kindLog:
		return json.Marshal(map[string]payload{"Log": m.payload})
	case kindExecute:
		return json.Marshal(map[string]Task{"Execute": m.task})
	default:
		return nil, fmt.Errorf("broadcast: unknown message kind %d", m.kind)
	}
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if raw, ok := probe["Notify"]; ok {
		var p payload
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		*m = Notify(p.Msg, p.Level)
		return nil
	}
	if raw, ok := probe["Log"]; ok {
		var p payload
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		*m = Log(p.Msg, p.Level)
		return nil
	}
	if raw, ok := probe["Execute"]; ok {
		var t Task
		if err := json.Unmarshal(raw, &t); err != nil {
			return err
		}
		*m = Execute(t)
		return nil
	}
	return fmt.Errorf("broadcast: unrecognized message %s", data)
}

// Kind-testing accessors, used by tests and by cmd/xbasectl's monitor when
// rendering received Message values.

func (m Message) IsNotify() bool  { return m.kind == kindNotify }
func (m Message) IsLog() bool     { return m.kind == kindLog }
func (m Message) IsExecute() bool { return m.kind == kindExecute }

// Text returns the msg field for Notify/Log messages, empty for Execute.
func (m Message) Text() string { return m.payload.Msg }

// Level returns the level field for Notify/Log messages.
func (m Message) Level() MessageLevel { return m.payload.Level }
