package broadcast

import (
	"encoding/json"
	"testing"
)

func TestMessageLevel_RoundTrip(t *testing.T) {
	for l := LevelTrace; l <= LevelSuccess; l++ {
		data, err := json.Marshal(l)
		if err != nil {
			t.Fatalf("marshal %v: %v", l, err)
		}
		var got MessageLevel
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal %v: %v", l, err)
		}
		if got != l {
			t.Errorf("round trip %v -> %s -> %v", l, data, got)
		}
	}
}

func TestStatuslineState_RoundTrip(t *testing.T) {
	for s := StatuslineSuccess; s <= StatuslineRunning; s++ {
		data, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("marshal %v: %v", s, err)
		}
		var got StatuslineState
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal %v: %v", s, err)
		}
		if got != s {
			t.Errorf("round trip %v -> %s -> %v", s, data, got)
		}
	}
}

func TestMessage_NotifySchema(t *testing.T) {
	data, err := json.Marshal(Notify("hello", LevelInfo))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"Notify":{"msg":"hello","level":"Info"}}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestMessage_LogSchema(t *testing.T) {
	data, err := json.Marshal(Log("boom", LevelError))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"Log":{"msg":"boom","level":"Error"}}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestMessage_ExecuteUpdateStatuslineSchema(t *testing.T) {
	data, err := json.Marshal(Execute(UpdateStatusline(StatuslineProcessing)))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"Execute":{"UpdateStatusline":"Processing"}}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestMessage_ExecuteOpenLoggerSchema(t *testing.T) {
	data, err := json.Marshal(Execute(OpenLogger()))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"Execute":"OpenLogger"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestMessage_ExecuteReloadLspServerSchema(t *testing.T) {
	data, err := json.Marshal(Execute(ReloadLspServer()))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"Execute":"ReloadLspServer"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestMessage_RoundTrip(t *testing.T) {
	cases := []Message{
		Notify("hi", LevelWarn),
		Log("uh oh", LevelError),
		Execute(UpdateStatusline(StatuslineWatching)),
		Execute(OpenLogger()),
		Execute(ReloadLspServer()),
	}
	for _, msg := range cases {
		data, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("marshal %+v: %v", msg, err)
		}
		var got Message
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		redata, err := json.Marshal(got)
		if err != nil {
			t.Fatal(err)
		}
		if string(redata) != string(data) {
			t.Errorf("round trip mismatch: %s != %s", redata, data)
		}
	}
}

func TestNotifyFromString_IsInfoLevel(t *testing.T) {
	msg := NotifyFromString("plain")
	if !msg.IsNotify() || msg.Level() != LevelInfo || msg.Text() != "plain" {
		t.Errorf("unexpected message: %+v", msg)
	}
}
