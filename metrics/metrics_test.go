package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func Test_Handler_ExposesWorkspaceMetrics(t *testing.T) {
	RecordRemoteCall("read_file", 5*time.Millisecond, nil)
	RecordRemoteCall("read_file", time.Millisecond, errors.New("boom"))
	RecordSnapshotWrite(128, nil)
	SetBuffers(3, 1)
	SetTerminalTabs(2)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	text := string(body)

	for _, want := range []string{
		`workspace_remote_calls_total{op="read_file",status="success"}`,
		`workspace_remote_calls_total{op="read_file",status="error"}`,
		"workspace_snapshot_bytes 128",
		"workspace_buffers_open 3",
		"workspace_buffers_dirty 1",
		"workspace_terminal_tabs 2",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected metrics output to contain %q", want)
		}
	}
}
