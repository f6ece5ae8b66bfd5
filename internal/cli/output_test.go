package cli

import (
	"bytes"
	"strings"
	"testing"
)

func testOutput(jsonMode bool) (*Output, *bytes.Buffer) {
	var buf bytes.Buffer
	return &Output{jsonMode: jsonMode, w: &buf, errW: &buf}, &buf
}

func TestOutput_TableEmpty(t *testing.T) {
	out, buf := testOutput(false)

	out.Table([]string{"NAME", "STATUS"}, nil)

	if got := strings.TrimSpace(buf.String()); got != "(none)" {
		t.Errorf("empty table should print (none), got %q", got)
	}
}

func TestOutput_TableRows(t *testing.T) {
	out, buf := testOutput(false)

	out.Table([]string{"NAME", "STATUS"}, [][]string{{"deploy", "SUCCEEDED"}})

	got := buf.String()
	if !strings.Contains(got, "NAME") || !strings.Contains(got, "SUCCEEDED") {
		t.Errorf("table should contain headers and rows, got %q", got)
	}
}

func TestOutput_PrintJSONMode(t *testing.T) {
	out, buf := testOutput(true)

	out.Print([]string{"NAME"}, [][]string{{"deploy"}}, map[string]string{"name": "deploy"})

	if !strings.Contains(buf.String(), `"name": "deploy"`) {
		t.Errorf("json mode should emit the data object, got %q", buf.String())
	}
}

func TestOrDash(t *testing.T) {
	if orDash("") != "-" {
		t.Error("empty cell should render as dash")
	}
	if orDash("v1") != "v1" {
		t.Error("non-empty cell should pass through")
	}
}
