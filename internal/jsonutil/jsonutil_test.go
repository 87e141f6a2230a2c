package jsonutil

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestRecover_CleanObject(t *testing.T) {
	want := map[string]string{"Chunk.cs": "public class A {}", "ContextSummary": "converted A"}
	raw, err := json.Marshal(want)
	if err != nil {
		t.Fatal(err)
	}

	got, err := Recover(string(raw))
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	assertEqual(t, got, want)
}

func TestRecover_FencedMatchesUnfenced(t *testing.T) {
	body := `{"Class.cs": "public class Conn {}"}`
	fenced := "```json\n" + body + "\n```"

	plain, err := Recover(body)
	if err != nil {
		t.Fatalf("Recover(plain): %v", err)
	}
	got, err := Recover(fenced)
	if err != nil {
		t.Fatalf("Recover(fenced): %v", err)
	}
	assertEqual(t, got, plain)
}

func TestRecover_BareFence(t *testing.T) {
	got, err := Recover("```\n{\"Chunk.cs\": \"x\"}\n```")
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if got["Chunk.cs"] != "x" {
		t.Errorf("Chunk.cs = %q", got["Chunk.cs"])
	}
}

func TestRecover_TrailingProse(t *testing.T) {
	got, err := Recover(`{"ModuleService.cs": "class S {}"} Hope this helps!`)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if got["ModuleService.cs"] != "class S {}" {
		t.Errorf("ModuleService.cs = %q", got["ModuleService.cs"])
	}
}

func TestRecover_LeadingProse(t *testing.T) {
	got, err := Recover(`Here is the conversion: {"Chunk.cs": "int x;"}`)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if got["Chunk.cs"] != "int x;" {
		t.Errorf("Chunk.cs = %q", got["Chunk.cs"])
	}
}

func TestRecover_EscapedPayload(t *testing.T) {
	raw := `{\"Chunk.cs\": \"var y = 1;\"}`
	got, err := Recover(raw)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if got["Chunk.cs"] != "var y = 1;" {
		t.Errorf("Chunk.cs = %q", got["Chunk.cs"])
	}
}

func TestRecover_BraceInsideStringValue(t *testing.T) {
	// Trailing prose defeats the direct parse, and the balanced scan cuts at
	// the brace inside the string; the greedy widest-span stage still
	// recovers the full object.
	raw := `{"Chunk.cs": "}"} done`
	got, err := Recover(raw)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if got["Chunk.cs"] != "}" {
		t.Errorf("Chunk.cs = %q", got["Chunk.cs"])
	}
}

func TestRecover_Empty(t *testing.T) {
	if _, err := Recover(""); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Recover(\"\") = %v, want ErrEmptyResponse", err)
	}
	if _, err := Recover("   \n\t"); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Recover(whitespace) = %v, want ErrEmptyResponse", err)
	}
}

func TestRecover_MalformedPreview(t *testing.T) {
	raw := "The model refused to answer. " + strings.Repeat("blah ", 100)

	_, err := Recover(raw)
	var malformed *MalformedError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedError, got %v", err)
	}
	if len(malformed.Preview) > 200 {
		t.Errorf("preview is %d chars, want <= 200", len(malformed.Preview))
	}
	if !strings.HasPrefix(malformed.Preview, "The model refused") {
		t.Errorf("preview = %q", malformed.Preview)
	}
	if !strings.HasSuffix(err.Error(), "...") {
		t.Errorf("error should end with ellipsis: %q", err.Error())
	}
}

func TestRecover_NonStringValues(t *testing.T) {
	got, err := Recover(`{"Chunk.cs": "code", "attempts": 3, "partial": false, "skipped": null, "files": ["a"]}`)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if got["Chunk.cs"] != "code" {
		t.Errorf("Chunk.cs = %q", got["Chunk.cs"])
	}
	if got["attempts"] != "3" {
		t.Errorf("attempts = %q, want stringified number", got["attempts"])
	}
	if got["partial"] != "false" {
		t.Errorf("partial = %q, want stringified bool", got["partial"])
	}
	if _, ok := got["skipped"]; ok {
		t.Error("null value should be dropped")
	}
	if _, ok := got["files"]; ok {
		t.Error("array value should be dropped")
	}
}

func assertEqual(t *testing.T, got, want map[string]string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d keys, want %d: %v", len(got), len(want), got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("key %q = %q, want %q", k, got[k], v)
		}
	}
}
