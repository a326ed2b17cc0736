package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wippyai/cedar-wasm/host"
)

const photoPolicies = `permit(principal == User::"alice", action == Action::"view", resource);
forbid(principal, action, resource) when { resource.private };
`

const photoScenario = `policies_file: photos.cedar
entities: |
  [{"uid": {"type": "Photo", "id": "secret"}, "attrs": {"private": true}, "parents": []},
   {"uid": {"type": "Photo", "id": "beach"}, "attrs": {"private": false}, "parents": []}]
schema: |
  // comments are allowed in schema text
  {"": {
    "entityTypes": {
      "User": {},
      "Photo": {"shape": {"type": "Record", "attributes": {"private": {"type": "Boolean"}}}}
    },
    "actions": {"view": {"appliesTo": {"principalTypes": ["User"], "resourceTypes": ["Photo"]}}}
  }}
mode: Permissive
requests:
  - name: alice views beach
    principal: User::"alice"
    action: Action::"view"
    resource: Photo::"beach"
    context: {source: mobile}
    expect: allow
  - principal: User::"alice"
    action: Action::"view"
    resource: Photo::"secret"
    expect: Deny
`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestLoadScenario(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"photos.yaml":  photoScenario,
		"photos.cedar": photoPolicies,
	})

	sc, err := LoadScenario(filepath.Join(dir, "photos.yaml"))
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if sc.Policies != photoPolicies {
		t.Errorf("Policies = %q, want the file contents", sc.Policies)
	}
	if sc.Mode != host.ValidationModePermissive {
		t.Errorf("Mode = %q", sc.Mode)
	}
	if len(sc.Files()) != 2 {
		t.Errorf("Files = %v, want scenario and policy file", sc.Files())
	}
	if len(sc.Requests) != 2 {
		t.Fatalf("len(Requests) = %d, want 2", len(sc.Requests))
	}
	if sc.Requests[1].Name != "request 2" {
		t.Errorf("default name = %q, want request 2", sc.Requests[1].Name)
	}

	req, err := sc.Requests[0].Request()
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if req.Context != `{"source":"mobile"}` {
		t.Errorf("Context = %s", req.Context)
	}
	req, err = sc.Requests[1].Request()
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if req.Context != "{}" {
		t.Errorf("empty Context = %s, want {}", req.Context)
	}
}

func TestLoadScenario_Defaults(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"s.yaml": "policies: \"permit(principal, action, resource);\"\n",
	})
	sc, err := LoadScenario(filepath.Join(dir, "s.yaml"))
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if sc.Entities != "[]" {
		t.Errorf("Entities = %q, want []", sc.Entities)
	}
	if sc.Mode != host.ValidationModeStrict {
		t.Errorf("Mode = %q, want Strict", sc.Mode)
	}
}

func TestLoadScenario_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "bad mode",
			yaml:    "mode: Lenient\n",
			wantErr: "mode",
		},
		{
			name:    "bad expectation",
			yaml:    "requests:\n  - {principal: 'User::\"a\"', action: 'Action::\"b\"', resource: 'Photo::\"c\"', expect: maybe}\n",
			wantErr: "expect",
		},
		{
			name:    "missing resource",
			yaml:    "requests:\n  - {principal: 'User::\"a\"', action: 'Action::\"b\"'}\n",
			wantErr: "required",
		},
		{
			name:    "inline and file",
			yaml:    "policies: x\npolicies_file: y.cedar\n",
			wantErr: "mutually exclusive",
		},
		{
			name:    "missing file",
			yaml:    "entities_file: nowhere.json\n",
			wantErr: "read entities",
		},
		{
			name:    "not yaml",
			yaml:    "requests: [",
			wantErr: "parse scenario",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeFiles(t, map[string]string{"s.yaml": tt.yaml})
			_, err := LoadScenario(filepath.Join(dir, "s.yaml"))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestRunScenario(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"photos.yaml":  photoScenario,
		"photos.cedar": photoPolicies,
	})

	var out bytes.Buffer
	rep, err := runOnce(context.Background(), engineOptions{inProcess: true}, filepath.Join(dir, "photos.yaml"), &out)
	if err != nil {
		t.Fatalf("runOnce: %v", err)
	}
	if !rep.OK() {
		t.Errorf("report = %+v, want OK\n%s", rep, out.String())
	}
	if rep.Passed != 2 {
		t.Errorf("Passed = %d, want 2", rep.Passed)
	}
	if !strings.Contains(out.String(), "alice views beach") {
		t.Errorf("output does not name the request:\n%s", out.String())
	}
}

func TestRunScenario_Mismatch(t *testing.T) {
	sc := &Scenario{
		Policies: `permit(principal, action, resource);`,
		Entities: "[]",
		Mode:     host.ValidationModeStrict,
		Requests: []ScenarioCase{
			{Name: "expects deny", Principal: `User::"a"`, Action: `Action::"b"`, Resource: `Photo::"c"`, Expect: "deny"},
			{Name: "no expectation", Principal: `User::"a"`, Action: `Action::"b"`, Resource: `Photo::"c"`},
		},
	}

	ctx := context.Background()
	eng, err := openEngine(ctx, engineOptions{inProcess: true})
	if err != nil {
		t.Fatalf("openEngine: %v", err)
	}
	defer eng.Close(ctx)

	var out bytes.Buffer
	rep, err := runScenario(ctx, eng, sc, &out)
	if err != nil {
		t.Fatalf("runScenario: %v", err)
	}
	if rep.Mismatched != 1 || rep.Passed != 1 {
		t.Errorf("report = %+v, want 1 passed and 1 mismatched", rep)
	}
	if rep.OK() {
		t.Error("OK() = true for a mismatched run")
	}
}

func TestRunScenario_ValidationFailure(t *testing.T) {
	sc := &Scenario{
		Policies: `permit(principal == Banana::"x", action, resource);`,
		Entities: "[]",
		Schema:   `{"": {"entityTypes": {"User": {}}, "actions": {"view": {"appliesTo": {"principalTypes": ["User"], "resourceTypes": ["User"]}}}}}`,
		Mode:     host.ValidationModeStrict,
	}

	ctx := context.Background()
	eng, err := openEngine(ctx, engineOptions{inProcess: true})
	if err != nil {
		t.Fatalf("openEngine: %v", err)
	}
	defer eng.Close(ctx)

	var out bytes.Buffer
	rep, err := runScenario(ctx, eng, sc, &out)
	if err != nil {
		t.Fatalf("runScenario: %v", err)
	}
	if rep.OK() {
		t.Errorf("OK() = true for failed validation\n%s", out.String())
	}
	if !strings.Contains(out.String(), "policy0") {
		t.Errorf("output does not name the failing policy:\n%s", out.String())
	}
}

func TestOpenEngine_RequiresGuest(t *testing.T) {
	if _, err := openEngine(context.Background(), engineOptions{}); err == nil {
		t.Error("expected error without --wasm or --in-process")
	}
}

func TestRun_Flags(t *testing.T) {
	if err := run([]string{"--help"}); err != nil {
		t.Errorf("--help: %v", err)
	}
	if err := run([]string{"--in-process"}); err == nil {
		t.Error("expected error without a command")
	}
	if err := run([]string{"--in-process", "run"}); err == nil {
		t.Error("expected error without --scenario")
	}
}
