package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/cedar-wasm/host"
)

// Scenario is a policy set, an entity graph and a list of requests with
// their expected decisions.
type Scenario struct {
	Policies     string         `yaml:"policies"`
	PoliciesFile string         `yaml:"policies_file"`
	Entities     string         `yaml:"entities"`
	EntitiesFile string         `yaml:"entities_file"`
	Schema       string         `yaml:"schema"`
	SchemaFile   string         `yaml:"schema_file"`
	Mode         string         `yaml:"mode"`
	Requests     []ScenarioCase `yaml:"requests"`

	// files lists every file the scenario was assembled from.
	files []string
}

// ScenarioCase is one request and its expected decision.
type ScenarioCase struct {
	Name      string         `yaml:"name"`
	Principal string         `yaml:"principal"`
	Action    string         `yaml:"action"`
	Resource  string         `yaml:"resource"`
	Context   map[string]any `yaml:"context"`
	Expect    string         `yaml:"expect"`
}

// LoadScenario reads a scenario file. Referenced files are resolved
// relative to the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	sc.files = []string{path}

	dir := filepath.Dir(path)
	if err := sc.inline(dir, "policies", &sc.Policies, sc.PoliciesFile); err != nil {
		return nil, err
	}
	if err := sc.inline(dir, "entities", &sc.Entities, sc.EntitiesFile); err != nil {
		return nil, err
	}
	if err := sc.inline(dir, "schema", &sc.Schema, sc.SchemaFile); err != nil {
		return nil, err
	}

	if err := sc.check(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &sc, nil
}

func (sc *Scenario) inline(dir, field string, text *string, file string) error {
	if file == "" {
		return nil
	}
	if *text != "" {
		return fmt.Errorf("%s and %s_file are mutually exclusive", field, field)
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(dir, file)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", field, err)
	}
	*text = string(data)
	sc.files = append(sc.files, file)
	return nil
}

func (sc *Scenario) check() error {
	if sc.Entities == "" {
		sc.Entities = "[]"
	}
	if sc.Mode == "" {
		sc.Mode = host.ValidationModeStrict
	}
	if sc.Mode != host.ValidationModeStrict && sc.Mode != host.ValidationModePermissive {
		return fmt.Errorf("mode %q: want %s or %s", sc.Mode, host.ValidationModeStrict, host.ValidationModePermissive)
	}
	for i := range sc.Requests {
		c := &sc.Requests[i]
		if c.Name == "" {
			c.Name = fmt.Sprintf("request %d", i+1)
		}
		switch strings.ToLower(c.Expect) {
		case "", "allow", "deny":
		default:
			return fmt.Errorf("%s: expect %q: want allow or deny", c.Name, c.Expect)
		}
		if c.Principal == "" || c.Action == "" || c.Resource == "" {
			return fmt.Errorf("%s: principal, action and resource are required", c.Name)
		}
	}
	return nil
}

// Files returns the scenario file and every file it references.
func (sc *Scenario) Files() []string {
	return sc.files
}

// Request converts a case into an engine request.
func (c ScenarioCase) Request() (host.EvalRequest, error) {
	req := host.EvalRequest{
		Principal: c.Principal,
		Action:    c.Action,
		Resource:  c.Resource,
		Context:   "{}",
	}
	if len(c.Context) > 0 {
		data, err := json.Marshal(c.Context)
		if err != nil {
			return req, fmt.Errorf("%s: context: %w", c.Name, err)
		}
		req.Context = string(data)
	}
	return req, nil
}
