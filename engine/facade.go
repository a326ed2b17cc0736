package engine

import (
	"encoding/json"
	"strings"

	"github.com/cedar-policy/cedar-go"
	"github.com/cedar-policy/cedar-go/types"
	"github.com/cedar-policy/cedar-go/x/exp/ast"
	"go.uber.org/zap"

	"github.com/wippyai/cedar-wasm/errors"
	"github.com/wippyai/cedar-wasm/validator"
)

// Decision strings returned by IsAuthorized.
const (
	DecisionAllow = "Allow"
	DecisionDeny  = "Deny"
)

// Request is an authorization request in text form.
type Request struct {
	Principal string
	Action    string
	Resource  string
	Context   string
}

// Response is the verbose authorization result.
type Response struct {
	Decision    string      `json:"decision"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

// Diagnostics lists the policies that determined a decision and any
// evaluation errors.
type Diagnostics struct {
	Reason []string          `json:"reason"`
	Errors []DiagnosticError `json:"errors"`
}

// DiagnosticError is a policy that failed to evaluate.
type DiagnosticError struct {
	PolicyID string `json:"policyId"`
	Message  string `json:"message"`
}

// ValidationResult is the outcome of Validate.
type ValidationResult struct {
	Passed bool              `json:"passed"`
	Errors []ValidationError `json:"errors"`
}

// ValidationError is one validation note.
type ValidationError struct {
	PolicyID   string `json:"policyId"`
	Note       string `json:"note"`
	RangeStart int    `json:"rangeStart"`
	RangeEnd   int    `json:"rangeEnd"`
}

// Validate checks the current policy set against a Cedar schema.
// mode must be "Strict" or "Permissive".
func (s *State) Validate(schemaText, mode string) (*ValidationResult, error) {
	m, err := validator.ParseMode(mode)
	if err != nil {
		return nil, err
	}
	schema, err := validator.ParseSchema([]byte(schemaText))
	if err != nil {
		return nil, err
	}

	sources := make([]validator.PolicySource, 0, len(s.policies))
	for _, p := range s.policies {
		sources = append(sources, validator.PolicySource{
			ID:     string(p.id),
			Policy: (*ast.Policy)(p.policy.AST()),
			Start:  p.start,
			End:    p.end,
		})
	}

	notes, err := validator.Validate(schema, m, sources)
	if err != nil {
		return nil, err
	}

	result := &ValidationResult{
		Passed: len(notes) == 0,
		Errors: make([]ValidationError, 0, len(notes)),
	}
	for _, n := range notes {
		result.Errors = append(result.Errors, ValidationError{
			PolicyID:   n.PolicyID,
			RangeStart: n.RangeStart,
			RangeEnd:   n.RangeEnd,
			Note:       n.Message,
		})
	}
	Logger().Debug("validated policies",
		zap.String("mode", mode),
		zap.Int("policies", len(sources)),
		zap.Int("notes", len(notes)))
	return result, nil
}

// ParseRequest converts a text request into a cedar request. An empty
// context is treated as {}.
func ParseRequest(r Request) (cedar.Request, error) {
	principal, err := ParseEntityUID(r.Principal)
	if err != nil {
		return cedar.Request{}, err
	}
	action, err := ParseEntityUID(r.Action)
	if err != nil {
		return cedar.Request{}, err
	}
	resource, err := ParseEntityUID(r.Resource)
	if err != nil {
		return cedar.Request{}, err
	}

	var ctx types.Record
	if text := strings.TrimSpace(r.Context); text != "" {
		if err := json.Unmarshal([]byte(text), &ctx); err != nil {
			return cedar.Request{}, errors.ParseFailed(errors.PhaseAuthorize, "context", err)
		}
	}

	return cedar.Request{
		Principal: principal,
		Action:    action,
		Resource:  resource,
		Context:   ctx,
	}, nil
}

func (s *State) authorize(r Request) (cedar.Decision, cedar.Diagnostic, error) {
	req, err := ParseRequest(r)
	if err != nil {
		return cedar.Deny, cedar.Diagnostic{}, err
	}
	decision, diag := s.set.IsAuthorized(s.entities, req)
	Logger().Debug("authorized request",
		zap.String("principal", r.Principal),
		zap.String("action", r.Action),
		zap.String("resource", r.Resource),
		zap.Bool("allow", decision == cedar.Allow))
	return decision, diag, nil
}

// IsAuthorized evaluates a request and returns "Allow" or "Deny". Anything
// other than an explicit Allow is a Deny.
func (s *State) IsAuthorized(r Request) (string, error) {
	decision, _, err := s.authorize(r)
	if err != nil {
		return "", err
	}
	if decision == cedar.Allow {
		return DecisionAllow, nil
	}
	return DecisionDeny, nil
}

// IsAuthorizedJSON evaluates a request and reports the decision together
// with the contributing policies and evaluation errors.
func (s *State) IsAuthorizedJSON(r Request) (*Response, error) {
	decision, diag, err := s.authorize(r)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Decision: DecisionDeny,
		Diagnostics: Diagnostics{
			Reason: make([]string, 0, len(diag.Reasons)),
			Errors: make([]DiagnosticError, 0, len(diag.Errors)),
		},
	}
	if decision == cedar.Allow {
		resp.Decision = DecisionAllow
	}
	for _, reason := range diag.Reasons {
		resp.Diagnostics.Reason = append(resp.Diagnostics.Reason, string(reason.PolicyID))
	}
	for _, e := range diag.Errors {
		resp.Diagnostics.Errors = append(resp.Diagnostics.Errors, DiagnosticError{
			PolicyID: string(e.PolicyID),
			Message:  e.Message,
		})
	}
	return resp, nil
}
