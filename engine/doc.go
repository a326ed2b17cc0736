// Package engine holds the authorization state of a guest and answers
// queries against it.
//
// A State carries one entity graph and one policy set. Both start empty and
// are replaced wholesale by SetEntities and SetPolicies; a failed setter
// logs the failure and leaves the previous value in place. Policies are
// named policy0..policyN-1 in source order, and each remembers the byte span
// it occupied in the text it was parsed from.
//
// Queries never mutate the state:
//
//	Validate          - static check of the policy set against a schema
//	IsAuthorized      - "Allow" or "Deny"
//	IsAuthorizedJSON  - decision plus contributing policies and errors
//
// Entity references use the Cedar text form Namespace::Type::"id". Request
// context is a JSON record.
//
// A State is not safe for concurrent use. The guest runs one call at a time
// and host drivers serialise access.
package engine
