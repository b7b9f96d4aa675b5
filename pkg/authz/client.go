package authz

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/loginlab/loginlab/pkg/upstream"
)

// invalidInputCode is the upstream's error code for a write batch rejected
// because some tuple to write already exists or some tuple to delete does
// not. The target state already holds, so the writer reports success.
const invalidInputCode = "write_failed_due_to_invalid_input"

// Client wraps the relationship-based authorization REST API, scoped to a
// single store (base URL https://<host>/stores/<storeID>).
type Client struct {
	client *upstream.Client
}

// NewClient creates a Client over an authenticated upstream client
func NewClient(client *upstream.Client) *Client {
	return &Client{client: client}
}

var _ Service = (*Client)(nil)

type tupleKey struct {
	User     string `json:"user"`
	Relation string `json:"relation,omitempty"`
	Object   string `json:"object"`
}

// Check asks whether user has relation on object
func (c *Client) Check(ctx context.Context, user, relation, object string) (bool, error) {
	payload := map[string]tupleKey{
		"tuple_key": {User: user, Relation: relation, Object: object},
	}
	var result struct {
		Allowed bool `json:"allowed"`
	}
	if _, err := c.client.DoJSON(ctx, "check", http.MethodPost, "/check", payload, &result); err != nil {
		return false, err
	}
	return result.Allowed, nil
}

// ReadRelations reads the tuples matching user and object. Relation is
// left unspecified, so every relation between the pair comes back.
func (c *Client) ReadRelations(ctx context.Context, user, object string) ([]Tuple, error) {
	payload := map[string]tupleKey{
		"tuple_key": {User: user, Object: object},
	}
	var result struct {
		Tuples []struct {
			Key Tuple `json:"key"`
		} `json:"tuples"`
	}
	if _, err := c.client.DoJSON(ctx, "read", http.MethodPost, "/read", payload, &result); err != nil {
		return nil, err
	}

	tuples := make([]Tuple, 0, len(result.Tuples))
	for _, t := range result.Tuples {
		tuples = append(tuples, t.Key)
	}
	return tuples, nil
}

// Write applies writes and deletes as one transactional batch. Both lists
// empty is an ErrEmptyWrite before any network call. An upstream rejection
// for invalid input is reported as WriteAlreadySatisfied, not an error.
func (c *Client) Write(ctx context.Context, writes, deletes []Tuple) (WriteOutcome, error) {
	if len(writes) == 0 && len(deletes) == 0 {
		return WriteApplied, ErrEmptyWrite
	}

	payload := map[string]interface{}{}
	if len(writes) > 0 {
		payload["writes"] = map[string][]Tuple{"tuple_keys": writes}
	}
	if len(deletes) > 0 {
		payload["deletes"] = map[string][]Tuple{"tuple_keys": deletes}
	}

	resp, err := c.client.Do(ctx, "write", http.MethodPost, "/write", payload)
	if err != nil {
		return WriteApplied, err
	}

	if resp.Status == http.StatusBadRequest {
		var body struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if jsonErr := json.Unmarshal(resp.Body, &body); jsonErr == nil && body.Code == invalidInputCode {
			return WriteAlreadySatisfied, nil
		}
		return WriteApplied, c.client.ErrorFromResponse(resp)
	}
	if !resp.OK() {
		return WriteApplied, c.client.ErrorFromResponse(resp)
	}

	return WriteApplied, nil
}
