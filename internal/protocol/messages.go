// Package protocol defines the envelopes exchanged between coordinator and
// worker actors: actor metadata, invocation requests, and the closed
// Success | Finish | Failure response union.
package protocol

import (
	"encoding/json"
	"fmt"

	"modelmesh/internal/entity"
)

// ActorMetadata describes a registered actor's identity and capabilities.
type ActorMetadata struct {
	Name      string   `json:"name"`
	Kind      string   `json:"kind"`
	Features  []string `json:"features,omitempty"`
	ActorHost string   `json:"actor_host"`
	SeedHost  string   `json:"seed_host,omitempty"`
	ActorID   string   `json:"actor_id"`
	SidecarID string   `json:"sidecar_id,omitempty"`
}

// InvokeRequest is the envelope a coordinator sends to dispatch work to a
// worker actor.
type InvokeRequest struct {
	TaskID string                  `json:"task_id"`
	Source string                  `json:"source"`
	Stream bool                    `json:"stream"`
	Data   []entity.Value          `json:"data"`
	Config map[string]entity.Value `json:"config,omitempty"`
}

// ErrorKind discriminates the three closed ActorError variants.
type ErrorKind string

const (
	ErrorBadRequest  ErrorKind = "BAD_REQUEST"
	ErrorFatal       ErrorKind = "FATAL_ERROR"
	ErrorNetwork     ErrorKind = "NETWORK_ERROR"
)

// ActorError is the closed error union carried by Failure responses.
type ActorError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e ActorError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func BadRequest(msg string) ActorError { return ActorError{Kind: ErrorBadRequest, Message: msg} }
func FatalError(msg string) ActorError { return ActorError{Kind: ErrorFatal, Message: msg} }
func NetworkError(msg string) ActorError { return ActorError{Kind: ErrorNetwork, Message: msg} }

// ResponseKind discriminates the closed InvokeResponse union. A worker may
// emit any number of Success frames for a streaming invocation, but exactly
// one terminal frame: either Finish or Failure.
type ResponseKind string

const (
	ResponseSuccess ResponseKind = "SUCCESS"
	ResponseFinish  ResponseKind = "FINISH"
	ResponseFailure ResponseKind = "FAILURE"
)

// InvokeResponse is the closed Success | Finish | Failure sum type. Only the
// field matching Kind is meaningful; UnmarshalJSON rejects any Kind outside
// the three known variants rather than silently accepting it.
type InvokeResponse struct {
	TaskID  string          `json:"task_id"`
	Kind    ResponseKind    `json:"kind"`
	Success []entity.Value  `json:"success,omitempty"`
	Error   *ActorError     `json:"error,omitempty"`
}

// NewSuccess builds a non-terminal Success frame carrying one delta.
func NewSuccess(taskID string, data []entity.Value) InvokeResponse {
	return InvokeResponse{TaskID: taskID, Kind: ResponseSuccess, Success: data}
}

// NewFinish builds the terminal Finish frame.
func NewFinish(taskID string) InvokeResponse {
	return InvokeResponse{TaskID: taskID, Kind: ResponseFinish}
}

// NewFailure builds the terminal Failure frame.
func NewFailure(taskID string, err ActorError) InvokeResponse {
	return InvokeResponse{TaskID: taskID, Kind: ResponseFailure, Error: &err}
}

// IsTerminal reports whether this response ends the invocation's lifecycle
// (Finish or Failure), as opposed to an intermediate Success chunk.
func (r InvokeResponse) IsTerminal() bool {
	return r.Kind == ResponseFinish || r.Kind == ResponseFailure
}

// UnmarshalJSON enforces the closed variant set: an unrecognized kind is a
// decode error, not a zero-value response.
func (r *InvokeResponse) UnmarshalJSON(b []byte) error {
	type alias InvokeResponse
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	switch a.Kind {
	case ResponseSuccess, ResponseFinish, ResponseFailure:
	default:
		return fmt.Errorf("protocol: unknown InvokeResponse kind %q", a.Kind)
	}
	if a.Kind == ResponseFailure && a.Error == nil {
		return fmt.Errorf("protocol: FAILURE response missing error")
	}
	*r = InvokeResponse(a)
	return nil
}
