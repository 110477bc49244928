// Package cluster implements the reliable, ordered-per-peer, at-least-once
// messaging transport that carries invocation envelopes and membership
// events between the coordinator and its workers.
package cluster

import (
	"encoding/json"
	"fmt"

	"modelmesh/internal/protocol"
)

// FrameKind discriminates the wire envelope carried over a connection.
type FrameKind string

const (
	FrameInvokeRequest  FrameKind = "INVOKE_REQUEST"
	FrameInvokeResponse FrameKind = "INVOKE_RESPONSE"
	FrameJoin           FrameKind = "JOIN"
	FrameLeave          FrameKind = "LEAVE"
	FramePing           FrameKind = "PING"
)

// Frame is the outermost envelope placed on the wire; Body holds the kind-
// specific payload as raw JSON so the transport never needs to know the
// full protocol type set.
type Frame struct {
	Kind FrameKind       `json:"kind"`
	Body json.RawMessage `json:"body,omitempty"`
}

func encodeFrame(kind FrameKind, payload any) (Frame, error) {
	if payload == nil {
		return Frame{Kind: kind}, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("cluster: encode %s: %w", kind, err)
	}
	return Frame{Kind: kind, Body: b}, nil
}

func EncodeInvokeRequest(req protocol.InvokeRequest) (Frame, error) {
	return encodeFrame(FrameInvokeRequest, req)
}

func EncodeInvokeResponse(resp protocol.InvokeResponse) (Frame, error) {
	return encodeFrame(FrameInvokeResponse, resp)
}

func EncodeJoin(meta protocol.ActorMetadata) (Frame, error) {
	return encodeFrame(FrameJoin, meta)
}

func EncodeLeave(actorID string) (Frame, error) {
	return encodeFrame(FrameLeave, leaveBody{ActorID: actorID})
}

type leaveBody struct {
	ActorID string `json:"actor_id"`
}

func (f Frame) DecodeInvokeRequest() (protocol.InvokeRequest, error) {
	var out protocol.InvokeRequest
	err := json.Unmarshal(f.Body, &out)
	return out, err
}

func (f Frame) DecodeInvokeResponse() (protocol.InvokeResponse, error) {
	var out protocol.InvokeResponse
	err := json.Unmarshal(f.Body, &out)
	return out, err
}

func (f Frame) DecodeJoin() (protocol.ActorMetadata, error) {
	var out protocol.ActorMetadata
	err := json.Unmarshal(f.Body, &out)
	return out, err
}

func (f Frame) DecodeLeave() (string, error) {
	var out leaveBody
	err := json.Unmarshal(f.Body, &out)
	return out.ActorID, err
}
