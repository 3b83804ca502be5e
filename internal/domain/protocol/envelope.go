// Package protocol defines the request/response envelope shared by every channel
// and the canonical request signature computed over it.
package protocol

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"time"

	"authgate/internal/errors"
)

// CodeSuccess is the head.code of a successful response.
const CodeSuccess = 0

// MsgSuccess is the head.msg of a successful response.
const MsgSuccess = "成功"

// Head carries the per-request protocol fields.
type Head struct {
	Version int    `json:"version"`
	Channel *int   `json:"channel"`
	Token   string `json:"token,omitempty"`
	Time    int64  `json:"time"` // epoch milliseconds
	Sign    string `json:"sign,omitempty"`
}

// Timestamp returns head.time as a time.Time.
func (h *Head) Timestamp() time.Time {
	return time.UnixMilli(h.Time)
}

// ChannelCode returns the channel code, or -1 when the head carries none.
func (h *Head) ChannelCode() int {
	if h.Channel == nil {
		return -1
	}

	return *h.Channel
}

// Request is an inbound envelope. Body is kept raw until a handler binds it.
type Request struct {
	Head *Head           `json:"head"`
	Body json.RawMessage `json:"body,omitempty"`
}

// Decode parses an envelope. Clients may send the JSON document base64-encoded.
func Decode(raw []byte) (*Request, error) {
	payload := bytes.TrimSpace(raw)
	if len(payload) > 0 && payload[0] != '{' {
		decoded, err := base64.StdEncoding.DecodeString(string(payload))
		if err != nil {
			return nil, errors.Wrap(err, "decode base64 envelope")
		}
		payload = decoded
	}

	req := new(Request)
	if err := json.Unmarshal(payload, req); err != nil {
		return nil, errors.Wrap(err, "decode envelope")
	}

	return req, nil
}

// BindBody decodes the envelope body into v. An absent body leaves v untouched.
func (r *Request) BindBody(v any) error {
	if len(r.Body) == 0 || bytes.Equal(r.Body, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return errors.Wrap(err, "decode body")
	}

	return nil
}

// SignParams returns the envelope as a generic map for signing.
// Numbers keep their literal form so the digest matches what the client signed.
func (r *Request) SignParams() (map[string]any, error) {
	params := make(map[string]any, 2)

	if r.Head != nil {
		headJSON, err := json.Marshal(r.Head)
		if err != nil {
			return nil, errors.Wrap(err, "encode head")
		}
		head, err := decodeGeneric(headJSON)
		if err != nil {
			return nil, err
		}
		params["head"] = head
	}

	if len(r.Body) > 0 {
		body, err := decodeGeneric(r.Body)
		if err != nil {
			return nil, err
		}
		params["body"] = body
	}

	return params, nil
}

func decodeGeneric(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Wrap(err, "decode params")
	}

	return v, nil
}

// RespHead carries the outcome of a request.
type RespHead struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Response is an outbound envelope.
type Response struct {
	Head RespHead `json:"head"`
	Body any      `json:"body,omitempty"`
}

// OK builds a success envelope.
func OK(body any) *Response {
	return &Response{
		Head: RespHead{Code: CodeSuccess, Msg: MsgSuccess},
		Body: body,
	}
}

// Fail builds a failure envelope without a body.
func Fail(code int, msg string) *Response {
	return &Response{Head: RespHead{Code: code, Msg: msg}}
}
