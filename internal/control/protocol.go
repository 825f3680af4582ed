// Package control implements the daemon's Registration RPC (spec §6): a
// length-delimited JSON request/response control endpoint exposing
// register(root) → address and unregister(root) → ().
package control

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// Op is the Registration RPC's operation discriminant.
type Op string

const (
	OpRegister   Op = "register"
	OpUnregister Op = "unregister"
)

// Request is one length-delimited RPC call.
type Request struct {
	Op   Op     `json:"op"`
	Root string `json:"root"`
}

// Response is the RPC's reply. Address is set only for a successful
// register; Error is set whenever the daemon-side call failed.
type Response struct {
	Address string `json:"address,omitempty"`
	Error   string `json:"error,omitempty"`
}

// maxFrameSize bounds a single length-delimited frame, guarding against a
// corrupt or hostile length prefix driving an unbounded allocation.
const maxFrameSize = 1 << 20

// writeFrame writes a 4-byte big-endian length prefix followed by payload.
func writeFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// readFrame reads one length-delimited frame from r.
func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFrameSize {
		return nil, fmt.Errorf("control: frame of %d bytes exceeds maximum %d", n, maxFrameSize)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// writeRequest/writeResponse/readRequest/readResponse marshal to/from JSON
// over the length-delimited frame.

func writeRequest(w io.Writer, req Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return writeFrame(w, data)
}

func readRequest(r io.Reader) (Request, error) {
	var req Request
	data, err := readFrame(r)
	if err != nil {
		return req, err
	}
	err = json.Unmarshal(data, &req)
	return req, err
}

func writeResponse(w io.Writer, resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return writeFrame(w, data)
}

func readResponse(r io.Reader) (Response, error) {
	var resp Response
	data, err := readFrame(r)
	if err != nil {
		return resp, err
	}
	err = json.Unmarshal(data, &resp)
	return resp, err
}
