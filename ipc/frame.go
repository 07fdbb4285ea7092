// Package ipc implements the progress stream framing for embedding UIs.
//
// When ferry runs inside a desktop shell or another supervising process, the
// supervisor consumes transfer progress from ferry's stdout as a stream of
// length-prefixed msgpack frames: one progress frame per acknowledged chunk,
// then exactly one result frame. The framing is self-delimiting so the
// consumer never needs to guess message boundaries.
package ipc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pellucid-io/ferry/types"
)

// Frame size constants.
const (
	// MaxFrameSize is the maximum frame size (64 KiB). Progress and result
	// frames are small; anything larger indicates a corrupted stream.
	MaxFrameSize = 64 * 1024
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
	// MaxPayloadSize is the maximum payload size.
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
)

// Frame type discriminants.
const (
	// ProgressType marks a progress frame.
	ProgressType = "progress"
	// ResultType marks the terminal result frame.
	ResultType = "result"
)

// ProgressFrame carries one progress snapshot.
type ProgressFrame struct {
	// Type is always "progress".
	Type string `msgpack:"type"`
	// LoadedBytes is the number of envelope bytes acknowledged.
	LoadedBytes int64 `msgpack:"loaded_bytes"`
	// TotalBytes is the total envelope length.
	TotalBytes int64 `msgpack:"total_bytes"`
	// Percentage is the completion percentage.
	Percentage float64 `msgpack:"percentage"`
	// IsFullBundle is true for full (non-incremental) transfers.
	IsFullBundle bool `msgpack:"is_full_bundle"`
}

// ResultFrame is the terminal frame of a stream.
type ResultFrame struct {
	// Type is always "result".
	Type string `msgpack:"type"`
	// Outcome is "done" or "failed".
	Outcome string `msgpack:"outcome"`
	// Message describes the outcome.
	Message string `msgpack:"message"`
	// ChunksSent is the number of chunks acknowledged this session.
	ChunksSent int64 `msgpack:"chunks_sent"`
}

// FrameErrorKind classifies frame decoding errors.
type FrameErrorKind int

const (
	// FrameErrorPartial indicates a truncated or incomplete frame.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorTooLarge indicates a frame exceeding MaxFrameSize.
	FrameErrorTooLarge
	// FrameErrorDecode indicates a msgpack decoding error.
	FrameErrorDecode
)

// FrameError represents a frame encoding or decoding error.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// FrameEncoder writes length-prefixed msgpack frames to a stream.
type FrameEncoder struct {
	writer io.Writer
}

// NewFrameEncoder creates a frame encoder.
func NewFrameEncoder(w io.Writer) *FrameEncoder {
	return &FrameEncoder{writer: w}
}

// WriteProgress encodes and writes a progress frame from a snapshot.
func (e *FrameEncoder) WriteProgress(snap types.ProgressSnapshot) error {
	return e.write(&ProgressFrame{
		Type:         ProgressType,
		LoadedBytes:  snap.LoadedBytes,
		TotalBytes:   snap.TotalBytes,
		Percentage:   snap.Percentage,
		IsFullBundle: snap.IsFullBundle,
	})
}

// WriteResult encodes and writes the terminal result frame.
func (e *FrameEncoder) WriteResult(outcome types.TransferOutcome, chunksSent int64) error {
	return e.write(&ResultFrame{
		Type:       ResultType,
		Outcome:    string(outcome.Status),
		Message:    outcome.Message,
		ChunksSent: chunksSent,
	})
}

func (e *FrameEncoder) write(frame any) error {
	payload, err := msgpack.Marshal(frame)
	if err != nil {
		return &FrameError{Kind: FrameErrorDecode, Msg: "failed to encode frame", Err: err}
	}
	if len(payload) > MaxPayloadSize {
		return &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", len(payload), MaxPayloadSize),
		}
	}

	var lengthBuf [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(lengthBuf[:], uint32(len(payload)))
	if _, err := e.writer.Write(lengthBuf[:]); err != nil {
		return fmt.Errorf("write length prefix: %w", err)
	}
	if _, err := e.writer.Write(payload); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	return nil
}

// FrameDecoder reads length-prefixed msgpack frames from a stream.
type FrameDecoder struct {
	reader io.Reader
}

// NewFrameDecoder creates a frame decoder.
func NewFrameDecoder(r io.Reader) *FrameDecoder {
	return &FrameDecoder{reader: r}
}

// ReadFrame reads and decodes a single frame.
//
// Errors:
//   - io.EOF: stream ended cleanly (no more frames)
//   - *FrameError with Kind=FrameErrorPartial: incomplete frame
//   - *FrameError with Kind=FrameErrorTooLarge: frame exceeds limit
//   - *FrameError with Kind=FrameErrorDecode: payload could not be decoded
func (d *FrameDecoder) ReadFrame() (any, error) {
	var lengthBuf [LengthPrefixSize]byte
	if _, err := io.ReadFull(d.reader, lengthBuf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, &FrameError{Kind: FrameErrorPartial, Msg: "failed to read length prefix", Err: err}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])
	if payloadSize > MaxPayloadSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", payloadSize, MaxPayloadSize),
		}
	}

	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(d.reader, payload); err != nil {
		return nil, &FrameError{Kind: FrameErrorPartial, Msg: "failed to read payload", Err: err}
	}

	return decodeFrame(payload)
}

// frameTypeProbe peeks at the type field without a full decode.
type frameTypeProbe struct {
	Type string `msgpack:"type"`
}

func decodeFrame(payload []byte) (any, error) {
	var probe frameTypeProbe
	if err := msgpack.Unmarshal(payload, &probe); err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode frame type", Err: err}
	}

	switch probe.Type {
	case ProgressType:
		var frame ProgressFrame
		if err := msgpack.Unmarshal(payload, &frame); err != nil {
			return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode progress frame", Err: err}
		}
		return &frame, nil
	case ResultType:
		var frame ResultFrame
		if err := msgpack.Unmarshal(payload, &frame); err != nil {
			return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode result frame", Err: err}
		}
		return &frame, nil
	default:
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: fmt.Sprintf("unknown frame type %q", probe.Type)}
	}
}
