// Package worker drives the Python face_recognition process that backs the
// detector, landmark and encoder collaborators.
package worker

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"sync"
	"time"

	"github.com/andresmejia3/facemap/internal/geometry"
	"github.com/andresmejia3/facemap/internal/landmarks"
	"github.com/andresmejia3/facemap/internal/types"
	"github.com/andresmejia3/facemap/internal/utils" // Using the SafeCommand wrapper
	"github.com/disintegration/imaging"
)

var (
	// ErrRemote wraps an exception raised inside Python for one request.
	// The worker stays usable.
	ErrRemote = errors.New("python worker error")
	// ErrWorker wraps transport failures: a dead process, a timeout or an
	// unreadable frame. The worker is retired after one.
	ErrWorker = errors.New("python worker unavailable")
)

// unavailableError marks an error after which the worker cannot serve requests.
type unavailableError struct{ err error }

func (e unavailableError) Error() string     { return e.err.Error() }
func (e unavailableError) Unwrap() error     { return e.err }
func (e unavailableError) Unavailable() bool { return true }

func transportErr(format string, args ...any) error {
	return unavailableError{fmt.Errorf("%w: "+format, append([]any{ErrWorker}, args...)...)}
}

// maxFrame bounds a single response so a corrupted header cannot trigger a huge allocation.
const maxFrame = 256 * 1024 * 1024

// Options configures how a worker process is launched.
type Options struct {
	Python  string        // interpreter, e.g. python3
	Script  string        // path to worker.py
	Timeout time.Duration // per-call read timeout, 0 disables it
}

// DefaultOptions returns the interpreter and script paths used when no flags are given.
func DefaultOptions() Options {
	return Options{Python: "python3", Script: "python/worker.py", Timeout: 60 * time.Second}
}

type PythonWorker struct {
	ID       int
	Cmd      *utils.SafeCommand
	Stdin    io.WriteCloser
	DataPipe io.ReadCloser
	Timeout  time.Duration

	mu     sync.Mutex
	broken error
}

func NewPythonWorker(id int, opts Options) (*PythonWorker, error) {
	// 1. Initialize the SafeCommand we built
	py := utils.NewSafeCommand(opts.Python, "-u", opts.Script)

	// Create a side-channel pipe (FD 3) for clean data transfer
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	// Pass the write-end to the child process. It will appear as FD 3.
	py.Cmd.ExtraFiles = []*os.File{w}

	stdin, err := py.StdinPipe()
	if err != nil {
		w.Close() // Prevent FD leak
		r.Close() // Close read-end too!
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := py.Start(); err != nil {
		w.Close() // Close write end if start fails
		r.Close() // Close read-end too!
		return nil, fmt.Errorf("worker %d failed to start: %w", id, err)
	}

	// Close the write-end in the parent so only the child holds it
	w.Close()

	return &PythonWorker{
		ID:       id,
		Cmd:      py,
		Stdin:    stdin,
		DataPipe: r,
		Timeout:  opts.Timeout,
	}, nil
}

// readDeadliner is implemented by *os.File pipes.
type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// Communicate sends one request and returns the OK payload of the response.
// Calls on the same worker are serialized. After a transport failure the
// worker is broken and every later call fails with the same error.
func (w *PythonWorker) Communicate(ctx context.Context, req types.Request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.broken != nil {
		return nil, w.broken
	}
	payload, err := w.roundTrip(ctx, req)
	if _, ok := err.(unavailableError); ok {
		w.broken = err
	}
	return payload, err
}

func (w *PythonWorker) roundTrip(ctx context.Context, req types.Request) ([]byte, error) {
	// Arm the deadline before writing so a failure here leaves the pipe in sync.
	if d, ok := w.DataPipe.(readDeadliner); ok {
		deadline, hasDeadline := ctx.Deadline()
		if w.Timeout > 0 {
			if t := time.Now().Add(w.Timeout); !hasDeadline || t.Before(deadline) {
				deadline, hasDeadline = t, true
			}
		}
		if hasDeadline {
			if err := d.SetReadDeadline(deadline); err != nil && !errors.Is(err, os.ErrNoDeadline) {
				return nil, transportErr("set read deadline: %v", err)
			} else if err == nil {
				defer d.SetReadDeadline(time.Time{})
			}
		}
	}

	// Protocol: [Length][Op][Data]
	if err := binary.Write(w.Stdin, binary.BigEndian, uint32(len(req.Data)+1)); err != nil {
		return nil, transportErr("write request: %v", err)
	}
	if _, err := w.Stdin.Write([]byte{byte(req.Op)}); err != nil {
		return nil, transportErr("write request: %v", err)
	}
	if _, err := w.Stdin.Write(req.Data); err != nil {
		return nil, transportErr("write request: %v", err)
	}

	// Read Result
	header := make([]byte, 4)
	if _, err := io.ReadFull(w.DataPipe, header); err != nil {
		return nil, transportErr("%s read failed: %v", req.Op, err) // This is where we catch the "ModuleNotFoundError" crash
	}

	respLen := binary.BigEndian.Uint32(header)
	if respLen == 0 || respLen > maxFrame {
		return nil, transportErr("bad response length %d", respLen)
	}
	respBody := make([]byte, respLen)
	if _, err := io.ReadFull(w.DataPipe, respBody); err != nil {
		return nil, transportErr("%s read failed: %v", req.Op, err)
	}

	status, payload := respBody[0], respBody[1:]
	switch status {
	case types.StatusOK:
		return payload, nil
	case types.StatusError:
		res, err := decodeError(payload)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", ErrRemote, res.Error)
	}
	return nil, transportErr("unknown status %d", status)
}

// Broken reports the transport failure that retired this worker, or nil.
func (w *PythonWorker) Broken() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.broken
}

// decoded retires the worker when a payload it sent cannot be parsed.
func (w *PythonWorker) decoded(err error) error {
	if err == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.broken == nil {
		w.broken = err
	}
	return err
}

// DetectFaces implements locator.FaceDetector.
func (w *PythonWorker) DetectFaces(ctx context.Context, img image.Image) ([]geometry.DetectorBox, error) {
	payload, err := w.call(ctx, types.OpDetect, img)
	if err != nil {
		return nil, err
	}
	boxes, err := decodeBoxes(payload)
	return boxes, w.decoded(err)
}

// DetectLandmarks implements landmarks.LandmarkDetector.
func (w *PythonWorker) DetectLandmarks(ctx context.Context, img image.Image) ([]landmarks.Set, error) {
	payload, err := w.call(ctx, types.OpLandmarks, img)
	if err != nil {
		return nil, err
	}
	sets, err := decodeLandmarks(payload)
	return sets, w.decoded(err)
}

// EncodeIdentity implements fingerprint.IdentityEncoder.
func (w *PythonWorker) EncodeIdentity(ctx context.Context, img image.Image) ([][]float64, error) {
	payload, err := w.call(ctx, types.OpEncode, img)
	if err != nil {
		return nil, err
	}
	vecs, err := decodeEncodings(payload)
	return vecs, w.decoded(err)
}

func (w *PythonWorker) call(ctx context.Context, op types.Op, img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode %s request: %w", op, err)
	}
	return w.Communicate(ctx, types.Request{Op: op, Data: buf.Bytes()})
}

func (w *PythonWorker) Close() {
	w.Stdin.Close()
	w.DataPipe.Close()
	if w.Cmd != nil {
		w.Cmd.Wait()
	}
}
