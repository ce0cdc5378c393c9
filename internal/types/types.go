package types

// Op selects what the Python worker does with the image in a request frame.
type Op uint8

const (
	OpDetect    Op = 1 // face boxes
	OpLandmarks Op = 2 // named landmark polylines per face
	OpEncode    Op = 3 // identity encodings per face
)

func (o Op) String() string {
	switch o {
	case OpDetect:
		return "detect"
	case OpLandmarks:
		return "landmarks"
	case OpEncode:
		return "encode"
	}
	return "unknown"
}

// Response status byte.
const (
	StatusOK    byte = 0
	StatusError byte = 1
)

// Request is a single image sent to a worker for processing.
// Data is PNG encoded.
type Request struct {
	Op   Op
	Data []byte
}

// ErrorResult captures the error message returned by Python on failure
type ErrorResult struct {
	Error string
}
