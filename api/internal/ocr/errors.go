package ocr

import "errors"

var (
	ErrDecode        = errors.New("image decode failed")
	ErrUnknownEngine = errors.New("unknown engine")

	ErrBackendUnavailable = errors.New("recognition backend unavailable")
	ErrBackendInference   = errors.New("recognition backend inference failed")
	ErrBackendProtocol    = errors.New("recognition backend protocol failed")
)
