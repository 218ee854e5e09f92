// Package camera adapts HTTP-pushed frames to the capture-device port.
// Clients stream stills to the session endpoints; the flow controller
// consumes the most recent one as if it came from a live feed.
package camera

import (
	"context"
	"errors"
	"sync"

	"kyc-verification/internal/core/domain"
	"kyc-verification/internal/core/ports"
	"kyc-verification/internal/imaging"
)

// FrameQueue is a single-slot capture device fed over the wire. Pushing
// replaces any unconsumed frame; capture without a pushed frame returns
// nil, matching a live stream with nothing to grab yet.
type FrameQueue struct {
	mu        sync.Mutex
	streaming bool
	facing    ports.FacingMode
	frame     *domain.Frame
}

var _ ports.CaptureDevice = (*FrameQueue)(nil)

func NewFrameQueue() *FrameQueue {
	return &FrameQueue{}
}

func (q *FrameQueue) Start(_ context.Context, facing ports.FacingMode) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.streaming = true
	q.facing = facing
	q.frame = nil
	return nil
}

func (q *FrameQueue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.streaming = false
	q.frame = nil
}

// Facing reports the mode requested by the last Start, so clients know
// which camera to present.
func (q *FrameQueue) Facing() (ports.FacingMode, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.facing, q.streaming
}

// Push stores an encoded still for the next capture. It decodes eagerly
// so the quality gate gets pixels, not bytes; undecodable input is
// rejected and the slot keeps whatever frame was there before.
func (q *FrameQueue) Push(raw []byte) error {
	img, err := imaging.DecodeImage(raw)
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.streaming {
		return domain.WrapError(domain.ErrDeviceUnavailable, "camera.push", errors.New("no active stream"))
	}
	if err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "camera.push", err)
	}
	q.frame = &domain.Frame{Data: raw, Image: img}
	return nil
}

func (q *FrameQueue) CaptureFrame(_ context.Context) (*domain.Frame, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.streaming {
		return nil, nil
	}
	frame := q.frame
	q.frame = nil
	return frame, nil
}
