package router

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"
)

// VisionSender is implemented by adapters that accept an image alongside text.
type VisionSender interface {
	ID() string
	Configured() bool
	SendVision(ctx context.Context, model string, req VisionRequest) (Completion, error)
	ClassifyError(err error) *ClassifiedError
}

// FileFetcher resolves a chat-transport file handle to its bytes. The
// returned path is the transport's file path, used for MIME detection.
type FileFetcher interface {
	FetchFile(ctx context.Context, fileID string) (data []byte, filePath string, err error)
}

// ErrVisionUnavailable is returned when vision mode is disabled or unconfigured.
var ErrVisionUnavailable = errors.New("vision mode unavailable")

// Vision sends one multimodal request to a single provider and model. There
// is no fallback chain here; callers fall back to Engine.Complete.
type Vision struct {
	sender   VisionSender
	model    string
	fetcher  FileFetcher
	timeout  time.Duration
	observer Observer
}

func NewVision(sender VisionSender, model string, fetcher FileFetcher, timeout time.Duration) *Vision {
	return &Vision{sender: sender, model: model, fetcher: fetcher, timeout: timeout}
}

// SetObserver attaches an attempt observer.
func (v *Vision) SetObserver(o Observer) {
	if v != nil {
		v.observer = o
	}
}

// Available reports whether a vision attempt can be made at all.
func (v *Vision) Available() bool {
	return v != nil && v.sender != nil && v.fetcher != nil && v.sender.Configured()
}

// Provider returns the provider id and model used for vision.
func (v *Vision) Provider() (string, string) {
	if v == nil || v.sender == nil {
		return "", ""
	}
	return v.sender.ID(), v.model
}

// Complete downloads the photo behind fileID and sends it with prompt.
func (v *Vision) Complete(ctx context.Context, id, prompt, fileID string, p Params) (Completion, error) {
	if !v.Available() || fileID == "" {
		return Completion{}, ErrVisionUnavailable
	}
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	data, filePath, err := v.fetcher.FetchFile(ctx, fileID)
	if err != nil {
		return Completion{}, fmt.Errorf("fetch photo: %w", err)
	}

	slog.Info("routing vision request",
		slog.String("provider", v.sender.ID()),
		slog.String("model", v.model),
		slog.Int("image_bytes", len(data)),
	)
	start := time.Now()
	c, err := v.sender.SendVision(ctx, v.model, VisionRequest{
		ID:       id,
		Prompt:   prompt,
		ImageURL: DataURL(data, filePath),
		Params:   p.withDefaults(),
	})
	if v.observer != nil {
		v.observer.ObserveAttempt(v.sender.ID(), v.model, outcomeOf(v.sender.ClassifyError, err), time.Since(start))
	}
	if err != nil {
		return Completion{}, err
	}
	c.ProviderID = v.sender.ID()
	c.Model = v.model
	return c, nil
}

// GuessMIME picks an image MIME type from the file extension, defaulting to JPEG.
func GuessMIME(filePath string) string {
	switch strings.ToLower(path.Ext(filePath)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// DataURL encodes data as a base64 data URL.
func DataURL(data []byte, filePath string) string {
	return "data:" + GuessMIME(filePath) + ";base64," + base64.StdEncoding.EncodeToString(data)
}
