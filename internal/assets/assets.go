// Package assets stores uploaded images (sponsor logos, player photos, ads)
// as metadata documents plus a separate binary blob.
package assets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/scoreboard/internal/docstore"
	"github.com/playperu/scoreboard/internal/notify"
	"github.com/playperu/scoreboard/internal/scoreboard"
)

type Service struct {
	store    *docstore.Store
	notifier *notify.Notifier
	logger   *slog.Logger
	maxBytes int64
}

// New builds the service. maxBytes <= 0 selects DefaultMaxBytes; notifier may
// be nil.
func New(store *docstore.Store, notifier *notify.Notifier, logger *slog.Logger, maxBytes int64) *Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Service{store: store, notifier: notifier, logger: logger, maxBytes: maxBytes}
}

// MaxBytes is the upload size ceiling.
func (s *Service) MaxBytes() int64 { return s.maxBytes }

type UploadRequest struct {
	// ID is optional; a random id is generated when empty.
	ID       string
	Filename string
	MIME     string
	Type     scoreboard.AssetType
	Tags     []string
	Data     []byte
}

// UploadResult is what callers of Upload get back; rejections are reported
// here and never as a Go error.
type UploadResult struct {
	Success bool              `json:"success"`
	Error   string            `json:"error,omitempty"`
	Asset   *scoreboard.Asset `json:"asset,omitempty"`
}

// Rejected reports whether the upload failed validation, as opposed to a
// storage failure.
func (r UploadResult) Rejected() bool {
	return !r.Success && strings.HasPrefix(r.Error, scoreboard.ErrUploadRejected.Error())
}

func rejected(format string, args ...any) UploadResult {
	return UploadResult{Error: fmt.Errorf("%w: "+format, append([]any{scoreboard.ErrUploadRejected}, args...)...).Error()}
}

// Upload validates and stores an image. Re-uploading an existing id replaces
// the bytes and metadata but keeps createdAt.
func (s *Service) Upload(ctx context.Context, req UploadRequest) UploadResult {
	if len(req.Data) == 0 {
		return rejected("empty file")
	}
	if int64(len(req.Data)) > s.maxBytes {
		return rejected("file is %d bytes, limit is %d", len(req.Data), s.maxBytes)
	}
	declared := normalizeMIME(req.MIME)
	if declared != "" && !allowedMIME[declared] {
		return rejected("type %q is not allowed", declared)
	}
	actual := sniff(req.Data)
	if actual == "" {
		return rejected("content is not a supported image")
	}
	if declared != "" && declared != actual {
		return rejected("declared %s but content is %s", declared, actual)
	}
	if req.Type == "" {
		req.Type = scoreboard.AssetLogo
	}
	if !req.Type.Valid() {
		return rejected("unknown asset type %q", req.Type)
	}

	width, height, err := dimensions(actual, req.Data)
	if err != nil {
		return rejected("%v", err)
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}
	now := scoreboard.Timestamp(time.Now())
	asset := scoreboard.Asset{
		ID:        id,
		Filename:  req.Filename,
		MIME:      actual,
		Width:     width,
		Height:    height,
		Size:      int64(len(req.Data)),
		Type:      req.Type,
		Tags:      cleanTags(req.Tags),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if prev, err := s.Get(ctx, id); err == nil {
		asset.CreatedAt = prev.CreatedAt
	}

	if err := s.store.PutWithBlob(ctx, id, asset, req.Data); err != nil {
		s.logger.Error("storing asset", "id", id, "error", err)
		return UploadResult{Error: fmt.Sprintf("storing asset: %v", err)}
	}
	s.logger.Info("asset uploaded", "id", id, "mime", actual, "size", asset.Size)
	s.announce(ctx, "upload", id)
	return UploadResult{Success: true, Asset: &asset}
}

func (s *Service) Get(ctx context.Context, id string) (scoreboard.Asset, error) {
	if id == "" {
		return scoreboard.Asset{}, fmt.Errorf("%w: empty asset id", scoreboard.ErrInvalidArgument)
	}
	return docstore.Get[scoreboard.Asset](ctx, s.store, docstore.Assets, id)
}

// Blob returns the stored bytes together with the metadata.
func (s *Service) Blob(ctx context.Context, id string) (scoreboard.Asset, []byte, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return a, nil, err
	}
	data, err := s.store.Blob(ctx, id)
	if err != nil {
		return a, nil, err
	}
	return a, data, nil
}

// Has reports whether an asset exists. Store errors count as absent.
func (s *Service) Has(ctx context.Context, id string) bool {
	if id == "" {
		return false
	}
	_, err := s.Get(ctx, id)
	if err != nil && !errors.Is(err, scoreboard.ErrNotFound) {
		s.logger.Warn("checking asset", "id", id, "error", err)
	}
	return err == nil
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Type  scoreboard.AssetType
	Tag   string
	Limit int
}

func (f Filter) query() docstore.Query[scoreboard.Asset] {
	tag := strings.ToLower(strings.TrimSpace(f.Tag))
	return docstore.Query[scoreboard.Asset]{
		Match: func(a scoreboard.Asset) bool {
			if f.Type != "" && a.Type != f.Type {
				return false
			}
			return tag == "" || a.HasTag(tag)
		},
		Less: func(a, b scoreboard.Asset) bool {
			return a.CreatedAt > b.CreatedAt
		},
		Limit: f.Limit,
	}
}

// List returns matching assets, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]scoreboard.Asset, error) {
	return docstore.Find(ctx, s.store, docstore.Assets, f.query())
}

// Observe delivers the matching asset list now and after every asset change.
func (s *Service) Observe(f Filter, fn func([]scoreboard.Asset, error)) (cancel func()) {
	return docstore.ObserveQuery(s.store, docstore.Assets, f.query(), fn)
}

// SetTags replaces the tag set of an asset.
func (s *Service) SetTags(ctx context.Context, id string, tags []string) (scoreboard.Asset, error) {
	if id == "" {
		return scoreboard.Asset{}, fmt.Errorf("%w: empty asset id", scoreboard.ErrInvalidArgument)
	}
	a, err := docstore.Modify(ctx, s.store, docstore.Assets, id, func(a *scoreboard.Asset) error {
		a.Tags = cleanTags(tags)
		a.UpdatedAt = scoreboard.Timestamp(time.Now())
		return nil
	})
	if err != nil {
		return a, err
	}
	s.announce(ctx, "tags", id)
	return a, nil
}

// Delete removes the asset and its bytes. References from logo slots or
// player photos are left dangling.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty asset id", scoreboard.ErrInvalidArgument)
	}
	if err := s.store.Delete(ctx, docstore.Assets, id); err != nil {
		return err
	}
	s.logger.Info("asset deleted", "id", id)
	s.announce(ctx, "delete", id)
	return nil
}

func (s *Service) announce(ctx context.Context, action, id string) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Send(ctx, notify.TypeAssetsChanged, map[string]any{"action": action, "id": id}); err != nil {
		s.logger.Warn("broadcast failed", "type", notify.TypeAssetsChanged, "error", err)
	}
}

func cleanTags(tags []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
