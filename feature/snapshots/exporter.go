package snapshots

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"segment-sync/core/index"
	"segment-sync/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// ErrNoSnapshot is returned when a segment has never been exported.
var ErrNoSnapshot = errors.New("no snapshot for segment")

// Snapshot describes one exported Live Set.
type Snapshot struct {
	SegmentID string    `json:"segment_id"`
	Object    string    `json:"object"`
	Members   int64     `json:"members"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Exporter writes segment Live Sets to object storage as newline-separated member ids.
type Exporter struct {
	store  *index.Store
	client storage.Client
	bucket string
	prefix string
	keep   int
	logger *zap.Logger
	now    func() time.Time
}

// NewExporter creates an exporter for the configured bucket.
func NewExporter(store *index.Store, client storage.Client, cfg storage.Config, logger *zap.Logger) *Exporter {
	return &Exporter{
		store:  store,
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		keep:   cfg.Keep,
		logger: logger,
		now:    time.Now,
	}
}

// EnsureBucket creates the snapshot bucket if needed.
func (e *Exporter) EnsureBucket(ctx context.Context, region string) error {
	return storage.EnsureBucket(ctx, e.client, e.bucket, region)
}

func (e *Exporter) segmentPrefix(segmentID string) string {
	return e.prefix + segmentID + "/"
}

// Export streams the Live Set of segmentID into a new object and prunes old snapshots.
// Memory use does not depend on the segment size.
func (e *Exporter) Export(ctx context.Context, segmentID string) (Snapshot, error) {
	at := e.now().UTC()
	snap := Snapshot{
		SegmentID: segmentID,
		// Fixed-width timestamps sort lexically in creation order.
		Object:    e.segmentPrefix(segmentID) + at.Format("20060102T150405.000000000Z") + ".txt",
		CreatedAt: at,
	}

	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		w := bufio.NewWriter(pw)
		var err error
		for member, serr := range e.store.SegmentMembers(ctx, segmentID) {
			if serr != nil {
				err = serr
				break
			}
			if _, err = w.WriteString(member + "\n"); err != nil {
				break
			}
			snap.Members++
		}
		if err == nil {
			err = w.Flush()
		}
		pw.CloseWithError(err)
		done <- err
	}()

	info, err := e.client.PutObject(ctx, e.bucket, snap.Object, pr, -1, minio.PutObjectOptions{ContentType: "text/plain"})
	// Unblocks the writer if the upload stopped reading early.
	pr.CloseWithError(err)
	werr := <-done

	if err != nil {
		return snap, fmt.Errorf("failed to upload snapshot of segment %s: %w", segmentID, err)
	}
	if werr != nil {
		_ = e.client.RemoveObject(context.WithoutCancel(ctx), e.bucket, snap.Object, minio.RemoveObjectOptions{})
		return snap, fmt.Errorf("failed to read segment %s: %w", segmentID, werr)
	}
	snap.Size = info.Size

	e.logger.Info("Segment snapshot exported",
		zap.String("segment_id", segmentID),
		zap.String("object", snap.Object),
		zap.Int64("members", snap.Members),
	)

	if e.keep > 0 {
		if _, err := e.Prune(ctx, segmentID, e.keep); err != nil {
			e.logger.Warn("Snapshot pruning failed", zap.String("segment_id", segmentID), zap.Error(err))
		}
	}
	return snap, nil
}

// List returns the snapshots of segmentID, newest first.
func (e *Exporter) List(ctx context.Context, segmentID string) ([]Snapshot, error) {
	var out []Snapshot
	for obj := range e.client.ListObjects(ctx, e.bucket, minio.ListObjectsOptions{Prefix: e.segmentPrefix(segmentID)}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list snapshots of segment %s: %w", segmentID, obj.Err)
		}
		if !strings.HasSuffix(obj.Key, ".txt") {
			continue
		}
		out = append(out, Snapshot{
			SegmentID: segmentID,
			Object:    obj.Key,
			Size:      obj.Size,
			CreatedAt: obj.LastModified,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Object > out[j].Object })
	return out, nil
}

// Open returns a reader over the newest snapshot of segmentID. The caller closes it.
func (e *Exporter) Open(ctx context.Context, segmentID string) (io.ReadCloser, Snapshot, error) {
	list, err := e.List(ctx, segmentID)
	if err != nil {
		return nil, Snapshot{}, err
	}
	if len(list) == 0 {
		return nil, Snapshot{}, ErrNoSnapshot
	}

	r, err := e.client.GetObject(ctx, e.bucket, list[0].Object, minio.GetObjectOptions{})
	if err != nil {
		return nil, list[0], fmt.Errorf("failed to open snapshot %s: %w", list[0].Object, err)
	}
	return r, list[0], nil
}

// Prune deletes all but the newest keep snapshots of segmentID and returns how many were removed.
func (e *Exporter) Prune(ctx context.Context, segmentID string, keep int) (int, error) {
	list, err := e.List(ctx, segmentID)
	if err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	if len(list) <= keep {
		return 0, nil
	}
	stale := list[keep:]

	objectsCh := make(chan minio.ObjectInfo, len(stale))
	for _, s := range stale {
		objectsCh <- minio.ObjectInfo{Key: s.Object}
	}
	close(objectsCh)

	var errs []error
	for rerr := range e.client.RemoveObjects(ctx, e.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		errs = append(errs, fmt.Errorf("%s: %w", rerr.ObjectName, rerr.Err))
	}
	if len(errs) > 0 {
		return len(stale) - len(errs), fmt.Errorf("failed to remove snapshots: %w", errors.Join(errs...))
	}
	return len(stale), nil
}
