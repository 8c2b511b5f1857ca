package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"LocalVault/config"
	"LocalVault/internal/blob"
	"LocalVault/internal/metrics"
	"LocalVault/internal/notify"
	"LocalVault/internal/storage"
	"LocalVault/model"
)

// State is the lifecycle of a registry session.
type State int32

const (
	StateUninitialized State = iota
	StateOpening
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateOpening:
		return "opening"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Operation names used in notifications, logs and metrics.
const (
	OpInitialize = "initialize"
	OpUpload     = "upload"
	OpDownload   = "download"
	OpDelete     = "delete"
	OpClear      = "clear"
)

// User-facing messages.
const (
	MsgStorageReady   = "File storage ready"
	MsgOpenFailed     = "Failed to open file storage"
	MsgUploaded       = "File uploaded successfully"
	MsgUploadFailed   = "Failed to upload file"
	MsgGeneric        = "Something went wrong. Please try again or refresh if the issue persists."
	MsgDownloaded     = "File downloaded"
	MsgDownloadFailed = "Failed to download file"
	MsgDeleted        = "File deleted"
	MsgDeleteFailed   = "Failed to delete file"
	MsgCleared        = "Storage cleared successfully"
	MsgClearFailed    = "Failed to clear storage"
)

// TooLargeMessage is the notification text for an upload above maxBytes.
func TooLargeMessage(maxBytes int64) string {
	return fmt.Sprintf("File size limit exceeded. Maximum size is %dMB.", maxBytes/(1024*1024))
}

// Saver hands a download to the save-as target.
type Saver interface {
	Save(ctx context.Context, name string, obj *blob.Object) error
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, name string, obj *blob.Object) error

func (f SaverFunc) Save(ctx context.Context, name string, obj *blob.Object) error {
	return f(ctx, name, obj)
}

// Options configures a Registry. Zero values fall back to the storage defaults.
type Options struct {
	DBName         string
	DBVersion      int
	MaxUploadBytes int64

	Estimator storage.Estimator
	Blobs     *blob.Registry
	Notifier  notify.Notifier
	Logger    *slog.Logger
}

// Registry mirrors the record store as an ordered in-memory list. Every mutation
// goes to the gateway first and the list is re-fetched afterwards.
type Registry struct {
	gw       storage.Gateway
	opts     Options
	notifier notify.Notifier
	blobs    *blob.Registry
	logger   *slog.Logger

	// actionMu serializes user actions
	actionMu sync.Mutex
	busy     atomic.Int32

	mu    sync.RWMutex
	state State
	conn  *storage.Conn
	files []model.FileRecord
	usage model.UsageSnapshot
}

// NewRegistry creates an uninitialized registry over gw.
func NewRegistry(gw storage.Gateway, opts Options) *Registry {
	if opts.DBName == "" {
		opts.DBName = config.DefaultDBName
	}
	if opts.DBVersion < 1 {
		opts.DBVersion = config.DefaultDBVersion
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = config.DefaultMaxUploadBytes
	}
	if opts.Blobs == nil {
		opts.Blobs = blob.New(256, 10*time.Minute)
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Registry{
		gw:       gw,
		opts:     opts,
		notifier: opts.Notifier,
		blobs:    opts.Blobs,
		logger:   opts.Logger.With(slog.String("component", "registry")),
		files:    []model.FileRecord{},
	}
}

// Blobs returns the object URL registry used for previews and downloads.
func (r *Registry) Blobs() *blob.Registry {
	return r.blobs
}

// MaxUploadBytes returns the upload limit.
func (r *Registry) MaxUploadBytes() int64 {
	return r.opts.MaxUploadBytes
}

// Initialize opens the database and loads the list. It runs once per session;
// a failure leaves the registry Failed until Reload.
func (r *Registry) Initialize(ctx context.Context) error {
	done := r.beginAction()
	defer done()

	if state := r.State(); state != StateUninitialized {
		return fmt.Errorf("%w (state %s)", ErrAlreadyInitialized, state)
	}
	return r.initialize(ctx)
}

// Reload discards the session and initializes again.
func (r *Registry) Reload(ctx context.Context) error {
	done := r.beginAction()
	defer done()

	r.mu.Lock()
	old := r.conn
	r.conn = nil
	r.files = []model.FileRecord{}
	r.state = StateUninitialized
	r.mu.Unlock()

	if err := old.Close(); err != nil {
		r.logger.Warn("close connection on reload failed", slog.String("error", err.Error()))
	}
	r.blobs.Purge()
	r.publishFiles(nil)
	return r.initialize(ctx)
}

// initialize runs Opening -> Ready|Failed. Callers hold the action lock.
func (r *Registry) initialize(ctx context.Context) error {
	r.setState(StateOpening)

	conn, err := r.gw.Open(ctx, r.opts.DBName, r.opts.DBVersion)
	if err != nil {
		r.setState(StateFailed)
		return r.fail(ctx, OpInitialize, MsgOpenFailed, err)
	}
	records, err := r.gw.ListAll(ctx, conn)
	if err != nil {
		_ = conn.Close()
		r.setState(StateFailed)
		return r.fail(ctx, OpInitialize, MsgOpenFailed, err)
	}

	r.mu.Lock()
	r.conn = conn
	r.files = records
	r.state = StateReady
	r.mu.Unlock()

	r.publishFiles(records)
	r.ComputeUsage(ctx)
	r.succeed(ctx, OpInitialize, MsgStorageReady)
	return nil
}

// Upload stores one file and refreshes the list. It returns the stored record
// with its assigned id.
func (r *Registry) Upload(ctx context.Context, in *UploadInput) (*model.FileRecord, error) {
	done := r.beginAction()
	defer done()

	conn := r.activeConn()
	switch {
	case in == nil:
		return nil, r.fail(ctx, OpUpload, MsgGeneric, invalid("file", ErrFileMissing))
	case conn == nil:
		return nil, r.fail(ctx, OpUpload, MsgGeneric, invalid("connection", ErrNoConnection))
	}
	if err := in.Validate(r.opts.MaxUploadBytes); err != nil {
		return nil, r.fail(ctx, OpUpload, r.rejectMessage(err), err)
	}

	rec := &model.FileRecord{Name: in.Name, Type: in.Type, Content: in.Content}
	if err := r.gw.Put(ctx, conn, rec); err != nil {
		return nil, r.fail(ctx, OpUpload, MsgUploadFailed, err)
	}
	records, err := r.gw.ListAll(ctx, conn)
	if err != nil {
		return nil, r.fail(ctx, OpUpload, MsgUploadFailed, err)
	}

	r.setFiles(records)
	r.ComputeUsage(ctx)
	r.succeed(ctx, OpUpload, MsgUploaded)
	return rec, nil
}

// RejectUpload reports an upload the caller could not read, with the same single
// notification Upload would emit. err is returned unchanged.
func (r *Registry) RejectUpload(ctx context.Context, err error) error {
	return r.fail(ctx, OpUpload, r.rejectMessage(err), err)
}

func (r *Registry) rejectMessage(err error) string {
	if errors.Is(err, ErrFileTooLarge) {
		return TooLargeMessage(r.opts.MaxUploadBytes)
	}
	return MsgGeneric
}

// Download exposes the record through a transient object URL for the duration of
// saver.Save and revokes it afterwards. The store is not touched.
func (r *Registry) Download(ctx context.Context, rec *model.FileRecord, saver Saver) error {
	r.busy.Add(1)
	defer r.busy.Add(-1)

	switch {
	case rec == nil:
		return r.fail(ctx, OpDownload, MsgDownloadFailed, invalid("file", ErrRecordMissing))
	case saver == nil:
		return r.fail(ctx, OpDownload, MsgDownloadFailed, invalid("target", ErrSaverMissing))
	}

	obj := r.blobs.Create(rec.ID, ServedType(rec), rec.Content)
	defer r.blobs.Revoke(obj.URL)

	if err := saver.Save(ctx, rec.Name, obj); err != nil {
		return r.fail(ctx, OpDownload, MsgDownloadFailed, err)
	}
	r.succeed(ctx, OpDownload, MsgDownloaded)
	return nil
}

// DeleteFile removes one record and refreshes the list. An absent id succeeds.
func (r *Registry) DeleteFile(ctx context.Context, id uint64) error {
	done := r.beginAction()
	defer done()

	conn := r.activeConn()
	if conn == nil {
		return r.fail(ctx, OpDelete, MsgGeneric, invalid("connection", ErrNoConnection))
	}
	if err := r.gw.DeleteOne(ctx, conn, id); err != nil {
		return r.fail(ctx, OpDelete, MsgDeleteFailed, err)
	}
	records, err := r.gw.ListAll(ctx, conn)
	if err != nil {
		return r.fail(ctx, OpDelete, MsgDeleteFailed, err)
	}

	r.setFiles(records)
	r.blobs.RevokeOwner(id)
	r.ComputeUsage(ctx)
	r.succeed(ctx, OpDelete, MsgDeleted)
	return nil
}

// ClearAll drops the whole database. On success the list is emptied and the
// connection discarded; nothing reopens it until Reload.
func (r *Registry) ClearAll(ctx context.Context) error {
	done := r.beginAction()
	defer done()

	if state := r.State(); state != StateReady {
		return r.fail(ctx, OpClear, MsgGeneric, invalid("storage", ErrNotReady))
	}
	if err := r.gw.DropDatabase(ctx, r.opts.DBName); err != nil {
		return r.fail(ctx, OpClear, MsgClearFailed, err)
	}

	r.mu.Lock()
	old := r.conn
	r.conn = nil
	r.files = []model.FileRecord{}
	r.mu.Unlock()

	// the drop already invalidated it; Close only releases bookkeeping
	_ = old.Close()
	r.blobs.Purge()
	r.publishFiles(nil)
	r.ComputeUsage(ctx)
	r.succeed(ctx, OpClear, MsgCleared)
	return nil
}

// ComputeUsage reads the platform estimate. It never fails: an estimator that is
// missing or unsupported yields an unavailable snapshot.
func (r *Registry) ComputeUsage(ctx context.Context) model.UsageSnapshot {
	snap := model.UnavailableUsage()
	if r.opts.Estimator != nil {
		est, err := r.opts.Estimator.Estimate(ctx)
		if err != nil {
			r.logger.Debug("storage estimate unavailable", slog.String("error", err.Error()))
		} else {
			snap = model.NewUsageSnapshot(est.Usage, est.Quota)
		}
	}

	r.mu.Lock()
	r.usage = snap
	r.mu.Unlock()

	metrics.UsageBytes.Set(float64(snap.UsedBytes))
	metrics.QuotaBytes.Set(float64(snap.QuotaBytes))
	return snap
}

// PreviewDescriptor derives how rec should be rendered. Every kind except none
// gets an object URL that the caller releases with ReleasePreview.
func (r *Registry) PreviewDescriptor(rec *model.FileRecord) (Preview, error) {
	if rec == nil {
		return Preview{}, invalid("file", ErrRecordMissing)
	}
	served := ServedType(rec)
	p := Preview{
		ID:      rec.ID,
		Name:    rec.Name,
		Type:    rec.Type,
		Kind:    PreviewKindOf(served),
		IsImage: IsImage(rec),
	}
	if p.Kind == PreviewNone {
		return p, nil
	}
	p.ObjectURL = r.blobs.Create(rec.ID, served, rec.Content).URL
	if p.Kind == PreviewText {
		p.Text = decodeText(rec.Content)
	}
	return p, nil
}

// ReleasePreview revokes a preview URL. Releasing twice is a no-op.
func (r *Registry) ReleasePreview(url string) bool {
	return r.blobs.Revoke(url)
}

// Lookup returns the listed record with id.
func (r *Registry) Lookup(id uint64) (*model.FileRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.files {
		if r.files[i].ID == id {
			rec := r.files[i]
			return &rec, true
		}
	}
	return nil, false
}

// Files returns the list in store order. Content is shared; treat it as read-only.
func (r *Registry) Files() []model.FileRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.FileRecord, len(r.files))
	copy(out, r.files)
	return out
}

func (r *Registry) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Usage returns the last computed snapshot.
func (r *Registry) Usage() model.UsageSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.usage
}

// Connected reports whether an open connection is held.
func (r *Registry) Connected() bool {
	return r.activeConn() != nil
}

// Busy reports whether an action is in flight.
func (r *Registry) Busy() bool {
	return r.busy.Load() > 0
}

// Close releases the connection. The registry keeps its list but can no longer mutate.
func (r *Registry) Close() error {
	done := r.beginAction()
	defer done()

	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()

	r.blobs.Purge()
	return conn.Close()
}

func (r *Registry) beginAction() func() {
	r.actionMu.Lock()
	r.busy.Add(1)
	return func() {
		r.busy.Add(-1)
		r.actionMu.Unlock()
	}
}

func (r *Registry) activeConn() *storage.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.state != StateReady {
		return nil
	}
	return r.conn
}

func (r *Registry) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Registry) setFiles(records []model.FileRecord) {
	if records == nil {
		records = []model.FileRecord{}
	}
	r.mu.Lock()
	r.files = records
	r.mu.Unlock()
	r.publishFiles(records)
}

func (r *Registry) publishFiles(records []model.FileRecord) {
	var total int64
	for i := range records {
		total += records[i].Size()
	}
	metrics.FilesTotal.Set(float64(len(records)))
	metrics.StoredBytes.Set(float64(total))
}

func (r *Registry) succeed(ctx context.Context, op, msg string) {
	metrics.Observe(op, nil)
	r.logger.Info(msg, slog.String("op", op))
	r.emit(ctx, notify.Success(op, msg))
}

// fail logs err, emits its single notification and returns it unchanged.
func (r *Registry) fail(ctx context.Context, op, msg string, err error) error {
	metrics.Observe(op, err)
	r.logger.Error(msg,
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	r.emit(ctx, notify.Failure(op, msg, err))
	return err
}

func (r *Registry) emit(ctx context.Context, n notify.Notification) {
	metrics.NotificationsTotal.WithLabelValues(string(n.Level)).Inc()
	// a canceled request must not swallow its toast
	if err := r.notifier.Notify(context.WithoutCancel(ctx), n); err != nil {
		r.logger.Warn("notification delivery failed",
			slog.String("op", n.Op),
			slog.String("error", err.Error()),
		)
	}
}
