package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"LocalVault/internal/blob"
	"LocalVault/internal/notify"
	"LocalVault/internal/storage"
	"LocalVault/model"
)

type recordingNotifier struct {
	mu  sync.Mutex
	got []notify.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
	return nil
}

func (r *recordingNotifier) take() []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.got
	r.got = nil
	return out
}

// expectOne asserts exactly one notification was emitted since the last call.
func (r *recordingNotifier) expectOne(t *testing.T, level notify.Level, msg string) notify.Notification {
	t.Helper()
	got := r.take()
	if len(got) != 1 {
		t.Fatalf("expected exactly one notification, got %d: %+v", len(got), got)
	}
	if got[0].Level != level || got[0].Message != msg {
		t.Fatalf("expected %s %q, got %s %q", level, msg, got[0].Level, got[0].Message)
	}
	return got[0]
}

type fixture struct {
	gw       *storage.SQLiteGateway
	registry *Registry
	notes    *recordingNotifier
}

func newFixture(t *testing.T, maxUpload int64) *fixture {
	t.Helper()
	gw, err := storage.NewSQLiteGateway(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewSQLiteGateway: %v", err)
	}
	notes := &recordingNotifier{}
	reg := NewRegistry(gw, Options{
		DBName:         "IDBFiles",
		DBVersion:      1,
		MaxUploadBytes: maxUpload,
		Estimator:      storage.NewDirEstimator(gw.Dir(), 1<<30),
		Blobs:          blob.New(16, time.Minute),
		Notifier:       notes,
	})
	t.Cleanup(func() { _ = reg.Close() })
	return &fixture{gw: gw, registry: reg, notes: notes}
}

func (f *fixture) init(t *testing.T) {
	t.Helper()
	if err := f.registry.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	f.notes.expectOne(t, notify.LevelSuccess, MsgStorageReady)
}

func (f *fixture) upload(t *testing.T, name, typ, content string) *model.FileRecord {
	t.Helper()
	rec, err := f.registry.Upload(context.Background(), &UploadInput{Name: name, Type: typ, Content: []byte(content)})
	if err != nil {
		t.Fatalf("Upload %s: %v", name, err)
	}
	f.notes.expectOne(t, notify.LevelSuccess, MsgUploaded)
	return rec
}

// storeRecords re-queries the store through an independent connection.
func (f *fixture) storeRecords(t *testing.T) []model.FileRecord {
	t.Helper()
	ctx := context.Background()
	conn, err := f.gw.Open(ctx, "IDBFiles", 1)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer conn.Close()
	records, err := f.gw.ListAll(ctx, conn)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	return records
}

func TestInitialize_Ready(t *testing.T) {
	f := newFixture(t, 0)
	if f.registry.State() != StateUninitialized {
		t.Fatalf("unexpected initial state %s", f.registry.State())
	}
	f.init(t)

	if f.registry.State() != StateReady || !f.registry.Connected() {
		t.Fatalf("expected ready and connected, got %s", f.registry.State())
	}
	if len(f.registry.Files()) != 0 {
		t.Fatal("fresh store is not empty")
	}
	if !f.registry.Usage().Available {
		t.Fatal("usage not computed after initialize")
	}
}

func TestInitialize_OnlyOnce(t *testing.T) {
	f := newFixture(t, 0)
	f.init(t)

	err := f.registry.Initialize(context.Background())
	if !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
	if got := f.notes.take(); len(got) != 0 {
		t.Fatalf("second initialize notified: %+v", got)
	}
}

func TestInitialize_LoadsExistingRecords(t *testing.T) {
	f := newFixture(t, 0)
	f.init(t)
	f.upload(t, "a.txt", "text/plain", "hello")
	if err := f.registry.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	next := NewRegistry(f.gw, Options{Notifier: f.notes})
	defer next.Close()
	if err := next.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	files := next.Files()
	if len(files) != 1 || files[0].Name != "a.txt" || string(files[0].Content) != "hello" {
		t.Fatalf("records not hydrated: %+v", files)
	}
}

func TestScenario_UploadDeleteClear(t *testing.T) {
	f := newFixture(t, 0)
	f.init(t)
	ctx := context.Background()

	a := f.upload(t, "a.txt", "text/plain", "hello")
	files := f.registry.Files()
	if len(files) != 1 || files[0].Name != "a.txt" || string(files[0].Content) != "hello" {
		t.Fatalf("after A: %+v", files)
	}
	if files[0].ID != a.ID || a.ID == 0 {
		t.Fatalf("assigned id not reported: listed %d, returned %d", files[0].ID, a.ID)
	}

	b := f.upload(t, "b.txt", "text/plain", "world")
	files = f.registry.Files()
	if len(files) != 2 {
		t.Fatalf("after B: expected 2 files, got %d", len(files))
	}
	if files[0].ID != a.ID || files[1].ID != b.ID || a.ID == b.ID {
		t.Fatalf("ids changed or collide: %d %d (A %d, B %d)", files[0].ID, files[1].ID, a.ID, b.ID)
	}

	if err := f.registry.DeleteFile(ctx, a.ID); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	f.notes.expectOne(t, notify.LevelSuccess, MsgDeleted)
	files = f.registry.Files()
	if len(files) != 1 || files[0].ID != b.ID || string(files[0].Content) != "world" {
		t.Fatalf("after delete: %+v", files)
	}

	if err := f.registry.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	f.notes.expectOne(t, notify.LevelSuccess, MsgCleared)
	if len(f.registry.Files()) != 0 {
		t.Fatal("list not emptied by clear")
	}
	if f.registry.Connected() {
		t.Fatal("connection kept after clear")
	}
	if f.registry.State() != StateReady {
		t.Fatalf("clear changed state to %s", f.registry.State())
	}
	if records := f.storeRecords(t); len(records) != 0 {
		t.Fatalf("reopened store not empty: %+v", records)
	}
}

func TestUpload_MatchesStore(t *testing.T) {
	f := newFixture(t, 0)
	f.init(t)

	inputs := []UploadInput{
		{Name: "photo.png", Type: "image/png", Content: []byte{0x89, 'P', 'N', 'G', 0, 1, 2}},
		{Name: "notes", Type: "", Content: []byte("no type")},
		{Name: "empty.bin", Type: "application/octet-stream", Content: nil},
	}
	seen := map[uint64]bool{}
	for i := range inputs {
		in := inputs[i]
		rec, err := f.registry.Upload(context.Background(), &in)
		if err != nil {
			t.Fatalf("Upload %s: %v", in.Name, err)
		}
		f.notes.expectOne(t, notify.LevelSuccess, MsgUploaded)
		if seen[rec.ID] {
			t.Fatalf("duplicate id %d", rec.ID)
		}
		seen[rec.ID] = true
	}

	records := f.storeRecords(t)
	if len(records) != len(inputs) {
		t.Fatalf("expected %d stored records, got %d", len(inputs), len(records))
	}
	for i, rec := range records {
		if rec.Name != inputs[i].Name || rec.Type != inputs[i].Type || !bytes.Equal(rec.Content, inputs[i].Content) {
			t.Fatalf("record %d mismatch: %+v vs %+v", i, rec, inputs[i])
		}
	}
}

func TestUpload_OversizeNeverReachesStore(t *testing.T) {
	const limit = 1024
	f := newFixture(t, limit)
	f.init(t)
	f.upload(t, "small.bin", "", string(make([]byte, limit)))

	_, err := f.registry.Upload(context.Background(), &UploadInput{Name: "big.bin", Content: make([]byte, limit+1)})
	if !errors.Is(err, ErrValidation) || !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected validation error for size, got %v", err)
	}
	n := f.notes.expectOne(t, notify.LevelError, TooLargeMessage(limit))
	if n.Op != OpUpload {
		t.Fatalf("unexpected op %s", n.Op)
	}
	if records := f.storeRecords(t); len(records) != 1 {
		t.Fatalf("store count changed: %d", len(records))
	}
	if len(f.registry.Files()) != 1 {
		t.Fatal("list changed by rejected upload")
	}
}

func TestTooLargeMessageDefault(t *testing.T) {
	if got := TooLargeMessage(100 * 1024 * 1024); got != "File size limit exceeded. Maximum size is 100MB." {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestUpload_Rejections(t *testing.T) {
	f := newFixture(t, 0)

	// before initialize there is no connection
	_, err := f.registry.Upload(context.Background(), &UploadInput{Name: "a.txt", Content: []byte("x")})
	if !errors.Is(err, ErrValidation) || !errors.Is(err, ErrNoConnection) {
		t.Fatalf("expected no-connection validation error, got %v", err)
	}
	f.notes.expectOne(t, notify.LevelError, MsgGeneric)

	f.init(t)

	_, err = f.registry.Upload(context.Background(), nil)
	if !errors.Is(err, ErrFileMissing) {
		t.Fatalf("expected ErrFileMissing, got %v", err)
	}
	f.notes.expectOne(t, notify.LevelError, MsgGeneric)

	_, err = f.registry.Upload(context.Background(), &UploadInput{Name: "   ", Content: []byte("x")})
	var ve *ValidationError
	if !errors.As(err, &ve) || len(ve.Errors) != 1 || ve.Errors[0].Name != "name" {
		t.Fatalf("expected name validation error, got %v", err)
	}
	f.notes.expectOne(t, notify.LevelError, MsgGeneric)

	if len(f.storeRecords(t)) != 0 {
		t.Fatal("rejected uploads reached the store")
	}
}

func TestUpload_AfterClearNeedsReload(t *testing.T) {
	f := newFixture(t, 0)
	f.init(t)
	f.upload(t, "a.txt", "text/plain", "hello")
	if err := f.registry.ClearAll(context.Background()); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	f.notes.take()

	_, err := f.registry.Upload(context.Background(), &UploadInput{Name: "b.txt", Content: []byte("b")})
	if !errors.Is(err, ErrNoConnection) {
		t.Fatalf("expected ErrNoConnection after clear, got %v", err)
	}
	f.notes.expectOne(t, notify.LevelError, MsgGeneric)

	if err := f.registry.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	f.notes.expectOne(t, notify.LevelSuccess, MsgStorageReady)
	f.upload(t, "b.txt", "text/plain", "b")
	if files := f.registry.Files(); len(files) != 1 || files[0].Name != "b.txt" {
		t.Fatalf("unexpected files after reload: %+v", files)
	}
}

func TestDeleteFile_AbsentIsSuccess(t *testing.T) {
	f := newFixture(t, 0)
	f.init(t)
	a := f.upload(t, "a.txt", "text/plain", "hello")

	if err := f.registry.DeleteFile(context.Background(), a.ID+42); err != nil {
		t.Fatalf("DeleteFile absent: %v", err)
	}
	f.notes.expectOne(t, notify.LevelSuccess, MsgDeleted)
	if files := f.registry.Files(); len(files) != 1 || files[0].ID != a.ID {
		t.Fatalf("list changed: %+v", files)
	}
}

func TestDeleteFile_RevokesObjectURLs(t *testing.T) {
	f := newFixture(t, 0)
	f.init(t)
	a := f.upload(t, "a.png", "image/png", "img")
	b := f.upload(t, "b.png", "image/png", "img")

	pa, err := f.registry.PreviewDescriptor(a)
	if err != nil {
		t.Fatalf("PreviewDescriptor: %v", err)
	}
	pb, err := f.registry.PreviewDescriptor(b)
	if err != nil {
		t.Fatalf("PreviewDescriptor: %v", err)
	}

	if err := f.registry.DeleteFile(context.Background(), a.ID); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if _, err := f.registry.Blobs().Resolve(pa.ObjectURL); !errors.Is(err, blob.ErrRevoked) {
		t.Fatalf("deleted record url still live: %v", err)
	}
	if _, err := f.registry.Blobs().Resolve(pb.ObjectURL); err != nil {
		t.Fatalf("other record url revoked: %v", err)
	}
}

func TestDeleteFile_NoConnection(t *testing.T) {
	f := newFixture(t, 0)

	if err := f.registry.DeleteFile(context.Background(), 1); !errors.Is(err, ErrNoConnection) {
		t.Fatalf("expected ErrNoConnection, got %v", err)
	}
	f.notes.expectOne(t, notify.LevelError, MsgGeneric)
}

func TestClearAll_NotReady(t *testing.T) {
	f := newFixture(t, 0)

	if err := f.registry.ClearAll(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	f.notes.expectOne(t, notify.LevelError, MsgGeneric)
}

func TestClearAll_BlockedByOtherHolder(t *testing.T) {
	f := newFixture(t, 0)
	f.init(t)
	f.upload(t, "a.txt", "text/plain", "hello")

	other, err := storage.NewSQLiteGateway(f.gw.Dir(), nil)
	if err != nil {
		t.Fatalf("NewSQLiteGateway: %v", err)
	}
	conn, err := other.Open(context.Background(), "IDBFiles", 1)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer conn.Close()

	err = f.registry.ClearAll(context.Background())
	if !errors.Is(err, storage.ErrDelete) {
		t.Skipf("platform without advisory locks: %v", err)
	}
	f.notes.expectOne(t, notify.LevelError, MsgClearFailed)
	if !f.registry.Connected() || len(f.registry.Files()) != 1 {
		t.Fatal("failed clear touched list or connection")
	}
	f.upload(t, "b.txt", "text/plain", "still writable")
}

func TestClearAll_Twice(t *testing.T) {
	f := newFixture(t, 0)
	f.init(t)

	for i := 0; i < 2; i++ {
		if err := f.registry.ClearAll(context.Background()); err != nil {
			t.Fatalf("ClearAll #%d: %v", i+1, err)
		}
		f.notes.expectOne(t, notify.LevelSuccess, MsgCleared)
	}
}

func TestDownload_RoundTrip(t *testing.T) {
	f := newFixture(t, 0)
	f.init(t)
	content := []byte{0, 1, 2, 250, 251, 252, 'x'}
	rec, err := f.registry.Upload(context.Background(), &UploadInput{Name: "raw.bin", Type: "application/octet-stream", Content: content})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	f.notes.take()

	listed, ok := f.registry.Lookup(rec.ID)
	if !ok {
		t.Fatalf("Lookup %d failed", rec.ID)
	}

	var saved []byte
	var savedName, savedURL string
	saver := SaverFunc(func(_ context.Context, name string, obj *blob.Object) error {
		savedName, savedURL = name, obj.URL
		if !f.registry.Busy() {
			t.Error("download not reported busy")
		}
		var err error
		saved, err = io.ReadAll(obj.Reader())
		return err
	})
	if err := f.registry.Download(context.Background(), listed, saver); err != nil {
		t.Fatalf("Download: %v", err)
	}
	f.notes.expectOne(t, notify.LevelSuccess, MsgDownloaded)

	if !bytes.Equal(saved, content) || savedName != "raw.bin" {
		t.Fatalf("round trip mismatch: %q %v", savedName, saved)
	}
	if _, err := f.registry.Blobs().Resolve(savedURL); !errors.Is(err, blob.ErrRevoked) {
		t.Fatal("download url not revoked")
	}
	if f.registry.Busy() {
		t.Fatal("busy after download")
	}
}

func TestDownload_SaverFailure(t *testing.T) {
	f := newFixture(t, 0)
	f.init(t)
	rec := f.upload(t, "a.txt", "text/plain", "hello")

	boom := errors.New("save dialog closed")
	err := f.registry.Download(context.Background(), rec, SaverFunc(func(context.Context, string, *blob.Object) error {
		return boom
	}))
	if !errors.Is(err, boom) {
		t.Fatalf("expected saver error, got %v", err)
	}
	f.notes.expectOne(t, notify.LevelError, MsgDownloadFailed)
	if len(f.registry.Files()) != 1 {
		t.Fatal("failed download changed the list")
	}
	if f.registry.Blobs().Len() != 0 {
		t.Fatal("failed download leaked its url")
	}
}

func TestDownload_MissingArguments(t *testing.T) {
	f := newFixture(t, 0)

	if err := f.registry.Download(context.Background(), nil, SaverFunc(nil)); !errors.Is(err, ErrRecordMissing) {
		t.Fatalf("expected ErrRecordMissing, got %v", err)
	}
	f.notes.expectOne(t, notify.LevelError, MsgDownloadFailed)

	if err := f.registry.Download(context.Background(), &model.FileRecord{ID: 1}, nil); !errors.Is(err, ErrSaverMissing) {
		t.Fatalf("expected ErrSaverMissing, got %v", err)
	}
	f.notes.expectOne(t, notify.LevelError, MsgDownloadFailed)
}

func TestPreviewDescriptor(t *testing.T) {
	f := newFixture(t, 0)

	cases := []struct {
		rec     model.FileRecord
		kind    PreviewKind
		isImage bool
		hasURL  bool
	}{
		{model.FileRecord{ID: 1, Name: "a.pdf", Type: "application/pdf"}, PreviewPDF, false, true},
		{model.FileRecord{ID: 2, Name: "a.mp4", Type: "video/mp4"}, PreviewVideo, false, true},
		{model.FileRecord{ID: 3, Name: "a.mp3", Type: "audio/mpeg"}, PreviewAudio, false, true},
		{model.FileRecord{ID: 4, Name: "a.txt", Type: "text/plain", Content: []byte("hi")}, PreviewText, false, true},
		{model.FileRecord{ID: 5, Name: "a.png", Type: "image/png"}, PreviewImage, true, true},
		{model.FileRecord{ID: 6, Name: "a.zip", Type: "application/zip"}, PreviewNone, false, false},
		{model.FileRecord{ID: 7, Name: "notes.txt", Type: ""}, PreviewText, false, true},
	}
	for _, tc := range cases {
		p, err := f.registry.PreviewDescriptor(&tc.rec)
		if err != nil {
			t.Fatalf("%s: %v", tc.rec.Name, err)
		}
		if p.Kind != tc.kind || p.IsImage != tc.isImage || (p.ObjectURL != "") != tc.hasURL {
			t.Fatalf("%s: unexpected preview %+v", tc.rec.Name, p)
		}
		if p.ObjectURL != "" && !f.registry.ReleasePreview(p.ObjectURL) {
			t.Fatalf("%s: url not releasable", tc.rec.Name)
		}
	}

	p, _ := f.registry.PreviewDescriptor(&cases[3].rec)
	if p.Text != "hi" {
		t.Fatalf("text not decoded: %q", p.Text)
	}
	if _, err := f.registry.PreviewDescriptor(nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for nil record, got %v", err)
	}
	if got := f.notes.take(); len(got) != 0 {
		t.Fatalf("preview emitted notifications: %+v", got)
	}
}

func TestComputeUsage_WithoutEstimator(t *testing.T) {
	gw, err := storage.NewSQLiteGateway(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	reg := NewRegistry(gw, Options{})
	defer reg.Close()

	snap := reg.ComputeUsage(context.Background())
	if snap.Available || snap.UsedBytes != 0 || snap.QuotaBytes != 0 || snap.Percent != 0 {
		t.Fatalf("expected unavailable zero snapshot, got %+v", snap)
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{
		StateUninitialized: "uninitialized",
		StateOpening:       "opening",
		StateReady:         "ready",
		StateFailed:        "failed",
		State(9):           "state(9)",
	} {
		if s.String() != want {
			t.Fatalf("expected %s, got %s", want, s.String())
		}
	}
}
