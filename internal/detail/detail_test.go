package detail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/bwise1/forest_places/internal/creation"
	"github.com/bwise1/forest_places/internal/http/placesapi"
	"github.com/bwise1/forest_places/internal/model"
	"github.com/bwise1/forest_places/internal/places"
)

type fakeSessions struct {
	userID int64
}

func (f *fakeSessions) Current() (model.Session, bool) {
	if f.userID == 0 {
		return model.Session{}, false
	}
	return model.Session{Token: "t", UserID: f.userID}, true
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
}

func (f *fakeFetcher) FetchImage(ctx context.Context, url string) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[url]++
	if f.fail[url] {
		return nil, "", fmt.Errorf("fetch %s: 404", url)
	}
	return []byte("img:" + url), "image/jpeg", nil
}

func (f *fakeFetcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

type fakeUploader struct {
	calls  []string
	failOn map[int]error
}

func (f *fakeUploader) UploadImage(ctx context.Context, placeID int64, file model.PendingUpload) (*model.PlaceImage, error) {
	f.calls = append(f.calls, file.FileName)
	if err, ok := f.failOn[len(f.calls)]; ok {
		return nil, err
	}
	return &model.PlaceImage{ID: int64(900 + len(f.calls)), URL: "/uploads/" + file.FileName}, nil
}

type passGate struct {
	checked int
}

func (g *passGate) CheckMutation(ctx context.Context, err error) error {
	g.checked++
	return err
}

type fixture struct {
	list     *places.Store
	sessions *fakeSessions
	fetcher  *fakeFetcher
	uploader *fakeUploader
	gate     *passGate
	ctrl     *Controller
}

func newFixture(userID int64, imageCount int) *fixture {
	imgs := make([]model.PlaceImage, imageCount)
	for i := range imgs {
		imgs[i] = model.PlaceImage{ID: int64(i + 1), URL: fmt.Sprintf("/uploads/%d.jpg", i+1)}
	}
	list := places.NewStore()
	list.Load([]model.Place{
		{ID: 1, Title: "Oak Grove", Latitude: 53.9, Longitude: 27.56, OwnerID: 5, Images: imgs},
		{ID: 2, Title: "Pine ridge", Latitude: 54.1, Longitude: 27.9, OwnerID: 6},
	})
	f := &fixture{
		list:     list,
		sessions: &fakeSessions{userID: userID},
		fetcher:  &fakeFetcher{},
		uploader: &fakeUploader{failOn: map[int]error{}},
		gate:     &passGate{},
	}
	f.ctrl = New(f.list, f.sessions, f.fetcher, f.uploader, f.gate)
	return f
}

func TestOpenIsIdempotent(t *testing.T) {
	f := newFixture(5, 0)
	transitions := 0
	f.ctrl.OnChange(func() { transitions++ })

	if _, opened, err := f.ctrl.Open(1); err != nil || !opened {
		t.Fatalf("first Open = %v, %v", opened, err)
	}
	if _, opened, err := f.ctrl.Open(1); err != nil || opened {
		t.Fatalf("second Open = %v, %v", opened, err)
	}
	if transitions != 1 {
		t.Fatalf("transitions = %d, want 1", transitions)
	}

	if _, opened, _ := f.ctrl.Open(2); !opened {
		t.Fatal("opening another place should transition")
	}
	if v, _ := f.ctrl.Current(); v.Place.ID != 2 {
		t.Fatalf("open place = %d", v.Place.ID)
	}
	if _, _, err := f.ctrl.Open(99); !errors.Is(err, ErrUnknownPlace) {
		t.Fatalf("err = %v", err)
	}
}

func TestUploadAffordanceOnlyForOwner(t *testing.T) {
	tests := []struct {
		name    string
		userID  int64
		visible bool
	}{
		{"owner", 5, true},
		{"other user", 6, false},
		{"signed out", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.userID, 0)
			v, _, err := f.ctrl.Open(1)
			if err != nil {
				t.Fatal(err)
			}
			if got := v.Upload != nil; got != tt.visible {
				t.Fatalf("view upload visible = %v, want %v", got, tt.visible)
			}
			if got := f.ctrl.UploadAffordance() != nil; got != tt.visible {
				t.Fatalf("UploadAffordance visible = %v, want %v", got, tt.visible)
			}
		})
	}
}

func TestNonOwnerCannotUpload(t *testing.T) {
	f := newFixture(6, 0)
	f.ctrl.Open(1)

	_, err := f.ctrl.Upload(context.Background(), []creation.FileInput{jpeg("a.jpg")})
	if !errors.Is(err, ErrNoAffordance) {
		t.Fatalf("err = %v, want ErrNoAffordance", err)
	}
	if len(f.uploader.calls) != 0 {
		t.Fatalf("upload calls = %v", f.uploader.calls)
	}
}

func TestCloseOnEscapeAndBackdrop(t *testing.T) {
	f := newFixture(5, 0)

	f.ctrl.Open(1)
	if f.ctrl.HandleKey("Enter") {
		t.Fatal("Enter closed the popup")
	}
	if !f.ctrl.HandleKey("Escape") {
		t.Fatal("Escape did not close")
	}
	if _, ok := f.ctrl.Current(); ok {
		t.Fatal("still open after Escape")
	}

	f.ctrl.Open(1)
	if !f.ctrl.Backdrop() {
		t.Fatal("backdrop did not close")
	}
	if f.ctrl.Close() {
		t.Fatal("Close reported an open place")
	}
}

func TestCollapsedGalleryFetchesOnlyHero(t *testing.T) {
	f := newFixture(5, 7)
	f.ctrl.Open(1)

	w, err := f.ctrl.Photos(context.Background(), 0, 400)
	if err != nil {
		t.Fatal(err)
	}
	if w.Hero == nil || !w.Hero.Loaded || w.Hero.URL != "/uploads/1.jpg" {
		t.Fatalf("hero = %+v", w.Hero)
	}
	if len(w.Thumbnails) != 0 || w.MorePhotos != 6 {
		t.Fatalf("thumbnails = %d, more = %d", len(w.Thumbnails), w.MorePhotos)
	}
	if n := f.fetcher.total(); n != 1 {
		t.Fatalf("fetches = %d, want 1", n)
	}
}

func TestGalleryWindowAndShowMore(t *testing.T) {
	// 1 hero + 20 grid photos = 10 rows.
	f := newFixture(5, 21)
	f.ctrl.Open(1)
	if _, err := f.ctrl.ShowMore(); err != nil {
		t.Fatal(err)
	}

	// Viewport over the hero and the first row; one row of overscan.
	w, err := f.ctrl.Photos(context.Background(), 0, HeroHeight+RowHeight)
	if err != nil {
		t.Fatal(err)
	}
	if w.FirstRow != 0 || w.LastRow != 1 {
		t.Fatalf("rows = %d..%d, want 0..1", w.FirstRow, w.LastRow)
	}
	if len(w.Thumbnails) != 4 || w.Thumbnails[0].Index != 1 || w.Thumbnails[3].Index != 4 {
		t.Fatalf("thumbnails = %+v", w.Thumbnails)
	}
	if f.fetcher.total() != 5 {
		t.Fatalf("fetches = %d, want 5", f.fetcher.total())
	}

	// Scroll to rows 4-5: rows 3..6 load, nothing earlier is refetched.
	w, _ = f.ctrl.Photos(context.Background(), HeroHeight+4*RowHeight, 2*RowHeight)
	if w.FirstRow != 3 || w.LastRow != 6 {
		t.Fatalf("rows = %d..%d, want 3..6", w.FirstRow, w.LastRow)
	}
	for url, n := range f.fetcher.calls {
		if n != 1 {
			t.Errorf("%s fetched %d times", url, n)
		}
	}

	before := f.fetcher.total()
	f.ctrl.ShowMore()
	f.ctrl.Photos(context.Background(), 0, HeroHeight+RowHeight)
	if f.fetcher.total() != before {
		t.Fatalf("show more refetched: %d -> %d", before, f.fetcher.total())
	}

	// Past the end the window clamps to the last row.
	w, _ = f.ctrl.Photos(context.Background(), 10000, 200)
	if w.LastRow != 9 || w.FirstRow != 9 {
		t.Fatalf("rows = %d..%d, want 9..9", w.FirstRow, w.LastRow)
	}
}

func TestFailedThumbnailIsReported(t *testing.T) {
	f := newFixture(5, 1)
	f.fetcher.fail = map[string]bool{"/uploads/1.jpg": true}
	f.ctrl.Open(1)

	w, err := f.ctrl.Photos(context.Background(), 0, 100)
	if err != nil {
		t.Fatal(err)
	}
	if w.Hero.Loaded || w.Hero.Error == "" || w.Fetched != 0 {
		t.Fatalf("hero = %+v, fetched = %d", w.Hero, w.Fetched)
	}
}

func TestPhotosRequiresOpenPlace(t *testing.T) {
	f := newFixture(5, 1)
	if _, err := f.ctrl.Photos(context.Background(), 0, 100); !errors.Is(err, ErrNothingOpen) {
		t.Fatalf("err = %v", err)
	}
}

func TestOwnerUploadAppendsToList(t *testing.T) {
	f := newFixture(5, 1)
	f.ctrl.Open(1)
	f.uploader.failOn[2] = &placesapi.APIError{Status: http.StatusInternalServerError, Method: http.MethodPost}

	inputs := []creation.FileInput{jpeg("a.jpg"), jpeg("b.jpg"), {Name: "c.txt", ContentType: "text/plain", Data: []byte("x")}, jpeg("d.jpg")}
	out, err := f.ctrl.Upload(context.Background(), inputs)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if out.Batch.Tally() != "2 of 3 uploaded" || len(out.Rejected) != 1 {
		t.Fatalf("outcome = %q rejected %+v", out.Batch.Tally(), out.Rejected)
	}
	if fmt.Sprint(f.uploader.calls) != "[a.jpg b.jpg d.jpg]" {
		t.Fatalf("upload order = %v", f.uploader.calls)
	}
	p, _ := f.list.Get(1)
	if len(p.Images) != 3 {
		t.Fatalf("images = %d, want 3", len(p.Images))
	}
	if f.gate.checked != 1 {
		t.Fatalf("gate checked %d failures", f.gate.checked)
	}
	if v, _ := f.ctrl.Current(); len(v.Place.Images) != 3 {
		t.Fatal("open view does not show the new photos")
	}
}

func jpeg(name string) creation.FileInput {
	data := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{1}, 64)...)
	return creation.FileInput{Name: name, ContentType: "image/jpeg", Data: data}
}
