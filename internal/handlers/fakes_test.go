package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/benvon/civiz/internal/categories"
	"github.com/benvon/civiz/internal/database"
	"github.com/benvon/civiz/internal/middleware"
	"github.com/benvon/civiz/internal/models"
	"github.com/benvon/civiz/internal/points"
	"github.com/benvon/civiz/internal/services/imagegen"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type fakeImages struct {
	fallback bool
}

func (f fakeImages) Generate(_ context.Context, text string, cat categories.Category) imagegen.Result {
	prompt := imagegen.BuildPrompt(text, cat.Prompt)
	if f.fallback {
		return imagegen.Result{ImageURL: cat.FallbackImageURL, Prompt: prompt, Model: imagegen.FallbackModel, Fallback: true}
	}
	return imagegen.Result{ImageURL: "https://img.example/" + cat.ID + ".png", Prompt: prompt, Model: "dall-e-3"}
}

// fakeVisions keeps visions and likes in memory, applying the ledger the way
// the database does.
type fakeVisions struct {
	mu       sync.Mutex
	visions  map[uuid.UUID]*models.Vision
	accounts map[uuid.UUID]models.PointsAccount
	likes    map[uuid.UUID]map[uuid.UUID]int
	err      error
}

func newFakeVisions() *fakeVisions {
	return &fakeVisions{
		visions:  make(map[uuid.UUID]*models.Vision),
		accounts: make(map[uuid.UUID]models.PointsAccount),
		likes:    make(map[uuid.UUID]map[uuid.UUID]int),
	}
}

func (f *fakeVisions) Create(_ context.Context, v *models.Vision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	cp := *v
	f.visions[v.ID] = &cp
	return nil
}

func (f *fakeVisions) CreateWithSubmission(ctx context.Context, v *models.Vision) (models.PointsAccount, error) {
	f.mu.Lock()
	acct, seed := points.SubmitVision(points.Account{PointsAccount: f.accounts[*v.OwnerID]})
	f.mu.Unlock()
	v.Points = seed
	if err := f.Create(ctx, v); err != nil {
		return models.PointsAccount{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[*v.OwnerID] = acct.PointsAccount
	return acct.PointsAccount, nil
}

func (f *fakeVisions) GetByID(_ context.Context, id uuid.UUID) (*models.Vision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.visions[id]
	if !ok {
		return nil, database.ErrVisionNotFound
	}
	cp := *v
	return &cp, nil
}

func (f *fakeVisions) ListCommunity(_ context.Context, page, pageSize int) ([]*models.Vision, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, 0, f.err
	}
	all := make([]*models.Vision, 0, len(f.visions))
	for _, v := range f.visions {
		cp := *v
		all = append(all, &cp)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Points != all[j].Points {
			return all[i].Points > all[j].Points
		}
		return all[i].Likes > all[j].Likes
	})
	start := min((page-1)*pageSize, len(all))
	end := min(start+pageSize, len(all))
	return all[start:end], len(all), nil
}

func (f *fakeVisions) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*models.Vision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Vision
	for _, v := range f.visions {
		if v.OwnerID != nil && *v.OwnerID == ownerID {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeVisions) LikedBy(_ context.Context, userID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uuid.UUID]bool)
	for _, id := range ids {
		if _, ok := f.likes[id][userID]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (f *fakeVisions) ToggleLike(_ context.Context, userID, visionID uuid.UUID) (*models.LikeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.visions[visionID]
	if !ok {
		return nil, database.ErrVisionNotFound
	}

	uid, vid := userID.String(), visionID.String()
	acct := points.Account{PointsAccount: f.accounts[userID]}
	tally := points.VisionTally{Likes: v.Likes, Points: v.Points}
	if c, liked := f.likes[visionID][userID]; liked {
		acct.LikedVisions = []string{vid}
		tally.LikedBy = map[string]int{uid: c}
	}

	liked := !acct.Likes(vid)
	if liked {
		acct, tally = points.Like(acct, tally, uid, vid)
		if f.likes[visionID] == nil {
			f.likes[visionID] = make(map[uuid.UUID]int)
		}
		f.likes[visionID][userID] = tally.LikedBy[uid]
	} else {
		acct, tally = points.Unlike(acct, tally, uid, vid)
		delete(f.likes[visionID], userID)
	}
	v.Likes, v.Points = tally.Likes, tally.Points
	f.accounts[userID] = acct.PointsAccount

	return &models.LikeResult{VisionID: visionID, Liked: liked, Likes: v.Likes, Points: v.Points, Account: acct.PointsAccount}, nil
}

type fakeUsers struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*models.User
	visions  *fakeVisions
	failNext error
}

func newFakeUsers(visions *fakeVisions, users ...*models.User) *fakeUsers {
	f := &fakeUsers{users: make(map[uuid.UUID]*models.User), visions: visions}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, database.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetOrCreate(_ context.Context, providerID, email string, name *string, verified bool) (*models.User, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeUsers) GetProfile(ctx context.Context, id uuid.UUID) (*models.UserProfile, error) {
	u, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	mine, _ := f.visions.ListByOwner(ctx, id)
	return &models.UserProfile{User: *u, VisionCount: len(mine)}, nil
}

func (f *fakeUsers) CreditFunding(_ context.Context, id uuid.UUID, amount int) (models.PointsAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		return models.PointsAccount{}, f.failNext
	}
	u, ok := f.users[id]
	if !ok {
		return models.PointsAccount{}, database.ErrUserNotFound
	}
	u.Points = points.CreditFunding(points.Account{PointsAccount: u.Points}, amount).PointsAccount
	return u.Points, nil
}

func testUser() *models.User {
	return &models.User{ID: uuid.New(), Email: "resident@example.com"}
}

// serve routes req through a router built by register, as user when non-nil
func serve(t *testing.T, register func(*mux.Router), req *http.Request, user *models.User) *httptest.ResponseRecorder {
	t.Helper()
	r := mux.NewRouter()
	register(r)
	if user != nil {
		req = req.WithContext(middleware.SetUserInContext(req.Context(), user))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// envelope decodes a response envelope, unmarshalling data into out
func envelope(t *testing.T, w *httptest.ResponseRecorder, out any) map[string]any {
	t.Helper()
	var raw struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	if out != nil && len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, out); err != nil {
			t.Fatalf("failed to decode data: %v", err)
		}
	}
	return map[string]any{"success": raw.Success, "error": raw.Error, "message": raw.Message}
}
