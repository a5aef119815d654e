package listing

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/aircnc/internal/model"
)

// --- モック ---

type mockHomeRepo struct {
	homes []*model.Home

	createErr       error
	listCalled      bool
	locationQueried string
}

func (m *mockHomeRepo) Create(ctx context.Context, home *model.Home) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.homes = append(m.homes, home)
	return nil
}

func (m *mockHomeRepo) FindByID(ctx context.Context, id string) (*model.Home, error) {
	for _, h := range m.homes {
		if h.ID == id {
			return h, nil
		}
	}
	return nil, nil
}

func (m *mockHomeRepo) List(ctx context.Context) ([]*model.Home, error) {
	m.listCalled = true
	return m.homes, nil
}

func (m *mockHomeRepo) ListByLocation(ctx context.Context, location string) ([]*model.Home, error) {
	m.locationQueried = location
	var out []*model.Home
	for _, h := range m.homes {
		if h.Location == location {
			out = append(out, h)
		}
	}
	return out, nil
}

// --- テスト ---

func TestService_Create_Success(t *testing.T) {
	repo := &mockHomeRepo{}
	svc := NewService(repo)
	svc.newID = func() string { return "11111111-1111-1111-1111-111111111111" }

	home, err := svc.Create(context.Background(), HomeInput{
		Location: " Paris ",
		Price:    "120.50",
		Details:  map[string]any{"title": "Loft"},
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if home.ID != "11111111-1111-1111-1111-111111111111" {
		t.Errorf("ID = %q", home.ID)
	}
	if home.Location != "Paris" {
		t.Errorf("Location = %q, want %q", home.Location, "Paris")
	}
	if home.Price != 12050 {
		t.Errorf("Price = %d, want 12050", home.Price)
	}
	if len(repo.homes) != 1 {
		t.Errorf("stored homes = %d, want 1", len(repo.homes))
	}
}

func TestService_Create_ValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		in       HomeInput
		wantCode string
	}{
		{"missing location", HomeInput{Price: "10"}, model.ErrCodeValidation},
		{"blank location", HomeInput{Location: "   ", Price: "10"}, model.ErrCodeValidation},
		{"missing price", HomeInput{Location: "Paris"}, model.ErrCodeInvalidPrice},
		{"negative price", HomeInput{Location: "Paris", Price: "-1"}, model.ErrCodeInvalidPrice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockHomeRepo{}
			_, err := NewService(repo).Create(context.Background(), tt.in)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %v", err)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", apiErr.Code, tt.wantCode)
			}
			if len(repo.homes) != 0 {
				t.Error("invalid input must not be persisted")
			}
		})
	}
}

func TestService_Create_RepoError(t *testing.T) {
	repo := &mockHomeRepo{createErr: errors.New("db down")}
	_, err := NewService(repo).Create(context.Background(), HomeInput{Location: "Paris", Price: "1"})
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		t.Error("storage failure must not be reported as a client error")
	}
}

func TestService_Get(t *testing.T) {
	id := "22222222-2222-2222-2222-222222222222"
	repo := &mockHomeRepo{homes: []*model.Home{{ID: id, Location: "Paris"}}}
	svc := NewService(repo)

	home, err := svc.Get(context.Background(), id)
	if err != nil || home == nil {
		t.Fatalf("Get = %v, %v", home, err)
	}

	missing, err := svc.Get(context.Background(), "33333333-3333-3333-3333-333333333333")
	if err != nil || missing != nil {
		t.Errorf("Get(missing) = %v, %v; want nil, nil", missing, err)
	}

	_, err = svc.Get(context.Background(), "not-a-uuid")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidID {
		t.Errorf("Get(not-a-uuid) error = %v, want INVALID_ID", err)
	}
}

func TestService_Search_ExactLocation(t *testing.T) {
	repo := &mockHomeRepo{homes: []*model.Home{
		{ID: "1", Location: "Paris"},
		{ID: "2", Location: "paris"},
		{ID: "3", Location: "Lyon"},
	}}
	svc := NewService(repo)

	homes, err := svc.Search(context.Background(), "Paris")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if repo.locationQueried != "Paris" {
		t.Errorf("queried location = %q, want Paris", repo.locationQueried)
	}
	for _, h := range homes {
		if h.Location != "Paris" {
			t.Errorf("Search(Paris) returned home with location %q", h.Location)
		}
	}
	if len(homes) != 1 {
		t.Errorf("Search(Paris) = %d homes, want 1", len(homes))
	}
}

func TestService_Search_EmptyLocationReturnsAll(t *testing.T) {
	repo := &mockHomeRepo{homes: []*model.Home{{ID: "1", Location: "Paris"}, {ID: "2", Location: "Lyon"}}}
	homes, err := NewService(repo).Search(context.Background(), "")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if !repo.listCalled {
		t.Error("empty location should list all homes")
	}
	if len(homes) != 2 {
		t.Errorf("Search() = %d homes, want 2", len(homes))
	}
}

func TestService_Search_TrimsLocation(t *testing.T) {
	repo := &mockHomeRepo{homes: []*model.Home{{ID: "1", Location: "Paris"}}}
	svc := NewService(repo)

	if _, err := svc.Search(context.Background(), " Paris "); err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if repo.locationQueried != "Paris" {
		t.Errorf("queried location = %q, want Paris", repo.locationQueried)
	}

	repo.listCalled = false
	if _, err := svc.Search(context.Background(), "   "); err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if !repo.listCalled {
		t.Error("blank location should list all homes")
	}
}
