package prompts

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/promptvault/promptvault/internal/apperror"
	"github.com/promptvault/promptvault/internal/tags"
)

// --- Mock Repositories ---

// mockPromptRepo implements PromptRepository for testing.
type mockPromptRepo struct {
	createFn   func(ctx context.Context, prompt *Prompt, tagIDs []int) error
	findByIDFn func(ctx context.Context, id string) (*Prompt, error)
	updateFn   func(ctx context.Context, prompt *Prompt, tagIDs []int, assignerID string) error
	deleteFn   func(ctx context.Context, id string) error
	listFn     func(ctx context.Context, callerID string, offset, limit int, search string) ([]Prompt, int, error)
}

func (m *mockPromptRepo) Create(ctx context.Context, prompt *Prompt, tagIDs []int) error {
	if m.createFn != nil {
		return m.createFn(ctx, prompt, tagIDs)
	}
	return nil
}

func (m *mockPromptRepo) FindByID(ctx context.Context, id string) (*Prompt, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, apperror.NewNotFound("prompt not found")
}

func (m *mockPromptRepo) Update(ctx context.Context, prompt *Prompt, tagIDs []int, assignerID string) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, prompt, tagIDs, assignerID)
	}
	return nil
}

func (m *mockPromptRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockPromptRepo) List(ctx context.Context, callerID string, offset, limit int, search string) ([]Prompt, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, callerID, offset, limit, search)
	}
	return nil, 0, nil
}

// mockTagRepo implements tags.TagRepository. By default every requested tag
// ID resolves as visible.
type mockTagRepo struct {
	findVisibleByIDsFn func(ctx context.Context, callerID string, ids []int) ([]tags.Tag, error)
}

func (m *mockTagRepo) Create(ctx context.Context, tag *tags.Tag) error { return nil }

func (m *mockTagRepo) FindByID(ctx context.Context, id int) (*tags.Tag, error) {
	return nil, apperror.NewNotFound("tag not found")
}

func (m *mockTagRepo) List(ctx context.Context, callerID string, offset, limit int, search string) ([]tags.Tag, int, error) {
	return nil, 0, nil
}

func (m *mockTagRepo) FindVisibleByIDs(ctx context.Context, callerID string, ids []int) ([]tags.Tag, error) {
	if m.findVisibleByIDsFn != nil {
		return m.findVisibleByIDsFn(ctx, callerID, ids)
	}
	result := make([]tags.Tag, len(ids))
	for i, id := range ids {
		result[i] = tags.Tag{ID: id}
	}
	return result, nil
}

// --- Test Helpers ---

func newTestService(repo *mockPromptRepo, tagRepo *mockTagRepo) PromptService {
	if tagRepo == nil {
		tagRepo = &mockTagRepo{}
	}
	return NewPromptService(repo, tagRepo)
}

// ownedPrompt builds a valid stored prompt owned by the given creator.
func ownedPrompt(id, creatorID string) *Prompt {
	return &Prompt{
		ID:        id,
		Title:     "Existing title",
		Content:   "Existing content body",
		Version:   "1.0.0",
		IsPublic:  true,
		CreatorID: creatorID,
		Creator:   Creator{ID: creatorID},
		Tags:      []TagRef{},
	}
}

// assertAppError checks that err is an *apperror.AppError with the expected code.
func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

func validCreateRequest() CreatePromptRequest {
	return CreatePromptRequest{
		Title:   "Summarization helper",
		Content: "Summarize the following text in three bullet points.",
	}
}

// --- Create Tests ---

func TestCreate_DefaultsApplied(t *testing.T) {
	var created *Prompt
	repo := &mockPromptRepo{
		createFn: func(ctx context.Context, prompt *Prompt, tagIDs []int) error {
			created = prompt
			return nil
		},
		findByIDFn: func(ctx context.Context, id string) (*Prompt, error) {
			return created, nil
		},
	}

	svc := newTestService(repo, nil)
	prompt, err := svc.Create(context.Background(), "user-1", validCreateRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if prompt.Version != "1.0.0" {
		t.Errorf("expected default version 1.0.0, got %s", prompt.Version)
	}
	if !prompt.IsPublic {
		t.Error("expected visibility to default to public")
	}
	if prompt.CreatorID != "user-1" {
		t.Errorf("expected creator user-1, got %s", prompt.CreatorID)
	}
	if prompt.ID == "" {
		t.Error("expected generated prompt ID")
	}
	if prompt.CreatedAt.IsZero() || !prompt.CreatedAt.Equal(prompt.UpdatedAt) {
		t.Error("expected created_at and updated_at set to the same instant")
	}
}

func TestCreate_ExplicitPrivate(t *testing.T) {
	var created *Prompt
	repo := &mockPromptRepo{
		createFn: func(ctx context.Context, prompt *Prompt, tagIDs []int) error {
			created = prompt
			return nil
		},
		findByIDFn: func(ctx context.Context, id string) (*Prompt, error) {
			return created, nil
		},
	}

	svc := newTestService(repo, nil)
	private := false
	req := validCreateRequest()
	req.IsPublic = &private

	prompt, err := svc.Create(context.Background(), "user-1", req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prompt.IsPublic {
		t.Error("expected explicit isPublic=false to be honored")
	}
}

func TestCreate_ShortTitle(t *testing.T) {
	svc := newTestService(&mockPromptRepo{}, nil)

	req := validCreateRequest()
	req.Title = "ab"
	_, err := svc.Create(context.Background(), "user-1", req)
	assertAppError(t, err, 422)

	var appErr *apperror.AppError
	errors.As(err, &appErr)
	if appErr.Fields["title"] == "" {
		t.Error("expected field-level error for title")
	}
}

func TestCreate_ShortContent(t *testing.T) {
	svc := newTestService(&mockPromptRepo{}, nil)

	req := validCreateRequest()
	req.Content = "too short"
	_, err := svc.Create(context.Background(), "user-1", req)
	assertAppError(t, err, 422)
}

func TestCreate_MultibyteTitleTooShort(t *testing.T) {
	svc := newTestService(&mockPromptRepo{}, nil)

	// 2 characters but 6 bytes; the 3 character minimum counts characters.
	req := validCreateRequest()
	req.Title = "提示"
	_, err := svc.Create(context.Background(), "user-1", req)
	assertAppError(t, err, 422)
}

func TestCreate_MultibyteContentTooShort(t *testing.T) {
	svc := newTestService(&mockPromptRepo{}, nil)

	// 9 characters but 27 bytes; must still fail the 10 character minimum.
	req := validCreateRequest()
	req.Content = strings.Repeat("要", 9)
	_, err := svc.Create(context.Background(), "user-1", req)
	assertAppError(t, err, 422)
}

func TestCreate_MultibyteFieldsWithinLimits(t *testing.T) {
	var created *Prompt
	repo := &mockPromptRepo{
		createFn: func(ctx context.Context, prompt *Prompt, tagIDs []int) error {
			created = prompt
			return nil
		},
		findByIDFn: func(ctx context.Context, id string) (*Prompt, error) {
			return created, nil
		},
	}

	// Each field sits exactly on its character bound. The description is
	// 6000 bytes, so a byte-based limit would reject it.
	desc := strings.Repeat("描", 2000)
	req := CreatePromptRequest{
		Title:       strings.Repeat("題", 3),
		Content:     strings.Repeat("約", 10),
		Description: desc,
	}

	svc := newTestService(repo, nil)
	prompt, err := svc.Create(context.Background(), "user-1", req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prompt.Description == nil || *prompt.Description != desc {
		t.Error("expected 2000 character description to be accepted")
	}
}

func TestCreate_MalformedVersion(t *testing.T) {
	svc := newTestService(&mockPromptRepo{}, nil)

	for _, v := range []string{"1", "1.0", "v1.0.0", "1.0.0-beta", "a.b.c"} {
		req := validCreateRequest()
		req.Version = v
		_, err := svc.Create(context.Background(), "user-1", req)
		assertAppError(t, err, 422)
	}
}

func TestCreate_ValidVersionAccepted(t *testing.T) {
	repo := &mockPromptRepo{
		findByIDFn: func(ctx context.Context, id string) (*Prompt, error) {
			return ownedPrompt(id, "user-1"), nil
		},
	}
	svc := newTestService(repo, nil)

	req := validCreateRequest()
	req.Version = "12.34.56"
	if _, err := svc.Create(context.Background(), "user-1", req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreate_TagIDsDeduplicated(t *testing.T) {
	var assigned []int
	repo := &mockPromptRepo{
		createFn: func(ctx context.Context, prompt *Prompt, tagIDs []int) error {
			assigned = tagIDs
			return nil
		},
		findByIDFn: func(ctx context.Context, id string) (*Prompt, error) {
			return ownedPrompt(id, "user-1"), nil
		},
	}

	svc := newTestService(repo, nil)
	req := validCreateRequest()
	req.TagIDs = []int{3, 1, 3, 2, 1}

	if _, err := svc.Create(context.Background(), "user-1", req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []int{3, 1, 2}
	if len(assigned) != len(want) {
		t.Fatalf("expected %v, got %v", want, assigned)
	}
	for i := range want {
		if assigned[i] != want[i] {
			t.Fatalf("expected first-occurrence order %v, got %v", want, assigned)
		}
	}
}

func TestCreate_UnknownTagRejected(t *testing.T) {
	tagRepo := &mockTagRepo{
		findVisibleByIDsFn: func(ctx context.Context, callerID string, ids []int) ([]tags.Tag, error) {
			// Only tag 1 exists.
			return []tags.Tag{{ID: 1}}, nil
		},
	}

	svc := newTestService(&mockPromptRepo{}, tagRepo)
	req := validCreateRequest()
	req.TagIDs = []int{1, 99}

	_, err := svc.Create(context.Background(), "user-1", req)
	assertAppError(t, err, 422)
}

func TestCreate_TitleMarkupStripped(t *testing.T) {
	var created *Prompt
	repo := &mockPromptRepo{
		createFn: func(ctx context.Context, prompt *Prompt, tagIDs []int) error {
			created = prompt
			return nil
		},
		findByIDFn: func(ctx context.Context, id string) (*Prompt, error) {
			return created, nil
		},
	}

	svc := newTestService(repo, nil)
	req := validCreateRequest()
	req.Title = "<b>Bold</b> title"
	req.Content = "Replace <placeholder> with the user's <input> text."

	if _, err := svc.Create(context.Background(), "user-1", req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Title != "Bold title" {
		t.Errorf("expected markup stripped from title, got %q", created.Title)
	}
	// Content keeps its angle-bracket placeholders verbatim.
	if created.Content != req.Content {
		t.Errorf("expected content stored verbatim, got %q", created.Content)
	}
}

// --- Update Tests ---

func TestUpdate_Success(t *testing.T) {
	var updated *Prompt
	var assigner string
	repo := &mockPromptRepo{
		findByIDFn: func(ctx context.Context, id string) (*Prompt, error) {
			if updated != nil {
				return updated, nil
			}
			return ownedPrompt(id, "user-1"), nil
		},
		updateFn: func(ctx context.Context, prompt *Prompt, tagIDs []int, assignerID string) error {
			updated = prompt
			assigner = assignerID
			return nil
		},
	}

	svc := newTestService(repo, nil)
	req := UpdatePromptRequest{
		Title:   "Renamed helper",
		Content: "Rewrite the following text to be more concise.",
		Version: "1.1.0",
		TagIDs:  []int{4},
	}

	prompt, err := svc.Update(context.Background(), "user-1", "prompt-1", req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prompt.Title != "Renamed helper" || prompt.Version != "1.1.0" {
		t.Errorf("unexpected prompt after update: %+v", prompt)
	}
	if assigner != "user-1" {
		t.Errorf("expected assigner user-1, got %s", assigner)
	}
	if prompt.UpdatedAt.IsZero() {
		t.Error("expected updated_at to be set")
	}
}

func TestUpdate_ForeignPromptLooksMissing(t *testing.T) {
	repo := &mockPromptRepo{
		findByIDFn: func(ctx context.Context, id string) (*Prompt, error) {
			return ownedPrompt(id, "someone-else"), nil
		},
	}

	svc := newTestService(repo, nil)
	_, err := svc.Update(context.Background(), "user-1", "prompt-1", UpdatePromptRequest{
		Title:   "Valid title",
		Content: "Valid content body here.",
	})
	assertAppError(t, err, 404)
}

func TestUpdate_MissingPrompt(t *testing.T) {
	// Default mock returns NotFound.
	svc := newTestService(&mockPromptRepo{}, nil)
	_, err := svc.Update(context.Background(), "user-1", "nope", UpdatePromptRequest{
		Title:   "Valid title",
		Content: "Valid content body here.",
	})
	assertAppError(t, err, 404)
}

func TestUpdate_KeepsVisibilityWhenOmitted(t *testing.T) {
	existing := ownedPrompt("prompt-1", "user-1")
	existing.IsPublic = false

	var updated *Prompt
	repo := &mockPromptRepo{
		findByIDFn: func(ctx context.Context, id string) (*Prompt, error) {
			if updated != nil {
				return updated, nil
			}
			return existing, nil
		},
		updateFn: func(ctx context.Context, prompt *Prompt, tagIDs []int, assignerID string) error {
			updated = prompt
			return nil
		},
	}

	svc := newTestService(repo, nil)
	_, err := svc.Update(context.Background(), "user-1", "prompt-1", UpdatePromptRequest{
		Title:   "Valid title",
		Content: "Valid content body here.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.IsPublic {
		t.Error("expected omitted isPublic to preserve the existing value")
	}
}

// --- Delete Tests ---

func TestDelete_Success(t *testing.T) {
	deleted := ""
	repo := &mockPromptRepo{
		findByIDFn: func(ctx context.Context, id string) (*Prompt, error) {
			return ownedPrompt(id, "user-1"), nil
		},
		deleteFn: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}

	svc := newTestService(repo, nil)
	if err := svc.Delete(context.Background(), "user-1", "prompt-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != "prompt-1" {
		t.Errorf("expected prompt-1 deleted, got %q", deleted)
	}
}

func TestDelete_ForeignPromptLooksMissing(t *testing.T) {
	repo := &mockPromptRepo{
		findByIDFn: func(ctx context.Context, id string) (*Prompt, error) {
			return ownedPrompt(id, "someone-else"), nil
		},
		deleteFn: func(ctx context.Context, id string) error {
			t.Error("delete must not be called for a foreign prompt")
			return nil
		},
	}

	svc := newTestService(repo, nil)
	err := svc.Delete(context.Background(), "user-1", "prompt-1")
	assertAppError(t, err, 404)
}

// --- List Tests ---

func TestList_DefaultPagination(t *testing.T) {
	repo := &mockPromptRepo{
		listFn: func(ctx context.Context, callerID string, offset, limit int, search string) ([]Prompt, int, error) {
			if offset != 0 || limit != 20 {
				t.Errorf("expected offset 0 limit 20, got %d/%d", offset, limit)
			}
			if callerID != "" {
				t.Errorf("expected empty caller for anonymous list, got %q", callerID)
			}
			return []Prompt{*ownedPrompt("p2", "u"), *ownedPrompt("p1", "u")}, 2, nil
		},
	}

	svc := newTestService(repo, nil)
	result, err := svc.List(context.Background(), "", ListOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Prompts) != 2 || result.HasMore || result.TotalCount != 2 || result.CurrentPage != 1 {
		t.Errorf("unexpected envelope: %+v", result)
	}
}

func TestList_HasMoreArithmetic(t *testing.T) {
	repo := &mockPromptRepo{
		listFn: func(ctx context.Context, callerID string, offset, limit int, search string) ([]Prompt, int, error) {
			// Page 3 with limit 10, rows 41-50 of 55.
			rows := make([]Prompt, 10)
			return rows, 55, nil
		},
	}

	svc := newTestService(repo, nil)
	result, err := svc.List(context.Background(), "user-1", ListOptions{Page: 3, Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// offset(20) + rows(10) = 30 < 55.
	if !result.HasMore {
		t.Error("expected hasMore=true")
	}
	if result.CurrentPage != 3 {
		t.Errorf("expected currentPage 3, got %d", result.CurrentPage)
	}
}

func TestList_LastPageHasMoreFalse(t *testing.T) {
	repo := &mockPromptRepo{
		listFn: func(ctx context.Context, callerID string, offset, limit int, search string) ([]Prompt, int, error) {
			// Final partial page: rows 21-25 of 25.
			rows := make([]Prompt, 5)
			return rows, 25, nil
		},
	}

	svc := newTestService(repo, nil)
	result, err := svc.List(context.Background(), "", ListOptions{Page: 3, Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.HasMore {
		t.Error("expected hasMore=false on the final page")
	}
}

func TestList_CoercesBadPageAndLimit(t *testing.T) {
	repo := &mockPromptRepo{
		listFn: func(ctx context.Context, callerID string, offset, limit int, search string) ([]Prompt, int, error) {
			if offset != 0 {
				t.Errorf("expected negative page coerced to offset 0, got %d", offset)
			}
			if limit != 100 {
				t.Errorf("expected oversized limit clamped to 100, got %d", limit)
			}
			return nil, 0, nil
		},
	}

	svc := newTestService(repo, nil)
	result, err := svc.List(context.Background(), "", ListOptions{Page: -1, Limit: 5000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Prompts == nil {
		t.Error("expected empty slice, not nil, for JSON encoding")
	}
}

func TestList_SearchTrimmed(t *testing.T) {
	repo := &mockPromptRepo{
		listFn: func(ctx context.Context, callerID string, offset, limit int, search string) ([]Prompt, int, error) {
			if search != "summary" {
				t.Errorf("expected trimmed search term, got %q", search)
			}
			return nil, 0, nil
		},
	}

	svc := newTestService(repo, nil)
	if _, err := svc.List(context.Background(), "", ListOptions{Search: "  summary  "}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestList_ZeroMatchesIsNotAnError(t *testing.T) {
	repo := &mockPromptRepo{
		listFn: func(ctx context.Context, callerID string, offset, limit int, search string) ([]Prompt, int, error) {
			return nil, 0, nil
		},
	}

	svc := newTestService(repo, nil)
	result, err := svc.List(context.Background(), "", ListOptions{Search: "no-such-prompt"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalCount != 0 || result.HasMore || len(result.Prompts) != 0 {
		t.Errorf("unexpected envelope: %+v", result)
	}
}
