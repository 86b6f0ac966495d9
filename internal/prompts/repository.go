package prompts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/promptvault/promptvault/internal/apperror"
)

// PromptRepository defines the data access contract for prompts and their
// tag assignments. All SQL lives here; the service never sees a query.
type PromptRepository interface {
	// Create inserts a prompt and its tag assignments in one transaction.
	Create(ctx context.Context, prompt *Prompt, tagIDs []int) error

	// FindByID retrieves a single prompt with its creator and tags.
	FindByID(ctx context.Context, id string) (*Prompt, error)

	// Update rewrites the prompt's editable fields and replaces its entire
	// tag assignment set in one transaction.
	Update(ctx context.Context, prompt *Prompt, tagIDs []int, assignerID string) error

	// Delete removes a prompt. Tag assignments are cascade-deleted by the
	// foreign key constraint.
	Delete(ctx context.Context, id string) error

	// List returns a page of prompts visible to the caller (public prompts
	// plus the caller's private ones), newest first, with the total count.
	// callerID is empty for anonymous requests.
	List(ctx context.Context, callerID string, offset, limit int, search string) ([]Prompt, int, error)
}

// promptRepository implements PromptRepository with MariaDB queries.
type promptRepository struct {
	db *sql.DB
}

// NewPromptRepository creates a new prompt repository.
func NewPromptRepository(db *sql.DB) PromptRepository {
	return &promptRepository{db: db}
}

// Create inserts the prompt row and its prompt_tags rows atomically. A
// failure on any tag assignment rolls back the prompt insert.
func (r *promptRepository) Create(ctx context.Context, prompt *Prompt, tagIDs []int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning create tx: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO prompts (id, title, content, description, version, is_public, creator_id, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = tx.ExecContext(ctx, query,
		prompt.ID, prompt.Title, prompt.Content, prompt.Description,
		prompt.Version, prompt.IsPublic, prompt.CreatorID,
		prompt.CreatedAt, prompt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting prompt: %w", err)
	}

	if err := replaceTags(ctx, tx, prompt.ID, tagIDs, prompt.CreatorID); err != nil {
		return err
	}

	return tx.Commit()
}

// FindByID retrieves a prompt with its joined creator and its tags.
func (r *promptRepository) FindByID(ctx context.Context, id string) (*Prompt, error) {
	query := `SELECT p.id, p.title, p.content, p.description, p.version,
	                 p.is_public, p.creator_id, p.created_at, p.updated_at,
	                 u.display_name
	          FROM prompts p
	          INNER JOIN users u ON u.id = p.creator_id
	          WHERE p.id = ?`

	p := &Prompt{}
	var creatorName sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Title, &p.Content, &p.Description, &p.Version,
		&p.IsPublic, &p.CreatorID, &p.CreatedAt, &p.UpdatedAt,
		&creatorName,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("prompt not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying prompt by id: %w", err)
	}
	p.Creator = Creator{ID: p.CreatorID, Name: creatorName.String}

	tagsByPrompt, err := r.tagsForPrompts(ctx, []string{p.ID})
	if err != nil {
		return nil, err
	}
	p.Tags = tagsByPrompt[p.ID]
	if p.Tags == nil {
		p.Tags = []TagRef{}
	}

	return p, nil
}

// Update rewrites the prompt's fields and replaces its tag assignments
// atomically. The caller is responsible for the ownership check.
func (r *promptRepository) Update(ctx context.Context, prompt *Prompt, tagIDs []int, assignerID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning update tx: %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE prompts SET title = ?, content = ?, description = ?,
	          version = ?, is_public = ?, updated_at = ?
	          WHERE id = ?`

	_, err = tx.ExecContext(ctx, query,
		prompt.Title, prompt.Content, prompt.Description,
		prompt.Version, prompt.IsPublic, prompt.UpdatedAt,
		prompt.ID,
	)
	if err != nil {
		return fmt.Errorf("updating prompt: %w", err)
	}

	if err := replaceTags(ctx, tx, prompt.ID, tagIDs, assignerID); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes a prompt. prompt_tags rows go with it via ON DELETE CASCADE.
func (r *promptRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM prompts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting prompt: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperror.NewNotFound("prompt not found")
	}
	return nil
}

// List returns a page of prompts visible to the caller plus the total count
// of matching rows. Prompt IDs are time-ordered (UUIDv7), so ORDER BY id
// DESC yields newest-first creation order deterministically.
func (r *promptRepository) List(ctx context.Context, callerID string, offset, limit int, search string) ([]Prompt, int, error) {
	where := `(p.is_public = true`
	var args []any
	if callerID != "" {
		where += ` OR p.creator_id = ?`
		args = append(args, callerID)
	}
	where += `)`

	if search != "" {
		where += ` AND (p.title LIKE ? OR p.description LIKE ?)`
		pattern := "%" + escapeLike(search) + "%"
		args = append(args, pattern, pattern)
	}

	countQuery := `SELECT COUNT(*) FROM prompts p WHERE ` + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting prompts: %w", err)
	}

	query := `SELECT p.id, p.title, p.content, p.description, p.version,
	                 p.is_public, p.creator_id, p.created_at, p.updated_at,
	                 u.display_name
	          FROM prompts p
	          INNER JOIN users u ON u.id = p.creator_id
	          WHERE ` + where + `
	          ORDER BY p.id DESC
	          LIMIT ? OFFSET ?`

	pageArgs := append(args, limit, offset)
	rows, err := r.db.QueryContext(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing prompts: %w", err)
	}
	defer rows.Close()

	var result []Prompt
	var ids []string
	for rows.Next() {
		var p Prompt
		var creatorName sql.NullString
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Content, &p.Description, &p.Version,
			&p.IsPublic, &p.CreatorID, &p.CreatedAt, &p.UpdatedAt,
			&creatorName,
		); err != nil {
			return nil, 0, fmt.Errorf("scanning prompt row: %w", err)
		}
		p.Creator = Creator{ID: p.CreatorID, Name: creatorName.String}
		p.Tags = []TagRef{}
		result = append(result, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating prompt rows: %w", err)
	}

	// Attach tags in a single batch query to avoid N+1.
	tagsByPrompt, err := r.tagsForPrompts(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range result {
		if t := tagsByPrompt[result[i].ID]; t != nil {
			result[i].Tags = t
		}
	}

	return result, total, nil
}

// tagsForPrompts returns the tag references for multiple prompts in one
// query, keyed by prompt ID. Returns an empty map for an empty ID list.
func (r *promptRepository) tagsForPrompts(ctx context.Context, promptIDs []string) (map[string][]TagRef, error) {
	if len(promptIDs) == 0 {
		return make(map[string][]TagRef), nil
	}

	placeholders := make([]string, len(promptIDs))
	args := make([]any, len(promptIDs))
	for i, id := range promptIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`SELECT pt.prompt_id, t.id, t.name
	          FROM tags t
	          INNER JOIN prompt_tags pt ON pt.tag_id = t.id
	          WHERE pt.prompt_id IN (%s)
	          ORDER BY t.name ASC`, strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("batch getting prompt tags: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]TagRef)
	for rows.Next() {
		var promptID string
		var t TagRef
		if err := rows.Scan(&promptID, &t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scanning prompt tag row: %w", err)
		}
		result[promptID] = append(result[promptID], t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating prompt tag rows: %w", err)
	}

	return result, nil
}

// replaceTags deletes all tag assignments for the prompt and inserts the
// given set. Runs inside the caller's transaction so a partial rewrite can
// never be observed.
func replaceTags(ctx context.Context, tx *sql.Tx, promptID string, tagIDs []int, assignerID string) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM prompt_tags WHERE prompt_id = ?`, promptID,
	); err != nil {
		return fmt.Errorf("clearing prompt tags: %w", err)
	}

	if len(tagIDs) == 0 {
		return nil
	}

	query := `INSERT INTO prompt_tags (prompt_id, tag_id, assigner_id) VALUES (?, ?, ?)`
	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx, query, promptID, tagID, assignerID); err != nil {
			return fmt.Errorf("assigning tag %d: %w", tagID, err)
		}
	}

	return nil
}

// likeEscaper neutralizes LIKE pattern metacharacters so user search input
// matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
