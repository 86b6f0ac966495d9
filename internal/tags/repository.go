package tags

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/promptvault/promptvault/internal/apperror"
)

// TagRepository defines the data access contract for tags. All SQL lives
// here; one repository per aggregate root.
type TagRepository interface {
	// Create inserts a new tag. The tag's ID is set on the struct after insert.
	Create(ctx context.Context, tag *Tag) error

	// FindByID retrieves a single tag by its primary key.
	FindByID(ctx context.Context, id int) (*Tag, error)

	// List returns the tags visible to the given caller (public tags plus
	// the caller's private ones), newest first, with the total count for
	// pagination. callerID is empty for anonymous requests.
	List(ctx context.Context, callerID string, offset, limit int, search string) ([]Tag, int, error)

	// FindVisibleByIDs returns the subset of the given tag IDs that exist
	// and are visible to the caller. Used to validate tag assignments.
	FindVisibleByIDs(ctx context.Context, callerID string, ids []int) ([]Tag, error)
}

// tagRepository implements TagRepository using MariaDB with hand-written SQL.
type tagRepository struct {
	db *sql.DB
}

// NewTagRepository creates a new TagRepository backed by the given database connection.
func NewTagRepository(db *sql.DB) TagRepository {
	return &tagRepository{db: db}
}

// Create inserts a new tag into the tags table and sets the auto-generated ID
// on the provided struct.
func (r *tagRepository) Create(ctx context.Context, tag *Tag) error {
	query := `INSERT INTO tags (name, type, creator_id)
	           VALUES (?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		tag.Name, tag.Type, tag.CreatorID,
	)
	if err != nil {
		// Tag names are globally unique.
		if isDuplicateEntry(err) {
			return apperror.NewConflict("a tag with this name already exists")
		}
		return fmt.Errorf("inserting tag: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	tag.ID = int(id)

	return nil
}

// FindByID retrieves a single tag by its primary key, with the creator embed.
func (r *tagRepository) FindByID(ctx context.Context, id int) (*Tag, error) {
	query := `SELECT t.id, t.name, t.type, t.creator_id, t.created_at, u.display_name
	           FROM tags t
	           INNER JOIN users u ON u.id = t.creator_id
	           WHERE t.id = ?`

	var t Tag
	var creatorName sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.Type, &t.CreatorID, &t.CreatedAt, &creatorName,
	)
	if err == sql.ErrNoRows {
		return nil, apperror.NewNotFound("tag not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying tag by id: %w", err)
	}
	t.Creator = Creator{ID: t.CreatorID, Name: creatorName.String}
	return &t, nil
}

// List returns a page of tags visible to the caller, plus the total count of
// matching rows. Anonymous callers (empty callerID) see only public tags.
func (r *tagRepository) List(ctx context.Context, callerID string, offset, limit int, search string) ([]Tag, int, error) {
	where, args := visibilityClause(callerID)

	if search != "" {
		where += ` AND t.name LIKE ?`
		args = append(args, "%"+escapeLike(search)+"%")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM tags t WHERE ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting tags: %w", err)
	}

	query := `SELECT t.id, t.name, t.type, t.creator_id, t.created_at, u.display_name
	           FROM tags t
	           INNER JOIN users u ON u.id = t.creator_id
	           WHERE ` + where + `
	           ORDER BY t.name ASC, t.id ASC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing tags: %w", err)
	}
	defer rows.Close()

	var result []Tag
	for rows.Next() {
		var t Tag
		var creatorName sql.NullString
		if err := rows.Scan(&t.ID, &t.Name, &t.Type, &t.CreatorID, &t.CreatedAt, &creatorName); err != nil {
			return nil, 0, fmt.Errorf("scanning tag row: %w", err)
		}
		t.Creator = Creator{ID: t.CreatorID, Name: creatorName.String}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating tag rows: %w", err)
	}

	return result, total, nil
}

// FindVisibleByIDs returns the tags from the given ID set that the caller is
// allowed to see. IDs that don't exist or point at someone else's private
// tags are simply absent from the result.
func (r *tagRepository) FindVisibleByIDs(ctx context.Context, callerID string, ids []int) ([]Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	where, args := visibilityClause(callerID)

	// Build parameterized IN clause to avoid SQL injection.
	placeholders := make([]string, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := fmt.Sprintf(`SELECT t.id, t.name, t.type, t.creator_id, t.created_at
	           FROM tags t WHERE %s AND t.id IN (%s)`,
		where, strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("finding tags by ids: %w", err)
	}
	defer rows.Close()

	var result []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Type, &t.CreatorID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning tag row: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tag rows: %w", err)
	}

	return result, nil
}

// visibilityClause builds the WHERE fragment restricting rows to what the
// caller may see. Anonymous callers get public tags only; no sentinel value
// is substituted for a missing user ID.
func visibilityClause(callerID string) (string, []interface{}) {
	if callerID == "" {
		return `t.type = 'PUBLIC'`, nil
	}
	return `(t.type = 'PUBLIC' OR t.creator_id = ?)`, []interface{}{callerID}
}

// likeEscaper neutralizes LIKE pattern metacharacters so user search input
// matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// isDuplicateEntry checks if a MySQL/MariaDB error is a duplicate key violation.
// Error code 1062 is ER_DUP_ENTRY for unique constraint violations.
func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
