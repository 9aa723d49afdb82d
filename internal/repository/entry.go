package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/passvault/passvault/internal/model"
)

// ErrEntryNotFound is returned for entries that do not exist or belong
// to another user. The two cases are deliberately indistinguishable.
var ErrEntryNotFound = errors.New("entry not found")

const entryColumns = `id, user_id, title, username, password, url, notes, category, created_at, updated_at`

// ownerScope builds parameterised statements that are always restricted
// to one owner. The owner ID is bound as $1; further values are bound in
// order via bind.
type ownerScope struct {
	args []any
}

func scopeTo(userID int64) *ownerScope {
	return &ownerScope{args: []any{userID}}
}

// where is the ownership predicate.
func (s *ownerScope) where() string {
	return "user_id = $1"
}

// bind appends v and returns its placeholder.
func (s *ownerScope) bind(v any) string {
	s.args = append(s.args, v)
	return fmt.Sprintf("$%d", len(s.args))
}

// CreateEntry inserts e for userID and returns the new entry ID.
// Password and Notes must already be encrypted.
func (r *Repository) CreateEntry(ctx context.Context, userID int64, e *model.Entry) (int64, error) {
	sc := scopeTo(userID)
	query := fmt.Sprintf(`
		INSERT INTO password_entries (user_id, title, username, password, url, notes, category, created_at, updated_at)
		VALUES ($1, %s, %s, %s, %s, %s, %s, %s, %s)
		RETURNING id
	`,
		sc.bind(e.Title), sc.bind(e.Username), sc.bind(e.Password), sc.bind(e.URL),
		sc.bind(e.Notes), sc.bind(e.Category), sc.bind(e.CreatedAt), sc.bind(e.UpdatedAt),
	)

	var id int64
	if err := r.pool.QueryRow(ctx, query, sc.args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create entry: %w", err)
	}
	return id, nil
}

// ListEntries returns the user's entries, most recently updated first.
// Search is a case-insensitive substring match on title, username and URL.
func (r *Repository) ListEntries(ctx context.Context, userID int64, filter model.EntryFilter) ([]*model.Entry, error) {
	sc := scopeTo(userID)

	var b strings.Builder
	b.WriteString(`SELECT ` + entryColumns + ` FROM password_entries WHERE ` + sc.where())

	if filter.HasCategory() {
		b.WriteString(" AND category = " + sc.bind(filter.Category))
	}
	if filter.Search != "" {
		p := sc.bind("%" + escapeLike(filter.Search) + "%")
		fmt.Fprintf(&b, ` AND (title ILIKE %[1]s ESCAPE '\' OR username ILIKE %[1]s ESCAPE '\' OR url ILIKE %[1]s ESCAPE '\')`, p)
	}
	b.WriteString(" ORDER BY updated_at DESC, id DESC")

	rows, err := r.pool.Query(ctx, b.String(), sc.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	entries := []*model.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return entries, nil
}

// GetEntry returns one of the user's entries.
func (r *Repository) GetEntry(ctx context.Context, userID, id int64) (*model.Entry, error) {
	sc := scopeTo(userID)
	query := `SELECT ` + entryColumns + ` FROM password_entries WHERE ` + sc.where() + ` AND id = ` + sc.bind(id)

	e, err := scanEntry(r.pool.QueryRow(ctx, query, sc.args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return e, nil
}

// EntryExists reports whether the user owns entry id.
func (r *Repository) EntryExists(ctx context.Context, userID, id int64) (bool, error) {
	sc := scopeTo(userID)
	query := `SELECT EXISTS (SELECT 1 FROM password_entries WHERE ` + sc.where() + ` AND id = ` + sc.bind(id) + `)`

	var ok bool
	if err := r.pool.QueryRow(ctx, query, sc.args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check entry: %w", err)
	}
	return ok, nil
}

// UpdateEntry applies the non-nil fields of upd and stamps updated_at.
// It returns false when nothing matched or upd is empty. Password and
// Notes must already be encrypted.
func (r *Repository) UpdateEntry(ctx context.Context, userID, id int64, upd model.EntryUpdate, at time.Time) (bool, error) {
	sc := scopeTo(userID)

	var sets []string
	set := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+" = "+sc.bind(*v))
		}
	}
	set("title", upd.Title)
	set("username", upd.Username)
	set("password", upd.Password)
	set("url", upd.URL)
	set("notes", upd.Notes)
	set("category", upd.Category)

	if len(sets) == 0 {
		return false, nil
	}
	sets = append(sets, "updated_at = "+sc.bind(at))

	query := `UPDATE password_entries SET ` + strings.Join(sets, ", ") +
		` WHERE ` + sc.where() + ` AND id = ` + sc.bind(id)

	tag, err := r.pool.Exec(ctx, query, sc.args...)
	if err != nil {
		return false, fmt.Errorf("failed to update entry: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteEntry removes one of the user's entries.
func (r *Repository) DeleteEntry(ctx context.Context, userID, id int64) (bool, error) {
	sc := scopeTo(userID)
	query := `DELETE FROM password_entries WHERE ` + sc.where() + ` AND id = ` + sc.bind(id)

	tag, err := r.pool.Exec(ctx, query, sc.args...)
	if err != nil {
		return false, fmt.Errorf("failed to delete entry: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListCategories returns the user's distinct categories in ascending order.
func (r *Repository) ListCategories(ctx context.Context, userID int64) ([]string, error) {
	sc := scopeTo(userID)
	query := `SELECT DISTINCT category FROM password_entries WHERE ` + sc.where() + ` ORDER BY category`

	rows, err := r.pool.Query(ctx, query, sc.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	categories, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan categories: %w", err)
	}
	return categories, nil
}

// CountByCategory returns per-category entry counts in ascending category order.
func (r *Repository) CountByCategory(ctx context.Context, userID int64) ([]model.CategoryCount, error) {
	sc := scopeTo(userID)
	query := `SELECT category, COUNT(*) FROM password_entries WHERE ` + sc.where() +
		` GROUP BY category ORDER BY category`

	rows, err := r.pool.Query(ctx, query, sc.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count by category: %w", err)
	}
	defer rows.Close()

	counts := []model.CategoryCount{}
	for rows.Next() {
		var c model.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// CountEntries returns the user's total number of entries.
func (r *Repository) CountEntries(ctx context.Context, userID int64) (int64, error) {
	sc := scopeTo(userID)
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM password_entries WHERE `+sc.where(), sc.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return n, nil
}

// escapeLike escapes LIKE metacharacters so user input matches literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func scanEntry(row pgx.Row) (*model.Entry, error) {
	var e model.Entry
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.Title,
		&e.Username,
		&e.Password,
		&e.URL,
		&e.Notes,
		&e.Category,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
