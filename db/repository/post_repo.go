package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/threadline/contents"
)

const tablePosts = "posts"

type PostRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ contents.PostRepository = (*PostRepository)(nil)

func NewPostRepository(db *sql.DB, placeholder sq.PlaceholderFormat) *PostRepository {
	return &PostRepository{db: db, sb: builder(placeholder)}
}

const (
	postFieldID        = "id"
	postFieldAuthorID  = "author_id"
	postFieldTitle     = "title"
	postFieldContent   = "content"
	postFieldPictures  = "pictures"
	postFieldFlags     = "flags"
	postFieldCreatedAt = "created_at"
)

func postColumns() []string {
	return []string{
		postFieldID,
		postFieldAuthorID,
		postFieldTitle,
		postFieldContent,
		postFieldPictures,
		postFieldFlags,
		postFieldCreatedAt,
	}
}

func scanPost(row sq.RowScanner) (*contents.Post, error) {
	var (
		post     contents.Post
		pictures string
		flags    string
	)

	err := row.Scan(
		&post.ID,
		&post.AuthorID,
		&post.Title,
		&post.Content,
		&pictures,
		&flags,
		&post.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	err = json.Unmarshal([]byte(pictures), &post.Pictures)
	if err != nil {
		return nil, fmt.Errorf("failed to decode pictures: %w", err)
	}

	err = json.Unmarshal([]byte(flags), &post.Flags)
	if err != nil {
		return nil, fmt.Errorf("failed to decode flags: %w", err)
	}

	return &post, nil
}

// encodeList stores an optional list as a JSON array; nil becomes "null" and
// decodes back to nil.
func encodeList[T any](list []T) (string, error) {
	b, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("failed to encode list: %w", err)
	}

	return string(b), nil
}

func (repo *PostRepository) Insert(ctx context.Context, post *contents.Post) error {
	pictures, err := encodeList(post.Pictures)
	if err != nil {
		return fmt.Errorf("failed to encode pictures: %w", err)
	}

	flags, err := encodeList(post.Flags)
	if err != nil {
		return fmt.Errorf("failed to encode flags: %w", err)
	}

	q := repo.sb.Insert(tablePosts).
		Columns(postColumns()...).
		Values(post.ID, post.AuthorID, post.Title, post.Content, pictures, flags, post.CreatedAt).
		RunWith(repo.db)

	_, err = q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec insert: %w", err)
	}

	return nil
}

func (repo *PostRepository) Find(ctx context.Context, postID string) (*contents.Post, error) {
	q := repo.sb.Select(postColumns()...).
		From(tablePosts).
		Where(sq.Eq{postFieldID: postID}).
		RunWith(repo.db)

	post, err := scanPost(q.QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &contents.PostNotFoundError{ID: postID}
		}

		return nil, fmt.Errorf("failed to scan post: %w", err)
	}

	return post, nil
}

func (repo *PostRepository) List(ctx context.Context, params contents.ListPostsParams) ([]*contents.Post, error) {
	q := repo.sb.Select(postColumns()...).
		From(tablePosts).
		OrderBy(postFieldCreatedAt+" DESC", postFieldID+" DESC")

	if params.AuthorID != nil {
		q = q.Where(sq.Eq{postFieldAuthorID: *params.AuthorID})
	}

	rows, err := q.RunWith(repo.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	defer closeRows(ctx, rows)

	posts := make([]*contents.Post, 0)

	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}

		posts = append(posts, post)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return posts, nil
}
