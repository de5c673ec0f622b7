package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/threadline/discuss"
	"github.com/nasermirzaei89/threadline/votes"
)

const (
	tableReplies     = "replies"
	tableReplyVoters = "reply_voters"
)

type ReplyRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ discuss.ReplyRepository = (*ReplyRepository)(nil)

func NewReplyRepository(db *sql.DB, placeholder sq.PlaceholderFormat) *ReplyRepository {
	return &ReplyRepository{db: db, sb: builder(placeholder)}
}

const (
	replyFieldID        = "id"
	replyFieldPostID    = "post_id"
	replyFieldParentID  = "parent_id"
	replyFieldAuthorID  = "author_id"
	replyFieldContent   = "content"
	replyFieldCreatedAt = "created_at"

	voterFieldReplyID   = "reply_id"
	voterFieldDirection = "direction"
	voterFieldUserID    = "user_id"
	voterFieldCreatedAt = "created_at"
)

func replyColumns() []string {
	return []string{
		replyFieldID,
		replyFieldPostID,
		replyFieldParentID,
		replyFieldAuthorID,
		replyFieldContent,
		replyFieldCreatedAt,
	}
}

func scanReply(row sq.RowScanner) (*discuss.Reply, error) {
	var (
		reply    discuss.Reply
		parentID sql.NullString
	)

	err := row.Scan(
		&reply.ID,
		&reply.PostID,
		&parentID,
		&reply.AuthorID,
		&reply.Content,
		&reply.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	if parentID.Valid {
		reply.ParentID = &parentID.String
	}

	reply.UpVoters = []string{}
	reply.DownVoters = []string{}

	return &reply, nil
}

func (repo *ReplyRepository) Insert(ctx context.Context, reply *discuss.Reply) error {
	err := withTx(ctx, repo.db, func(tx *sql.Tx) error {
		q := repo.sb.Insert(tableReplies).
			Columns(replyColumns()...).
			Values(reply.ID, reply.PostID, reply.ParentID, reply.AuthorID, reply.Content, reply.CreatedAt).
			RunWith(tx)

		_, err := q.ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to exec insert: %w", err)
		}

		err = repo.insertVoters(ctx, tx, reply.ID, votes.DirectionUp, reply.UpVoters, reply.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert up-voters: %w", err)
		}

		err = repo.insertVoters(ctx, tx, reply.ID, votes.DirectionDown, reply.DownVoters, reply.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert down-voters: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to insert reply: %w", err)
	}

	return nil
}

func (repo *ReplyRepository) Find(ctx context.Context, replyID string) (*discuss.Reply, error) {
	q := repo.sb.Select(replyColumns()...).
		From(tableReplies).
		Where(sq.Eq{replyFieldID: replyID}).
		RunWith(repo.db)

	reply, err := scanReply(q.QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &discuss.ReplyNotFoundError{ID: replyID}
		}

		return nil, fmt.Errorf("failed to scan reply: %w", err)
	}

	err = repo.loadVoters(ctx, []*discuss.Reply{reply})
	if err != nil {
		return nil, fmt.Errorf("failed to load voters: %w", err)
	}

	return reply, nil
}

func (repo *ReplyRepository) List(ctx context.Context, params *discuss.ListRepliesParams) ([]*discuss.Reply, error) {
	query := repo.sb.Select(replyColumns()...).
		From(tableReplies).
		Where(sq.Eq{replyFieldPostID: params.PostID}).
		OrderBy(replyFieldCreatedAt+" ASC", replyFieldID+" ASC")

	// sq.Eq renders a nil value as IS NULL
	if params.ParentID == nil {
		query = query.Where(sq.Eq{replyFieldParentID: nil})
	} else {
		query = query.Where(sq.Eq{replyFieldParentID: *params.ParentID})
	}

	rows, err := query.RunWith(repo.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query replies: %w", err)
	}

	defer closeRows(ctx, rows)

	replies := make([]*discuss.Reply, 0)

	for rows.Next() {
		reply, err := scanReply(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reply: %w", err)
		}

		replies = append(replies, reply)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	err = repo.loadVoters(ctx, replies)
	if err != nil {
		return nil, fmt.Errorf("failed to load voters: %w", err)
	}

	return replies, nil
}

// AppendVoter is a single insert that ignores an existing row, so concurrent
// appends by different users never overwrite each other.
func (repo *ReplyRepository) AppendVoter(ctx context.Context, replyID string, direction votes.Direction, userID string) error {
	if !direction.IsValid() {
		return fmt.Errorf("invalid vote direction %q", direction)
	}

	q := repo.sb.Insert(tableReplyVoters).
		Columns(voterFieldReplyID, voterFieldDirection, voterFieldUserID, voterFieldCreatedAt).
		Values(replyID, string(direction), userID, time.Now().UTC()).
		Suffix("ON CONFLICT DO NOTHING").
		RunWith(repo.db)

	_, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec insert: %w", err)
	}

	return nil
}

// ReplaceVoters overwrites one voter list with userIDs.
func (repo *ReplyRepository) ReplaceVoters(
	ctx context.Context,
	replyID string,
	direction votes.Direction,
	userIDs []string,
) error {
	if !direction.IsValid() {
		return fmt.Errorf("invalid vote direction %q", direction)
	}

	err := withTx(ctx, repo.db, func(tx *sql.Tx) error {
		q := repo.sb.Delete(tableReplyVoters).
			Where(sq.Eq{voterFieldReplyID: replyID, voterFieldDirection: string(direction)}).
			RunWith(tx)

		_, err := q.ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to exec delete: %w", err)
		}

		return repo.insertVoters(ctx, tx, replyID, direction, userIDs, time.Now().UTC())
	})
	if err != nil {
		return fmt.Errorf("failed to replace %s-voters: %w", direction, err)
	}

	return nil
}

func (repo *ReplyRepository) insertVoters(
	ctx context.Context,
	tx *sql.Tx,
	replyID string,
	direction votes.Direction,
	userIDs []string,
	createdAt time.Time,
) error {
	if len(userIDs) == 0 {
		return nil
	}

	q := repo.sb.Insert(tableReplyVoters).
		Columns(voterFieldReplyID, voterFieldDirection, voterFieldUserID, voterFieldCreatedAt)

	seen := make([]string, 0, len(userIDs))

	for _, userID := range userIDs {
		if slices.Contains(seen, userID) {
			continue
		}

		seen = append(seen, userID)
		q = q.Values(replyID, string(direction), userID, createdAt)
	}

	_, err := q.RunWith(tx).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec insert: %w", err)
	}

	return nil
}

func (repo *ReplyRepository) loadVoters(ctx context.Context, replies []*discuss.Reply) error {
	if len(replies) == 0 {
		return nil
	}

	byID := make(map[string]*discuss.Reply, len(replies))
	ids := make([]string, 0, len(replies))

	for _, reply := range replies {
		byID[reply.ID] = reply
		ids = append(ids, reply.ID)
	}

	q := repo.sb.Select(voterFieldReplyID, voterFieldDirection, voterFieldUserID).
		From(tableReplyVoters).
		Where(sq.Eq{voterFieldReplyID: ids}).
		OrderBy(voterFieldCreatedAt+" ASC", voterFieldUserID+" ASC").
		RunWith(repo.db)

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to query voters: %w", err)
	}

	defer closeRows(ctx, rows)

	for rows.Next() {
		var replyID, direction, userID string

		err := rows.Scan(&replyID, &direction, &userID)
		if err != nil {
			return fmt.Errorf("failed to scan voter: %w", err)
		}

		reply, ok := byID[replyID]
		if !ok {
			continue
		}

		switch votes.Direction(direction) {
		case votes.DirectionUp:
			reply.UpVoters = append(reply.UpVoters, userID)
		case votes.DirectionDown:
			reply.DownVoters = append(reply.DownVoters, userID)
		}
	}

	err = rows.Err()
	if err != nil {
		return fmt.Errorf("failed to iterate voters: %w", err)
	}

	return nil
}
