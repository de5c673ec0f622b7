package discuss_test

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/nasermirzaei89/threadline/discuss"
	"github.com/nasermirzaei89/threadline/votes"
)

type memReplyRepo struct {
	mu      sync.Mutex
	replies map[string]*discuss.Reply

	replaceCalls int
	appendCalls  int
	failFind     error
	failWrite    error
}

var _ discuss.ReplyRepository = (*memReplyRepo)(nil)

func newMemReplyRepo() *memReplyRepo {
	return &memReplyRepo{replies: map[string]*discuss.Reply{}}
}

func cloneReply(reply *discuss.Reply) *discuss.Reply {
	cloned := *reply
	cloned.UpVoters = slices.Clone(reply.UpVoters)
	cloned.DownVoters = slices.Clone(reply.DownVoters)

	return &cloned
}

func (repo *memReplyRepo) Insert(_ context.Context, reply *discuss.Reply) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if repo.failWrite != nil {
		return repo.failWrite
	}

	repo.replies[reply.ID] = cloneReply(reply)

	return nil
}

func (repo *memReplyRepo) Find(_ context.Context, replyID string) (*discuss.Reply, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if repo.failFind != nil {
		return nil, repo.failFind
	}

	reply, ok := repo.replies[replyID]
	if !ok {
		return nil, &discuss.ReplyNotFoundError{ID: replyID}
	}

	return cloneReply(reply), nil
}

func (repo *memReplyRepo) List(_ context.Context, params *discuss.ListRepliesParams) ([]*discuss.Reply, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	result := make([]*discuss.Reply, 0)

	for _, reply := range repo.replies {
		if reply.PostID != params.PostID {
			continue
		}

		if params.ParentID == nil && reply.ParentID != nil {
			continue
		}

		if params.ParentID != nil && (reply.ParentID == nil || *reply.ParentID != *params.ParentID) {
			continue
		}

		result = append(result, cloneReply(reply))
	}

	slices.SortFunc(result, func(a, b *discuss.Reply) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})

	return result, nil
}

func (repo *memReplyRepo) AppendVoter(_ context.Context, replyID string, direction votes.Direction, userID string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.appendCalls++

	if repo.failWrite != nil {
		return repo.failWrite
	}

	reply, ok := repo.replies[replyID]
	if !ok {
		return &discuss.ReplyNotFoundError{ID: replyID}
	}

	switch direction {
	case votes.DirectionUp:
		if !slices.Contains(reply.UpVoters, userID) {
			reply.UpVoters = append(reply.UpVoters, userID)
		}
	case votes.DirectionDown:
		if !slices.Contains(reply.DownVoters, userID) {
			reply.DownVoters = append(reply.DownVoters, userID)
		}
	default:
		return errors.New("unknown direction")
	}

	return nil
}

func (repo *memReplyRepo) ReplaceVoters(_ context.Context, replyID string, direction votes.Direction, userIDs []string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.replaceCalls++

	if repo.failWrite != nil {
		return repo.failWrite
	}

	reply, ok := repo.replies[replyID]
	if !ok {
		return &discuss.ReplyNotFoundError{ID: replyID}
	}

	switch direction {
	case votes.DirectionUp:
		reply.UpVoters = slices.Clone(userIDs)
	case votes.DirectionDown:
		reply.DownVoters = slices.Clone(userIDs)
	default:
		return errors.New("unknown direction")
	}

	return nil
}

func (repo *memReplyRepo) calls() (int, int) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	return repo.replaceCalls, repo.appendCalls
}

type memAuthors struct {
	authors map[string]*discuss.Author
	err     error
}

func (d *memAuthors) FindAuthor(_ context.Context, userID string) (*discuss.Author, error) {
	if d.err != nil {
		return nil, d.err
	}

	author, ok := d.authors[userID]
	if !ok {
		return nil, &discuss.AuthorNotFoundError{ID: userID}
	}

	return author, nil
}

type memPosts struct {
	posts map[string]*discuss.RootPost
	err   error
}

func (d *memPosts) FindPost(_ context.Context, postID string) (*discuss.RootPost, error) {
	if d.err != nil {
		return nil, d.err
	}

	post, ok := d.posts[postID]
	if !ok {
		return nil, &discuss.RootPostNotFoundError{ID: postID}
	}

	return post, nil
}
