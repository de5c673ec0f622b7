package discuss

import (
	"context"
	"fmt"

	"github.com/nasermirzaei89/threadline/votes"
)

type VoteResult struct {
	UserVote  votes.Vote
	UpVotes   int
	DownVotes int
}

func newVoteResult(reply *Reply, userID string) *VoteResult {
	counts := votes.Count(reply.UpVoters, reply.DownVoters)

	return &VoteResult{
		UserVote:  votes.Effective(userID, reply.UpVoters, reply.DownVoters),
		UpVotes:   counts.Up,
		DownVotes: counts.Down,
	}
}

// ToggleVote moves the vote of userID on a reply to requested. Requesting the
// current vote changes nothing.
//
// Removals rewrite a whole voter list computed from the read above, so a
// concurrent append by another user to the same list can be lost. Appends are
// atomic in the store and never lose concurrent updates.
func (svc *BaseService) ToggleVote(ctx context.Context, replyID string, userID string, requested votes.Vote) (*VoteResult, error) {
	if !requested.IsValid() {
		return nil, &InvalidVoteError{Vote: requested}
	}

	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Message: "must not be empty"}
	}

	reply, err := svc.replyRepo.Find(ctx, replyID)
	if err != nil {
		return nil, fmt.Errorf("failed to find reply: %w", err)
	}

	transition := votes.Plan(userID, reply.UpVoters, reply.DownVoters, requested)
	if transition.IsNoop() {
		return newVoteResult(reply, userID), nil
	}

	if transition.RemoveUp {
		err = svc.replyRepo.ReplaceVoters(ctx, reply.ID, votes.DirectionUp, votes.Without(reply.UpVoters, userID))
		if err != nil {
			return nil, fmt.Errorf("failed to replace up-voters: %w", err)
		}
	}

	if transition.RemoveDown {
		err = svc.replyRepo.ReplaceVoters(ctx, reply.ID, votes.DirectionDown, votes.Without(reply.DownVoters, userID))
		if err != nil {
			return nil, fmt.Errorf("failed to replace down-voters: %w", err)
		}
	}

	if transition.Append != "" {
		err = svc.replyRepo.AppendVoter(ctx, reply.ID, transition.Append, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to append %s-voter: %w", transition.Append, err)
		}
	}

	persisted, err := svc.replyRepo.Find(ctx, reply.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find reply after vote: %w", err)
	}

	return newVoteResult(persisted, userID), nil
}
