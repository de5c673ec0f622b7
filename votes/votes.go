// Package votes derives a user's effective vote and aggregate counts from the
// up-voter and down-voter lists of a reply, and plans the list mutations that
// move a user from one vote to another.
package votes

import (
	"fmt"
	"slices"
)

type Vote int

const (
	Down Vote = -1
	None Vote = 0
	Up   Vote = 1
)

func (v Vote) IsValid() bool {
	switch v {
	case Down, None, Up:
		return true
	default:
		return false
	}
}

func (v Vote) String() string {
	switch v {
	case Down:
		return "down"
	case None:
		return "none"
	case Up:
		return "up"
	default:
		return fmt.Sprintf("Vote(%d)", int(v))
	}
}

// Direction names the voter list a vote is stored in.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

func (d Direction) IsValid() bool {
	switch d {
	case DirectionUp, DirectionDown:
		return true
	default:
		return false
	}
}

// Direction returns the voter list for v. None has no list.
func (v Vote) Direction() (Direction, bool) {
	switch v {
	case Up:
		return DirectionUp, true
	case Down:
		return DirectionDown, true
	default:
		return "", false
	}
}

// Effective returns the vote of userID. The lists are expected to be mutually
// exclusive; if they are not, the up-vote wins.
func Effective(userID string, upVoters, downVoters []string) Vote {
	if slices.Contains(upVoters, userID) {
		return Up
	}

	if slices.Contains(downVoters, userID) {
		return Down
	}

	return None
}

type Counts struct {
	Up   int
	Down int
}

func Count(upVoters, downVoters []string) Counts {
	return Counts{
		Up:   len(upVoters),
		Down: len(downVoters),
	}
}

// Transition describes the list mutations moving a user to a requested vote.
// Removals replace a whole list, the addition appends a single id.
type Transition struct {
	UserID     string
	Previous   Vote
	Requested  Vote
	RemoveUp   bool
	RemoveDown bool
	Append     Direction
}

func (t Transition) IsNoop() bool {
	return !t.RemoveUp && !t.RemoveDown && t.Append == ""
}

// Plan computes the transition for userID from the current lists to requested.
// It is a no-op when requested already equals the effective vote.
func Plan(userID string, upVoters, downVoters []string, requested Vote) Transition {
	t := Transition{
		UserID:    userID,
		Previous:  Effective(userID, upVoters, downVoters),
		Requested: requested,
	}

	if t.Previous == requested {
		return t
	}

	// Both lists are checked so a broken state heals on the next change.
	t.RemoveUp = requested != Up && slices.Contains(upVoters, userID)
	t.RemoveDown = requested != Down && slices.Contains(downVoters, userID)

	if dir, ok := requested.Direction(); ok {
		t.Append = dir
	}

	return t
}

// Apply returns the lists after the transition. Inputs are not modified.
func (t Transition) Apply(upVoters, downVoters []string) ([]string, []string) {
	up := slices.Clone(upVoters)
	down := slices.Clone(downVoters)

	if t.RemoveUp {
		up = Without(up, t.UserID)
	}

	if t.RemoveDown {
		down = Without(down, t.UserID)
	}

	switch t.Append {
	case DirectionUp:
		if !slices.Contains(up, t.UserID) {
			up = append(up, t.UserID)
		}
	case DirectionDown:
		if !slices.Contains(down, t.UserID) {
			down = append(down, t.UserID)
		}
	}

	return up, down
}

// Without returns a copy of voters with every occurrence of userID removed.
func Without(voters []string, userID string) []string {
	result := make([]string, 0, len(voters))

	for _, voter := range voters {
		if voter != userID {
			result = append(result, voter)
		}
	}

	return result
}
