package rules

import "github.com/streamcue/relay-service/internal/domain/event"

// Evaluate reports whether ev satisfies filter.
func Evaluate(ev event.Eventer, filter Filter) bool {
	switch e := ev.(type) {
	case *event.ChatMessageEvent:
		if filter.Chat == nil {
			return true
		}
		return EvaluateChat(e.Payload(), *filter.Chat)
	case *event.MediaPlayedEvent:
		// No field-level filtering for media yet.
		return true
	default:
		return false
	}
}

// EvaluateChat ANDs the follow-role, user-status and supporter-rank checks.
func EvaluateChat(msg event.ChatMessage, f ChatFilter) bool {
	return followRoleAllowed(msg.FollowRole, f.FollowRoles) &&
		statusAllowed(msg, f.UserStatus) &&
		rankAllowed(msg.SupporterRank, f.SupporterRange)
}

func followRoleAllowed(role event.FollowRole, roles FollowRoles) bool {
	switch role {
	case event.NotFollowing:
		return roles.NoFollow
	case event.Follower:
		return roles.Follower
	case event.Friend:
		return roles.Friend
	default:
		return false
	}
}

func statusAllowed(msg event.ChatMessage, s UserStatus) bool {
	if s.All() {
		return true
	}
	return (s.Moderator && msg.IsModerator) ||
		(s.Subscriber && msg.IsSubscriber) ||
		(s.NewGifter && msg.IsNewGifter)
}

func rankAllowed(rank *int, r SupporterRange) bool {
	if r.Unrestricted {
		return true
	}
	if rank == nil {
		return false
	}
	return *rank >= r.Min && *rank <= r.Max
}
