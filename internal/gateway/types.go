package gateway

// EventKind discriminates inbound gateway frames.
type EventKind string

const (
	EventCommand  EventKind = "command"
	EventReaction EventKind = "reaction"
)

// Event is one inbound interaction from the chat gateway: either a
// slash-style command or an emoji reaction on a bot message.
type Event struct {
	Kind      EventKind         `json:"kind"`
	GuildID   string            `json:"guild_id"`
	ChannelID string            `json:"channel_id"`
	MessageID string            `json:"message_id,omitempty"`
	UserID    string            `json:"user_id"`
	Username  string            `json:"username,omitempty"`
	Display   string            `json:"display_name,omitempty"`
	IsAdmin   bool              `json:"is_admin,omitempty"`
	RoleIDs   []string          `json:"role_ids,omitempty"`
	Command   string            `json:"command,omitempty"`
	Options   map[string]string `json:"options,omitempty"`
	Emoji     string            `json:"emoji,omitempty"`
}

// Option reads one command option with a fallback.
func (e *Event) Option(name, fallback string) string {
	if v, ok := e.Options[name]; ok && v != "" {
		return v
	}
	return fallback
}

type postMessageRequest struct {
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
	Ephemeral bool   `json:"ephemeral,omitempty"`
}

type postMessageResponse struct {
	MessageID string `json:"message_id"`
}

type editMessageRequest struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
}

type dmRequest struct {
	UserID  string `json:"user_id"`
	Content string `json:"content"`
}

type reactionRequest struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}
