package message

// Role represents the role of the message sender
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message represents a single message in a conversation
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// New creates a new message with the given role and content
func New(role Role, content string) *Message {
	return &Message{
		Role:    role,
		Content: content,
	}
}

// User creates a user message
func User(content string) *Message {
	return New(RoleUser, content)
}

// System creates a system message
func System(content string) *Message {
	return New(RoleSystem, content)
}

// CloneMessages copies a slice of messages.
func CloneMessages(msgs []*Message) []*Message {
	if len(msgs) == 0 {
		return nil
	}
	clones := make([]*Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		cloned := *msg
		clones = append(clones, &cloned)
	}
	return clones
}
