package assistant

import "github.com/capitalize-ai/realtime-chat/internal/model"

// Tier names the fallback level that produced a reply.
type Tier string

const (
	// TierAugmented is a dialogue reply built with memory and retrieval.
	TierAugmented Tier = "augmented"
	// TierDirect is a stateless reply to the raw message.
	TierDirect Tier = "direct"
	// TierApology is the fixed reply used when both generators failed.
	TierApology Tier = "apology"
)

const (
	// ApologyText is returned when no generator could answer.
	ApologyText = "I'm sorry, I couldn't generate a response due to a technical issue."
	// EmptyReplyText replaces an empty successful generation.
	EmptyReplyText = "I'm sorry, I couldn't generate a response."
)

// Reply is the outcome of one assistant turn.
type Reply struct {
	Text string
	Tier Tier
}

// Turn is a persisted exchange: the user's message, the assistant's answer
// and how it was produced.
type Turn struct {
	UserMessage *model.DirectMessage
	AIMessage   *model.DirectMessage
	Reply       Reply
}
