package eventbus

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/oklog/ulid/v2"
)

// watermillMessage wraps payload in a watermill Message with a fresh
// ULID as its message id, matching the teacher's convention of ULIDs for
// stable, sortable identifiers elsewhere in the codebase.
func watermillMessage(payload []byte) *message.Message {
	return message.NewMessage(ulid.Make().String(), payload)
}
