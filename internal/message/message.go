package message

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// dateLayout matches the historical archive format: MM-DD-YYYY hh:mm AM/PM.
const dateLayout = "01-02-2006 03:04 PM"

// FormatDate renders t in the archive's fixed local-time format.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// GroupMessage is a persisted chat message scoped to one room. It is
// immutable once created.
type GroupMessage struct {
	ID       string `json:"id"`
	FromUser string `json:"from_user"`
	Room     string `json:"room"`
	Message  string `json:"message"`
	DateSent string `json:"date_sent"`
}

// New builds a GroupMessage with a fresh ID and the current formatted
// timestamp. The text is trimmed; callers reject empty text before calling New.
func New(fromUser, room, text string) *GroupMessage {
	return &GroupMessage{
		ID:       uuid.NewString(),
		FromUser: fromUser,
		Room:     room,
		Message:  strings.TrimSpace(text),
		DateSent: FormatDate(time.Now()),
	}
}
