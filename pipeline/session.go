package pipeline

import "github.com/google/uuid"

// Session is the explicit conversation state. One per conversation,
// passed by pointer into every stage that needs it. Not safe for
// concurrent use, surfaces keep one per chat.
type Session struct {
	UserID      string
	SessionID   string
	Turn        int
	LastSlate   *Slate
	BannedItems []uint
}

func NewSession(userID string) *Session {
	return &Session{UserID: userID, SessionID: uuid.NewString()}
}

func ResumeSession(userID, sessionID string, turn int) *Session {
	if sessionID == "" {
		return NewSession(userID)
	}
	return &Session{UserID: userID, SessionID: sessionID, Turn: turn}
}

func (s *Session) NextTurn() int {
	s.Turn++
	return s.Turn
}

func (s *Session) RememberSlate(slate *Slate) {
	s.LastSlate = slate
}

func (s *Session) Ban(itemID uint) {
	for _, id := range s.BannedItems {
		if id == itemID {
			return
		}
	}
	s.BannedItems = append(s.BannedItems, itemID)
}
