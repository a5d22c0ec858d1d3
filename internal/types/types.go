package types

import (
	"time"
)

// Language is an ISO 639-1 code from the set the service translates between.
type Language string

const (
	LangEnglish Language = "en"
	LangKorean  Language = "ko"
	LangMalay   Language = "ms"
)

// DefaultLanguages returns the languages the service translates between.
func DefaultLanguages() []Language {
	return []Language{LangEnglish, LangKorean, LangMalay}
}

func (l Language) Valid() bool {
	switch l {
	case LangEnglish, LangKorean, LangMalay:
		return true
	}
	return false
}

// TranslationMap holds per-language renderings of a message. It may be
// partial: a language that failed to translate is simply absent.
type TranslationMap map[Language]string

type User struct {
	Id        string    `json:"id"`
	Username  string    `json:"username,omitempty"`
	Language  Language  `json:"language,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type Message struct {
	Id               string         `json:"id"`
	RoomId           string         `json:"room_id"`
	SenderId         string         `json:"sender_id"`
	Content          string         `json:"content"`
	OriginalLanguage Language       `json:"original_language"`
	Translations     TranslationMap `json:"translations,omitempty"`
	ReadBy           []string       `json:"read_by,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// TextFor returns the message text in the preferred language, falling back
// to the original content when no translation is present.
func (m Message) TextFor(preferred Language) (string, Language) {
	if text, ok := m.Translations[preferred]; ok {
		return text, preferred
	}
	return m.Content, m.OriginalLanguage
}

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)

type UserPresence struct {
	UserId   string         `json:"user_id"`
	Status   PresenceStatus `json:"status"`
	LastSeen time.Time      `json:"last_seen,omitempty"`
}
