package conversation

import (
	"errors"

	"pregnancyai/app/service/session"
)

var (
	ErrSessionBusy    = errors.New("session is busy")
	ErrEmptyInput     = errors.New("input is empty")
	ErrInvalidProfile = errors.New("invalid profile")
	ErrInvalidDueDate = errors.New("invalid due date")
)

// VoiceFailedText is the user placeholder recorded when speech was not recognized.
const VoiceFailedText = "[voice input failed]"

// View is a session snapshot plus the derived gestational week.
type View struct {
	session.Snapshot
	Week *int `json:"week,omitempty"`
}

type Profile struct {
	Age      int    `json:"age" validate:"gte=18,lte=45"`
	Weight   int    `json:"weight" validate:"gte=40,lte=120"`
	Height   int    `json:"height" validate:"gte=140,lte=200"`
	Exercise bool   `json:"exercise"`
	Diet     bool   `json:"diet"`
	Question string `json:"question" validate:"max=2000"`
}

type Advice struct {
	Text     string `json:"text"`
	Question string `json:"question,omitempty"`
	Answer   string `json:"answer,omitempty"`
}

type Category struct {
	Name      string   `json:"name"`
	Questions []string `json:"questions"`
}
