package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/elliotchance/pie/v2"
)

type Speaker string

const (
	SpeakerUser Speaker = "user"
	SpeakerAI   Speaker = "ai"
)

type TurnStatus string

const (
	TurnOK TurnStatus = "ok"
	// TurnError marks an AI turn that carries a failure message instead of a reply.
	TurnError TurnStatus = "error"
	// TurnVoiceFailed marks the user placeholder of a failed recognition.
	TurnVoiceFailed TurnStatus = "voice_failed"
)

type ChatTurn struct {
	Speaker Speaker    `json:"speaker"`
	Text    string     `json:"text"`
	Status  TurnStatus `json:"status"`
}

func (t ChatTurn) OK() bool {
	return t.Status == TurnOK
}

type Mood string

const (
	MoodHappy    Mood = "happy"
	MoodSad      Mood = "sad"
	MoodTired    Mood = "tired"
	MoodStressed Mood = "stressed"
	MoodExcited  Mood = "excited"
)

var Moods = []Mood{MoodHappy, MoodSad, MoodTired, MoodStressed, MoodExcited}

var moodLabels = map[Mood]string{
	MoodHappy:    "😊 Happy",
	MoodSad:      "😢 Sad",
	MoodTired:    "😴 Tired",
	MoodStressed: "😡 Stressed",
	MoodExcited:  "🤗 Excited",
}

func ParseMood(s string) (Mood, error) {
	mood := Mood(strings.ToLower(strings.TrimSpace(s)))
	if !pie.Contains(Moods, mood) {
		return "", fmt.Errorf("unknown mood %q", s)
	}

	return mood, nil
}

func (m Mood) Label() string {
	if label, ok := moodLabels[m]; ok {
		return label
	}

	return string(m)
}

type MoodEntry struct {
	Date time.Time `json:"date"`
	Mood Mood      `json:"mood"`
}

// Snapshot is a detached copy of the session state.
type Snapshot struct {
	DueDate    *time.Time  `json:"due_date,omitempty"`
	Transcript []ChatTurn  `json:"transcript"`
	MoodLog    []MoodEntry `json:"mood_log"`
}
