package model

type Speaker string

const (
	SpeakerBot  Speaker = "bot"
	SpeakerUser Speaker = "user"
)

// Message is one entry of the append-only conversation stream.
type Message struct {
	Speaker Speaker
	Text    string
}
