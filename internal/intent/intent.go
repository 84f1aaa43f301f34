package intent

import "strings"

type Kind int

const (
	Chat Kind = iota
	Music
)

func (k Kind) String() string {
	switch k {
	case Music:
		return "music"
	default:
		return "chat"
	}
}

var DefaultMusicPhrases = []string{
	"relax music",
	"i want some relax music",
	"play relaxing music",
}

// Router maps a transcript to what the assistant should do with it.
type Router struct {
	music []string
}

func NewRouter(musicPhrases ...string) *Router {
	if len(musicPhrases) == 0 {
		musicPhrases = DefaultMusicPhrases
	}
	r := &Router{}
	for _, p := range musicPhrases {
		if p = Normalize(p); p != "" {
			r.music = append(r.music, p)
		}
	}
	return r
}

func (r *Router) Classify(transcript string) Kind {
	t := Normalize(transcript)
	for _, p := range r.music {
		if strings.Contains(t, p) {
			return Music
		}
	}
	return Chat
}

// Normalize lower-cases and collapses whitespace.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
