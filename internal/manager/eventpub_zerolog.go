package manager

import "github.com/rs/zerolog"

// ZerologPublisher logs lifecycle events as structured records.
type ZerologPublisher struct {
	log zerolog.Logger
}

func NewZerologPublisher(log zerolog.Logger) *ZerologPublisher {
	return &ZerologPublisher{log: log}
}

func (p *ZerologPublisher) Publish(e Event) {
	ev := p.log.Info().Str("event", e.Name)
	if e.ModelID != "" {
		ev = ev.Str("model", e.ModelID)
	}
	for k, v := range e.Fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg("lifecycle")
}
