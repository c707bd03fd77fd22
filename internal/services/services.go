// Package services maps game names to the service sets a server runs.
package services

import (
	"fmt"
	"sort"

	"github.com/roach88/serd/internal/ser"
	"github.com/roach88/serd/internal/services/chat"
)

// Settings are passed to every game constructor.
type Settings struct {
	Admin ser.Actor
}

// Constructor builds the services of one game on a shared event context.
type Constructor func(events *ser.EventContext, s Settings) []ser.Service

var games = map[string]Constructor{
	"chat": func(events *ser.EventContext, s Settings) []ser.Service {
		return []ser.Service{chat.New(events, chat.WithAdmin(s.Admin))}
	},
}

// Games returns the known game names, sorted.
func Games() []string {
	names := make([]string, 0, len(games))
	for name := range games {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build returns the services of game bound to events.
func Build(game string, events *ser.EventContext, s Settings) ([]ser.Service, error) {
	ctor, ok := games[game]
	if !ok {
		return nil, fmt.Errorf("unknown game %q (known: %v)", game, Games())
	}
	return ctor(events, s), nil
}
