package events

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/forumkit/forumadmin/pkg/fautil"
)

var (
	registeredEvents map[string][]EventHandler
	eventsMutex      sync.RWMutex
	testingMode      bool
)

// EventHandler is called with the trigger and the data passed to TriggerEvent. Settings hooks receive
// pointers, so handlers can modify the values they are given
type EventHandler func(string, ...any) error

// RegisterEvent registers a new event handler to be called when any of the elements of triggers are passed
// to TriggerEvent
func RegisterEvent(triggers []string, handler EventHandler) {
	eventsMutex.Lock()
	defer eventsMutex.Unlock()
	for _, t := range triggers {
		registeredEvents[t] = append(registeredEvents[t], handler)
	}
}

// UnregisterEvent removes every handler registered to the given triggers
func UnregisterEvent(triggers ...string) {
	eventsMutex.Lock()
	defer eventsMutex.Unlock()
	for _, t := range triggers {
		delete(registeredEvents, t)
	}
}

// HasHandlers returns true if at least one handler is registered for the trigger
func HasHandlers(trigger string) bool {
	eventsMutex.RLock()
	defer eventsMutex.RUnlock()
	return len(registeredEvents[trigger]) > 0
}

// TriggerEvent calls the handlers registered to trigger in the order they were registered, stopping at
// the first one that returns an error. If a handler panics, the panic is recovered and logged
func TriggerEvent(trigger string, data ...any) (handled bool, err error, recovered bool) {
	errEv := fautil.LogError(nil).Caller(1)
	defer func() {
		if a := recover(); a != nil {
			if !testingMode {
				errEv.Err(fmt.Errorf("%s", a)).
					Str("event", trigger).
					Msg("Recovered from panic while handling event")
			} else {
				errEv.Discard()
			}
			handled = true
			recovered = true
		}
	}()
	eventsMutex.RLock()
	handlers := registeredEvents[trigger]
	eventsMutex.RUnlock()
	for _, handler := range handlers {
		handled = true
		if err = handler(trigger, data...); err != nil {
			errEv.Discard()
			return
		}
	}
	errEv.Discard()
	return
}

func init() {
	registeredEvents = map[string][]EventHandler{}
	testingMode = strings.HasSuffix(os.Args[0], ".test")
}
