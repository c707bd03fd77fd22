package ser

import (
	"container/heap"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/roach88/serd/internal/logging"
)

// Wire prefixes.
const (
	RequestPrefix  = "REQUEST"
	ResponsePrefix = "RESPONSE"
	EventPrefix    = "EVENT"

	responseOK = "OK"
	responseKO = "KO"
)

// Dispatcher is the SER protocol engine: it owns the name-keyed service
// registry, answers SR commands and merges emitted events in global order.
//
// INVARIANTS:
//   - The registry never changes after NewDispatcher returns.
//   - Services are referenced, never created or destroyed here.
//   - Every cached emitter entry holds the id its service reported through
//     CheckEvent, and no service appears in the cache twice.
type Dispatcher struct {
	services map[string]Service
	order    []string // registration order, used for scans
	cache    emitterCache
	logger   *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// NewDispatcher registers services under their names.
//
// Returns a configuration error (ErrCodeDuplicateService) if two services
// share a name, a name is empty, or a service is nil. No dispatcher is built
// in that case.
func NewDispatcher(services []Service, opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		services: make(map[string]Service, len(services)),
		order:    make([]string, 0, len(services)),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.Component(d.logger, "ser")

	for i, svc := range services {
		if svc == nil {
			return nil, newInvalidServiceError(fmt.Sprintf("service #%d is nil", i))
		}
		name := svc.Name()
		if name == "" {
			return nil, newInvalidServiceError(fmt.Sprintf("service #%d has an empty name", i))
		}
		if _, exists := d.services[name]; exists {
			return nil, newDuplicateServiceError(name)
		}
		d.services[name] = svc
		d.order = append(d.order, name)
	}

	for _, name := range d.order {
		d.logger.Debug("registered service", "service", name)
	}

	return d, nil
}

// IsRegistered reports whether a service with this name is registered.
func (d *Dispatcher) IsRegistered(name string) bool {
	_, ok := d.services[name]
	return ok
}

// Services returns the registered service names, sorted.
func (d *Dispatcher) Services() []string {
	names := make([]string, len(d.order))
	copy(names, d.order)
	sort.Strings(names)
	return names
}

// HandleServiceRequest parses an SR command from actor, runs the target
// service handler and returns the SRR line.
//
// Malformed commands return a BAD_REQUEST error and unknown targets a
// SERVICE_NOT_FOUND error; no handler runs and no response is produced, since
// neither the RUID nor the target can be trusted. Handler failures and faults
// never produce errors here, only KO responses.
func (d *Dispatcher) HandleServiceRequest(actor Actor, command string) (string, error) {
	logging.Trace(d.logger, "handling SR command", "actor", actor, "command", command)

	words, payload := SplitWords(command, 3)
	if len(words) < 3 {
		return "", newBadRequestError(command, "expected SER command prefix, request UID and service name")
	}
	if words[0] != RequestPrefix {
		return "", newBadRequestError(command, fmt.Sprintf("expected SER command prefix %q for SR command", RequestPrefix))
	}
	ruid, err := strconv.ParseUint(words[1], 10, 64)
	if err != nil {
		return "", newBadRequestError(command, "request UID must be an unsigned integer of 64 bits")
	}

	name := words[2]
	svc, ok := d.services[name]
	if !ok {
		return "", newServiceNotFoundError(name)
	}

	logging.Trace(d.logger, "SR command parsed", "service", name, "ruid", ruid)

	result, fault := invokeHandler(svc, actor, payload)
	if fault != nil {
		d.logger.Error("service failed to handle command",
			"service", name,
			"actor", actor,
			"ruid", ruid,
			"error", fault,
		)
		return FormatFailure(ruid, fault.Error()), nil
	}
	if !result.OK() {
		return FormatFailure(ruid, result.ErrorMessage()), nil
	}
	return FormatSuccess(ruid), nil
}

// PollServiceEvent returns the next pending SE line in global id order, or
// ("", false) when no registered service has a pending event.
//
// Emitters known to hold events are cached by the id they last reported. While
// the cache is non-empty the next event comes from it without looking at other
// services; after an emitter is consumed only that emitter is re-checked. A
// full scan happens only once the cache is empty, so a service that starts
// emitting mid-burst waits until the burst drains.
func (d *Dispatcher) PollServiceEvent() (string, bool) {
	if d.cache.Len() == 0 {
		d.scan()
	}
	if d.cache.Len() == 0 {
		logging.Trace(d.logger, "no event to retrieve")
		return "", false
	}

	next := heap.Pop(&d.cache).(cachedEmitter)
	name := next.service.Name()
	event := FormatEvent(name, next.service.PollEvent())

	if id, ok := next.service.CheckEvent(); ok {
		heap.Push(&d.cache, cachedEmitter{id: id, service: next.service})
	}

	logging.Trace(d.logger, "polled event", "service", name, "id", next.id, "event", event)
	return event, true
}

func (d *Dispatcher) scan() {
	for _, name := range d.order {
		svc := d.services[name]
		id, ok := svc.CheckEvent()
		if !ok {
			continue
		}
		heap.Push(&d.cache, cachedEmitter{id: id, service: svc})
		logging.Trace(d.logger, "cached event emitter", "service", name, "id", id)
	}
}

// invokeHandler runs the handler, converting a panic into a fault.
func invokeHandler(svc Service, actor Actor, payload string) (result HandlingResult, fault error) {
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok {
				fault = err
				return
			}
			fault = fmt.Errorf("%v", r)
		}
	}()
	return svc.HandleRequestCommand(actor, payload)
}

// FormatSuccess renders "RESPONSE <ruid> OK".
func FormatSuccess(ruid uint64) string {
	return ResponsePrefix + " " + strconv.FormatUint(ruid, 10) + " " + responseOK
}

// FormatFailure renders "RESPONSE <ruid> KO <message>".
func FormatFailure(ruid uint64, message string) string {
	return ResponsePrefix + " " + strconv.FormatUint(ruid, 10) + " " + responseKO + " " + message
}

// FormatEvent renders "EVENT <service> <payload>".
func FormatEvent(service, payload string) string {
	return EventPrefix + " " + service + " " + payload
}

type cachedEmitter struct {
	id      uint64
	service Service
}

// emitterCache is a min-heap of emitters ordered by event id. Ids are unique,
// so no tie-break is needed.
type emitterCache []cachedEmitter

func (c emitterCache) Len() int           { return len(c) }
func (c emitterCache) Less(i, j int) bool { return c[i].id < c[j].id }
func (c emitterCache) Swap(i, j int)      { c[i], c[j] = c[j], c[i] }

func (c *emitterCache) Push(x any) {
	*c = append(*c, x.(cachedEmitter))
}

func (c *emitterCache) Pop() any {
	old := *c
	n := len(old)
	item := old[n-1]
	old[n-1] = cachedEmitter{}
	*c = old[:n-1]
	return item
}
