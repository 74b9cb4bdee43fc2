package interpreter

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"assistant-home-control/clients/ai_bot"
	"assistant-home-control/device_registry"
	"assistant-home-control/device_state"
)

const (
	DefaultReply          = "I'm not sure how to respond."
	AlreadySatisfiedReply = "It looks like everything is already in the state you requested."
)

type Interface interface {
	BuildContext(devices []device_registry.Device) []DeviceInfo
	Interpret(ctx context.Context, text string, devices []DeviceInfo) (*Decision, error)
	Reconcile(actions []ActionRequest, devices []device_registry.Device) Reconciliation
}

type interpreterImpl struct {
	bot   ai_bot.AIBotAPI
	store *device_state.Store
}

type Config struct {
	Bot   ai_bot.AIBotAPI
	Store *device_state.Store
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Bot == nil {
		return nil, fmt.Errorf("bot is nil")
	}

	if cfg.Store == nil {
		return nil, fmt.Errorf("store is nil")
	}

	return &interpreterImpl{
		bot:   cfg.Bot,
		store: cfg.Store,
	}, nil
}

func (i *interpreterImpl) BuildContext(devices []device_registry.Device) []DeviceInfo {
	out := make([]DeviceInfo, 0, len(devices))

	for _, d := range devices {
		info := DeviceInfo{
			DeviceName: d.Name,
			Room:       d.Room,
			IP:         d.IP,
			Controls:   []Control{},
		}

		for _, relay := range relayIndexes(d) {
			state, _ := i.store.Get(d.IP, relay)

			info.Controls = append(info.Controls, Control{
				RelayIndex:   relay,
				Name:         relayName(d, relay),
				CurrentState: state,
			})
		}

		out = append(out, info)
	}

	return out
}

func (i *interpreterImpl) Interpret(ctx context.Context, text string, devices []DeviceInfo) (*Decision, error) {
	prompt, err := BuildPrompt(text, devices)
	if err != nil {
		return nil, fmt.Errorf("%w: building prompt: %v", ErrInterpretation, err)
	}

	resp, err := i.bot.SendPrompt(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInterpretation, err)
	}

	decision, err := ParseDecision(resp)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("actions", len(decision.Actions)).
		Str("reply", decision.Reply).
		Msg("model decision")

	return decision, nil
}

func (i *interpreterImpl) Reconcile(actions []ActionRequest, devices []device_registry.Device) Reconciliation {
	known := make(map[string]device_registry.Device, len(devices))
	for _, d := range devices {
		known[d.IP] = d
	}

	rec := Reconciliation{Proposed: len(actions)}
	// first action seen per relay, and whether it was already in effect
	first := make(map[string]ActionRequest)
	satisfied := make(map[string]bool)

	for _, action := range actions {
		device, ok := known[action.Device]
		if !action.wellFormed() || !ok || !device.HasRelay(action.Relay) {
			log.Warn().
				Str("action", string(action.Kind)).
				Str("device", action.Device).
				Int("relay", action.Relay).
				Msg("dropping action for unknown or malformed target")
			rec.Dropped = append(rec.Dropped, action)
			continue
		}

		key := action.Device + "/" + strconv.Itoa(action.Relay)
		if prev, seen := first[key]; seen {
			// a repeat of a request already in effect is satisfied too
			if satisfied[key] && prev.Kind == action.Kind {
				rec.Satisfied = append(rec.Satisfied, action)
			} else {
				rec.Dropped = append(rec.Dropped, action)
			}
			continue
		}
		first[key] = action

		if current, _ := i.store.Get(action.Device, action.Relay); current == action.TargetState() {
			satisfied[key] = true
			rec.Satisfied = append(rec.Satisfied, action)
			continue
		}

		rec.Actions = append(rec.Actions, action)
	}

	return rec
}

// ReplyFor picks the reply for the user. When the model asked for changes
// that are all already in effect its reply is replaced, since it was written
// against a possibly stale view of the devices.
func ReplyFor(decision *Decision, rec Reconciliation) string {
	if rec.AllSatisfied() {
		return AlreadySatisfiedReply
	}

	return decision.Reply
}

type rawAction struct {
	Action     string          `json:"action"`
	DeviceIP   string          `json:"device_ip"`
	RelayIndex json.RawMessage `json:"relay_index"`
}

type rawDecision struct {
	Actions []json.RawMessage `json:"actions"`
	Reply   *string           `json:"reply"`
}

// ParseDecision reads the model's answer. It accepts the decision object
// itself; items in the action list that cannot be read are kept as
// malformed requests for Reconcile to drop.
func ParseDecision(resp string) (*Decision, error) {
	resp = strings.TrimSpace(resp)
	if !strings.HasPrefix(resp, "{") {
		return nil, fmt.Errorf("%w: response is not a decision object", ErrInterpretation)
	}

	var raw rawDecision
	if err := json.Unmarshal([]byte(resp), &raw); err != nil {
		return nil, fmt.Errorf("%w: response is not a decision object: %v", ErrInterpretation, err)
	}

	decision := &Decision{
		Reply:   DefaultReply,
		Actions: make([]ActionRequest, 0, len(raw.Actions)),
	}

	if raw.Reply != nil && strings.TrimSpace(*raw.Reply) != "" {
		decision.Reply = *raw.Reply
	}

	for _, item := range raw.Actions {
		decision.Actions = append(decision.Actions, parseAction(item))
	}

	return decision, nil
}

func parseAction(item json.RawMessage) ActionRequest {
	var a rawAction
	if err := json.Unmarshal(item, &a); err != nil {
		return ActionRequest{Relay: -1}
	}

	return ActionRequest{
		Kind:   ActionKind(a.Action),
		Device: strings.TrimSpace(a.DeviceIP),
		Relay:  parseRelay(a.RelayIndex),
	}
}

// parseRelay accepts 1, 1.0 and "1"; anything else is -1.
func parseRelay(raw json.RawMessage) int {
	if len(raw) == 0 {
		return -1
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if f >= 0 && f == math.Trunc(f) {
			return int(f)
		}
		return -1
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && n >= 0 {
			return n
		}
	}

	return -1
}

// relayIndexes lists the relays to present for a device: the named ones,
// or 0..NumRelays-1 when none are named.
func relayIndexes(d device_registry.Device) []int {
	seen := make(map[int]bool)
	out := make([]int, 0, len(d.RelayNames))

	for key := range d.RelayNames {
		n, err := strconv.Atoi(key)
		if err != nil || n < 0 || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}

	if len(out) == 0 {
		for n := 0; n < d.NumRelays; n++ {
			out = append(out, n)
		}
	}

	sort.Ints(out)

	return out
}

func relayName(d device_registry.Device, relay int) string {
	if name, ok := d.RelayNames[strconv.Itoa(relay)]; ok {
		return name
	}

	return fmt.Sprintf("Relay %d", relay+1)
}
