// Package lifecycle implements the publication state machine for assets.
//
// The transition table is data, not code: the default table covers the
// draft/approval/publish flow, and deployments may supply their own via YAML.
// The mechanism is the contract: named actions over a closed state set,
// legality checked before anything mutates.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
	"gopkg.in/yaml.v3"
)

// State is a lifecycle state of an asset.
type State string

// Action is a named transition request.
type Action string

const (
	StateDraft             State = "draft"
	StateAwaitingApproval  State = "awaiting_approval"
	StatePublished         State = "published"
	StateNeedMoreInfoState State = "need_more_info"

	ActionPublish      Action = "publish"
	ActionApprove      Action = "approve"
	ActionCancel       Action = "cancel"
	ActionNeedMoreInfo Action = "need_more_info"
	ActionUnpublish    Action = "unpublish"
)

// Transition is one row of the table.
type Transition struct {
	From   State  `yaml:"from"`
	Action Action `yaml:"action"`
	To     State  `yaml:"to"`
}

// IllegalTransitionError reports an action that is not legal from the asset's
// current state. The stored state is guaranteed untouched when this is
// returned.
type IllegalTransitionError struct {
	Action Action
	State  State
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("action %q is not allowed from state %q", e.Action, e.State)
}

// Machine validates and applies lifecycle actions.
type Machine struct {
	initial State
	events  fsm.Events
	actions map[Action]bool
}

// Default returns the standard publication table:
//
//	draft             --publish--------> awaiting_approval
//	awaiting_approval --approve--------> published
//	awaiting_approval --cancel---------> draft
//	awaiting_approval --need_more_info-> need_more_info
//	need_more_info    --publish--------> awaiting_approval
//	published         --unpublish------> draft
func Default() *Machine {
	return build(StateDraft, []Transition{
		{From: StateDraft, Action: ActionPublish, To: StateAwaitingApproval},
		{From: StateAwaitingApproval, Action: ActionApprove, To: StatePublished},
		{From: StateAwaitingApproval, Action: ActionCancel, To: StateDraft},
		{From: StateAwaitingApproval, Action: ActionNeedMoreInfo, To: StateNeedMoreInfoState},
		{From: StateNeedMoreInfoState, Action: ActionPublish, To: StateAwaitingApproval},
		{From: StatePublished, Action: ActionUnpublish, To: StateDraft},
	})
}

// tableFile is the YAML shape of a custom transition table.
type tableFile struct {
	Initial     State `yaml:"initial"`
	Transitions []struct {
		From   State  `yaml:"from"`
		Action Action `yaml:"action"`
		To     State  `yaml:"to"`
	} `yaml:"transitions"`
}

// FromYAML builds a machine from a YAML table definition.
func FromYAML(data []byte) (*Machine, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse lifecycle table: %w", err)
	}
	if file.Initial == "" {
		return nil, errors.New("lifecycle table must name an initial state")
	}
	if len(file.Transitions) == 0 {
		return nil, errors.New("lifecycle table must define at least one transition")
	}
	transitions := make([]Transition, len(file.Transitions))
	for i, t := range file.Transitions {
		if t.From == "" || t.Action == "" || t.To == "" {
			return nil, fmt.Errorf("lifecycle transition %d is incomplete", i)
		}
		transitions[i] = Transition{From: t.From, Action: t.Action, To: t.To}
	}
	return build(file.Initial, transitions), nil
}

func build(initial State, transitions []Transition) *Machine {
	// Collapse rows sharing (action, to) into one event with multiple sources,
	// the shape looplab/fsm expects.
	type key struct {
		action Action
		to     State
	}
	sources := map[key][]string{}
	order := []key{}
	actions := map[Action]bool{}
	for _, t := range transitions {
		k := key{t.Action, t.To}
		if _, seen := sources[k]; !seen {
			order = append(order, k)
		}
		sources[k] = append(sources[k], string(t.From))
		actions[t.Action] = true
	}

	events := make(fsm.Events, 0, len(order))
	for _, k := range order {
		events = append(events, fsm.EventDesc{
			Name: string(k.action),
			Src:  sources[k],
			Dst:  string(k.to),
		})
	}

	return &Machine{initial: initial, events: events, actions: actions}
}

// Initial is the state assigned to newly created assets.
func (m *Machine) Initial() State {
	return m.initial
}

// ParseAction validates a wire-format action string against the table.
func (m *Machine) ParseAction(raw string) (Action, error) {
	a := Action(raw)
	if !m.actions[a] {
		return "", fmt.Errorf("unknown lifecycle action %q", raw)
	}
	return a, nil
}

// Apply returns the state reached by running action from current. It never
// mutates anything: on an illegal action it returns an
// IllegalTransitionError and the caller's state is untouched.
func (m *Machine) Apply(ctx context.Context, current State, action Action) (State, error) {
	machine := fsm.NewFSM(string(current), m.events, nil)
	if err := machine.Event(ctx, string(action)); err != nil {
		var invalid fsm.InvalidEventError
		var unknown fsm.UnknownEventError
		var noop fsm.NoTransitionError
		switch {
		case errors.As(err, &noop):
			// Self-loop in a custom table: legal, state unchanged.
			return current, nil
		case errors.As(err, &invalid) || errors.As(err, &unknown):
			return "", &IllegalTransitionError{Action: action, State: current}
		default:
			return "", fmt.Errorf("lifecycle transition failed: %w", err)
		}
	}
	return State(machine.Current()), nil
}
