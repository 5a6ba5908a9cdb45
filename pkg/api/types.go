package api

import (
	"github.com/james-see/ideamachine/pkg/controls"
	"github.com/james-see/ideamachine/pkg/device"
	"github.com/james-see/ideamachine/pkg/performance"
	"github.com/james-see/ideamachine/pkg/rig"
	"github.com/james-see/ideamachine/pkg/theory"
)

// ChordJSON is a chord and the note that triggered it
type ChordJSON struct {
	Trigger       string   `json:"trigger"`
	TriggerNumber uint8    `json:"triggerNumber"`
	Notes         []string `json:"notes"`
	Numbers       []int    `json:"numbers"`
}

func newChordJSON(c theory.Chord) ChordJSON {
	numbers := make([]int, 0, len(c.Notes))
	for _, n := range c.Notes {
		numbers = append(numbers, int(n.Number()))
	}
	return ChordJSON{
		Trigger:       c.Trigger.Name(),
		TriggerNumber: c.Trigger.Number(),
		Notes:         theory.Names(c.Notes),
		Numbers:       numbers,
	}
}

// StateResponse is the performance state
type StateResponse struct {
	SessionID        string      `json:"sessionId"`
	ChordType        string      `json:"chordType"`
	ChordTypeStack   []string    `json:"chordTypeStack"`
	StickyChordTypes bool        `json:"stickyChordTypes"`
	Extensions       []string    `json:"extensions"`
	Voicing          float64     `json:"voicing"`
	ActiveChords     []ChordJSON `json:"activeChords"`
}

func newStateResponse(st performance.State) StateResponse {
	out := StateResponse{
		SessionID:        st.SessionID,
		ChordType:        st.ChordType.String(),
		ChordTypeStack:   make([]string, 0, len(st.ChordTypeStack)),
		StickyChordTypes: st.StickyChordTypes,
		Extensions:       extensionNames(st.Extensions),
		Voicing:          st.Voicing,
		ActiveChords:     make([]ChordJSON, 0, len(st.ActiveChords)),
	}
	for _, ct := range st.ChordTypeStack {
		out.ChordTypeStack = append(out.ChordTypeStack, ct.String())
	}
	for _, c := range st.ActiveChords {
		out.ActiveChords = append(out.ActiveChords, newChordJSON(c))
	}
	return out
}

func extensionNames(s theory.ExtensionSet) []string {
	names := make([]string, 0, s.Len())
	for _, e := range s.List() {
		names = append(names, e.String())
	}
	return names
}

// ControlResponse describes a control and whether it is engaged
type ControlResponse struct {
	Kind   string `json:"kind"`
	Name   string `json:"name"`
	Label  string `json:"label"`
	Key    string `json:"key"`
	Pad    uint8  `json:"pad"`
	Color  string `json:"color"`
	Active bool   `json:"active"`
}

type controlDescriber struct {
	st  performance.State
	out *ControlResponse
}

func (d controlDescriber) VisitChordType(c controls.ChordTypeControl) {
	d.out.Name = c.ChordType.String()
	d.out.Active = d.st.ChordType == c.ChordType
}

func (d controlDescriber) VisitExtension(c controls.ExtensionControl) {
	d.out.Name = c.Extension.String()
	d.out.Active = d.st.Extensions.Has(c.Extension)
}

func newControlResponse(c controls.Control, st performance.State) ControlResponse {
	out := ControlResponse{
		Kind:  controls.Kind(c),
		Label: c.Label(),
		Key:   string(c.Shortcut()),
		Pad:   c.PadNote(),
		Color: c.Color(),
	}
	c.Accept(controlDescriber{st: st, out: &out})
	return out
}

// ChordResponse is a computed chord
type ChordResponse struct {
	ChordType  string    `json:"chordType"`
	Extensions []string  `json:"extensions"`
	Voicing    float64   `json:"voicing"`
	Chord      ChordJSON `json:"chord"`
}

// DevicesResponse lists ports and the selected devices
type DevicesResponse struct {
	Snapshot  device.Snapshot `json:"devices"`
	Selection rig.Selection   `json:"selection"`
}
