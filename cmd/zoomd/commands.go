package main

import "fmt"

// ==============================
// Commands (side effects)
// ==============================

// Command represents an external side effect to be executed by the daemon loop.
// In this daemon those are settings store writes/reads and snapshot replies.
type Command interface {
	commandMarker()
	String() string
}

// CmdPersistScale stores the latest target scale in the settings store.
type CmdPersistScale struct {
	Scale float64
}

func (CmdPersistScale) commandMarker() {}
func (c CmdPersistScale) String() string {
	return fmt.Sprintf("CmdPersistScale(scale=%.3f)", c.Scale)
}

// CmdPersistSettings stores a single settings key (e.g. after a tracking mode change).
type CmdPersistSettings struct {
	Key   string
	Value any
}

func (CmdPersistSettings) commandMarker() {}
func (c CmdPersistSettings) String() string {
	return fmt.Sprintf("CmdPersistSettings(%s=%v)", c.Key, c.Value)
}

// CmdLoadSettings reloads the settings file.
type CmdLoadSettings struct{}

func (CmdLoadSettings) commandMarker() {}
func (CmdLoadSettings) String() string { return "CmdLoadSettings()" }

// CmdPublishStateSnapshot delivers a reducer-produced snapshot to a requester.
type CmdPublishStateSnapshot struct {
	Reply    chan StateSnapshot
	Snapshot StateSnapshot
}

func (CmdPublishStateSnapshot) commandMarker() {}
func (CmdPublishStateSnapshot) String() string { return "CmdPublishStateSnapshot()" }
