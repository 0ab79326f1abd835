package main

import (
	"fmt"

	"github.com/calygofire/calygo"
	"github.com/calygofire/calygo/offline"
)

type InitTourneesMsg struct {
	tournees  []calygo.ExistingTourneeRecord
	addresses []calygo.ExistingAddressRecord
}

// QueueEventMsg carries an offline queue event into the program.
type QueueEventMsg struct {
	event offline.Event
}

type WriteMsg struct {
	what   string
	queued bool
}

type PlanMsg struct {
	plan Plan
}

type FlushMsg struct {
	removed int
}

// AlertMsg is a recoverable failure shown to the user.
type AlertMsg struct {
	err error
}

func alertMsg(format string, args ...any) AlertMsg {
	return AlertMsg{
		err: fmt.Errorf(format, args...),
	}
}
