package main

import (
	"fmt"
	"os"
	"time"

	"github.com/tcriess/lightspeed-chat-client/types"
)

// consoleProjection renders the room state onto the terminal. It trusts the
// delta tagging completely: appended messages print one line, a selection
// change reprints the whole log of the new room.
type consoleProjection struct {
	currentRoomId   string
	currentRoomName string
}

func (p *consoleProjection) ApplyDeltas(deltas []types.Delta) {
	for _, delta := range deltas {
		switch d := delta.(type) {
		case *types.DeltaRoomAdded:
			fmt.Printf("* room available: %s (%s)\n", d.Name, d.RoomId)

		case *types.DeltaRoomRemoved:
			fmt.Printf("* room archived: %s\n", d.RoomId)

		case *types.DeltaRoomRenamed:
			fmt.Printf("* room %s renamed to %s\n", d.RoomId, d.NewName)
			if d.RoomId == p.currentRoomId {
				p.currentRoomName = d.NewName
			}

		case *types.DeltaMessageAppended:
			if d.RoomId != p.currentRoomId {
				if d.Notify {
					fmt.Printf("* mention in room %s by %s\n", d.RoomId, d.Message.Nick)
				}
				continue
			}
			p.printMessage(d.Message, d.Notify)

		case *types.DeltaRosterChanged:
			if d.RoomId != p.currentRoomId {
				continue
			}
			fmt.Printf("* users here now:")
			for _, entry := range d.Roster {
				fmt.Printf(" %s", entry.Name)
			}
			fmt.Println()

		case *types.DeltaSelectionChanged:
			p.currentRoomId = d.RoomId
			p.currentRoomName = d.Name
			fmt.Printf("=== %s ===\n", d.Name)
			for _, message := range d.Log {
				p.printMessage(message, false)
			}

		case *types.DeltaCurrentRoomArchived:
			fmt.Printf("* the current room was deleted, its history stays readable\n")
		}
	}
}

func (p *consoleProjection) printMessage(message types.Message, notify bool) {
	marker := " "
	if notify {
		marker = "!"
	}
	fmt.Printf("%s[%s] %s: %s\n", marker, message.Timestamp.Local().Format(time.Kitchen), message.Nick, message.Body)
}

func (p *consoleProjection) ConnectionStatus(connected bool) {
	if connected {
		fmt.Fprintln(os.Stderr, "* connected")
	} else {
		fmt.Fprintln(os.Stderr, "* disconnected, reconnecting...")
	}
}
