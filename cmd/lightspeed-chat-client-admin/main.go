package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tcriess/lightspeed-chat-client/config"
	"github.com/tcriess/lightspeed-chat-client/globals"
	"github.com/tcriess/lightspeed-chat-client/persistence"
)

// A very simple CLI tool for inspecting and maintaining the local chat
// transcript store while the client is offline.

var (
	configPath = pflag.StringP("config", "c", "", "path to config file or directory")
)

func main() {
	log.SetFlags(0)

	flagSet := config.GetFlagSet()
	pflag.CommandLine.AddFlagSet(flagSet)

	pflag.Parse()

	globalConfig, err := config.ReadConfiguration(*configPath, flagSet)
	if err != nil {
		panic(err)
	}

	globals.AppLogger.SetLevel(hclog.LevelFromString(globalConfig.LogLevel))

	persister, err := persistence.NewPersister(globalConfig)
	if err != nil {
		panic(err)
	}
	if persister == nil {
		panic("no persistence configured")
	}
	defer persister.Close()

	var cmdShow = &cobra.Command{
		Use:   "show",
		Short: "show rooms or messages",
		Long:  `show prints rooms or messages from the local transcript store.`,
		Args:  cobra.MinimumNArgs(0),
	}
	var cmdShowRooms = &cobra.Command{
		Use:   "rooms",
		Short: "Show rooms",
		Long:  `show rooms lists all locally known rooms.`,
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			rooms, err := persister.GetRooms()
			if err != nil {
				globals.AppLogger.Error("could not get rooms", "error", err)
				return
			}
			r, err := json.Marshal(rooms)
			if err != nil {
				globals.AppLogger.Error("could not marshal rooms", "error", err)
				return
			}
			fmt.Println(string(r))
		},
	}
	var cmdShowRoom = &cobra.Command{
		Use:   "room [room id]",
		Short: "Show room",
		Long:  `show room prints detail information about the room with the given id.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			rooms, err := persister.GetRooms()
			if err != nil {
				globals.AppLogger.Error("could not get rooms", "error", err)
				return
			}
			for _, room := range rooms {
				if room.Id != args[0] {
					continue
				}
				r, err := json.Marshal(room)
				if err != nil {
					globals.AppLogger.Error("could not marshal room", "error", err)
					return
				}
				fmt.Println(string(r))
				return
			}
			globals.AppLogger.Error("room not found", "room", args[0])
		},
	}
	var (
		messagesSince string
		messagesUntil string
		messagesLimit int
	)
	var cmdShowMessages = &cobra.Command{
		Use:   "messages [room id]",
		Short: "Show messages",
		Long:  `show messages prints the stored transcript, optionally limited to one room and a time range.`,
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			roomId := ""
			if len(args) > 0 {
				roomId = args[0]
			}
			fromTs := time.Time{}
			toTs := time.Now()
			if messagesSince != "" {
				fromTs, err = time.Parse(time.RFC3339, messagesSince)
				if err != nil {
					globals.AppLogger.Error("could not parse since", "error", err)
					return
				}
			}
			if messagesUntil != "" {
				toTs, err = time.Parse(time.RFC3339, messagesUntil)
				if err != nil {
					globals.AppLogger.Error("could not parse until", "error", err)
					return
				}
			}
			messages, err := persister.GetMessageHistory(roomId, fromTs, toTs, 0, messagesLimit)
			if err != nil {
				globals.AppLogger.Error("could not get messages", "error", err)
				return
			}
			m, err := json.Marshal(messages)
			if err != nil {
				globals.AppLogger.Error("could not marshal messages", "error", err)
				return
			}
			fmt.Println(string(m))
		},
	}
	cmdShowMessages.Flags().StringVar(&messagesSince, "since", "", "only messages at or after this RFC3339 timestamp")
	cmdShowMessages.Flags().StringVar(&messagesUntil, "until", "", "only messages before this RFC3339 timestamp")
	cmdShowMessages.Flags().IntVar(&messagesLimit, "limit", 100, "maximum number of messages")

	var pruneBefore string
	var cmdPrune = &cobra.Command{
		Use:   "prune [days]",
		Short: "Prune old messages",
		Long:  `prune removes stored messages older than the given number of days, the configured retention, or --before.`,
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			before := time.Time{}
			switch {
			case pruneBefore != "":
				before, err = time.Parse(time.RFC3339, pruneBefore)
				if err != nil {
					globals.AppLogger.Error("could not parse before", "error", err)
					return
				}

			case len(args) > 0:
				days, err := strconv.Atoi(args[0])
				if err != nil || days < 0 {
					globals.AppLogger.Error("invalid number of days", "days", args[0])
					return
				}
				before = time.Now().Add(-time.Duration(days) * 24 * time.Hour)

			default:
				if globalConfig.HistoryConfig.RetentionDays <= 0 {
					globals.AppLogger.Error("no retention configured, use --before or give days")
					return
				}
				retention := time.Duration(globalConfig.HistoryConfig.RetentionDays) * 24 * time.Hour
				before = time.Now().Add(-retention)
			}
			err = persister.PruneMessages(before)
			if err != nil {
				globals.AppLogger.Error("could not prune messages", "error", err)
				return
			}
			globals.AppLogger.Info("pruned messages", "before", before)
		},
	}
	cmdPrune.Flags().StringVar(&pruneBefore, "before", "", "remove messages older than this RFC3339 timestamp")

	var rootCmd = &cobra.Command{Use: "lightspeed-chat-client-admin"}
	rootCmd.AddCommand(cmdShow, cmdPrune)
	cmdShow.AddCommand(cmdShowRooms, cmdShowRoom, cmdShowMessages)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
