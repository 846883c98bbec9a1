package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/folkengine/goname"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"
	"github.com/tcriess/lightspeed-chat-client/config"
	"github.com/tcriess/lightspeed-chat-client/engine"
	"github.com/tcriess/lightspeed-chat-client/globals"
	"github.com/tcriess/lightspeed-chat-client/persistence"
	"github.com/tcriess/lightspeed-chat-client/ws"
)

var (
	configPath = ""
	statusAddr = ""
)

func main() {
	flagSet := config.GetFlagSet()
	flagSet.StringVarP(&configPath, "config", "c", "", "path to config file or directory")
	flagSet.StringVar(&statusAddr, "status-addr", "", "local status api address (optional)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.ReadConfiguration(configPath, flagSet)
	if err != nil {
		panic(err)
	}
	if cfg.LogLevel != "" {
		globals.AppLogger.SetLevel(hclog.LevelFromString(cfg.LogLevel))
	}
	if cfg.ServerConfig.Url == "" {
		fmt.Fprintln(os.Stderr, "no server url configured, use -s or the config file")
		os.Exit(2)
	}
	if cfg.ServerConfig.Nick == "" {
		cfg.ServerConfig.Nick = goname.New(goname.FantasyMap).FirstLast() + " (guest)"
		globals.AppLogger.Info("no nick configured, using a guest nick", "nick", cfg.ServerConfig.Nick)
	}
	instanceId := uuid.New().String()
	globals.AppLogger.Debug("starting", "instance_id", instanceId)

	persister, err := persistence.NewPersister(cfg)
	if err != nil {
		panic(err)
	}
	if persister != nil {
		defer persister.Close()
	}

	projection := &consoleProjection{}
	session := engine.NewSession(cfg, projection, nil, persister, func(err error) {
		globals.AppLogger.Warn("session error", "error", err)
		fmt.Fprintf(os.Stderr, "! %s\n", err)
	})
	client := ws.NewClient(&cfg.ServerConfig, session)
	session.SetSender(client)

	go session.Run()
	defer session.Close()
	go func() {
		if err := client.Run(); err != nil {
			globals.AppLogger.Error("connection failed", "error", err)
			os.Exit(1)
		}
	}()
	defer client.Close()

	if statusAddr != "" {
		go serveStatus(statusAddr, instanceId, session)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		fmt.Fprintln(os.Stderr, "interrupted!")
		client.Close()
		session.Close()
		if persister != nil {
			persister.Close()
		}
		os.Exit(0)
	}()

	commandLoop(session)
}

// commandLoop reads user input from stdin. Lines starting with "/" are
// commands, everything else is sent as a message to the current room.
func commandLoop(session *engine.Session) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "/") {
			if err := session.SendText(line); err != nil {
				fmt.Fprintf(os.Stderr, "! %s\n", err)
			}
			continue
		}
		fields := strings.Fields(line)
		var err error
		switch fields[0] {
		case "/rooms":
			for _, info := range session.Rooms() {
				marker := " "
				if info.Current {
					marker = "*"
				}
				state := ""
				if info.Archived {
					state = " (archived)"
				}
				fmt.Printf("%s %s (%s)%s, %d users, %d messages\n", marker, info.Name, info.Id, state, len(info.Roster), info.LogSize)
			}

		case "/select":
			if len(fields) < 2 {
				err = fmt.Errorf("usage: /select <room-id>")
				break
			}
			err = session.SelectRoom(fields[1])

		case "/create":
			if len(fields) < 2 {
				err = fmt.Errorf("usage: /create <name> [invite-user...]")
				break
			}
			err = session.CreateRoom(fields[1], fields[2:])

		case "/rename":
			if len(fields) < 3 {
				err = fmt.Errorf("usage: /rename <room-id> <new-name>")
				break
			}
			err = session.RenameRoom(fields[1], fields[2], nil, nil)

		case "/invite":
			if len(fields) < 3 {
				err = fmt.Errorf("usage: /invite <room-id> <user...>")
				break
			}
			// an update always carries a name, send the unchanged one
			if name, ok := roomName(session, fields[1]); ok {
				err = session.RenameRoom(fields[1], name, fields[2:], nil)
			} else {
				err = fmt.Errorf("unknown room %s", fields[1])
			}

		case "/kick":
			if len(fields) < 3 {
				err = fmt.Errorf("usage: /kick <room-id> <user...>")
				break
			}
			if name, ok := roomName(session, fields[1]); ok {
				err = session.RenameRoom(fields[1], name, nil, fields[2:])
			} else {
				err = fmt.Errorf("unknown room %s", fields[1])
			}

		case "/delete":
			if len(fields) < 2 {
				err = fmt.Errorf("usage: /delete <room-id>")
				break
			}
			err = session.DeleteRoom(fields[1])

		case "/quit":
			return

		default:
			err = fmt.Errorf("unknown command %s", fields[0])
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "! %s\n", err)
		}
	}
}

func roomName(session *engine.Session, roomId string) (string, bool) {
	for _, info := range session.Rooms() {
		if info.Id == roomId {
			return info.Name, true
		}
	}
	return "", false
}

// serveStatus exposes a small read-only http api with the session's view of
// the room state, handy for scripting around the client.
func serveStatus(addr, instanceId string, session *engine.Session) {
	router := mux.NewRouter()
	router.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, map[string]interface{}{"instance_id": instanceId, "rooms": len(session.Rooms())})
	}).Methods(http.MethodGet)
	router.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, session.Rooms())
	}).Methods(http.MethodGet)
	router.HandleFunc("/rooms/{room}/log", func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		log, err := session.RoomLog(vars["room"])
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJson(w, log)
	}).Methods(http.MethodGet)
	globals.AppLogger.Info("status api listening", "addr", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		globals.AppLogger.Error("status api stopped", "error", err)
	}
}

func writeJson(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		globals.AppLogger.Error("could not encode response", "error", err)
	}
}
