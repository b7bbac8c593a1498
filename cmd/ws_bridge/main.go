// Command ws_bridge exposes the terminal agent over a WebSocket. Each
// connection starts the agent binary given on the command line as a
// subprocess; its stdout and stderr stream to the client as JSON frames and
// incoming messages are written to its stdin. This lets a browser or editor
// front a locally running agent without any protocol work in the agent itself.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/exec"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	// The bridge binds to localhost; origin checks add nothing there.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type frame struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

func main() {
	addr := flag.String("addr", "localhost:8080", "Listen address")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		log.Fatal("usage: ws_bridge [-addr host:port] <agent-binary> [agent args...]")
	}

	http.HandleFunc("/ws", handleWS(args))
	fmt.Printf("WebSocket bridge running on ws://%s/ws\n", *addr)
	log.Fatal(http.ListenAndServe(*addr, nil))
}

func handleWS(cmdArgs []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}
		defer conn.Close()

		cmd := exec.Command(cmdArgs[0], cmdArgs[1:]...)

		stdin, err := cmd.StdinPipe()
		if err != nil {
			log.Println("stdin pipe error:", err)
			return
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			log.Println("stdout pipe error:", err)
			return
		}
		stderr, err := cmd.StderrPipe()
		if err != nil {
			log.Println("stderr pipe error:", err)
			return
		}

		if err := cmd.Start(); err != nil {
			log.Println("error starting agent:", err)
			return
		}
		defer cmd.Process.Kill()

		// Agent output streams to the client as typed JSON frames.
		pipe := func(kind string, src *bufio.Scanner) {
			for src.Scan() {
				msg, err := json.Marshal(frame{Type: kind, Data: src.Text()})
				if err != nil {
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					log.Println("ws write error:", err)
					return
				}
			}
		}
		go pipe("stdout", bufio.NewScanner(stdout))
		go pipe("stderr", bufio.NewScanner(stderr))

		// Client messages become lines on the agent's stdin.
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				log.Println("ws read error:", err)
				return
			}
			if _, err := stdin.Write(append(msg, '\n')); err != nil {
				log.Println("stdin write error:", err)
				return
			}
		}
	}
}
