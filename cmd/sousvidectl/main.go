package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ChristiaanHPutter/Skripsie/internal/cooker"

	"github.com/google/shlex"
	"github.com/gorilla/websocket"
)

var serverAddr = "localhost:8080"

// Panel buttons by name, plus "stop" as an alias since the run button
// toggles.
var buttonNames = map[string]int{
	"select": cooker.ButtonSelect,
	"mode":   cooker.ButtonMode,
	"minus":  cooker.ButtonMinus,
	"plus":   cooker.ButtonPlus,
	"run":    cooker.ButtonRun,
	"stop":   cooker.ButtonRun,
}

func main() {
	flag.StringVar(&serverAddr, "server", serverAddr, "host:port of the sous-vide daemon.")
	flag.Parse()

	baseURL := "http://" + serverAddr
	wsURL := url.URL{Scheme: "ws", Host: serverAddr, Path: "/link"}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		log.Fatalf("could not reach the daemon link at %s: %v", wsURL.String(), err)
	}
	defer conn.Close()

	client := &http.Client{Timeout: 5 * time.Second}

	fmt.Printf("connected to %s; type 'help' for commands\n", wsURL.String())

	// STATUS lines arrive every second while linked, so they stay hidden
	// until 'watch' turns them on.
	var showStatus atomic.Bool
	go printInbound(conn, &showStatus)

	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		args, err := shlex.Split(sc.Text())
		if err != nil {
			fmt.Println("bad input:", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		switch strings.ToLower(args[0]) {
		case "set":
			sendTargets(conn, args[1:])
		case "press":
			if len(args) != 2 {
				fmt.Println("usage: press <0-4|select|mode|minus|plus|run>")
				continue
			}
			pressButton(client, baseURL, args[1])
		case "state":
			printState(client, baseURL)
		case "watch":
			if showStatus.Load() {
				showStatus.Store(false)
				fmt.Println("status stream off")
			} else {
				showStatus.Store(true)
				fmt.Println("status stream on")
			}
		case "help":
			printHelp()
		case "quit", "exit":
			return
		default:
			fmt.Printf("unknown command %q; type 'help'\n", args[0])
		}
	}
}

// printInbound relays link traffic to the terminal. Protocol lines already
// end with a newline.
func printInbound(conn *websocket.Conn, showStatus *atomic.Bool) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Fatalf("link closed: %v", err)
		}
		line := string(data)
		if strings.Contains(line, "|STATE:") && !showStatus.Load() {
			continue
		}
		fmt.Print("<- " + line)
	}
}

func sendTargets(conn *websocket.Conn, args []string) {
	if len(args) != 3 {
		fmt.Println("usage: set <chamber 1-3> <temp C> <minutes>")
		return
	}
	vals := make([]int, len(args))
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			fmt.Printf("not a number: %q\n", a)
			return
		}
		vals[i] = v
	}
	line := fmt.Sprintf("SET:C%d:%d:%d", vals[0], vals[1], vals[2])
	if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
		log.Fatalf("link write failed: %v", err)
	}
	fmt.Println("-> " + line)
}

func pressButton(client *http.Client, baseURL, name string) {
	idx, err := buttonIndex(name)
	if err != nil {
		fmt.Println(err)
		return
	}
	resp, err := client.Post(fmt.Sprintf("%s/api/v1/cooker/buttons/%d", baseURL, idx), "application/json", nil)
	if err != nil {
		fmt.Println("press failed:", err)
		return
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("press rejected (%d): %s\n", resp.StatusCode, strings.TrimSpace(string(body)))
		return
	}
	fmt.Println("pressed", name)
}

func buttonIndex(s string) (int, error) {
	if idx, err := strconv.Atoi(s); err == nil {
		return idx, nil
	}
	if idx, ok := buttonNames[strings.ToLower(s)]; ok {
		return idx, nil
	}
	return 0, fmt.Errorf("unknown button %q", s)
}

func printState(client *http.Client, baseURL string) {
	resp, err := client.Get(baseURL + "/api/v1/cooker/state")
	if err != nil {
		fmt.Println("state failed:", err)
		return
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Println("state read failed:", err)
		return
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		fmt.Println(string(body))
		return
	}
	fmt.Println(pretty.String())
}

func printHelp() {
	fmt.Println(`commands:
  set <chamber 1-3> <temp C> <minutes>   send targets over the link
  press <0-4|select|mode|minus|plus|run> press a panel button
  state                                  fetch and pretty-print the snapshot
  watch                                  toggle the STATUS line stream
  help                                   this text
  quit                                   leave`)
}
