// Command client is an interactive terminal client for the hubcast server.
// It reads lines from stdin and sends each as a user message, while a
// background goroutine prints relayed messages and system notices.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/hubcast/hubcast/internal/server"
)

func main() {
	addr := flag.String("addr", "localhost:8765", "server address")
	name := flag.String("name", "", "sender name")
	flag.Parse()

	if *name == "" {
		fmt.Println("Usage: client -name <sender name> [-addr host:port]")
		os.Exit(1)
	}

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", u.String(), err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go readLoop(conn, done)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		select {
		case <-interrupt:
		case <-done:
		}
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	fmt.Printf("Connected to %s as %q. Type a message and press enter.\n", *addr, *name)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		payload, err := json.Marshal(server.Message{
			Type:    server.TypeMessage,
			Sender:  *name,
			Content: text,
		})
		if err != nil {
			log.Printf("Failed to encode message: %v", err)
			continue
		}

		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("Connection lost: %v", err)
			break
		}
	}
}

// readLoop prints every frame the server delivers until the connection
// closes.
func readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			fmt.Println("Disconnected from server")
			return
		}

		var msg server.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("Unreadable frame from server: %v", err)
			continue
		}

		switch msg.Type {
		case server.TypeSystem:
			fmt.Printf("[%s] * %s\n", msg.Timestamp, msg.Content)
		default:
			fmt.Printf("[%s] %s: %s\n", msg.Timestamp, msg.Sender, msg.Content)
		}
	}
}
