// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the built-in test page.
package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// WebSocketHandler handles WebSocket upgrade requests. It validates that the
// request uses the GET method, upgrades the HTTP connection, and hands the
// new client to the hub, which registers it and starts its pumps.
func WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(conn, hub, r.RemoteAddr)
	hub.GetRegisterChan() <- client
}

// HealthHandler provides a simple health check endpoint that returns server
// status as plain text.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "hubcast server is running!")
}

// TestPageHandler serves a minimal HTML page for exercising the broadcast
// protocol from a browser: it connects to /ws, sends user-message frames,
// and renders relayed messages and system notices.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	html := `<!DOCTYPE html>
<html>
<head>
    <title>hubcast test page</title>
    <style>
        body { font-family: sans-serif; margin: 20px; }
        #log { border: 1px solid #ccc; height: 300px; padding: 10px; overflow-y: scroll; margin: 10px 0; }
        .system { color: gray; font-style: italic; }
    </style>
</head>
<body>
    <h1>hubcast</h1>
    <div id="log"></div>
    <input type="text" id="name" placeholder="Name" size="10">
    <input type="text" id="text" placeholder="Message" size="40">
    <button onclick="send()">Send</button>
    <script>
        const log = document.getElementById('log');
        const ws = new WebSocket('ws://' + location.host + '/ws');
        function line(text, cls) {
            const div = document.createElement('div');
            if (cls) div.className = cls;
            div.textContent = text;
            log.appendChild(div);
            log.scrollTop = log.scrollHeight;
        }
        ws.onmessage = function(ev) {
            const msg = JSON.parse(ev.data);
            if (msg.type === 'system') {
                line('[' + msg.timestamp + '] ' + msg.message, 'system');
            } else {
                line('[' + msg.timestamp + '] ' + msg.sender + ': ' + msg.message);
            }
        };
        ws.onclose = function() { line('connection closed', 'system'); };
        function send() {
            const text = document.getElementById('text');
            const name = document.getElementById('name').value || 'anonymous';
            if (text.value && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({type: 'message', sender: name, message: text.value}));
                line(name + ' (you): ' + text.value);
                text.value = '';
            }
        }
        document.getElementById('text').addEventListener('keypress', function(e) {
            if (e.key === 'Enter') send();
        });
    </script>
</body>
</html>`
	if _, err := fmt.Fprint(w, html); err != nil {
		log.Printf("Error writing HTML response: %v", err)
	}
}
