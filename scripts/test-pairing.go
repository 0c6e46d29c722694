// test-pairing.go prints the raw SSAP pairing exchange with a TV.
//
// Usage:
//   1. Start a TV, or the emulator:   go run ./cmd/faketv
//   2. Run this script:               go run ./scripts/test-pairing.go -addr 127.0.0.1
//
// Flags:
//   -addr     TV address                          (default "127.0.0.1")
//   -port     TV port, 0 picks 3000 or 3001       (default 0)
//   -secure   use wss                              (default false)
//   -key      client key to present               (default "" = fresh pairing)
//   -wait     how long to wait for the prompt     (default 60s)
//
// What it does:
//   1. Connects to the TV via WebSocket
//   2. Sends the register frame
//   3. Prints every frame the TV sends back until "registered" or an error
//   4. Sends one getVolume request with the issued key

package main

import (
	"crypto/tls"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dstrants/tvremote/internal/pairing"
	"github.com/dstrants/tvremote/internal/protocol"
)

func main() {
	addr := flag.String("addr", "127.0.0.1", "TV address")
	port := flag.Int("port", 0, "TV port (0 picks 3000, or 3001 with -secure)")
	secure := flag.Bool("secure", false, "Use wss")
	key := flag.String("key", "", "Client key to present")
	wait := flag.Duration("wait", 60*time.Second, "How long to wait for the prompt")
	flag.Parse()

	scheme := "ws"
	if *port == 0 {
		*port = 3000
		if *secure {
			*port = 3001
		}
	}
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	if *secure {
		scheme = "wss"
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	url := fmt.Sprintf("%s://%s/", scheme, net.JoinHostPort(*addr, strconv.Itoa(*port)))

	fmt.Printf("🔌 Connecting to %s\n", url)
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		log.Fatalf("❌ dial: %v", err)
	}
	defer conn.Close()

	// ── Register ─────────────────────────────────────────────────────────

	frame, err := protocol.MarshalRegister("register_0", protocol.NewRegisterPayload(*key))
	if err != nil {
		log.Fatalf("❌ marshal register: %v", err)
	}
	fmt.Println("→ register")
	if *key == "" {
		fmt.Println("   ℹ️  No key presented, the TV should show a prompt")
	} else {
		fmt.Printf("   🎫 Key: %s\n", pairing.RedactToken(*key))
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		log.Fatalf("❌ send register: %v", err)
	}

	issued := ""
	deadline := time.Now().Add(*wait)
	for issued == "" {
		conn.SetReadDeadline(deadline)
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Fatalf("❌ read: %v", err)
		}
		printFrame(data)

		parsed, err := protocol.ParseFrame(data)
		if err != nil {
			continue
		}
		switch f := parsed.(type) {
		case *protocol.ResponseFrame:
			if f.Type == protocol.FrameTypeRegistered {
				var p protocol.RegisteredPayload
				json.Unmarshal(f.Payload, &p)
				issued = p.ClientKey
				if issued == "" {
					issued = *key
				}
				fmt.Printf("   ✅ Registered, key: %s\n", pairing.RedactToken(issued))
			} else if protocol.IsPromptAck(f.Payload) {
				fmt.Println("   📺 Prompt shown on the TV, accept it there")
			}
		case *protocol.ErrorFrame:
			fmt.Printf("   ❌ Rejected: %s\n", f.Error)
			return
		}
	}

	// ── One command ──────────────────────────────────────────────────────

	req, _ := protocol.MarshalRequest("volume_0", "ssap://audio/getVolume", nil)
	fmt.Println("→ request ssap://audio/getVolume")
	if err := conn.WriteMessage(websocket.TextMessage, req); err != nil {
		log.Fatalf("❌ send request: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		log.Fatalf("❌ read: %v", err)
	}
	printFrame(data)

	fmt.Println()
	fmt.Println("📁 Store the key with: tvremote configure " + *addr)
}

func printFrame(data []byte) {
	var pretty map[string]any
	if err := json.Unmarshal(data, &pretty); err != nil {
		fmt.Printf("← %s\n", data)
		return
	}
	out, _ := json.MarshalIndent(pretty, "   ", "  ")
	fmt.Printf("← %s\n   %s\n", pretty["type"], out)
}
