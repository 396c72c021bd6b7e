// agentsim simulates one delivery agent walking a route and one customer
// watching the order's tracking stream. Useful for exercising the relay
// against a running stack.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var (
	server     = flag.String("server", "localhost:8080", "API host:port")
	orderID    = flag.String("order", "test_order", "order to track")
	agentToken = flag.String("agent-token", "", "JWT for the delivery agent")
	watchToken = flag.String("watch-token", "", "JWT for the watching customer")
	interval   = flag.Duration("interval", 3*time.Second, "publish interval")
)

func main() {
	flag.Parse()

	go simulateAgent()
	trackOrder()
}

func simulateAgent() {
	url := fmt.Sprintf("ws://%s/ws/delivery?token=%s", *server, *agentToken)
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		fmt.Printf("Agent connection failed: %v\n", err)
		return
	}
	defer c.Close()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	lat, lon := 52.5200, 13.4050
	for range ticker.C {
		update := map[string]interface{}{
			"order_id":  *orderID,
			"latitude":  lat,
			"longitude": lon,
		}
		lat += 0.001
		lon += 0.001

		if err := c.WriteJSON(update); err != nil {
			fmt.Printf("Failed to send location: %v\n", err)
			return
		}

		var ack map[string]interface{}
		if err := c.ReadJSON(&ack); err != nil {
			fmt.Printf("Failed to read ack: %v\n", err)
			return
		}
		fmt.Printf("Published location %f, %f: %v\n", lat, lon, ack)
	}
}

func trackOrder() {
	url := fmt.Sprintf("http://%s/api/v1/delivery/%s/location", *server, *orderID)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		fmt.Printf("Failed to build tracking request: %v\n", err)
		return
	}
	req.Header.Set("Authorization", "Bearer "+*watchToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Tracking connection failed: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Tracking rejected: %s\n", resp.Status)
		return
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			fmt.Println(line)
		}
	}
	fmt.Printf("Stream ended: %v\n", scanner.Err())
}
