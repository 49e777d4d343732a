// Package main runs a demo WebSocket client that posts an asynchronous
// dispatch and prints the solver's progress.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// a morning up-peak: three cars at the lobby, tenants heading up
const demo = `{
 "floors": 20,
 "timing": {"stopTime": 2, "loadTime": 0.5, "driveTime": 1.5, "startupTime": 1, "capacityPenalty": 20},
 "elevators": [
  {"id": 1, "capacity": 8, "floor": 0},
  {"id": 2, "capacity": 8, "floor": 0},
  {"id": 3, "capacity": 8, "floor": 12}
 ],
 "requests": [
  {"id": 1, "start": 0, "dest": 7, "passengers": 3},
  {"id": 2, "start": 0, "dest": 15, "passengers": 2},
  {"id": 3, "start": 0, "dest": 11, "release": 2},
  {"id": 4, "start": 9, "dest": 0, "release": 1},
  {"id": 5, "start": 14, "dest": 3, "release": 4},
  {"id": 6, "start": 0, "dest": 18, "release": 5}
 ]
}`

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	req, _ := http.NewRequest(http.MethodPost, base+"/v1/dispatch?async=true", bytes.NewReader([]byte(demo)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", "t_demo")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var accepted struct {
		RunID string `json:"runId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		log.Fatal(err)
	}
	if accepted.RunID == "" {
		log.Fatalf("dispatch not accepted: %s", resp.Status)
	}
	log.WithField("run", accepted.RunID).Info("dispatch accepted")

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/runs/" + accepted.RunID + "/ws"}
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", "t_demo")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
			if m.Type == "complete" {
				return
			}
		}
	}()

	select {
	case <-time.After(30 * time.Second):
	case <-done:
	}

	// print the stored result
	get, _ := http.NewRequest(http.MethodGet, base+"/v1/runs/"+accepted.RunID, nil)
	get.Header.Set("X-Tenant-Id", "t_demo")
	res, err := http.DefaultClient.Do(get)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = res.Body.Close() }()
	var run struct {
		Status   string          `json:"status"`
		Response json.RawMessage `json:"response"`
	}
	_ = json.NewDecoder(res.Body).Decode(&run)
	log.WithField("status", run.Status).Infof("result: %s", string(run.Response))
}
