package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
)

type LoginResponse struct {
	Token string `json:"token"`
}

type client struct {
	addr  string
	token string
}

func (c *client) do(method, path string, body any) []byte {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			log.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, c.addr+path, &buf)
	if err != nil {
		log.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	out, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		log.Fatalf("%s %s: %s %s", method, path, resp.Status, out)
	}
	log.Printf("%s %s -> %s", method, path, resp.Status)
	return out
}

func login(addr, userID string) *client {
	c := &client{addr: addr}
	var lr LoginResponse
	if err := json.Unmarshal(c.do(http.MethodPost, "/login", map[string]string{"user_id": userID}), &lr); err != nil {
		log.Fatal(err)
	}
	c.token = lr.Token
	return c
}

func main() {
	apiAddr := flag.String("api", "http://localhost:8081", "api service address")
	flag.Parse()

	doctor := login(*apiAddr, "doctor_lee")
	patient := login(*apiAddr, "patient_kim")

	// 1. Patient registers a device token so the doctor's messages notify them.
	patient.do(http.MethodPut, "/tokens", map[string]string{"token": "verify-api-device-token"})

	// 2. Doctor opens a room and writes to the patient.
	room := struct {
		ID string `json:"id"`
	}{}
	if err := json.Unmarshal(doctor.do(http.MethodPost, "/rooms", map[string]string{
		"doctorId":    "doctor_lee",
		"patientId":   "patient_kim",
		"doctorName":  "Dr. Lee",
		"patientName": "Kim",
	}), &room); err != nil {
		log.Fatal(err)
	}
	doctor.do(http.MethodPost, "/rooms/"+room.ID+"/messages", map[string]string{
		"receiverId": "patient_kim",
		"type":       "audio",
	})

	// 3. Toggle the doctor's presence twice; the second write is an update.
	doctor.do(http.MethodPut, "/status", map[string]bool{"isOnline": true})
	doctor.do(http.MethodPut, "/status", map[string]bool{"isOnline": false})

	fmt.Printf("History: %s\n", patient.do(http.MethodGet, "/rooms/"+room.ID+"/messages", nil))
	fmt.Printf("Rooms: %s\n", patient.do(http.MethodGet, "/rooms", nil))
}
