package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/savaki/nutricoach-relay/pkg/handler"
)

func main() {
	secret := flag.String("secret", os.Getenv("SEED_CHANNEL_SECRET"), "Channel secret used to sign the body")
	destination := flag.String("destination", os.Getenv("SEED_TENANT_ID"), "Tenant ID placed in the destination field")
	userID := flag.String("user", "U0000000000test", "Sender user ID")
	text := flag.String("text", "hello", "Text message to send")
	bodyFile := flag.String("body", "", "File containing a raw webhook body (overrides -destination/-user/-text)")
	url := flag.String("url", "", "Webhook URL to POST to; prints the signed request when empty")
	flag.Parse()

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "Usage: sign -secret <channel-secret> [-destination <tenant-id>] [-text <message>] [-body <file>] [-url <webhook-url>]")
		os.Exit(1)
	}

	var body []byte
	var err error
	if *bodyFile != "" {
		body, err = os.ReadFile(*bodyFile)
	} else {
		body, err = sampleBody(*destination, *userID, *text, time.Now())
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build body: %v\n", err)
		os.Exit(1)
	}

	signature := handler.Sign(body, *secret)

	if *url == "" {
		fmt.Printf("%s: %s\n\n%s\n", handler.SignatureHeader, signature, body)
		return
	}

	status, respBody, err := post(*url, signature, body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%d %s\n", status, respBody)
}

// sampleBody builds a webhook payload carrying one text message
func sampleBody(destination, userID, text string, now time.Time) ([]byte, error) {
	id := ulid.Make().String()
	return json.Marshal(map[string]any{
		"destination": destination,
		"events": []map[string]any{{
			"type":           "message",
			"mode":           "active",
			"timestamp":      now.UnixMilli(),
			"webhookEventId": id,
			"replyToken":     "reply-" + id,
			"source":         map[string]string{"type": "user", "userId": userID},
			"message":        map[string]string{"type": "text", "id": id, "text": text},
		}},
	})
}

func post(url, signature string, body []byte) (int, string, error) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(handler.SignatureHeader, signature)

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, string(data), nil
}
