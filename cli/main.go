// Package main provides a terminal client for the librarian chat API.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/xiaot623/librarydesk/internal/domain"
)

// Client talks to a running librarydesk server.
type Client struct {
	baseURL    string
	sessionID  string
	httpClient *http.Client
}

// NewClient creates a client bound to one session.
func NewClient(baseURL, sessionID string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		sessionID:  sessionID,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// Chat sends one query and returns the decoded turn.
func (c *Client) Chat(query string) (*domain.ChatResponse, error) {
	body, err := json.Marshal(domain.ChatRequest{Query: query, SessionID: c.sessionID})
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Post(c.baseURL+"/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("post chat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		return nil, fmt.Errorf("chat failed (%d): %s", resp.StatusCode, apiErr.Error)
	}

	var out domain.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	return &out, nil
}

// History prints the replay of the current session.
func (c *Client) History() error {
	resp, err := c.httpClient.Get(c.baseURL + "/messages/" + url.PathEscape(c.sessionID))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var messages []domain.MessageView
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return fmt.Errorf("decode messages: %w", err)
	}
	for _, m := range messages {
		fmt.Printf("[%s] %s: %s\n", m.CreatedAt, m.Role, m.Content)
	}
	return nil
}

// Follow streams tool call events for the session until the connection drops.
func (c *Client) Follow() error {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws/" + url.PathEscape(c.sessionID)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	go func() {
		defer conn.Close()
		for {
			var event domain.SessionEvent
			if err := conn.ReadJSON(&event); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					log.Printf("Event stream closed: %v", err)
				}
				return
			}
			if event.Type != domain.EventTypeToolCall {
				continue
			}
			payload, _ := json.Marshal(event.Payload)
			fmt.Printf("\n  ~ tool call: %s\n> ", payload)
		}
	}()
	return nil
}

func printTurn(resp *domain.ChatResponse) {
	if resp.Tool != "" {
		fmt.Printf("  tool: %s %s\n", resp.Tool, string(resp.Args))
	}
	if resp.Chained {
		fmt.Println("  (follow-up action executed)")
	}
	if resp.ChainError != "" {
		fmt.Printf("  follow-up failed: %s\n", resp.ChainError)
	}
	fmt.Println(resp.Summary)
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "librarydesk server address")
	session := flag.String("session", "", "Session ID to continue (default: new session)")
	follow := flag.Bool("follow", false, "Stream tool call events over WebSocket")
	flag.Parse()

	log.SetFlags(log.Ltime)

	sessionID := *session
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	client := NewClient(*addr, sessionID)

	if *follow {
		if err := client.Follow(); err != nil {
			log.Printf("Live events unavailable: %v", err)
		}
	}

	fmt.Printf("Session: %s\n", sessionID)
	fmt.Println("Ask about books, orders or stock.")
	fmt.Println("Commands: /history to replay the session, /quit to exit")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		fmt.Println("\nInterrupted")
		os.Exit(0)
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/quit":
			fmt.Println("Bye!")
			return
		case "/history":
			if err := client.History(); err != nil {
				log.Printf("History error: %v", err)
			}
			continue
		}

		resp, err := client.Chat(input)
		if err != nil {
			log.Printf("Chat error: %v", err)
			continue
		}
		printTurn(resp)
	}
}
