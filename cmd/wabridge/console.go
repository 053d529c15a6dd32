package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/vkick/wabridge/pkg/config"
)

// consoleCommand opens an interactive prompt against a running bridge.
// It talks to the same HTTP API external clients use, so it needs the
// serve process up and reachable.
func consoleCommand() {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		fmt.Printf("❌ Error loading config: %v\n", err)
		os.Exit(1)
	}

	host := cfg.Gateway.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	client := &consoleClient{
		baseURL: fmt.Sprintf("http://%s:%d", host, cfg.Gateway.Port),
		token:   cfg.Gateway.Token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}

	fmt.Printf("WaBridge console, talking to %s\n", client.baseURL)
	fmt.Println("Type 'help' for commands, 'quit' to leave.")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "wabridge> ",
		HistoryFile: filepath.Join(os.TempDir(), "wabridge_console_history"),
	})
	if err != nil {
		fmt.Printf("❌ Error starting console: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				return
			}
			continue
		}
		if err == io.EOF {
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "quit", "exit":
			return
		case "help":
			printConsoleHelp()
		case "status":
			client.show("GET", "/api/status", nil)
		case "qr":
			client.showQR()
		case "send":
			if len(fields) < 3 {
				fmt.Println("usage: send <recipient> <message>")
				continue
			}
			client.send(fields[1], strings.Join(fields[2:], " "))
		case "incoming":
			since := "0"
			if len(fields) > 1 {
				since = fields[1]
			}
			client.show("GET", "/api/incoming?since="+since, nil)
		case "contacts":
			client.show("GET", "/api/contacts", nil)
		case "cron":
			client.show("GET", "/api/cron", nil)
		default:
			fmt.Printf("Unknown command: %s\n", fields[0])
		}
	}
}

func printConsoleHelp() {
	fmt.Println("Commands:")
	fmt.Println("  status              Connection state of the bridge")
	fmt.Println("  qr                  Pairing code availability")
	fmt.Println("  send <to> <msg>     Send a text message")
	fmt.Println("  incoming [since]    Buffered inbound messages, newest last")
	fmt.Println("  contacts            Known contacts")
	fmt.Println("  cron                Scheduled jobs")
	fmt.Println("  quit                Leave the console")
}

type consoleClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func (c *consoleClient) request(method, path string, body io.Reader) ([]byte, int, error) {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return data, resp.StatusCode, nil
}

func (c *consoleClient) show(method, path string, body io.Reader) {
	data, status, err := c.request(method, path, body)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	if status >= 400 {
		fmt.Printf("❌ HTTP %d: %s\n", status, strings.TrimSpace(string(data)))
		return
	}
	fmt.Println(prettyJSON(data))
}

func (c *consoleClient) send(recipient, message string) {
	payload, err := json.Marshal(map[string]string{
		"recipient": recipient,
		"message":   message,
	})
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	c.show("POST", "/api/send", bytes.NewReader(payload))
}

// showQR reports pairing state without dumping the image data URI,
// which is useless in a terminal. The serve process renders the
// scannable code itself when show_terminal_qr is on.
func (c *consoleClient) showQR() {
	data, status, err := c.request("GET", "/api/qr", nil)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	if status >= 400 {
		fmt.Printf("❌ HTTP %d: %s\n", status, strings.TrimSpace(string(data)))
		return
	}

	var body struct {
		QR      string `json:"qr"`
		Message string `json:"message"`
		Status  string `json:"status"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	if body.QR != "" {
		fmt.Println("Pairing QR is ready. Open /api/qr in a browser, or scan the code printed by the serve process.")
		return
	}
	fmt.Printf("%s (status: %s)\n", body.Message, body.Status)
}

func prettyJSON(data []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data)
	}
	return buf.String()
}
