package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"filmdex/pkg/models"
)

const defaultBaseURL = "http://localhost:8080"

type tokenData struct {
	Token string `json:"token"`
}

type worksListResponse struct {
	Total  int                `json:"total"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
	Items  []models.WorkGroup `json:"items"`
}

func main() {
	global := flag.NewFlagSet("filmdex", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	tokenPath := global.String("token", defaultTokenPath(), "token file path")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	client := &http.Client{Timeout: 15 * time.Second}

	switch args[0] {
	case "login":
		handleLogin(ctx, client, *baseURL, *tokenPath, args[1:])
	case "works":
		handleWorks(ctx, client, *baseURL, args[1:])
	case "ingest":
		handleIngest(ctx, client, *baseURL, *tokenPath, args[1:])
	case "retitle":
		postAdmin(ctx, client, *baseURL, *tokenPath, "/admin/retitle")
	case "reconcile":
		postAdmin(ctx, client, *baseURL, *tokenPath, "/admin/reconcile")
	case "watch":
		handleWatch(*baseURL)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`usage: filmdex [-api URL] [-token PATH] <command>

commands:
  login <email> <password>   authenticate and store a token
  works list [query]         list work groups
  works show <id>            show one group with its copies
  ingest <file.json>         push a JSON array of videos
  retitle                    run batch title repair
  reconcile                  merge duplicate groups
  watch                      stream live catalog events`)
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".filmdex", "token.json")
}

func loadToken(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var td tokenData
	if err := json.Unmarshal(b, &td); err != nil {
		return ""
	}
	return td.Token
}

func saveToken(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, _ := json.Marshal(tokenData{Token: token})
	return os.WriteFile(path, b, 0o600)
}

func handleLogin(ctx context.Context, client *http.Client, baseURL, tokenPath string, args []string) {
	if len(args) != 2 {
		log.Fatal("usage: filmdex login <email> <password>")
	}

	body, _ := json.Marshal(map[string]string{"email": args[0], "password": args[1]})
	resp, err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/login", "", body)
	if err != nil {
		log.Fatalf("login: %v", err)
	}

	var td tokenData
	if err := json.Unmarshal(resp, &td); err != nil || td.Token == "" {
		log.Fatalf("login: unexpected response: %s", resp)
	}
	if err := saveToken(tokenPath, td.Token); err != nil {
		log.Fatalf("save token: %v", err)
	}
	fmt.Println("logged in")
}

func handleWorks(ctx context.Context, client *http.Client, baseURL string, args []string) {
	if len(args) == 0 {
		log.Fatal("usage: filmdex works <list|show> ...")
	}

	switch args[0] {
	case "list":
		u := baseURL + "/works"
		if len(args) > 1 {
			u += "?q=" + url.QueryEscape(strings.Join(args[1:], " "))
		}
		resp, err := doJSON(ctx, client, http.MethodGet, u, "", nil)
		if err != nil {
			log.Fatalf("works list: %v", err)
		}
		var list worksListResponse
		if err := json.Unmarshal(resp, &list); err != nil {
			log.Fatalf("decode: %v", err)
		}
		fmt.Printf("%d work groups\n", list.Total)
		for _, g := range list.Items {
			year := ""
			if g.ReleaseYear != 0 {
				year = fmt.Sprintf(" (%d)", g.ReleaseYear)
			}
			fmt.Printf("  %s  %s%s\n", g.ID, g.CanonicalTitle, year)
		}
	case "show":
		if len(args) != 2 {
			log.Fatal("usage: filmdex works show <id>")
		}
		resp, err := doJSON(ctx, client, http.MethodGet, baseURL+"/works/"+url.PathEscape(args[1]), "", nil)
		if err != nil {
			log.Fatalf("works show: %v", err)
		}
		printIndented(resp)
	default:
		log.Fatal("usage: filmdex works <list|show> ...")
	}
}

func handleIngest(ctx context.Context, client *http.Client, baseURL, tokenPath string, args []string) {
	if len(args) != 1 {
		log.Fatal("usage: filmdex ingest <file.json>")
	}
	token := loadToken(tokenPath)
	if token == "" {
		log.Fatal("not logged in (run: filmdex login)")
	}

	b, err := os.ReadFile(args[0])
	if err != nil {
		log.Fatalf("read %s: %v", args[0], err)
	}
	var videos []json.RawMessage
	if err := json.Unmarshal(b, &videos); err != nil {
		log.Fatalf("%s must hold a JSON array of videos: %v", args[0], err)
	}

	ok, failed := 0, 0
	for _, v := range videos {
		if _, err := doJSON(ctx, client, http.MethodPost, baseURL+"/ingest", token, v); err != nil {
			log.Printf("ingest failed: %v", err)
			failed++
			continue
		}
		ok++
	}
	fmt.Printf("ingested %d videos (%d failed)\n", ok, failed)
}

func postAdmin(ctx context.Context, client *http.Client, baseURL, tokenPath, path string) {
	token := loadToken(tokenPath)
	if token == "" {
		log.Fatal("not logged in (run: filmdex login)")
	}

	resp, err := doJSON(ctx, client, http.MethodPost, baseURL+path, token, nil)
	if err != nil {
		log.Fatalf("%s: %v", path, err)
	}
	printIndented(resp)
}

func handleWatch(baseURL string) {
	u, err := url.Parse(baseURL)
	if err != nil {
		log.Fatalf("parse api url: %v", err)
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	wsURL := scheme + "://" + u.Host + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("connect %s: %v", wsURL, err)
	}
	defer conn.Close()

	log.Printf("watching %s (ctrl-c to stop)", wsURL)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			log.Fatalf("feed closed: %v", err)
		}
		fmt.Print(string(msg))
	}
}

func doJSON(ctx context.Context, client *http.Client, method, u, token string, body []byte) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	return b, nil
}

func printIndented(raw []byte) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
		return
	}
	fmt.Println(buf.String())
}
