// scripts/api_smoke_check.go
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Runs upload, ask and health against a running `docqa serve`.
func main() {
	baseURL := flag.String("url", "http://localhost:8000", "docqa server URL")
	file := flag.String("file", "", "document to upload (skipped when empty)")
	question := flag.String("question", "What is this document about?", "question to ask")
	timeout := flag.Duration("timeout", 10*time.Minute, "HTTP timeout")
	flag.Parse()

	client := &http.Client{Timeout: *timeout}
	base := strings.TrimRight(*baseURL, "/")

	if err := checkHealth(client, base); err != nil {
		fmt.Fprintf(os.Stderr, "health check failed: %v\n", err)
		os.Exit(1)
	}
	if *file != "" {
		if err := upload(client, base, *file); err != nil {
			fmt.Fprintf(os.Stderr, "upload failed: %v\n", err)
			os.Exit(1)
		}
	}
	if err := ask(client, base, *question); err != nil {
		fmt.Fprintf(os.Stderr, "ask failed: %v\n", err)
		os.Exit(1)
	}
}

func checkHealth(client *http.Client, base string) error {
	fmt.Println("== GET /health ==")
	resp, err := client.Get(base + "/health")
	if err != nil {
		return err
	}
	return printResponse(resp)
}

func upload(client *http.Client, base, path string) error {
	fmt.Println("== POST /upload ==")
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	start := time.Now()
	resp, err := client.Post(base+"/upload", mw.FormDataContentType(), &body)
	if err != nil {
		return err
	}
	fmt.Printf("Elapsed: %s\n", time.Since(start).Round(time.Millisecond))
	return printResponse(resp)
}

func ask(client *http.Client, base, question string) error {
	fmt.Println("== POST /ask ==")
	payload, err := json.Marshal(map[string]string{"text": question})
	if err != nil {
		return err
	}
	start := time.Now()
	resp, err := client.Post(base+"/ask", "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	fmt.Printf("Elapsed: %s\n", time.Since(start).Round(time.Millisecond))
	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	fmt.Printf("Status: %s\n", resp.Status)
	fmt.Println(indentJSON(body))
	fmt.Println()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func indentJSON(body []byte) string {
	var out bytes.Buffer
	if err := json.Indent(&out, body, "", "  "); err != nil {
		return string(body)
	}
	return out.String()
}
