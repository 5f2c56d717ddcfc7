// renderctl is a small operator CLI for the render daemon: submit a render
// request from a JSON file, read or follow a job's status, and inspect
// queue depth.
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
)

func main() {
	addr := flag.String("addr", envOr("RENDERD_URL", "http://localhost:8080"), "renderd base URL")
	apiKey := flag.String("api-key", os.Getenv("BACKEND_API_KEY"), "API key for the status API")
	watch := flag.Bool("watch", false, "with status: poll until the job is terminal")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}

	c := &client{base: *addr, apiKey: *apiKey, http: &http.Client{Timeout: 30 * time.Second}}

	var err error
	switch args[0] {
	case "submit":
		if len(args) != 2 {
			usage()
			os.Exit(2)
		}
		err = c.submit(args[1])
	case "status":
		if len(args) != 2 {
			usage()
			os.Exit(2)
		}
		err = c.status(args[1], *watch)
	case "health":
		err = c.health()
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "renderctl: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  renderctl [flags] submit <request.json>   submit a render request
  renderctl [flags] status <job-id>         read a job's status (-watch to follow)
  renderctl [flags] health                  daemon health and queue depth

flags:
  -addr     renderd base URL (default $RENDERD_URL or http://localhost:8080)
  -api-key  API key (default $BACKEND_API_KEY)
  -watch    with status: poll until the job is terminal`)
}

type client struct {
	base   string
	apiKey string
	http   *http.Client
}

func (c *client) do(method, path string, body []byte) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return nil, 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	return data, resp.StatusCode, err
}

func (c *client) submit(requestFile string) error {
	payload, err := os.ReadFile(requestFile)
	if err != nil {
		return fmt.Errorf("failed to read request file: %w", err)
	}
	if !json.Valid(payload) {
		return fmt.Errorf("%s is not valid JSON", requestFile)
	}

	data, status, err := c.do("POST", "/v1/jobs", payload)
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return fmt.Errorf("submission rejected (%d): %s", status, data)
	}
	fmt.Println(string(data))
	return nil
}

func (c *client) status(jobID string, watch bool) error {
	for {
		data, status, err := c.do("GET", "/v1/jobs/"+jobID, nil)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			return fmt.Errorf("status read failed (%d): %s", status, data)
		}

		var job struct {
			Status      string `json:"status"`
			ProgressPct int    `json:"progressPct"`
		}
		if err := json.Unmarshal(data, &job); err != nil {
			return fmt.Errorf("failed to parse status: %w", err)
		}

		if !watch {
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("%s  %s %3d%%\n", time.Now().Format("15:04:05"), job.Status, job.ProgressPct)
		if job.Status == "DONE" || job.Status == "FAILED" {
			fmt.Println(string(data))
			return nil
		}
		time.Sleep(2 * time.Second)
	}
}

func (c *client) health() error {
	data, status, err := c.do("GET", "/health", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("health check failed (%d): %s", status, data)
	}
	fmt.Println(string(data))
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
