package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// upload multipart-posts one file to the manager and returns the job ID.
func upload(serverURL, endpoint, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("cannot open file: %w", err)
	}
	defer file.Close()

	name := filepath.Base(path)
	if name == "" || name == "." {
		name = uuid.New().String()
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		part, err := writer.CreateFormFile("file", name)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(writer.Close())
	}()

	resp, err := http.Post(serverURL+endpoint, writer.FormDataContentType(), pr)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("cannot read response: %w", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("server rejected upload (%s): %s", resp.Status, body)
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("cannot parse response: %w", err)
	}
	jobID, ok := parsed["job_id"].(string)
	if !ok {
		return "", fmt.Errorf("response missing job_id: %s", body)
	}
	if ratio, ok := parsed["estimated_ratio"].(float64); ok {
		fmt.Printf("Estimated compression ratio: %.2f\n", ratio)
	}
	return jobID, nil
}

func main() {
	decompFlagPtr := flag.Bool("decompress", false, "upload a compressed container for decompression")
	flag.Parse()

	restArgs := flag.Args()
	if len(restArgs) != 1 {
		fmt.Println("Usage: client [-decompress] <file>")
		os.Exit(1)
	}

	serverURL := os.Getenv("MANAGER_ADDR")
	if serverURL == "" {
		serverURL = "http://127.0.0.1:8081"
	}

	endpoint := "/compress"
	if *decompFlagPtr {
		endpoint = "/decompress"
	}

	jobID, err := upload(serverURL, endpoint, restArgs[0])
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	fmt.Println("Accepted job:", jobID)
}
