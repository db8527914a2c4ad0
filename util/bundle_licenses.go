//go:build ignore

// Bundles the licenses of every dependency into
// internal/licenses/THIRD_PARTY_LICENSES. Requires go-licenses on PATH.
package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	OUTPUT_FILE_PATH = "internal/licenses/THIRD_PARTY_LICENSES"
	REQUEST_TIMEOUT  = 15 * time.Second
)

type LicenseEntry struct {
	Module string
	URL    string
	Type   string
	Text   string
}

var httpClient = http.Client{Timeout: REQUEST_TIMEOUT}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	logger.Info("Bundling third-party licenses")

	out, err := exec.Command("go-licenses", "csv", "./...").Output()
	if err != nil {
		logger.Error("Failed to run go-licenses csv", "error", err)
		os.Exit(1)
	}

	var entries []LicenseEntry
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		parts := strings.Split(scanner.Text(), ",")
		if len(parts) < 3 {
			continue
		}
		module, url, licenseType := parts[0], parts[1], parts[2]

		// Our own module carries its license in internal/licenses/LICENSE.
		if strings.HasPrefix(module, "github.com/monorkin/stone-hub") {
			continue
		}

		text, err := downloadText(url)
		if err != nil {
			logger.Warn("Failed to download license", "module", module, "error", err)
			continue
		}

		logger.Info("Downloaded license text", "module", module, "license", licenseType)
		entries = append(entries, LicenseEntry{
			Module: module,
			URL:    url,
			Type:   licenseType,
			Text:   sanitizeText(text),
		})
	}

	if err := writeCombinedLicense(entries); err != nil {
		logger.Error("Failed to write license bundle", "error", err)
		os.Exit(1)
	}

	logger.Info("License bundle written", "path", OUTPUT_FILE_PATH, "libraries", len(entries))
}

func downloadText(url string) (string, error) {
	url = sanitizeURL(url)

	resp, err := httpClient.Get(url)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download %s: %s", url, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	return string(body), err
}

// sanitizeURL points source browser links at the raw file.
func sanitizeURL(url string) string {
	if strings.HasPrefix(url, "https://github.com/") {
		url = strings.Replace(url, "https://github.com/", "https://raw.githubusercontent.com/", 1)
		url = strings.Replace(url, "/blob/", "/", 1)
	} else if strings.HasPrefix(url, "https://cs.opensource.google/go/x/") {
		url = strings.Replace(url, "https://cs.opensource.google/go/x/", "raw.githubusercontent.com/golang/", 1)
		url = strings.Replace(url, "/+/", "/", 1)
		url = strings.Replace(url, ":", "/", 1)
		url = "https://" + url
	}

	return url
}

func writeCombinedLicense(entries []LicenseEntry) error {
	out, err := os.Create(OUTPUT_FILE_PATH)
	if err != nil {
		return err
	}
	defer out.Close()

	fmt.Fprintln(out, "THIRD PARTY LICENSES")
	fmt.Fprintf(out, "Generated on: %s\n", time.Now().UTC().Format(time.RFC3339))

	for _, e := range entries {
		lines := []string{
			fmt.Sprintf("LIBRARY: %s", e.Module),
			fmt.Sprintf("LICENSE: %s", e.Type),
			fmt.Sprintf("URL: %s", e.URL),
		}

		widest := 0
		for _, line := range lines {
			widest = max(widest, len(line))
		}

		border := "+-" + strings.Repeat("-", widest) + "-+"
		fmt.Fprintln(out, "")
		fmt.Fprintln(out, border)
		for _, line := range lines {
			fmt.Fprintf(out, "| %-*s |\n", widest, line)
		}
		fmt.Fprintln(out, border)
		fmt.Fprintln(out, "")
		fmt.Fprintln(out, e.Text)
	}

	return nil
}

// sanitizeText reduces an HTML license page to its visible text.
func sanitizeText(text string) string {
	if !strings.Contains(text, "<html") {
		return strings.TrimSpace(text)
	}

	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return strings.TrimSpace(text)
	}

	var b strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "head") {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(doc)

	return strings.TrimSpace(b.String())
}
