package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// audioFallbackSelector is requested instead of an mp3 transcode when no
// transcoder is present on the host.
const audioFallbackSelector = "bestaudio[ext=m4a]/bestaudio/best"

var progressRe = regexp.MustCompile(`\[download\]\s+(\d+(?:\.\d+)?)%`)

// YtDlp shells out to the yt-dlp binary.
type YtDlp struct {
	binPath   string
	hasFFmpeg bool
}

func NewYtDlp(binPath string) *YtDlp {
	_, err := exec.LookPath("ffmpeg")
	if err != nil {
		log.Printf("[engine] ffmpeg not found, audio transcoding disabled")
	}
	return &YtDlp{binPath: binPath, hasFFmpeg: err == nil}
}

// HasFFmpeg reports whether a transcoding capability is present.
func (y *YtDlp) HasFFmpeg() bool {
	return y.hasFFmpeg
}

type probeResult struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Uploader   string  `json:"uploader"`
	Duration   float64 `json:"duration"`
	WebpageURL string  `json:"webpage_url"`
	Entries    []struct {
		ID       string  `json:"id"`
		Title    string  `json:"title"`
		Uploader string  `json:"uploader"`
		Duration float64 `json:"duration"`
		URL      string  `json:"url"`
	} `json:"entries"`
}

func (y *YtDlp) Probe(ctx context.Context, url string) (*Metadata, error) {
	args := []string{
		"--dump-single-json",
		"--skip-download",
		"--no-playlist",
		"--no-warnings",
		"--socket-timeout", "60",
		"--force-ipv4",
		"--user-agent", browserUA,
		url,
	}

	cmd := exec.CommandContext(ctx, y.binPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, classify(stderr.String(), err)
	}

	var res probeResult
	if err := json.Unmarshal(stdout.Bytes(), &res); err != nil {
		return nil, fmt.Errorf("parse probe output: %w", err)
	}
	if res.Title == "" && res.ID == "" {
		return nil, fmt.Errorf("probe returned no metadata for %s", url)
	}

	return &Metadata{
		ID:       res.ID,
		Title:    res.Title,
		Uploader: res.Uploader,
		Duration: int(res.Duration),
		URL:      res.WebpageURL,
	}, nil
}

func (y *YtDlp) Fetch(ctx context.Context, url string, format Format, outputTemplate string, progress func(Progress)) error {
	selector := format.Selector
	args := []string{
		"--no-playlist",
		"--no-check-certificates",
		"--socket-timeout", "60",
		"--retries", "20",
		"--fragment-retries", "20",
		"--force-ipv4",
		"--user-agent", browserUA,
		"--newline",
	}

	if format.ExtractMP3 {
		if y.hasFFmpeg {
			args = append(args,
				"--extract-audio",
				"--audio-format", "mp3",
				"--audio-quality", "192",
				"--embed-metadata",
			)
		} else {
			selector = audioFallbackSelector
		}
	}

	args = append(args, "-f", selector, "-o", outputTemplate, url)

	cmd := exec.CommandContext(ctx, y.binPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("engine stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text()
		if progress == nil {
			continue
		}
		if m := progressRe.FindStringSubmatch(line); m != nil {
			if pct, err := strconv.ParseFloat(m[1], 64); err == nil {
				progress(Progress{Percent: pct})
			}
		}
	}

	if err := cmd.Wait(); err != nil {
		return classify(stderr.String(), err)
	}
	return nil
}

func (y *YtDlp) Search(ctx context.Context, query string, limit int) ([]Metadata, error) {
	args := []string{
		"--dump-single-json",
		"--flat-playlist",
		"--skip-download",
		"--no-warnings",
		"--socket-timeout", "15",
		fmt.Sprintf("ytsearch%d:%s", limit, query),
	}

	cmd := exec.CommandContext(ctx, y.binPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, classify(stderr.String(), err)
	}

	var res probeResult
	if err := json.Unmarshal(stdout.Bytes(), &res); err != nil {
		return nil, fmt.Errorf("parse search output: %w", err)
	}
	if len(res.Entries) == 0 {
		return nil, ErrNoResults
	}

	results := make([]Metadata, 0, len(res.Entries))
	for _, e := range res.Entries {
		url := e.URL
		if url == "" && e.ID != "" {
			url = "https://www.youtube.com/watch?v=" + e.ID
		}
		if url == "" {
			continue
		}
		results = append(results, Metadata{
			ID:       e.ID,
			Title:    e.Title,
			Uploader: e.Uploader,
			Duration: int(e.Duration),
			URL:      url,
		})
	}
	if len(results) == 0 {
		return nil, ErrNoResults
	}
	return results, nil
}

// classify maps engine output onto the error taxonomy. Anything not
// recognized stays a generic (retryable) error.
func classify(output string, err error) error {
	switch {
	case strings.Contains(output, "Video unavailable"),
		strings.Contains(output, "Private video"),
		strings.Contains(output, "This video is not available"),
		strings.Contains(output, "account associated with this video has been terminated"):
		return fmt.Errorf("%w: %s", ErrUnavailable, firstLine(output))
	case strings.Contains(output, "HTTP Error 403"),
		strings.Contains(output, "Forbidden"):
		return fmt.Errorf("%w: %s", ErrBlocked, firstLine(output))
	default:
		if detail := firstLine(output); detail != "" {
			return fmt.Errorf("engine: %s: %w", detail, err)
		}
		return fmt.Errorf("engine: %w", err)
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	if len(s) > 150 {
		s = s[:150]
	}
	return s
}
