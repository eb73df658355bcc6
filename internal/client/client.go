// Package client talks to the run tracker HTTP gateway and renders its replies
// for a terminal.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"example.com/runtracker/internal/api"
)

// Client is a thin JSON client for the gateway.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New constructs a Client for baseURL, e.g. http://127.0.0.1:8080.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts one chat message and returns the replies in order.
func (c *Client) Send(ctx context.Context, conversationID, senderName, text string) ([]api.ReplyView, error) {
	body, err := json.Marshal(api.MessageRequest{Text: text, SenderName: senderName})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	path := "/v1/conversations/" + url.PathEscape(conversationID) + "/messages"
	var resp api.MessageResponse
	if err := c.do(ctx, http.MethodPost, path, bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}
	return resp.Replies, nil
}

// Runs returns the run history in entry order.
func (c *Client) Runs(ctx context.Context) ([]api.RunView, error) {
	var resp api.ListRunsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/runs", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// Stats returns the full statistics summary.
func (c *Client) Stats(ctx context.Context) (api.StatsResponse, error) {
	var resp api.StatsResponse
	err := c.do(ctx, http.MethodGet, "/v1/stats", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var problem struct {
			Type   string `json:"type"`
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&problem); err != nil || problem.Detail == "" {
			return fmt.Errorf("%s %s: status %s", method, path, resp.Status)
		}
		return fmt.Errorf("%s %s: %s: %s", method, path, problem.Type, problem.Detail)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// RenderReplies prints replies to w. Documents are written into downloadDir and
// their paths are returned.
func RenderReplies(w io.Writer, replies []api.ReplyView, downloadDir string) ([]string, error) {
	saved := make([]string, 0)
	for _, reply := range replies {
		if reply.Document != nil {
			path := filepath.Join(downloadDir, filepath.Base(reply.Document.Filename))
			if err := os.WriteFile(path, reply.Document.Content, 0o644); err != nil {
				return saved, fmt.Errorf("save %s: %w", reply.Document.Filename, err)
			}
			saved = append(saved, path)
			fmt.Fprintf(w, "📎 %s (%d bytes) saved to %s\n", reply.Document.Filename, len(reply.Document.Content), path)
			continue
		}
		fmt.Fprintln(w, reply.Text)
		if kb := reply.Keyboard; kb != nil && !kb.Remove {
			for _, row := range kb.Rows {
				fmt.Fprintf(w, "  [ %s ]\n", strings.Join(row, " | "))
			}
		}
		fmt.Fprintln(w)
	}
	return saved, nil
}

// RenderRuns prints the history as an aligned table.
func RenderRuns(w io.Writer, runs []api.RunView) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tKM\tMIN\tBPM\tPACE\tTYPE\tNOTE")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%.1f\t%d\t%d\t%s\t%s\t%s\n",
			run.Date, run.DistanceKm, run.DurationMin, run.AvgHeartRate, run.Pace, run.WorkoutType, run.Note)
	}
	return tw.Flush()
}
