package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"garden/internal/activity"
)

var (
	keepaliveEmail    string
	keepaliveInterval time.Duration
)

var keepaliveCmd = &cobra.Command{
	Use:   "keepalive",
	Short: "Log in and keep the session marked online",
	Long: `keepalive logs in to a running garden server and sends a heartbeat on
every interval until interrupted, so the account counts as online. The
password is read from GARDEN_PASSWORD.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return keepAlive(ctx, &http.Client{Timeout: 10 * time.Second}, serverURL,
			keepaliveEmail, os.Getenv("GARDEN_PASSWORD"), keepaliveInterval, logger.Named("keepalive"))
	},
}

func init() {
	keepaliveCmd.Flags().StringVar(&keepaliveEmail, "email", envOr("GARDEN_EMAIL", ""), "Account to keep online")
	keepaliveCmd.Flags().DurationVar(&keepaliveInterval, "interval", time.Minute, "Time between heartbeats")
}

// keepAlive logs in with hc and then beats until ctx is done. The client's
// cookie jar is replaced so the session stays private to this call.
func keepAlive(ctx context.Context, hc *http.Client, baseURL, email, password string, interval time.Duration, log *zap.Logger) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", interval)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	c := *hc
	c.Jar = jar
	baseURL = strings.TrimRight(baseURL, "/")

	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return err
	}
	if err := post(ctx, &c, baseURL+"/api/login", body, http.StatusOK); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	log.Info("session started", zap.String("email", email), zap.Duration("interval", interval))

	activity.Heartbeat(ctx, interval, func(ctx context.Context) error {
		return post(ctx, &c, baseURL+"/api/heartbeat", nil, http.StatusNoContent)
	}, log)

	log.Info("session keep-alive stopped", zap.String("email", email))
	return nil
}

func post(ctx context.Context, c *http.Client, url string, body []byte, want int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		return fmt.Errorf("%s: unexpected status %d", url, resp.StatusCode)
	}
	return nil
}
