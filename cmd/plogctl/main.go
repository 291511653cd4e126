package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/plogger/backend/internal/models"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "plogctl",
		Usage: "Command line client for the PLogger backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Aliases: []string{"u"},
				Usage:   "Backend base URL",
				Value:   "http://localhost:8080",
				EnvVars: []string{"PLOGGER_URL"},
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "HTTP request timeout",
				Value: 60 * time.Second,
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "health",
				Usage:  "Check the backend and database health",
				Action: healthCommand,
			},
			{
				Name:   "ingest",
				Usage:  "Send a JSON array of log records for ingestion",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to a JSON file holding the log batch",
						Required: true,
					},
				},
			},
			{
				Name:   "ask",
				Usage:  "Ask a question about your logs",
				Action: askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "username",
						Usage:    "Account username",
						Required: true,
						EnvVars:  []string{"PLOGGER_USERNAME"},
					},
					&cli.StringFlag{
						Name:     "password",
						Usage:    "Account password",
						Required: true,
						EnvVars:  []string{"PLOGGER_PASSWORD"},
					},
					&cli.StringFlag{
						Name:  "session",
						Usage: "Conversation session id (a new one is generated when empty)",
					},
					&cli.BoolFlag{
						Name:  "clear",
						Usage: "Delete the session after answering",
					},
				},
			},
		},
	}
}

func clientFrom(c *cli.Context) *apiClient {
	return newAPIClient(c.String("url"), c.Duration("timeout"))
}

func healthCommand(c *cli.Context) error {
	health, err := clientFrom(c).Health()
	if err != nil {
		return err
	}
	if health.Status != "ok" {
		return fmt.Errorf("health status is not 'ok': %s", health.Status)
	}
	if health.Services.Database.Status != "ok" {
		return fmt.Errorf("database status is not 'ok': %s %s", health.Services.Database.Status, health.Services.Database.Error)
	}

	fmt.Fprintf(c.App.Writer, "Health check passed\n")
	fmt.Fprintf(c.App.Writer, "   Version: %s\n", health.Version)
	fmt.Fprintf(c.App.Writer, "   Database: %s\n", health.Services.Database.Status)
	fmt.Fprintf(c.App.Writer, "   Timestamp: %s\n", health.Timestamp)
	return nil
}

func ingestCommand(c *cli.Context) error {
	data, err := os.ReadFile(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to read batch file: %w", err)
	}
	var batch []models.LogRecord
	if err := json.Unmarshal(data, &batch); err != nil {
		return fmt.Errorf("batch file is not a JSON array of log records: %w", err)
	}
	if len(batch) == 0 {
		return fmt.Errorf("batch file contains no records")
	}

	resp, err := clientFrom(c).Ingest(batch)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s (batch %s)\n", resp.Message, resp.BatchID)
	return nil
}

func askCommand(c *cli.Context) error {
	query := c.Args().First()
	if query == "" {
		return fmt.Errorf("a question is required")
	}
	sessionID := c.String("session")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	client := clientFrom(c)
	if _, err := client.Login(c.String("username"), c.String("password")); err != nil {
		return err
	}

	resp, err := client.Query(sessionID, query)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "%s\n", resp.Answer)
	for _, src := range resp.Sources {
		fmt.Fprintf(c.App.Writer, "  [%d] %s %s %s: %s\n",
			src.LogID, src.Content.Timestamp, src.Content.Severity, src.Content.ProjectName, src.Content.Message)
	}
	fmt.Fprintf(c.App.Writer, "session: %s\n", sessionID)

	if c.Bool("clear") {
		return client.ClearSession(sessionID)
	}
	return nil
}
