package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gookit/color"
	"github.com/spf13/pflag"

	"github.com/omochice/chatlink/internal/client"
	"github.com/omochice/chatlink/internal/config"
	"github.com/omochice/chatlink/internal/credential"
	"github.com/omochice/chatlink/internal/logging"
	"github.com/omochice/chatlink/internal/socket"
)

func main() {
	configPath := pflag.StringP("config", "c", config.DefaultPath(), "Path to config file")
	endpoint := pflag.StringP("endpoint", "e", "", "Chat endpoint (e.g., ws://127.0.0.1:8001/ws/chat/)")
	token := pflag.StringP("token", "t", "", "Session token (overrides $"+string(credential.DefaultEnv)+" and the token file)")
	dialer := pflag.String("dialer", "", "Websocket library: "+strings.Join(socket.Names(), ", "))
	logLevel := pflag.String("log-level", "", "Log level (debug, info, warn, error)")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if pflag.CommandLine.Changed("endpoint") {
		cfg.Endpoint = *endpoint
	}
	if pflag.CommandLine.Changed("dialer") {
		cfg.Dialer = *dialer
	}
	if pflag.CommandLine.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, os.Stderr)

	d, err := socket.New(cfg.Dialer)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create dialer")
	}

	store := credential.NewFileStore(cfg.TokenFile)
	creds := credential.Chain{
		credential.Static(*token),
		credential.DefaultEnv,
		store,
	}

	tr := client.New(client.Config{
		Endpoint:       cfg.Endpoint,
		ReconnectDelay: cfg.ReconnectDelay.Duration,
		WriteTimeout:   cfg.WriteTimeout.Duration,
	}, creds, d, client.WithLogger(logger))

	tr.OnStateChange(printState)
	tr.OnMessage(printInbound)
	tr.Connect()
	defer tr.Disconnect()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			logger.Error().Err(err).Msg("error reading input")
		}
	}()

	fmt.Println("Type your messages (/help for commands):")
	for {
		select {
		case sig := <-sigChan:
			logger.Info().Stringer("signal", sig).Msg("shutting down")
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := handleLine(tr, store, strings.TrimSpace(line)); quit {
				return
			}
		}
	}
}

// handleLine runs a slash command or sends the line. It reports whether the
// user asked to quit.
func handleLine(tr *client.Transport, store *credential.FileStore, text string) bool {
	if text == "" {
		return false
	}

	cmd, arg, _ := strings.Cut(text, " ")
	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Println("  /status          show connection state")
		fmt.Println("  /token <value>   store a new session token (used on next reconnect)")
		fmt.Println("  /logout          remove the stored session token")
		fmt.Println("  /reconnect       drop the connection and connect again")
		fmt.Println("  /quit            exit")
	case "/status":
		fmt.Printf("state: %s, attempts: %d\n", tr.State(), tr.Attempts())
	case "/token":
		if arg == "" {
			color.Red.Println("usage: /token <value>")
			return false
		}
		if err := store.Set(strings.TrimSpace(arg)); err != nil {
			color.Red.Printf("failed to store token: %v\n", err)
			return false
		}
		color.Green.Printf("token saved to %s\n", store.Path())
	case "/logout":
		if err := store.Clear(); err != nil {
			color.Red.Printf("failed to remove token: %v\n", err)
		}
	case "/reconnect":
		tr.Disconnect()
		tr.Connect()
	default:
		if err := tr.Send(text); err != nil {
			color.Red.Printf("not sent: %v\n", err)
		}
	}
	return false
}
