package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Raymond9734/event-rsvp-backend/internal/client"
	"github.com/Raymond9734/event-rsvp-backend/internal/models"
	"github.com/Raymond9734/event-rsvp-backend/internal/rsvp"
)

var statusChoices = []models.RSVPStatus{models.RSVPYes, models.RSVPNo, models.RSVPMaybe}

func main() {
	_ = godotenv.Load()

	defaultAPI := os.Getenv("API_BASE_URL")
	if defaultAPI == "" {
		defaultAPI = "http://localhost:8080"
	}
	apiURL := flag.String("api", defaultAPI, "base URL of the RSVP API")
	token := flag.String("token", "", "guest RSVP token")
	flag.Parse()

	if *token == "" {
		fmt.Fprintln(os.Stderr, "usage: rsvp -token <token> [-api <url>]")
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend := client.New(*apiURL, &http.Client{Timeout: 15 * time.Second}, logger)
	session := rsvp.NewSession(backend)
	defer session.Close()

	if err := session.Load(ctx, *token); err != nil {
		fmt.Printf("❌ %s\n", rsvp.UserMessage(err))
		os.Exit(1)
	}

	view := session.View()
	printEvent(view.Record)

	if view.Locked {
		fmt.Printf("\nYour answer (%s) has been recorded and can no longer be changed.\n", view.Status)
		return
	}

	scanner := bufio.NewScanner(os.Stdin)
	if err := fillForm(scanner, session); err != nil {
		fmt.Printf("\n%v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nSending your answer...")
	if err := session.Submit(ctx); err != nil {
		fmt.Printf("❌ %s\n", rsvp.UserMessage(err))
		os.Exit(1)
	}

	fmt.Printf("✅ Thank you! Your answer (%s) has been saved.\n", session.View().Status)
}

func printEvent(record *models.RSVPRecord) {
	event := record.Event
	fmt.Println(event.Name)
	fmt.Println(strings.Repeat("=", len(event.Name)))
	if !event.Date.IsZero() {
		fmt.Println("When: ", event.Date.Format("Monday, 2 January 2006 15:04"))
	}
	if event.Location != "" {
		fmt.Println("Where:", event.Location)
	}
	if event.Description != "" {
		fmt.Println()
		fmt.Println(event.Description)
	}
	if record.RSVP.Status != models.RSVPPending && record.RSVP.Status != "" {
		fmt.Printf("\nCurrent answer: %s\n", record.RSVP.Status)
	}
}

func fillForm(scanner *bufio.Scanner, session *rsvp.Session) error {
	for {
		name, ok := prompt(scanner, "\nYour full name: ")
		if !ok {
			return errInputClosed
		}
		if err := session.SetFullname(name); err != nil {
			fmt.Println(rsvp.UserMessage(err))
			continue
		}
		if strings.TrimSpace(name) != "" {
			break
		}
		fmt.Println("Please enter your name.")
	}

	for {
		fmt.Println("\nWill you attend?")
		for i, status := range statusChoices {
			fmt.Printf("  %d. %s\n", i+1, status)
		}
		answer, ok := prompt(scanner, "Choose (1-3): ")
		if !ok {
			return errInputClosed
		}
		n, err := strconv.Atoi(answer)
		if err != nil || n < 1 || n > len(statusChoices) {
			fmt.Println("Invalid choice. Please try again.")
			continue
		}
		if err := session.SelectStatus(statusChoices[n-1]); err != nil {
			fmt.Println(rsvp.UserMessage(err))
			continue
		}
		break
	}

	for _, field := range session.Fields() {
		if err := askField(scanner, session, field); err != nil {
			return err
		}
	}
	return nil
}

func askField(scanner *bufio.Scanner, session *rsvp.Session, field rsvp.Field) error {
	control := field.Control(false)
	label := control.Label
	if label == "" {
		label = control.Name
	}
	if control.Required {
		label += " *"
	}

	for {
		fmt.Printf("\n%s\n", label)
		for i, option := range control.Options {
			fmt.Printf("  %d. %s\n", i+1, option)
		}

		var hint string
		switch field.(type) {
		case rsvp.CheckboxField:
			hint = "Choose any, separated by commas: "
		case rsvp.SelectField, rsvp.RadioField:
			hint = "Choose one: "
		case rsvp.NumberField:
			hint = "Enter a number: "
		default:
			hint = "> "
		}

		input, ok := prompt(scanner, hint)
		if !ok {
			return errInputClosed
		}

		value, err := parseAnswer(field, control.Options, input)
		if err != nil {
			fmt.Println(err)
			continue
		}
		if err := field.Validate(value); err != nil {
			fmt.Println(rsvp.UserMessage(err))
			continue
		}
		if err := session.SetResponse(control.Name, value); err != nil {
			fmt.Println(rsvp.UserMessage(err))
			continue
		}
		return nil
	}
}

// parseAnswer turns a typed line into the value shape the field expects.
// An empty line leaves the field unanswered.
func parseAnswer(field rsvp.Field, options []string, input string) (any, error) {
	if input == "" {
		return nil, nil
	}

	switch field.(type) {
	case rsvp.CheckboxField:
		var picked []string
		for _, part := range strings.Split(input, ",") {
			option, err := pickOption(options, strings.TrimSpace(part))
			if err != nil {
				return nil, err
			}
			picked = append(picked, option)
		}
		return picked, nil
	case rsvp.SelectField, rsvp.RadioField:
		return pickOption(options, input)
	case rsvp.NumberField:
		n, err := strconv.Atoi(input)
		if err != nil {
			return nil, fmt.Errorf("%q is not a whole number", input)
		}
		return n, nil
	default:
		return input, nil
	}
}

func pickOption(options []string, input string) (string, error) {
	n, err := strconv.Atoi(input)
	if err != nil || n < 1 || n > len(options) {
		return "", fmt.Errorf("invalid choice %q", input)
	}
	return options[n-1], nil
}

var errInputClosed = errors.New("input closed")

func prompt(scanner *bufio.Scanner, text string) (string, bool) {
	fmt.Print(text)
	if !scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(scanner.Text()), true
}
