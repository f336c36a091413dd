// Package whatsapp links a WhatsApp account through whatsmeow and sends
// invitation messages from it.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types/events"
)

// ErrNotOnWhatsApp is returned when the recipient has no WhatsApp account
var ErrNotOnWhatsApp = errors.New("number is not registered on WhatsApp")

// ErrNotConnected is returned when the session is not logged in
var ErrNotConnected = errors.New("whatsapp session is not connected")

// Config configures the session store
type Config struct {
	// DataDir holds the sqlite device store
	DataDir string

	// QROut receives the pairing QR code when the device is not linked yet.
	// Defaults to stdout.
	QROut io.Writer
}

// Client is a linked WhatsApp session
type Client struct {
	client *whatsmeow.Client
	cfg    Config
	log    zerolog.Logger
}

// New opens the device store and prepares a client. Call Connect before
// sending.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.QROut == nil {
		cfg.QROut = os.Stdout
	}
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("component", "whatsapp").Logger()

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", filepath.Join(cfg.DataDir, "whatsmeow.db"))
	container, err := sqlstore.New(ctx, "sqlite3", dsn, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open device store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	c := &Client{
		client: whatsmeow.NewClient(deviceStore, nil),
		cfg:    cfg,
		log:    logger,
	}
	c.client.AddEventHandler(c.handleEvent)

	return c, nil
}

// Connect connects the session, printing a pairing QR code first when the
// device has never been linked
func (c *Client) Connect(ctx context.Context) error {
	if c.client.Store.ID != nil {
		if err := c.client.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		return nil
	}

	qrChan, err := c.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("failed to get QR channel: %w", err)
	}
	if err := c.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	for evt := range qrChan {
		switch evt.Event {
		case "code":
			c.printQR(evt.Code)
		case "success":
			c.log.Info().Msg("device linked")
			return nil
		default:
			c.log.Warn().Str("event", evt.Event).Msg("pairing event")
		}
	}
	if !c.client.IsLoggedIn() {
		return fmt.Errorf("pairing did not complete")
	}
	return nil
}

func (c *Client) printQR(code string) {
	q, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		fmt.Fprintf(c.cfg.QROut, "QR code: %s\n", code)
		return
	}
	fmt.Fprintln(c.cfg.QROut, q.ToSmallString(false))
	fmt.Fprintln(c.cfg.QROut, "Scan with WhatsApp: Settings > Linked Devices > Link a Device")
}

// Disconnect closes the session
func (c *Client) Disconnect() {
	c.client.Disconnect()
}

// Health reports whether the session can send
func (c *Client) Health(ctx context.Context) error {
	if !c.client.IsConnected() || !c.client.IsLoggedIn() {
		return ErrNotConnected
	}
	return nil
}

// SendText sends a plain text message to phone
func (c *Client) SendText(ctx context.Context, phone, text string) error {
	if !c.client.IsLoggedIn() {
		return ErrNotConnected
	}

	number := NormalizePhoneNumber(phone)
	if number == "" {
		return fmt.Errorf("%w: empty number", ErrNotOnWhatsApp)
	}

	resp, err := c.client.IsOnWhatsApp(ctx, []string{"+" + number})
	if err != nil {
		return fmt.Errorf("failed to verify number: %w", err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return fmt.Errorf("%w: %s", ErrNotOnWhatsApp, number)
	}

	jid := resp[0].JID
	c.log.Debug().Str("jid", jid.String()).Msg("sending message")

	sent, err := c.client.SendMessage(ctx, jid, &waE2E.Message{
		Conversation: &text,
	})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	c.log.Info().Str("message_id", sent.ID).Str("jid", jid.String()).Msg("message sent")
	return nil
}

// NormalizePhoneNumber strips everything but digits, so "+1 (555) 010-2030"
// becomes "15550102030"
func NormalizePhoneNumber(phone string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
}

func (c *Client) handleEvent(evt interface{}) {
	switch evt := evt.(type) {
	case *events.Connected:
		c.log.Info().Msg("connected")
	case *events.Disconnected:
		c.log.Warn().Msg("disconnected")
	case *events.LoggedOut:
		c.log.Warn().Bool("on_connect", evt.OnConnect).Msg("logged out")
	case *events.Message:
		if evt.Info.IsFromMe {
			return
		}
		c.log.Info().
			Str("sender", evt.Info.Sender.String()).
			Msg("received message")
	}
}
