package smtpgw

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/core"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/whitelist"
)

// Gateway is an SMTP submission gateway: it accepts outbound mail, scores
// and refines the body through the guard service, stamps the result into
// headers and relays the message upstream. It implements the
// ports.EmailGateway interface.
type Gateway struct {
	service              *core.GuardService
	whitelist            *whitelist.Checker
	logger               *zap.Logger
	listenAddr           string
	server               *smtp.Server
	upstreamAddr         string
	upstreamPort         int
	upstreamEnabled      bool
	replaceBody          bool
	scoreHeader          string
	recommendationHeader string
	refinedHeader        string
}

// NewGateway creates a new SMTP gateway
func NewGateway(
	service *core.GuardService,
	wl *whitelist.Checker,
	logger *zap.Logger,
	listenAddr string,
	upstreamAddr string,
	upstreamPort int,
	upstreamEnabled bool,
	replaceBody bool,
	scoreHeader string,
	recommendationHeader string,
	refinedHeader string,
) *Gateway {
	return &Gateway{
		service:              service,
		whitelist:            wl,
		logger:               logger,
		listenAddr:           listenAddr,
		upstreamAddr:         upstreamAddr,
		upstreamPort:         upstreamPort,
		upstreamEnabled:      upstreamEnabled,
		replaceBody:          replaceBody,
		scoreHeader:          scoreHeader,
		recommendationHeader: recommendationHeader,
		refinedHeader:        refinedHeader,
	}
}

// Start starts the SMTP gateway
func (g *Gateway) Start() error {
	g.server = smtp.NewServer(&smtpBackend{gateway: g})

	g.server.Addr = g.listenAddr
	g.server.Domain = "localhost"
	g.server.ReadTimeout = 30 * time.Second
	g.server.WriteTimeout = 30 * time.Second
	g.server.MaxMessageBytes = 30 * 1024 * 1024 // 30MB
	g.server.MaxRecipients = 50
	g.server.AllowInsecureAuth = true

	g.logger.Info("SMTP gateway starting", zap.String("address", g.listenAddr))

	go func() {
		if err := g.server.ListenAndServe(); err != nil {
			if err != smtp.ErrServerClosed {
				g.logger.Error("SMTP server error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop stops the SMTP gateway
func (g *Gateway) Stop() error {
	if g.server != nil {
		return g.server.Close()
	}
	return nil
}

// relayUpstream sends the processed email to the upstream MTA using go-smtp
func (g *Gateway) relayUpstream(sender string, recipients []string, emailData []byte) error {
	upstreamAddr := fmt.Sprintf("%s:%d", g.upstreamAddr, g.upstreamPort)

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", upstreamAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to upstream MTA: %w", err)
	}

	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			g.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
		} else {
			recipientOK = true
		}
	}
	if !recipientOK {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(emailData); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		g.logger.Warn("QUIT command failed", zap.Error(err))
		// The email has already been sent at this point.
	}

	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	gateway *Gateway
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{
		gateway:    b.gateway,
		recipients: make([]string, 0),
	}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	gateway    *Gateway
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = make([]string, 0)
}

// AuthPlain handles PLAIN authentication (not needed for the gateway)
func (s *smtpSession) AuthPlain(_ []byte) error {
	return smtp.ErrAuthUnsupported
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data handles the email data: run the guard pipeline on the text body,
// stamp result headers and relay upstream
func (s *smtpSession) Data(r io.Reader) error {
	rawData, err := io.ReadAll(r)
	if err != nil {
		s.gateway.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	msg, err := mail.ReadMessage(bytes.NewReader(rawData))
	if err != nil {
		s.gateway.logger.Error("Failed to parse email message", zap.Error(err))
		return err
	}

	textContent, err := extractTextFromMessage(msg)
	if err != nil {
		s.gateway.logger.Error("Failed to extract text content", zap.Error(err))
		return err
	}

	subject := msg.Header.Get("Subject")
	if decoded, err := decodeEncodedHeader(subject); err == nil {
		subject = decoded
	}
	s.gateway.logger.Debug("Received outbound message",
		zap.String("sender", s.sender),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(textContent)))

	if s.gateway.whitelist.IsWhitelisted(s.sender) {
		s.gateway.logger.Info("Skipping refinement for whitelisted sender",
			zap.String("sender", s.sender))
		return s.deliver(msg, rawData, "", nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := s.gateway.service.ProcessEmail(ctx, textContent)
	if err != nil {
		// Never lose outbound mail over an analysis failure; deliver the
		// message unmodified with an error header.
		s.gateway.logger.Error("Failed to process email",
			zap.Error(err),
			zap.String("sender", s.sender))
		return s.deliver(msg, rawData, err.Error(), nil)
	}

	s.gateway.logger.Info("Processed outbound email",
		zap.String("sender", s.sender),
		zap.Float64("spam_score", result.SpamScore),
		zap.String("recommendation", string(result.Recommendation)),
		zap.Int("attempts", result.Refinement.Attempts))

	return s.deliver(msg, rawData, "", result)
}

// deliver reconstructs the message with gateway headers and relays it
func (s *smtpSession) deliver(msg *mail.Message, rawData []byte, processErr string, result *core.ProcessResult) error {
	var out bytes.Buffer

	refined := false
	if result != nil {
		fmt.Fprintf(&out, "%s: %.4f\r\n", s.gateway.scoreHeader, result.SpamScore)
		fmt.Fprintf(&out, "%s: %s\r\n", s.gateway.recommendationHeader, result.Recommendation)
		refined = s.gateway.replaceBody &&
			result.Refinement.Success &&
			result.Refinement.RefinedEmail != "" &&
			result.Outcome != nil &&
			result.Outcome.Reason != core.AcceptedInitial
		fmt.Fprintf(&out, "%s: %t\r\n", s.gateway.refinedHeader, refined)
	}
	if processErr != "" {
		fmt.Fprintf(&out, "X-SpamGuard-Error: %s\r\n", processErr)
	}

	for key, values := range msg.Header {
		for _, value := range values {
			fmt.Fprintf(&out, "%s: %s\r\n", key, value)
		}
	}
	fmt.Fprintf(&out, "\r\n")

	if refined {
		// Replace the body with the accepted rewrite. Attachments are
		// dropped in this mode; the refined text is a new message.
		out.WriteString(strings.ReplaceAll(result.Refinement.RefinedEmail, "\n", "\r\n"))
		out.WriteString("\r\n")
	} else {
		out.Write(originalBody(rawData))
	}

	if !s.gateway.upstreamEnabled {
		s.gateway.logger.Warn("Upstream relay disabled, dropping processed message",
			zap.String("sender", s.sender))
		return nil
	}

	if err := s.gateway.relayUpstream(s.sender, s.recipients, out.Bytes()); err != nil {
		s.gateway.logger.Error("Failed to relay email upstream",
			zap.Error(err),
			zap.String("sender", s.sender))
		return err
	}
	return nil
}

// originalBody returns the raw body bytes following the header separator
func originalBody(rawData []byte) []byte {
	if idx := bytes.Index(rawData, []byte("\r\n\r\n")); idx != -1 {
		return rawData[idx+4:]
	}
	if idx := bytes.Index(rawData, []byte("\n\n")); idx != -1 {
		return rawData[idx+2:]
	}
	return nil
}

// Logout handles SMTP logout (nothing to clean up)
func (s *smtpSession) Logout() error {
	return nil
}
