package parser

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/mail"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/google/uuid"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/database/models"
)

var (
	// ErrNoMessage indicates a nil fetch result was passed in
	ErrNoMessage = errors.New("no message to parse")
	// ErrMessageTooLarge indicates the raw message exceeds the size ceiling
	ErrMessageTooLarge = errors.New("message exceeds size limit")
	// ErrMalformedMessage indicates the raw bytes could not be parsed
	ErrMalformedMessage = errors.New("malformed message")
)

// MaxMessageBytes caps how large a raw message may be before it is dropped
const MaxMessageBytes = 25 << 20

// Placeholder values for missing envelope fields
const (
	DefaultSubject = "No Subject"
	DefaultSender  = "Unknown"
)

// NormalizedMessage is the structured form of one fetched message. The
// ID is generated fresh on every parse, so the same mailbox message
// fetched twice yields two records; consumers deduplicate by MessageID.
type NormalizedMessage struct {
	ID              string
	AccountID       string
	Folder          string
	Subject         string
	Body            string
	From            string
	To              []string
	Date            time.Time
	MessageID       string
	InReplyTo       string
	HasAttachments  bool
	AttachmentCount int
	Category        string
	IndexedAt       time.Time
}

// Parse converts a raw IMAP fetch result into a NormalizedMessage
func Parse(accountID string, msg *imap.Message) (*NormalizedMessage, error) {
	if msg == nil {
		return nil, ErrNoMessage
	}

	now := time.Now()
	nm := &NormalizedMessage{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Folder:    models.FolderInbox,
		Category:  models.CategoryUncategorized,
		IndexedAt: now,
	}

	if msg.Envelope != nil {
		nm.MessageID = msg.Envelope.MessageId
		nm.Subject = msg.Envelope.Subject
		nm.Date = msg.Envelope.Date
		nm.InReplyTo = msg.Envelope.InReplyTo

		if len(msg.Envelope.From) > 0 {
			nm.From = formatAddress(msg.Envelope.From[0])
		}
		for _, addr := range msg.Envelope.To {
			nm.To = append(nm.To, formatAddress(addr))
		}
	}

	var raw []byte
	for _, literal := range msg.Body {
		content, err := io.ReadAll(io.LimitReader(literal, MaxMessageBytes+1))
		if err != nil {
			continue
		}
		if len(content) > MaxMessageBytes {
			return nil, fmt.Errorf("%w: over %d bytes", ErrMessageTooLarge, MaxMessageBytes)
		}
		raw = content
		break
	}

	if len(raw) > 0 {
		if err := parseRaw(raw, nm); err != nil {
			return nil, err
		}
	}

	if nm.MessageID == "" {
		nm.MessageID = fallbackMessageID(msg.Uid, raw, nm)
	}

	if !nm.HasAttachments && msg.BodyStructure != nil {
		nm.HasAttachments = hasAttachments(msg.BodyStructure)
	}

	if nm.Subject == "" {
		nm.Subject = DefaultSubject
	}
	if nm.From == "" {
		nm.From = DefaultSender
	}
	if nm.Date.IsZero() {
		nm.Date = now
	}

	return nm, nil
}

// parseRaw decodes the MIME structure and fills body and attachment fields
func parseRaw(raw []byte, nm *NormalizedMessage) error {
	r := bytes.NewReader(raw)
	entity, err := message.Read(r)
	if err != nil && !message.IsUnknownCharset(err) {
		// Try parsing as plain mail
		if _, seekErr := r.Seek(0, io.SeekStart); seekErr != nil {
			return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		m, mailErr := mail.ReadMessage(bytes.NewReader(raw))
		if mailErr != nil {
			return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		if nm.MessageID == "" {
			nm.MessageID = strings.TrimSpace(m.Header.Get("Message-Id"))
		}
		body, _ := io.ReadAll(m.Body)
		nm.Body = CleanText(string(body))
		return nil
	}

	if nm.MessageID == "" {
		nm.MessageID = strings.TrimSpace(entity.Header.Get("Message-Id"))
	}
	if nm.InReplyTo == "" {
		nm.InReplyTo = strings.TrimSpace(entity.Header.Get("In-Reply-To"))
	}

	var plain, html string
	walkEntity(entity, &plain, &html, nm)

	// Prefer the plain-text part; fall back to stripped HTML
	body := plain
	if body == "" && html != "" {
		body = StripHTML(html)
	}
	nm.Body = CleanText(body)

	return nil
}

// walkEntity recursively walks a message entity, collecting the first
// text/plain and text/html parts and counting attachments
func walkEntity(entity *message.Entity, plain, html *string, nm *NormalizedMessage) {
	mediaType, params, _ := entity.Header.ContentType()

	if strings.HasPrefix(mediaType, "multipart/") {
		mr := entity.MultipartReader()
		if mr == nil {
			return
		}
		for {
			part, err := mr.NextPart()
			if err != nil {
				break
			}
			walkEntity(part, plain, html, nm)
		}
		return
	}

	if mediaType == "text/plain" && *plain == "" && !isAttachmentPart(entity, params) {
		body, _ := io.ReadAll(entity.Body)
		*plain = string(body)
		return
	}

	if mediaType == "text/html" && *html == "" && !isAttachmentPart(entity, params) {
		body, _ := io.ReadAll(entity.Body)
		*html = string(body)
		return
	}

	if isAttachmentPart(entity, params) || (!strings.HasPrefix(mediaType, "text/") && mediaType != "") {
		nm.HasAttachments = true
		nm.AttachmentCount++
	}
}

// isAttachmentPart reports whether a leaf entity is an attachment
func isAttachmentPart(entity *message.Entity, params map[string]string) bool {
	disposition := entity.Header.Get("Content-Disposition")
	if disposition != "" {
		dispType, dispParams, err := mime.ParseMediaType(disposition)
		if err == nil {
			if dispType == "attachment" || (dispType == "inline" && dispParams["filename"] != "") {
				return true
			}
		}
	}
	return params["name"] != ""
}

// fallbackMessageID derives a stable identifier when the message carries
// no Message-Id header
func fallbackMessageID(uid uint32, raw []byte, nm *NormalizedMessage) string {
	if uid != 0 {
		return fmt.Sprintf("uid:%d", uid)
	}
	if len(raw) > 0 {
		sum := sha256.Sum256(raw)
		return "sha256:" + hex.EncodeToString(sum[:])
	}
	seed := fmt.Sprintf("%d|%s|%s|%s", nm.Date.UnixNano(), nm.Subject, nm.From, strings.Join(nm.To, ","))
	sum := sha256.Sum256([]byte(seed))
	return "gen:" + hex.EncodeToString(sum[:16])
}

// formatAddress formats an IMAP address to a string
func formatAddress(addr *imap.Address) string {
	if addr.PersonalName != "" {
		return fmt.Sprintf("%s <%s@%s>", addr.PersonalName, addr.MailboxName, addr.HostName)
	}
	return fmt.Sprintf("%s@%s", addr.MailboxName, addr.HostName)
}

// hasAttachments checks if a body structure has attachments
func hasAttachments(bs *imap.BodyStructure) bool {
	if strings.EqualFold(bs.Disposition, "attachment") {
		return true
	}
	for _, part := range bs.Parts {
		if hasAttachments(part) {
			return true
		}
	}
	return false
}
