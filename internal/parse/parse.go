// Package parse contains the message-classification engine: TLScontact
// detection, appointment date extraction, confirmation link extraction and
// Telegram notification formatting.
package parse

import (
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/VIGABANC/tls-gmail-watcher/internal/gservice"
)

var (
	// Known TLScontact sender domain variants.
	tlsDomainRe = regexp.MustCompile(`(?i)@(tlscontact\.|tls-contact\.|tlsvisa\.)`)

	// Appointment/visa keywords, English and French, hyphen-tolerant.
	keywordRe = regexp.MustCompile(`(?i)rendez-?vous|rdv|visa|tlscontact|tls-contact`)

	// Subset of keywords that promote a notification to the urgent header.
	appointmentRe = regexp.MustCompile(`(?i)rendez-?vous|rdv|appointment`)
)

// Result is the verdict for a single message. It is recomputed per message
// and never persisted.
type Result struct {
	IsTLS     bool
	DateFound bool
	Date      time.Time
	DateRaw   string
	Link      string
	From      string
	Subject   string
	Snippet   string
	RawBody   string
	Labels    []string
}

// Classifier decides whether a message is TLScontact-related and, when it is,
// extracts the appointment date and confirmation link.
type Classifier struct {
	log zerolog.Logger
}

func NewClassifier(logger zerolog.Logger) *Classifier {
	return &Classifier{
		log: logger.With().Str("component", "classifier").Logger(),
	}
}

// Classify runs the match test and, on a positive, the date and link
// extractors. A missing date or link is a valid outcome, not an error.
func (c *Classifier) Classify(msg *gservice.Message) Result {
	res := Result{
		From:    msg.From,
		Subject: msg.Subject,
		Snippet: msg.Snippet,
		RawBody: msg.Body,
	}

	combined := msg.Subject + " " + msg.Snippet + " " + msg.Body
	res.IsTLS = tlsDomainRe.MatchString(msg.From) || keywordRe.MatchString(combined)

	if !res.IsTLS {
		c.log.Debug().Str("id", msg.ID).Msg("message not from TLScontact")
		return res
	}

	res.Labels = msg.LabelIDs
	c.log.Info().
		Str("id", msg.ID).
		Str("subject", msg.Subject).
		Str("from", msg.From).
		Strs("labels", msg.LabelIDs).
		Msg("TLScontact email detected")

	if dm := ExtractDate(msg.Body, msg.Subject, msg.Snippet, time.Now()); dm != nil {
		res.DateFound = true
		res.Date = dm.Date
		res.DateRaw = dm.Raw
	} else {
		c.log.Warn().Str("id", msg.ID).Msg("failed to extract date from message")
	}

	res.Link = ExtractLink(msg.Body)

	return res
}
