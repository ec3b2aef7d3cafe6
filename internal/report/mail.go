package report

import (
	"bytes"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"text/template"
	"time"

	"github.com/tehmaze/classified/internal/probe"
)

func init() {
	Register("mail", newMailSink)
}

const (
	defaultMailSender  = "{user}@{hostname}"
	defaultMailSubject = "Classified report for {fqdn}"
)

// mailSink accumulates findings like the HTML sink, then wraps the
// rendered document as a MIME text body and delivers it by SMTP to
// the comma-separated recipients in Output (spec.md §4.8's Mail).
type mailSink struct {
	acc        *accumulator
	template   *template.Template
	recipients []string
	sender     string
	subject    string
	server     string
}

func newMailSink(opts Options) (Sink, error) {
	if opts.Output == "" {
		return nil, fmt.Errorf("report: mail sink requires recipients via --output")
	}
	if opts.Template == "" {
		return nil, fmt.Errorf("report: mail sink requires a template")
	}
	tpl, err := template.ParseFiles(opts.Template)
	if err != nil {
		return nil, err
	}

	sender := opts.Sender
	if sender == "" {
		sender = defaultMailSender
	}
	subject := opts.Subject
	if subject == "" {
		subject = defaultMailSubject
	}
	server := opts.Server
	if server == "" {
		server = "localhost"
	}

	return &mailSink{
		acc:        newAccumulator(),
		template:   tpl,
		recipients: strings.Split(opts.Output, ","),
		sender:     sender,
		subject:    subject,
		server:     server,
	}, nil
}

func (s *mailSink) Report(f probe.Finding) error {
	s.acc.add(f)
	return nil
}

func (s *mailSink) Render() error {
	s.acc.Finish = time.Now()

	var body bytes.Buffer
	if err := s.template.Execute(&body, s.acc); err != nil {
		return err
	}

	fields := s.acc.templateFields()
	sender := probe.RenderFormat(s.sender, fields)
	subject := probe.RenderFormat(s.subject, fields)

	message := buildMIMEMessage(sender, strings.Join(s.recipients, ", "), subject, body.String())

	return smtp.SendMail(s.server, nil, sender, s.recipients, []byte(message))
}

func buildMIMEMessage(from, to, subject, body string) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&buf, "X-Mailer: classified\r\n")
	fmt.Fprintf(&buf, "Content-Type: text/plain; charset=utf-8\r\n")
	fmt.Fprintf(&buf, "\r\n%s", body)
	return buf.String()
}
