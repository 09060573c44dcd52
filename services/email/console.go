// Package emailsvc provides the email services: a console one for development and tests, and a SendGrid one.
package emailsvc

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

// ConsoleService writes the messages it sends to an io.Writer.
type ConsoleService struct {
	from        mail.Address
	subjPrefix  string
	frontendURL string
	out         io.Writer
	sync        bool

	mu   sync.Mutex
	sent []core.EmailMessage
}

var _ core.EmailService = (*ConsoleService)(nil)

// NewConsoleService sends messages to stderr, in the background.
func NewConsoleService(conf *core.Config) *ConsoleService {
	return newConsoleService(conf, os.Stderr, false)
}

// NewConsoleServiceMock sends messages synchronously and discards the output; they are kept in Outbox.
func NewConsoleServiceMock(conf *core.Config) *ConsoleService {
	return newConsoleService(conf, io.Discard, true)
}

func newConsoleService(conf *core.Config, out io.Writer, sync bool) *ConsoleService {
	return &ConsoleService{
		from:        conf.DefaultFromEmail,
		subjPrefix:  "[" + conf.AppName + "] ",
		frontendURL: conf.FrontendBaseURL,
		out:         out,
		sync:        sync,
	}
}

func (svc *ConsoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if svc.sync {
			svc.sendMessage(msg)
		} else {
			go svc.sendMessage(msg)
		}
	}
}

// Outbox returns the messages sent so far.
func (svc *ConsoleService) Outbox() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]core.EmailMessage(nil), svc.sent...)
}

// ClearOutbox forgets the messages sent so far.
func (svc *ConsoleService) ClearOutbox() {
	svc.mu.Lock()
	svc.sent = nil
	svc.mu.Unlock()
}

func (svc *ConsoleService) sendMessage(msg *core.EmailMessage) {
	if err := msg.Render(svc.frontendURL); err != nil {
		log.Printf("%+v", errors.Wrap(err, "rendering email"))
		return
	}
	if !msg.HasRecipients() || !(msg.HasContent() || msg.HasAttachments()) {
		return
	}
	if err := svc.write(*msg); err != nil {
		log.Printf("%+v", errors.Wrap(err, "writing email"))
	}
	svc.mu.Lock()
	svc.sent = append(svc.sent, *msg)
	svc.mu.Unlock()
}

func (svc *ConsoleService) write(msg core.EmailMessage) error {
	body := new(strings.Builder)
	header := func(key, value string) { _, _ = fmt.Fprintf(body, "%s: %s\r\n", key, value) }

	header("From", svc.from.String())
	header("MIME-Version", "1.0")
	header("Date", core.NowFunc().Format("Mon, 02 Jan 2006 15:04:05 -0700"))
	header("Subject", svc.subjPrefix+msg.Subject)
	header("To", joinAddresses(msg.To))
	if len(msg.Cc) > 0 {
		header("Cc", joinAddresses(msg.Cc))
	}
	if len(msg.Bcc) > 0 {
		header("Bcc", joinAddresses(msg.Bcc))
	}

	altW := multipart.NewWriter(body)
	var mixedW *multipart.Writer
	if msg.HasAttachments() {
		mixedW = multipart.NewWriter(body)
		header("Content-Type", "multipart/mixed; boundary="+mixedW.Boundary())
	} else {
		header("Content-Type", "multipart/alternative; boundary="+altW.Boundary())
	}
	_, _ = fmt.Fprint(body, "\r\n")

	if mixedW != nil {
		hdr := textproto.MIMEHeader{"Content-Type": {"multipart/alternative; boundary=" + altW.Boundary()}}
		if _, err := mixedW.CreatePart(hdr); err != nil {
			return errors.Wrap(err, "creating multipart/alternative part")
		}
	}

	w, err := altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain; charset=utf-8"}})
	if err != nil {
		return errors.Wrap(err, "creating text/plain part")
	}
	_, _ = fmt.Fprintf(w, "%s\r\n", msg.TextContent)

	if msg.HTMLContent != "" {
		w, err = altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html; charset=utf-8"}})
		if err != nil {
			return errors.Wrap(err, "creating text/html part")
		}
		_, _ = fmt.Fprintf(w, "%s\r\n", msg.HTMLContent)
	}
	if err := altW.Close(); err != nil {
		return err
	}

	if mixedW != nil {
		for _, at := range msg.Attachments {
			w, err = mixedW.CreatePart(textproto.MIMEHeader{
				"Content-Type":              {at.ContentType},
				"Content-Transfer-Encoding": {"base64"},
				"Content-Disposition":       {`attachment; filename="` + at.Filename + `"`},
			})
			if err != nil {
				return errors.Wrapf(err, "creating %s part", at.ContentType)
			}
			_, _ = fmt.Fprintf(w, "%s\r\n", at.Content.String())
		}
		if err := mixedW.Close(); err != nil {
			return err
		}
	}

	_, err = io.WriteString(svc.out, body.String()+"\n")
	return err
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}
