package emailsvc

import (
	"bytes"
	"net/mail"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
)

func TestConsoleService(t *testing.T) {
	conf := core.NewTestConfig()
	out := new(bytes.Buffer)
	svc := newConsoleService(conf, out, true)
	prevNow := core.NowFunc
	core.NowFunc = func() time.Time { return time.Date(2021, 3, 10, 12, 0, 0, 0, time.UTC) }
	defer func() { core.NowFunc = prevNow }()

	to := []mail.Address{{Name: "Admin", Address: "admin@test.cd"}, {Address: "ops@test.cd"}}
	svc.SendMessages(
		&core.EmailMessage{To: to, Subject: "Hello", BodyStr: "plain body"},
		&core.EmailMessage{Subject: "no recipients", BodyStr: "lost"},
		&core.EmailMessage{To: to, Subject: "no content"},
	)

	outbox := svc.Outbox()
	require.Len(t, outbox, 1)
	assert.Equal(t, "plain body", outbox[0].TextContent)

	s := out.String()
	assert.Contains(t, s, "From: \"Academia\" <noreply@localhost>\r\n")
	assert.Contains(t, s, "Subject: [Academia] Hello\r\n")
	assert.Contains(t, s, "To: \"Admin\" <admin@test.cd>, <ops@test.cd>\r\n")
	assert.Contains(t, s, "Date: Wed, 10 Mar 2021 12:00:00 +0000\r\n")
	assert.Contains(t, s, "Content-Type: multipart/alternative; boundary=")
	assert.Contains(t, s, "plain body")
	assert.NotContains(t, s, "lost")

	t.Run("attachments", func(t *testing.T) {
		out.Reset()
		svc.ClearOutbox()
		msg := &core.EmailMessage{To: to[:1], Subject: "Report"}
		require.NoError(t, msg.Attach(bytes.NewBufferString("id,name\n1,x\n"), "report.csv", "text/csv"))
		svc.SendMessages(msg)

		require.Len(t, svc.Outbox(), 1)
		assert.Contains(t, out.String(), "Content-Type: multipart/mixed; boundary=")
		assert.Contains(t, out.String(), "report.csv")
	})
}
