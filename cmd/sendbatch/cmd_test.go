package sendbatch

import (
	"context"
	"strings"
	"testing"

	"github.com/mitchellh/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yusufsyaifudin/pdfmailer/internal/svc/dispatchsvc"
)

type fakeDispatch struct {
	dispatchsvc.Service

	got []dispatchsvc.Recipient
}

func (f *fakeDispatch) RunBatch(_ context.Context, in dispatchsvc.InputRunBatch) (dispatchsvc.OutRunBatch, error) {
	f.got = in.Recipients

	outcomes := make([]dispatchsvc.Outcome, 0, len(in.Recipients))
	for i, r := range in.Recipients {
		o := dispatchsvc.Outcome{Recipient: r, Status: dispatchsvc.StatusSent, Detail: "Email Sent"}
		if r.PAN == "" {
			o.Status, o.Detail = dispatchsvc.StatusFailed, "No PDFs found"
		}

		if in.Observer != nil {
			in.Observer(i, o)
		}

		outcomes = append(outcomes, o)
	}

	report := dispatchsvc.Report{Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Status == dispatchsvc.StatusSent {
			report.SentCount++
		} else {
			report.FailedCount++
		}
	}

	return dispatchsvc.OutRunBatch{Report: report}, nil
}

func TestSendBatch(t *testing.T) {
	sheet := "Email,Name,PAN,PAN1\n" +
		"alice@example.com,Alice,ABCDE1234F,\n" +
		"\n" +
		"bob@example.com,Bob\n"

	svc := &fakeDispatch{}
	report, err := SendBatch(context.Background(), svc, strings.NewReader(sheet))
	require.NoError(t, err)

	require.Len(t, svc.got, 2)
	assert.Equal(t, dispatchsvc.Recipient{Email: "alice@example.com", Name: "Alice", PAN: "ABCDE1234F"}, svc.got[0])
	assert.Equal(t, "bob@example.com", svc.got[1].Email)

	assert.Equal(t, 1, report.SentCount)
	assert.Equal(t, 1, report.FailedCount)
	assert.Contains(t, report.String(), "- bob@example.com (PAN: N/A, PAN1: N/A): No PDFs found")
}

func TestSendBatch_HeaderOnly(t *testing.T) {
	_, err := SendBatch(context.Background(), &fakeDispatch{}, strings.NewReader("Email,Name,PAN,PAN1\n"))
	assert.Error(t, err)
}

func TestCmd_MissingCSV(t *testing.T) {
	cmd, err := NewCmd()()
	require.NoError(t, err)
	assert.Equal(t, cli.RunResultHelp, cmd.Run([]string{"-config", "config.yml"}))
}
