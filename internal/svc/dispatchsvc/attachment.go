package dispatchsvc

import (
	"context"
	"errors"

	"github.com/yusufsyaifudin/pdfmailer/internal/svc/pdfresolver"
	"github.com/yusufsyaifudin/pdfmailer/pkg/mailclient"
	"github.com/yusufsyaifudin/ylog"
)

type lookup struct {
	identifier string
	directory  string
	source     pdfresolver.Source
}

// resolveAttachments resolves PAN against primary dir and PAN1 against secondary dir.
// Not found identifier is skipped, any other resolver error is returned as is.
func (s *DefaultService) resolveAttachments(ctx context.Context, r Recipient) ([]pdfresolver.Match, error) {
	lookups := []lookup{
		{identifier: r.PAN, directory: s.Config.PrimaryDir, source: pdfresolver.SourcePrimary},
		{identifier: r.PAN1, directory: s.Config.SecondaryDir, source: pdfresolver.SourceSecondary},
	}

	matches := make([]pdfresolver.Match, 0, len(lookups))
	for _, l := range lookups {
		match, err := s.Config.Resolver.Resolve(ctx, l.identifier, l.directory, l.source)
		switch {
		case err == nil:
			matches = append(matches, match)

		case errors.Is(err, pdfresolver.ErrNoIdentifier):
			continue

		case errors.Is(err, pdfresolver.ErrNotFound):
			ylog.Debug(ctx, "pdf not found", ylog.KV("source", l.source), ylog.KV("error", err))
			continue

		default:
			return nil, err
		}
	}

	return matches, nil
}

// toAttachments maps matches to mail attachments. When the two files share the same name,
// each is prefixed with its source so that recipient never gets two attachments with one name.
func toAttachments(matches []pdfresolver.Match) []mailclient.Attachment {
	rename := len(matches) == 2 && matches[0].Filename == matches[1].Filename

	out := make([]mailclient.Attachment, 0, len(matches))
	for _, m := range matches {
		name := m.Filename
		if rename {
			name = string(m.Source) + "_" + name
		}

		out = append(out, mailclient.Attachment{
			Filename: name,
			Path:     m.FullPath,
		})
	}

	return out
}
