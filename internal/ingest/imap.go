package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"

	"github.com/tedkulp/cartulary-go/internal/db"
	"github.com/tedkulp/cartulary-go/internal/extract"
	"github.com/tedkulp/cartulary-go/internal/model"
)

// imapPollInterval mirrors the directory watcher's reconciliation cadence.
const imapPollInterval = 60 * time.Second

// IMAPPoller polls every active IMAP ImportSource on a fixed interval,
// connecting fresh each round (mailboxes are small and polled
// infrequently, so a persistent connection pool isn't worth the
// complexity).
type IMAPPoller struct {
	sources Deps
	repo    *db.ImportSourceRepo
}

// NewIMAPPoller builds an IMAPPoller.
func NewIMAPPoller(deps Deps, repo *db.ImportSourceRepo) *IMAPPoller {
	return &IMAPPoller{sources: deps, repo: repo}
}

// Run blocks, polling every imapPollInterval until ctx is cancelled.
func (p *IMAPPoller) Run(ctx context.Context) {
	p.pollAll(ctx)
	ticker := time.NewTicker(imapPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollAll(ctx)
		}
	}
}

func (p *IMAPPoller) pollAll(ctx context.Context) {
	sources, err := p.repo.ListActive(ctx, model.ImportSourceIMAP)
	if err != nil {
		slog.Error("ingest: list active imap sources failed", "error", err)
		return
	}
	for _, src := range sources {
		if err := p.pollOne(ctx, src); err != nil {
			// Never echo credentials: err is always constructed from
			// protocol/library errors, never from src.IMAPPassword.
			slog.Error("ingest: imap poll failed", "source_id", src.ID, "error", err)
			if markErr := p.repo.MarkError(ctx, src.ID, err.Error()); markErr != nil {
				slog.Error("ingest: failed to record imap error", "source_id", src.ID, "error", markErr)
			}
			continue
		}
		if err := p.repo.MarkRun(ctx, src.ID); err != nil {
			slog.Error("ingest: failed to record successful imap run", "source_id", src.ID, "error", err)
		}
	}
}

func (p *IMAPPoller) pollOne(ctx context.Context, src model.ImportSource) error {
	if src.IMAPHost == nil || src.IMAPPort == nil || src.IMAPUsername == nil || src.IMAPPassword == nil {
		return fmt.Errorf("imap source missing connection fields")
	}
	addr := fmt.Sprintf("%s:%d", *src.IMAPHost, *src.IMAPPort)

	var c *imapclient.Client
	var err error
	if src.IMAPUseSSL {
		c, err = imapclient.DialTLS(addr, nil)
	} else {
		c, err = imapclient.DialInsecure(addr, nil)
	}
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer c.Close()

	if err := c.Login(*src.IMAPUsername, *src.IMAPPassword).Wait(); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	mailbox := "INBOX"
	if src.IMAPMailbox != nil && *src.IMAPMailbox != "" {
		mailbox = *src.IMAPMailbox
	}
	if _, err := c.Select(mailbox, nil).Wait(); err != nil {
		return fmt.Errorf("select %s: %w", mailbox, err)
	}

	searchData, err := c.UIDSearch(&imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}, nil).Wait()
	if err != nil {
		return fmt.Errorf("search unseen: %w", err)
	}

	for _, uid := range searchData.AllUIDs() {
		if err := p.processMessage(ctx, c, src, uid); err != nil {
			slog.Error("ingest: imap message processing failed, skipping", "source_id", src.ID, "uid", uid, "error", err)
			continue
		}
	}
	return nil
}

func (p *IMAPPoller) processMessage(ctx context.Context, c *imapclient.Client, src model.ImportSource, uid imap.UID) error {
	uidSet := imap.UIDSetNum(uid)
	fetchOptions := &imap.FetchOptions{
		BodySection: []*imap.FetchItemBodySection{{}},
	}

	fetchCmd := c.Fetch(uidSet, fetchOptions)
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return fmt.Errorf("no message found for uid %d", uid)
	}

	var raw []byte
	for {
		item := msg.Next()
		if item == nil {
			break
		}
		if section, ok := item.(imapclient.FetchItemDataBodySection); ok {
			data, err := io.ReadAll(section.Literal)
			if err != nil {
				return fmt.Errorf("read message body: %w", err)
			}
			raw = data
		}
	}
	if raw == nil {
		return fmt.Errorf("message uid %d had no body section", uid)
	}

	attachments, err := extractAttachments(raw)
	if err != nil {
		return fmt.Errorf("parse message: %w", err)
	}

	anyIngested := false
	for _, att := range attachments {
		if !extract.IsDocumentExtension(extOf(att.filename)) {
			continue
		}
		result, err := ingestFile(ctx, p.sources, src.OwnerID, nil, att.filename, "", bytes.NewReader(att.data))
		if err != nil {
			slog.Error("ingest: imap attachment ingest failed", "source_id", src.ID, "filename", att.filename, "error", err)
			continue
		}
		anyIngested = true
		_ = result
	}

	return p.postProcess(ctx, c, src, uid, anyIngested)
}

// postProcess copies the message to the processed folder and deletes
// it, or marks it seen, per the configured post-import action.
func (p *IMAPPoller) postProcess(ctx context.Context, c *imapclient.Client, src model.ImportSource, uid imap.UID, ingested bool) error {
	uidSet := imap.UIDSetNum(uid)

	if ingested && src.IMAPProcessedFolder != nil && *src.IMAPProcessedFolder != "" {
		if err := c.Copy(uidSet, *src.IMAPProcessedFolder).Wait(); err != nil {
			return fmt.Errorf("copy to processed folder: %w", err)
		}
		storeFlags := &imap.StoreFlags{Op: imap.StoreFlagsAdd, Flags: []imap.Flag{imap.FlagDeleted}}
		if err := c.Store(uidSet, storeFlags, nil).Wait(); err != nil {
			return fmt.Errorf("flag deleted: %w", err)
		}
		if err := c.Expunge().Close(); err != nil {
			return fmt.Errorf("expunge: %w", err)
		}
		return nil
	}

	storeFlags := &imap.StoreFlags{Op: imap.StoreFlagsAdd, Flags: []imap.Flag{imap.FlagSeen}}
	if err := c.Store(uidSet, storeFlags, nil).Wait(); err != nil {
		return fmt.Errorf("flag seen: %w", err)
	}
	return nil
}

type attachment struct {
	filename string
	data     []byte
}

// extractAttachments walks the MIME parts of a raw RFC 2047-encoded
// message, decoding headers and collecting attachment payloads.
func extractAttachments(raw []byte) ([]attachment, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("create mail reader: %w", err)
	}

	var out []attachment
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read mail part: %w", err)
		}

		switch h := part.Header.(type) {
		case *mail.AttachmentHeader:
			filename, err := h.Filename()
			if err != nil || filename == "" {
				continue
			}
			data, err := io.ReadAll(part.Body)
			if err != nil {
				return nil, fmt.Errorf("read attachment %q: %w", filename, err)
			}
			out = append(out, attachment{filename: decodeHeaderWord(filename), data: data})
		}
	}
	return out, nil
}

// decodeHeaderWord decodes an RFC 2047 encoded-word filename, falling
// back to the raw value if it isn't encoded.
func decodeHeaderWord(s string) string {
	dec := new(mime.WordDecoder)
	if decoded, err := dec.DecodeHeader(s); err == nil {
		return decoded
	}
	return s
}

func extOf(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx == -1 {
		return ""
	}
	return strings.ToLower(filename[idx:])
}
