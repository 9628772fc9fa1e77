package sync

import (
	"context"
	"fmt"
	"unicode/utf8"

	"race-timing/core/apperr"
	"race-timing/core/storage"
	"race-timing/core/store"
	"race-timing/feature/sync/provider"

	"go.uber.org/zap"
)

// snippetLimit bounds the raw body echoed by a preview.
const snippetLimit = 5000

// PreviewProviderData fetches one page of a provider listing for diagnostics.
// Non-2xx replies are reported, not returned as errors. When an archive is
// configured the raw body is stored and its key returned.
func (s *Service) PreviewProviderData(ctx context.Context, campaignID, kind string, page int) (*Preview, error) {
	k := provider.Kind(kind)
	if !k.Previewable() {
		return nil, apperr.Invalid("type must be one of info, bio, score, split")
	}
	if page < 1 {
		page = 1
	}
	_, creds, err := s.loadCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	entry, err := s.logs.Start(ctx, campaignID, fmt.Sprintf("RaceTiger %s preview started", kind))
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(ctx, creds, provider.Request{Kind: k, Page: page})
	if err != nil {
		s.finish(entry, store.SyncError, fmt.Sprintf("RaceTiger %s preview failed: %s", kind, apperr.Public(err, true)), 0, 1, nil)
		return nil, err
	}

	snippet, truncated := truncate(resp.Body, snippetLimit)
	preview := &Preview{
		Request:       PreviewRequest{Endpoint: resp.Endpoint, Params: resp.Params},
		OK:            resp.OK(),
		HTTPStatus:    resp.Status,
		ContentType:   resp.ContentType,
		BodySize:      len(resp.Body),
		RawSnippet:    snippet,
		Truncated:     truncated,
		ItemCount:     len(provider.ExtractRows(resp.Parsed)),
		PayloadSample: provider.PayloadSample(resp.Parsed),
	}

	if s.archive != nil {
		key := storage.SnapshotKey(campaignID, kind, s.now())
		if _, err := s.archive.Save(ctx, key, resp.Body, resp.ContentType); err != nil {
			s.logger.Warn("Failed to archive provider payload", zap.String("campaign_id", campaignID), zap.Error(err))
		} else {
			preview.ArchiveKey = key
		}
	}

	if !preview.OK {
		msg := fmt.Sprintf("RaceTiger %s preview failed: HTTP %d", kind, resp.Status)
		s.finish(entry, store.SyncError, msg, 0, 1, preview)
		return preview, nil
	}
	msg := fmt.Sprintf("RaceTiger %s preview success (HTTP %d, %d items)", kind, resp.Status, preview.ItemCount)
	s.finish(entry, store.SyncSuccess, msg, preview.ItemCount, 0, preview)
	return preview, nil
}

// truncate cuts body to at most limit bytes without splitting a UTF-8 sequence.
func truncate(body []byte, limit int) (string, bool) {
	if len(body) <= limit {
		return string(body), false
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]), true
}
