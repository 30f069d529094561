package app

import (
	"context"
	"log"

	"code-session-service/internal/domain"
)

// DraftStore abstracts how drafts are persisted (in-memory, Redis, etc).
//
// Get returns (nil, nil) on a miss; implementations downgrade read
// failures to a miss as well, so callers never have to distinguish
// "storage broken" from "never saved". Write failures do propagate so the
// autosave controller can surface them.
type DraftStore interface {
	Init(ctx context.Context) (string, error)
	Get(ctx context.Context, id domain.DraftIdentity) (*domain.DraftRecord, error)
	Put(ctx context.Context, id domain.DraftIdentity, code string) error
	Delete(ctx context.Context, id domain.DraftIdentity) error
	SweepStale(ctx context.Context) error
}

// ProgressRepository looks up the backend-held last submitted/saved code
// for an identity. An empty string means no remote progress exists.
type ProgressRepository interface {
	LoadProgress(ctx context.Context, id domain.DraftIdentity) (string, error)
}

// Source tags where resolved editor code came from.
type Source string

const (
	SourceLocal   Source = "local"
	SourceRemote  Source = "remote"
	SourceDefault Source = "default"
)

// Resolution is the code an opening editor should display.
type Resolution struct {
	Code   string `json:"code"`
	Source Source `json:"source"`
}

// Resolver decides which code to show when an editor opens: the local
// draft wins over remote progress, which wins over the language template.
// Local edits are strictly newer information than the server's last known
// submission, hence the ordering.
type Resolver struct {
	drafts   DraftStore
	progress ProgressRepository
}

func NewResolver(drafts DraftStore, progress ProgressRepository) *Resolver {
	return &Resolver{drafts: drafts, progress: progress}
}

// Resolve walks the local draft, remote progress, default template chain.
// A stored draft byte-identical to the template means nothing was typed
// and is skipped, so it cannot mask a legitimate remote restore.
func (r *Resolver) Resolve(ctx context.Context, id domain.DraftIdentity) (Resolution, error) {
	lang, ok := LanguageByID(id.Language)
	if !ok {
		return Resolution{}, domain.ErrUnknownLanguage
	}

	if rec, err := r.drafts.Get(ctx, id); err == nil && rec != nil && Meaningful(rec.Code, lang) {
		return Resolution{Code: rec.Code, Source: SourceLocal}, nil
	}

	remote, err := r.progress.LoadProgress(ctx, id)
	if err != nil {
		// Remote lookup failures degrade to the template; they must not
		// keep the editor from opening.
		log.Printf("resolve: remote progress lookup failed for %s: %v", id.Key(), err)
	} else if Meaningful(remote, lang) {
		return Resolution{Code: remote, Source: SourceRemote}, nil
	}

	return Resolution{Code: lang.Template, Source: SourceDefault}, nil
}
