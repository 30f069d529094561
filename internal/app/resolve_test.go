package app_test

import (
	"context"
	"testing"
	"time"

	"code-session-service/internal/app"
	"code-session-service/internal/domain"
	"code-session-service/internal/infra/memory"
)

var cIdentity = domain.DraftIdentity{ProblemID: 42, SectionID: 7, Language: "c"}

func cLang(t *testing.T) app.Language {
	t.Helper()
	lang, ok := app.LanguageByID("c")
	if !ok {
		t.Fatalf("c missing from language registry")
	}
	return lang
}

func TestResolvePrefersLocalDraftOverRemote(t *testing.T) {
	ctx := context.Background()
	drafts := memory.NewDraftStore(time.Hour)
	if err := drafts.Put(ctx, cIdentity, "int main(void) { return 1; }"); err != nil {
		t.Fatalf("put: %v", err)
	}
	progress := memory.NewStaticProgressRepo(map[string]string{
		cIdentity.Key(): "int main(void) { return 2; }",
	})

	res, err := app.NewResolver(drafts, progress).Resolve(ctx, cIdentity)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Source != app.SourceLocal {
		t.Fatalf("expected local source, got %s", res.Source)
	}
	if res.Code != "int main(void) { return 1; }" {
		t.Fatalf("expected local draft code, got %q", res.Code)
	}
}

func TestResolveSkipsTemplateIdenticalDraft(t *testing.T) {
	ctx := context.Background()
	lang := cLang(t)

	drafts := memory.NewDraftStore(time.Hour)
	// A stored draft equal to the template means nothing was typed.
	if err := drafts.Put(ctx, cIdentity, lang.Template); err != nil {
		t.Fatalf("put: %v", err)
	}
	progress := memory.NewStaticProgressRepo(map[string]string{
		cIdentity.Key(): "int main(void) { return 7; }",
	})

	res, err := app.NewResolver(drafts, progress).Resolve(ctx, cIdentity)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Source != app.SourceRemote {
		t.Fatalf("expected fall-through to remote, got %s", res.Source)
	}
}

func TestResolveSkipsTemplateIdenticalRemote(t *testing.T) {
	ctx := context.Background()
	lang := cLang(t)

	drafts := memory.NewDraftStore(time.Hour)
	progress := memory.NewStaticProgressRepo(map[string]string{
		cIdentity.Key(): lang.Template,
	})

	res, err := app.NewResolver(drafts, progress).Resolve(ctx, cIdentity)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Source != app.SourceDefault {
		t.Fatalf("expected default source, got %s", res.Source)
	}
}

func TestResolveFallsBackToTemplate(t *testing.T) {
	ctx := context.Background()
	lang := cLang(t)

	drafts := memory.NewDraftStore(time.Hour)
	progress := memory.NewStaticProgressRepo(nil)

	res, err := app.NewResolver(drafts, progress).Resolve(ctx, cIdentity)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Source != app.SourceDefault {
		t.Fatalf("expected default source, got %s", res.Source)
	}
	if res.Code != lang.Template {
		t.Fatalf("expected the C template, got %q", res.Code)
	}
}

func TestResolveRejectsUnknownLanguage(t *testing.T) {
	drafts := memory.NewDraftStore(time.Hour)
	progress := memory.NewStaticProgressRepo(nil)

	_, err := app.NewResolver(drafts, progress).Resolve(context.Background(), domain.DraftIdentity{
		ProblemID: 1, SectionID: 1, Language: "cobol",
	})
	if err != domain.ErrUnknownLanguage {
		t.Fatalf("expected unknown language error, got %v", err)
	}
}

func TestLanguageSwitchIsSeparateIdentity(t *testing.T) {
	ctx := context.Background()
	drafts := memory.NewDraftStore(time.Hour)
	progress := memory.NewStaticProgressRepo(nil)
	resolver := app.NewResolver(drafts, progress)

	if err := drafts.Put(ctx, cIdentity, "int main(void) { return 3; }"); err != nil {
		t.Fatalf("put: %v", err)
	}

	java := cIdentity
	java.Language = "java17"
	res, err := resolver.Resolve(ctx, java)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Source != app.SourceDefault {
		t.Fatalf("c draft leaked into java identity: %+v", res)
	}
}
