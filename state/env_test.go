package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/text/language"

	"tocview/access"
	"tocview/config"
	"tocview/index"
)

func TestContextWithEnv(t *testing.T) {
	ctx := ContextWithEnv(context.Background())
	if ctx == nil {
		t.Fatal("ContextWithEnv() returned nil")
	}

	env := EnvFromContext(ctx)
	if env == nil {
		t.Fatal("EnvFromContext() returned nil")
	}

	if env.start.IsZero() {
		t.Error("Environment start time not set")
	}
	if env.Format != config.OutputFmtText {
		t.Errorf("Format = %s, want text", env.Format)
	}
}

func TestEnvFromContext(t *testing.T) {
	t.Run("valid context", func(t *testing.T) {
		ctx := ContextWithEnv(context.Background())
		if env := EnvFromContext(ctx); env == nil {
			t.Error("Expected non-nil environment")
		}
	})

	t.Run("panic on missing env", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Expected panic when env not in context")
			}
		}()

		// Use plain context without env
		EnvFromContext(context.Background())
	})
}

func TestLocalEnv_Uptime(t *testing.T) {
	env := EnvFromContext(ContextWithEnv(context.Background()))

	time.Sleep(10 * time.Millisecond)
	uptime := env.Uptime()

	if uptime < 10*time.Millisecond {
		t.Errorf("Uptime() = %v, expected at least 10ms", uptime)
	}
	if uptime > 1*time.Second {
		t.Errorf("Uptime() = %v, unexpectedly large", uptime)
	}
}

func TestLocalEnv_RedirectStdLog(t *testing.T) {
	t.Run("with logger", func(t *testing.T) {
		env := &LocalEnv{
			Log: zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1))),
		}

		env.RedirectStdLog()
		if env.restoreStdLog == nil {
			t.Error("Expected restoreStdLog to be set")
		}
		env.RestoreStdLog()
	})

	t.Run("without logger", func(t *testing.T) {
		env := &LocalEnv{}

		// Should not panic
		env.RedirectStdLog()
		if env.restoreStdLog != nil {
			t.Error("Expected restoreStdLog to remain nil")
		}
		env.RestoreStdLog()
	})
}

func TestLanguages(t *testing.T) {
	tags, err := Languages(&config.LanguagesConfig{Supported: []string{"de", "en-GB"}})
	if err != nil {
		t.Fatalf("Languages() error = %v", err)
	}
	if len(tags) != 2 || tags[0] != language.German || tags[1] != language.BritishEnglish {
		t.Errorf("Languages() = %v", tags)
	}

	if _, err := Languages(&config.LanguagesConfig{Supported: []string{"??"}}); err == nil {
		t.Error("Expected error for bad language")
	}
}

func TestGrants(t *testing.T) {
	grants := Grants(&config.AccessConfig{Conditions: map[string][]string{
		"PRINT":  {"list", "download_pdf"},
		"CLOSED": {},
	}})
	if got := grants["PRINT"]; len(got) != 2 || got[1] != access.PrivilegeDownloadPDF {
		t.Errorf("PRINT grants = %v", got)
	}
	if got := grants["CLOSED"]; len(got) != 0 {
		t.Errorf("CLOSED grants = %v", got)
	}
}

func TestLocalEnv_Connect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.yaml")
	fixture := `documents:
  - PI: PPN1
    DOCSTRCT: Monograph
`
	if err := os.WriteFile(path, []byte(fixture), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	cfg.Index.Path = path

	env := &LocalEnv{Cfg: cfg, Log: zaptest.NewLogger(t)}
	if err := env.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer env.Disconnect()

	if env.Index == nil || env.Translator == nil || env.Access == nil || env.URLs == nil {
		t.Fatal("Connect() left collaborators unset")
	}
	n, err := env.Index.Count(context.Background(), index.Where(index.FieldPI, "PPN1"))
	if err != nil || n != 1 {
		t.Errorf("Count() = %d, %v", n, err)
	}
	if got := env.Translator.Translate("Volume", language.German); got != "Band" {
		t.Errorf("Translate() = %q, want Band", got)
	}
	if _, err := env.URLs.PageURL("PPN1", 1, "", "image"); err != nil {
		t.Errorf("PageURL() error = %v", err)
	}

	if err := env.Disconnect(); err != nil {
		t.Errorf("Disconnect() error = %v", err)
	}
	if env.Index != nil {
		t.Error("Disconnect() should release index")
	}
}

func TestLocalEnv_ConnectKeepsCollaborators(t *testing.T) {
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	idx := index.NewMemory()
	env := &LocalEnv{Cfg: cfg, Log: zaptest.NewLogger(t), Index: idx, Access: access.AllowAll{}}
	if err := env.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if env.Index != idx {
		t.Error("Connect() replaced preset index")
	}
	if _, ok := env.Access.(access.AllowAll); !ok {
		t.Error("Connect() replaced preset access checker")
	}
}

func TestLocalEnv_ConnectErrors(t *testing.T) {
	if err := (&LocalEnv{}).Connect(context.Background()); err == nil {
		t.Error("Expected error for uninitialized environment")
	}

	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	env := &LocalEnv{Cfg: cfg, Log: zaptest.NewLogger(t)}
	if err := env.Connect(context.Background()); err == nil {
		t.Error("Expected error when index path is not configured")
	}

	cfg.Index.Path = filepath.Join(t.TempDir(), "missing.db")
	if err := env.Connect(context.Background()); err == nil {
		t.Error("Expected error for missing index")
	}
}

func TestEnvKey(t *testing.T) {
	var key envKey
	ctx := context.WithValue(context.Background(), key, &LocalEnv{start: time.Now()})

	val := ctx.Value(key)
	if val == nil {
		t.Error("Failed to retrieve value with envKey")
	}
	if _, ok := val.(*LocalEnv); !ok {
		t.Error("Retrieved value is not *LocalEnv")
	}
}
