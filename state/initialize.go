package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"tocview/access"
	"tocview/config"
	"tocview/i18n"
	"tocview/index"
	"tocview/urls"
)

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start:  time.Now(),
		Format: config.OutputFmtText,
	}
}

// Languages parses configured language tags, the first one is the default.
func Languages(cfg *config.LanguagesConfig) ([]language.Tag, error) {
	tags := make([]language.Tag, 0, len(cfg.Supported))
	for _, name := range cfg.Supported {
		tag, err := language.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("bad language '%s': %w", name, err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// Grants converts configured access conditions to checker privileges.
func Grants(cfg *config.AccessConfig) map[string][]access.Privilege {
	grants := make(map[string][]access.Privilege, len(cfg.Conditions))
	for cond, privs := range cfg.Conditions {
		for _, p := range privs {
			grants[cond] = append(grants[cond], access.Privilege(p))
		}
	}
	return grants
}

// Connect opens metadata index and prepares the rest of collaborators
// described by configuration. Collaborators already set are kept.
func (e *LocalEnv) Connect(ctx context.Context) error {
	if e.Cfg == nil || e.Log == nil {
		return errors.New("environment is not initialized")
	}

	if e.Index == nil {
		if len(e.Cfg.Index.Path) == 0 {
			return errors.New("metadata index location is not configured")
		}
		store, err := index.Open(ctx, e.Cfg.Index.Path, e.Log)
		if err != nil {
			return err
		}
		e.Index = store
		e.Log.Debug("Metadata index opened", zap.String("path", e.Cfg.Index.Path))
	}

	if e.Translator == nil {
		tags, err := Languages(&e.Cfg.Languages)
		if err != nil {
			return err
		}
		cat, err := i18n.Load(tags, e.Cfg.Languages.MessagesPath)
		if err != nil {
			return err
		}
		e.Translator = cat
	}

	if e.Access == nil {
		e.Access = access.NewConditionChecker(e.Index, Grants(&e.Cfg.Access), e.Log)
	}

	if e.URLs == nil {
		b, err := urls.NewTemplateBuilder(e.Cfg.URLs.Base, e.Cfg.URLs.PageTemplate)
		if err != nil {
			return err
		}
		e.URLs = b
	}
	return nil
}

// Disconnect releases metadata index.
func (e *LocalEnv) Disconnect() error {
	if e.Index == nil {
		return nil
	}
	err := e.Index.Close()
	e.Index = nil
	return err
}
