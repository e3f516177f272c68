package commands

import (
	"context"
	"encoding/base64"
	"io"
	"time"

	"github.com/systmms/secretsprovider/internal/config"
	dserrors "github.com/systmms/secretsprovider/internal/errors"
	"github.com/systmms/secretsprovider/internal/logging"
	"github.com/systmms/secretsprovider/internal/metrics"
	"github.com/systmms/secretsprovider/internal/providers"
	"github.com/systmms/secretsprovider/pkg/provider"
)

// session is one configured provider opened for a single command.
type session struct {
	cfg      *config.Config
	name     string
	typ      string
	provider provider.Provider
	ctx      context.Context
	cancel   context.CancelFunc
	closer   io.Closer
}

// openProvider loads the configuration, builds the named provider and bounds
// the command by the provider's timeout_ms.
func openProvider(ctx context.Context, cfg *config.Config, name string) (*session, error) {
	if name == "" {
		return nil, dserrors.UserError{
			Message:    "Provider name is required",
			Suggestion: "Use --provider <name> with a provider from your configuration file",
		}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Definition == nil {
		if err := cfg.Load(); err != nil {
			return nil, err
		}
	}

	pc, err := cfg.GetProvider(name)
	if err != nil {
		return nil, err
	}

	registry := providers.NewRegistry()
	registry.SetLogger(cfg.Logger)
	p, err := registry.CreateProvider(name, pc)
	if err != nil {
		return nil, dserrors.ProviderError(pc.Type, "initialization", err)
	}

	s := &session{cfg: cfg, name: name, typ: pc.Type}
	if c, ok := p.(io.Closer); ok {
		s.closer = c
	}
	s.provider = providers.Instrument(p, metrics.Init())
	s.ctx, s.cancel = context.WithTimeout(ctx, time.Duration(pc.GetProviderTimeout())*time.Millisecond)
	return s, nil
}

func (s *session) Close() {
	s.cancel()
	if s.closer != nil {
		_ = s.closer.Close()
	}
}

// fail turns a lookup error into a user facing error.
func (s *session) fail(operation string, err error) error {
	return dserrors.ProviderError(s.typ, operation, err)
}

func logger(cfg *config.Config) *logging.Logger {
	if cfg.Logger == nil {
		return logging.Nop()
	}
	return cfg.Logger
}

// encodeText and encodeBinary render revealed values for the terminal.
func encodeText(v string) (string, string) { return v, "" }

func encodeBinary(v []byte) (string, string) {
	return base64.StdEncoding.EncodeToString(v), "base64"
}
