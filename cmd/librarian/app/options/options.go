// Package options contains flags and options for initializing the librarian server.
package options

import (
	"fmt"

	"github.com/spf13/pflag"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/librarian/internal/librarian"
	assistantopts "github.com/kart-io/librarian/pkg/options/assistant"
	cacheopts "github.com/kart-io/librarian/pkg/options/cache"
	llmopts "github.com/kart-io/librarian/pkg/options/llm"
	logopts "github.com/kart-io/librarian/pkg/options/logger"
	milvusopts "github.com/kart-io/librarian/pkg/options/milvus"
	postgresopts "github.com/kart-io/librarian/pkg/options/postgres"
	httpopts "github.com/kart-io/librarian/pkg/options/server/http"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// MilvusOptions contains Milvus database configuration.
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// PostgresOptions contains PostgreSQL database configuration.
	PostgresOptions *postgresopts.Options `json:"postgres" mapstructure:"postgres"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// ChatOptions contains chat provider configuration.
	ChatOptions *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// AssistantOptions contains question-answering pipeline configuration.
	AssistantOptions *assistantopts.Options `json:"assistant" mapstructure:"assistant"`

	// CacheOptions contains answer cache configuration.
	CacheOptions *cacheopts.Options `json:"cache" mapstructure:"cache"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:      httpopts.NewOptions(),
		LogOptions:       logopts.NewOptions(),
		MilvusOptions:    milvusopts.NewOptions(),
		PostgresOptions:  postgresopts.NewOptions(),
		EmbeddingOptions: llmopts.NewEmbeddingOptions(),
		ChatOptions:      llmopts.NewChatOptions(),
		AssistantOptions: assistantopts.NewOptions(),
		CacheOptions:     cacheopts.NewOptions(),
	}
}

// AddFlags adds all server flags to the given FlagSet.
func (o *ServerOptions) AddFlags(fs *pflag.FlagSet) {
	o.HTTPOptions.AddFlags(fs)
	o.LogOptions.AddFlags(fs)
	o.MilvusOptions.AddFlags(fs, "milvus.")
	o.PostgresOptions.AddFlags(fs, "postgres.")
	o.EmbeddingOptions.AddFlags(fs, "embedding.")
	o.ChatOptions.AddFlags(fs, "chat.")
	o.AssistantOptions.AddFlags(fs)
	o.CacheOptions.AddFlags(fs)
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	if err := o.HTTPOptions.Complete(); err != nil {
		return err
	}
	if err := o.LogOptions.Complete(); err != nil {
		return err
	}
	if err := o.EmbeddingOptions.Complete(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := o.ChatOptions.Complete(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	if err := o.AssistantOptions.Complete(); err != nil {
		return fmt.Errorf("assistant: %w", err)
	}
	if err := o.CacheOptions.Complete(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.HTTPOptions.Validate()...)
	errs = append(errs, o.MilvusOptions.Validate()...)
	errs = append(errs, o.PostgresOptions.Validate()...)
	errs = append(errs, o.EmbeddingOptions.Validate()...)
	errs = append(errs, o.ChatOptions.Validate()...)
	errs = append(errs, o.AssistantOptions.Validate()...)
	errs = append(errs, o.CacheOptions.Validate()...)

	if err := o.LogOptions.Validate(); err != nil {
		errs = append(errs, err)
	}

	return utilerrors.NewAggregate(errs)
}

// Config builds a librarian.Config based on ServerOptions.
func (o *ServerOptions) Config() (*librarian.Config, error) {
	return &librarian.Config{
		HTTPOptions:      o.HTTPOptions,
		LogOptions:       o.LogOptions,
		MilvusOptions:    o.MilvusOptions,
		PostgresOptions:  o.PostgresOptions,
		EmbeddingOptions: o.EmbeddingOptions,
		ChatOptions:      o.ChatOptions,
		AssistantOptions: o.AssistantOptions,
		CacheOptions:     o.CacheOptions,
	}, nil
}
