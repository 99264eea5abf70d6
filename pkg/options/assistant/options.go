// Package assistant provides question-answering pipeline configuration options.
package assistant

import (
	"fmt"

	"github.com/kart-io/librarian/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Options contains assistant-specific configuration.
type Options struct {
	// TopK is the default number of results from similarity search.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// Collection is the name of the Milvus collection holding book vectors.
	Collection string `json:"collection" mapstructure:"collection"`

	// MaxDescriptionChars bounds the per-book description in the prompt context.
	MaxDescriptionChars int `json:"max-description-chars" mapstructure:"max-description-chars"`

	// PromptTemplate overrides the built-in prompt template. It must contain
	// {{context}} and {{question}} placeholders. Empty uses the built-in one.
	PromptTemplate string `json:"prompt-template" mapstructure:"prompt-template"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		TopK:                5,
		Collection:          "books",
		MaxDescriptionChars: 200,
	}
}

// AddFlags adds flags for assistant options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.TopK, options.Join(prefixes...)+"assistant.top-k", o.TopK, "Default number of results from similarity search.")
	fs.StringVar(&o.Collection, options.Join(prefixes...)+"assistant.collection", o.Collection, "Milvus collection name.")
	fs.IntVar(&o.MaxDescriptionChars, options.Join(prefixes...)+"assistant.max-description-chars", o.MaxDescriptionChars, "Per-book description truncation length in the prompt context.")
	fs.StringVar(&o.PromptTemplate, options.Join(prefixes...)+"assistant.prompt-template", o.PromptTemplate, "Prompt template override with {{context}} and {{question}} placeholders.")
}

// Validate validates the assistant options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("assistant.top-k must be positive"))
	}
	if o.Collection == "" {
		errs = append(errs, fmt.Errorf("assistant.collection cannot be empty"))
	}
	return errs
}

// Complete completes the assistant options with defaults.
func (o *Options) Complete() error {
	if o.MaxDescriptionChars <= 0 {
		o.MaxDescriptionChars = 200
	}
	return nil
}
