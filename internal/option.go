package internal

import "github.com/marbeck/vellum/internal/textgen"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	generator textgen.Generator
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithGenerator overrides the text-generation collaborator, primarily for
// substituting a test double.
func WithGenerator(gen textgen.Generator) Option {
	return func(a *application) {
		a.generator = gen
	}
}
